// Package change decides whether a freshly observed record state is worth persisting
package change

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"chronicle/internal/core/record"

	"golang.org/x/text/unicode/norm"
)

// Fingerprint hashes the monitored subset of a record: status, account id,
// classification, and every date field found on the record and across its
// line items. Line item quantities, editions and other payload churn are
// excluded on purpose; the system tracks auditable drift, not every byte.
// Entries are sorted before hashing so payload reordering never changes the
// result
func Fingerprint(r record.TrackedRecord) string {
	entries := make([]string, 0, 8+len(r.LineItems)*2)

	add := func(k, v string) {
		entries = append(entries, k+"="+canon(v))
	}
	addDate := func(k string, t time.Time) {
		entries = append(entries, k+"="+t.UTC().Format(time.RFC3339))
	}

	add("status", r.Status)
	if r.AccountID != nil {
		add("account_id", *r.AccountID)
	}
	add("classification", r.Classification)

	for name, t := range r.DateFields() {
		addDate("date."+name, t)
	}
	for _, it := range r.LineItems {
		for name, t := range it.DateFields() {
			addDate("item."+canon(it.Key())+"."+name, t)
		}
	}

	sort.Strings(entries)
	sum := sha256.Sum256([]byte(strings.Join(entries, "\n")))
	return hex.EncodeToString(sum[:])
}

// canon trims and NFC-normalizes a value so byte level representation drift
// upstream (composed vs decomposed accents) does not fake a change
func canon(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
