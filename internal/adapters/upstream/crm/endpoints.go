package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chronicle/internal/core/record"
)

// ModifiedBetween lists every record whose upstream modification timestamp
// falls inside [since, until), following pagination to exhaustion.
// Payloads that fail to decode come back as rejects so one malformed record
// never sinks the rest of the page
func (c *Client) ModifiedBetween(
	ctx context.Context, since, until time.Time,
) ([]record.TrackedRecord, []record.Rejected, error) {
	var (
		out     []record.TrackedRecord
		rejects []record.Rejected
	)
	cursor := ""
	for {
		q := url.Values{}
		q.Set("modifiedSince", since.UTC().Format(time.RFC3339))
		q.Set("modifiedUntil", until.UTC().Format(time.RFC3339))
		q.Set("limit", fmt.Sprint(c.opts.PageSize))
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		pg, err := c.listPage(ctx, "/v1/requests?"+q.Encode())
		if err != nil {
			return nil, nil, err
		}
		out, rejects = c.decodeItems(pg.Items, out, rejects)
		if pg.NextCursor == "" {
			return out, rejects, nil
		}
		cursor = pg.NextCursor
	}
}

// ByIDs fetches specific records by id, chunked to keep URLs bounded.
// IDs unknown upstream are silently absent from the result
func (c *Client) ByIDs(ctx context.Context, ids []string) ([]record.TrackedRecord, []record.Rejected, error) {
	const chunk = 50
	var (
		out     []record.TrackedRecord
		rejects []record.Rejected
	)
	for len(ids) > 0 {
		n := min(chunk, len(ids))
		q := url.Values{}
		q.Set("ids", strings.Join(ids[:n], ","))
		ids = ids[n:]

		pg, err := c.listPage(ctx, "/v1/requests?"+q.Encode())
		if err != nil {
			return nil, nil, err
		}
		out, rejects = c.decodeItems(pg.Items, out, rejects)
	}
	return out, rejects, nil
}

// decodeItems maps wire DTOs onto domain records, diverting malformed
// payloads into rejects
func (c *Client) decodeItems(
	items []requestDTO, out []record.TrackedRecord, rejects []record.Rejected,
) ([]record.TrackedRecord, []record.Rejected) {
	for _, d := range items {
		r, err := d.toRecord()
		if err != nil {
			c.log.Warn().Str("record_id", d.ID).Err(err).Msg("crm malformed record skipped")
			rejects = append(rejects, record.Rejected{RecordID: d.ID, Err: err})
			continue
		}
		out = append(out, r)
	}
	return out, rejects
}

func (c *Client) listPage(ctx context.Context, path string) (page, error) {
	resp, err := c.Do(ctx, http.MethodGet, path)
	if err != nil {
		return page{}, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Error().Err(cerr).Str("path", path).Msg("crm close body failed")
		}
	}()

	var out page
	b, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return page{}, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return page{}, err
	}
	return out, nil
}
