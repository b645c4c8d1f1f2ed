package store

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

// TestOpen_Disabled_LeavesPGNil verifies Open with no backends enabled returns an empty store
func TestOpen_Disabled_LeavesPGNil(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	s, err := Open(ctx, Config{})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if s == nil {
		t.Fatalf("Open returned nil store")
	}
	if s.PG != nil {
		t.Fatalf("unexpected seams set PG=%T", s.PG)
	}

	// Close should ignore nil seams without error
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

// TestOpen_PGEnabled_BadURL_BubblesError covers the PG error path
func TestOpen_PGEnabled_BadURL_BubblesError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := Config{
		PG: PGConfig{
			Enabled:     true,
			URL:         "://bad", // parse error inside pg.Open
			MaxConns:    1,
			SlowQueryMs: 0,
			LogSQL:      false,
		},
	}

	s, err := Open(ctx, cfg)
	if err == nil {
		t.Fatalf("expected Open error for bad PG URL, got store=%#v", s)
	}
	if s != nil {
		t.Fatalf("expected nil store on error, got %#v", s)
	}
}

// TestOpen_OptionsApplied_NoPanicOnWithLogger exercises the WithLogger option path
func TestOpen_OptionsApplied_NoPanicOnWithLogger(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	// Build a zero-value zerolog.Logger (valid, no-op)
	var zl zerolog.Logger

	s, err := Open(ctx, Config{}, WithLogger(zl))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if s == nil {
		t.Fatalf("Open returned nil store")
	}
	// Close on empty store should be fine
	if e := s.Close(ctx); e != nil {
		t.Fatalf("Close on empty store returned error: %v", e)
	}
}

