package store_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"rnaindex/internal/infra/persistence/memory"
	"rnaindex/internal/store"
	"rnaindex/internal/testutil"
	"rnaindex/pkg/domain"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("select: %w", context.DeadlineExceeded), true},
		{"bad conn", driver.ErrBadConn, true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"pg connection failure", &pgconn.PgError{Code: "08006"}, true},
		{"pg admin shutdown", &pgconn.PgError{Code: "57P01"}, true},
		{"pg syntax error", &pgconn.PgError{Code: "42601"}, false},
		{"plain", errors.New("no such column"), false},
	}
	for _, tc := range cases {
		if got := store.IsTransient(tc.err); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

// flaky fails the first n Rows calls with err.
type flaky struct {
	*memory.Store
	n     int
	err   error
	calls int
}

func (f *flaky) Rows(ctx context.Context, upi string) ([]domain.XrefRow, error) {
	f.calls++
	if f.calls <= f.n {
		return nil, f.err
	}
	return f.Store.Rows(ctx, upi)
}

func fastPolicy() store.RetryPolicy {
	return store.RetryPolicy{InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, MaxElapsedTime: time.Second, Multiplier: 1.1}
}

func newFlaky(t *testing.T, n int, err error) *flaky {
	t.Helper()
	mem, ferr := testutil.Relationships().Memory()
	if ferr != nil {
		t.Fatalf("fixture: %v", ferr)
	}
	return &flaky{Store: mem, n: n, err: err}
}

func TestWithRetryRecoversFromTransientErrors(t *testing.T) {
	f := newFlaky(t, 2, driver.ErrBadConn)
	var notified []string
	s := store.WithRetry(f, fastPolicy(), func(op string, _ error, _ time.Duration) {
		notified = append(notified, op)
	})
	rows, err := s.Rows(context.Background(), testutil.Standalone)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected fixture row, got %d", len(rows))
	}
	if f.calls != 3 || len(notified) != 2 || notified[0] != "rows" {
		t.Fatalf("expected two retries, calls=%d notified=%v", f.calls, notified)
	}
}

func TestWithRetryDoesNotRetryLogicErrors(t *testing.T) {
	boom := errors.New("column does not exist")
	f := newFlaky(t, 5, boom)
	s := store.WithRetry(f, fastPolicy(), nil)
	if _, err := s.Rows(context.Background(), testutil.Standalone); !errors.Is(err, boom) {
		t.Fatalf("expected logic error, got %v", err)
	}
	if f.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", f.calls)
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	f := newFlaky(t, 1<<20, driver.ErrBadConn)
	policy := fastPolicy()
	policy.MaxElapsedTime = 20 * time.Millisecond
	s := store.WithRetry(f, policy, nil)
	_, err := s.Rows(context.Background(), testutil.Standalone)
	if !errors.Is(err, driver.ErrBadConn) {
		t.Fatalf("expected bad conn after exhausting retries, got %v", err)
	}
	if f.calls < 2 {
		t.Fatalf("expected retries before giving up, got %d calls", f.calls)
	}
}

func TestWithRetryStopsOnCanceledContext(t *testing.T) {
	f := newFlaky(t, 1<<20, driver.ErrBadConn)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := store.WithRetry(f, fastPolicy(), nil)
	if _, err := s.Rows(ctx, testutil.Standalone); err == nil {
		t.Fatalf("expected error on canceled context")
	}
	if f.calls > 1 {
		t.Fatalf("expected no retries after cancel, got %d calls", f.calls)
	}
}
