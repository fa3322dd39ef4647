package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"

	"rnaindex/internal/relations"
	"rnaindex/pkg/domain"
)

// IsTransient reports whether err is a connectivity or timeout failure worth
// retrying. Query and data errors are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 08: connection exception; 57P0x: server shutting down.
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P0")
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// RetryPolicy configures exponential backoff for transient failures.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy retries for up to two minutes.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		MaxElapsedTime:  2 * time.Minute,
		Multiplier:      1.5,
	}
}

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	if p.Multiplier > 0 {
		b.Multiplier = p.Multiplier
	}
	b.MaxElapsedTime = p.MaxElapsedTime
	b.RandomizationFactor = 0.5
	b.Reset()
	return b
}

// RetryNotify is called before each retry with the failing operation name.
type RetryNotify func(operation string, err error, wait time.Duration)

// WithRetry decorates s so every call is retried on transient failures
// according to policy. When retries are exhausted the last error is
// returned unchanged.
func WithRetry(s Store, policy RetryPolicy, notify RetryNotify) Store {
	return &retrying{Store: s, policy: policy, notify: notify}
}

type retrying struct {
	Store
	policy RetryPolicy
	notify RetryNotify
}

func retry[T any](ctx context.Context, r *retrying, operation string, fn func() (T, error)) (T, error) {
	b := backoff.WithContext(r.policy.backOff(), ctx)
	return backoff.RetryNotifyWithData(func() (T, error) {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		if !IsTransient(err) || ctx.Err() != nil {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, b, func(err error, wait time.Duration) {
		if r.notify != nil {
			r.notify(operation, err, wait)
		}
	})
}

func (r *retrying) Entities(ctx context.Context, after string, limit int) ([]domain.SequenceEntity, error) {
	return retry(ctx, r, "entities", func() ([]domain.SequenceEntity, error) {
		return r.Store.Entities(ctx, after, limit)
	})
}

func (r *retrying) XrefIDs(ctx context.Context, upis []string, taxid int64) ([]domain.XrefID, error) {
	return retry(ctx, r, "xref_ids", func() ([]domain.XrefID, error) {
		return r.Store.XrefIDs(ctx, upis, taxid)
	})
}

func (r *retrying) Rows(ctx context.Context, upi string) ([]domain.XrefRow, error) {
	return retry(ctx, r, "rows", func() ([]domain.XrefRow, error) {
		return r.Store.Rows(ctx, upi)
	})
}

func (r *retrying) References(ctx context.Context, upi string) ([]domain.Reference, error) {
	return retry(ctx, r, "references", func() ([]domain.Reference, error) {
		return r.Store.References(ctx, upi)
	})
}

func (r *retrying) HasGenomicCoordinates(ctx context.Context, upi string) (bool, error) {
	return retry(ctx, r, "coordinates", func() (bool, error) {
		return r.Store.HasGenomicCoordinates(ctx, upi)
	})
}

func (r *retrying) Seeds(ctx context.Context, rule relations.Rule, page []domain.XrefID, taxid int64) ([]relations.Seed, error) {
	return retry(ctx, r, "seeds."+string(rule.Kind), func() ([]relations.Seed, error) {
		return r.Store.Seeds(ctx, rule, page, taxid)
	})
}

func (r *retrying) Candidates(ctx context.Context, rule relations.Rule, keys []string, taxid int64) ([]relations.Candidate, error) {
	return retry(ctx, r, "candidates."+string(rule.Kind), func() ([]relations.Candidate, error) {
		return r.Store.Candidates(ctx, rule, keys, taxid)
	})
}
