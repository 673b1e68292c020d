package silvertree

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// Refresher exchanges a refresh token for a new credential. *Session
// implements it.
type Refresher interface {
	Refresh(ctx context.Context) (Credential, error)
}

// Recovery is the refresh-and-retry-once policy applied around session and
// resource calls: a call that fails because the credential went stale
// triggers exactly one refresh and one retry. Concurrent callers sharing a
// Recovery share a single in-flight refresh.
type Recovery struct {
	refresher Refresher
	logger    *slog.Logger
	group     singleflight.Group

	// OnRefresh, if set, is called with every credential obtained by the
	// policy, typically to persist it.
	OnRefresh func(Credential) error
}

// NewRecovery creates a policy that refreshes through r.
func NewRecovery(r Refresher, logger *slog.Logger) *Recovery {
	if logger == nil {
		logger = slog.Default()
	}

	return &Recovery{refresher: r, logger: logger}
}

// Recoverable reports whether err indicates a stale credential: a failed
// liveness check or a 401 from any resource call.
func Recoverable(err error) bool {
	return errors.Is(err, ErrConnectivity) || errors.Is(err, ErrUnauthorized)
}

// Recover runs call, and when it fails with a Recoverable error refreshes the
// credential once and runs call one more time. A failed refresh is returned
// instead of the original error; anything else propagates unchanged.
func Recover[T any](ctx context.Context, p *Recovery, call func(context.Context) (T, error)) (T, error) {
	v, err := call(ctx)
	if err == nil || p == nil || !Recoverable(err) {
		return v, err
	}

	p.logger.Info("credential rejected, refreshing once before retry", rejectionAttrs(err)...)

	if refreshErr := p.refresh(ctx); refreshErr != nil {
		var zero T

		return zero, refreshErr
	}

	return call(ctx)
}

// rejectionAttrs describes a rejected call by operation and status only.
// The error text is left out since it carries the raw server body.
func rejectionAttrs(err error) []any {
	var stErr *Error
	if !errors.As(err, &stErr) {
		return nil
	}

	return []any{
		slog.String("op", stErr.Op),
		slog.Int("status", stErr.StatusCode),
	}
}

// refresh performs one refresh, collapsing concurrent requests.
func (p *Recovery) refresh(ctx context.Context) error {
	_, err, shared := p.group.Do("refresh", func() (any, error) {
		cred, err := p.refresher.Refresh(ctx)
		if err != nil {
			return nil, err
		}

		if p.OnRefresh != nil {
			if hookErr := p.OnRefresh(cred); hookErr != nil {
				// The in-memory credential is already current; only
				// persistence failed, so the retry can still proceed.
				p.logger.Warn("refresh hook failed", slog.String("error", hookErr.Error()))
			}
		}

		return nil, nil
	})

	if shared {
		p.logger.Debug("joined in-flight refresh")
	}

	return err
}
