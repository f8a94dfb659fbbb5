package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
)

// DefaultBackoff is the pause before the single retry of a transient failure.
const DefaultBackoff = 250 * time.Millisecond

// StatusCoder is implemented by errors that carry an HTTP-like status code.
type StatusCoder interface {
	StatusCode() int
}

// Policy retries an operation once after a fixed backoff when the first
// attempt fails with a transient error. Non-transient errors are returned
// immediately.
type Policy struct {
	Backoff time.Duration

	// IsTransient overrides the default classification when set.
	IsTransient func(error) bool

	// OnRetry is called before the retry attempt with the error of the first attempt.
	OnRetry func(err error)
}

// New creates a Policy with the given backoff. A non-positive backoff uses DefaultBackoff.
func New(backoff time.Duration) Policy {
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return Policy{Backoff: backoff}
}

// Do runs fn, retrying once on a transient failure. The wait honours ctx:
// if ctx is done before the backoff elapses, the first error is returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if err == nil || !p.transient(err) {
		return err
	}

	if p.OnRetry != nil {
		p.OnRetry(err)
	}

	backoff := p.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	timer := time.NewTimer(backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return err
	case <-timer.C:
	}

	return fn(ctx)
}

// Value is Do for operations that produce a result.
func Value[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (p Policy) transient(err error) bool {
	if p.IsTransient != nil {
		return p.IsTransient(err)
	}
	return IsTransient(err)
}

// IsTransient reports whether err is worth retrying: network failures,
// timeouts, HTTP 429 and 5xx responses. Caller cancellation and 4xx
// responses are not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	if code, ok := StatusCode(err); ok {
		return code == http.StatusTooManyRequests || code >= 500
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// StatusCode extracts an HTTP status code from err, if it carries one.
func StatusCode(err error) (int, bool) {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode(), true
	}
	return 0, false
}

// IsNotFound reports whether err is an HTTP 404 response.
func IsNotFound(err error) bool {
	code, ok := StatusCode(err)
	return ok && code == http.StatusNotFound
}
