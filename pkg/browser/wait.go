package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
)

// ErrTimeout is returned when a bounded wait does not observe its condition
// before the context deadline.
var ErrTimeout = errors.New("timeout")

const (
	hasTextJS  = `(text) => !!document.body && document.body.innerText.toLowerCase().includes(text.toLowerCase())`
	goneTextJS = `(text) => !!document.body && !document.body.innerText.includes(text)`
)

// wrapWait turns a context deadline into ErrTimeout and annotates other errors
func wrapWait(ctx context.Context, what string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, what, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// poll evaluates cond until it reports true or ctx ends. Errors from cond are
// treated as transient, since evaluation fails while a navigation is under way.
func poll(ctx context.Context, interval time.Duration, what string, cond func() (bool, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		ok, err := cond()
		if err == nil && ok {
			return nil
		}
		if err != nil {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%s: %w", what, ctx.Err())
			}
			if lastErr != nil {
				return fmt.Errorf("%w: %s (last error: %v)", ErrTimeout, what, lastErr)
			}
			return fmt.Errorf("%w: %s", ErrTimeout, what)
		case <-ticker.C:
		}
	}
}

func (s *Session) evalBool(ctx context.Context, js string, args ...interface{}) (bool, error) {
	res, err := s.page.Context(ctx).Evaluate(rod.Eval(js, args...))
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

// WaitURL waits until the page address equals url
func (s *Session) WaitURL(ctx context.Context, url string) error {
	return poll(ctx, s.interval, "wait for url "+url, func() (bool, error) {
		current, err := s.URL(ctx)
		if err != nil {
			return false, err
		}
		return current == url, nil
	})
}

// WaitText waits until the rendered body text contains text, ignoring case
func (s *Session) WaitText(ctx context.Context, text string) error {
	return poll(ctx, s.interval, fmt.Sprintf("wait for text %q", text), func() (bool, error) {
		return s.evalBool(ctx, hasTextJS, text)
	})
}

// WaitTextGone waits until the rendered body text no longer contains text
func (s *Session) WaitTextGone(ctx context.Context, text string) error {
	return poll(ctx, s.interval, fmt.Sprintf("wait for text %q to disappear", text), func() (bool, error) {
		return s.evalBool(ctx, goneTextJS, text)
	})
}
