package verify

import (
	"context"
	"fmt"
	"time"

	"dev/bravebird/clinic-ui-verify/pkg/browser"
)

// The helpers below bound every page interaction by the default timeout, the
// same way each interactive step of the scripts had its own 30s allowance.

func (e *Env) navigate(ctx context.Context, route string, d time.Duration) error {
	ctx, cancel := e.within(ctx, d)
	defer cancel()
	return e.Page.Navigate(ctx, e.Config.URL(route))
}

func (e *Env) fill(ctx context.Context, loc browser.Locator, value string) error {
	ctx, cancel := e.within(ctx, 0)
	defer cancel()
	if err := e.Page.Fill(ctx, loc, value); err != nil {
		return fmt.Errorf("fill %s: %w", loc, err)
	}
	return nil
}

func (e *Env) click(ctx context.Context, loc browser.Locator) error {
	ctx, cancel := e.within(ctx, 0)
	defer cancel()
	if err := e.Page.Click(ctx, loc); err != nil {
		return fmt.Errorf("click %s: %w", loc, err)
	}
	return nil
}

func (e *Env) selectIndex(ctx context.Context, loc browser.Locator, index int) error {
	ctx, cancel := e.within(ctx, 0)
	defer cancel()
	if err := e.Page.SelectIndex(ctx, loc, index); err != nil {
		return fmt.Errorf("select %s: %w", loc, err)
	}
	return nil
}

func (e *Env) count(ctx context.Context, loc browser.Locator) (int, error) {
	ctx, cancel := e.within(ctx, 0)
	defer cancel()
	n, err := e.Page.Count(ctx, loc)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", loc, err)
	}
	return n, nil
}

func (e *Env) waitURL(ctx context.Context, route string, d time.Duration) error {
	ctx, cancel := e.within(ctx, d)
	defer cancel()
	return e.Page.WaitURL(ctx, e.Config.URL(route))
}

func (e *Env) waitText(ctx context.Context, text string) error {
	ctx, cancel := e.within(ctx, 0)
	defer cancel()
	return e.Page.WaitText(ctx, text)
}

func (e *Env) waitTextGone(ctx context.Context, text string) error {
	ctx, cancel := e.within(ctx, 0)
	defer cancel()
	return e.Page.WaitTextGone(ctx, text)
}

func button(name string) browser.Locator {
	return browser.ByRole("button", name)
}
