package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

const selectIndexJS = `function (index) {
	if (index < 0 || index >= this.options.length) return false;
	this.selectedIndex = index;
	this.dispatchEvent(new Event('input', { bubbles: true }));
	this.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
}`

// element waits until the locator resolves to a visible element
func (s *Session) element(ctx context.Context, loc Locator) (*rod.Element, error) {
	p := s.page.Context(ctx)
	el, err := p.ElementByJS(rod.Eval(locateJS, append(loc.args(), loc.Index)...))
	if err != nil {
		return nil, wrapWait(ctx, "locate "+loc.String(), err)
	}
	if err := el.WaitVisible(); err != nil {
		return nil, wrapWait(ctx, "wait visible "+loc.String(), err)
	}
	return el, nil
}

// Fill replaces the value of the located control. Date inputs take a
// YYYY-MM-DD value.
func (s *Session) Fill(ctx context.Context, loc Locator, value string) error {
	el, err := s.element(ctx, loc)
	if err != nil {
		return err
	}

	typ, err := el.Attribute("type")
	if err != nil {
		return wrapWait(ctx, "read type of "+loc.String(), err)
	}
	if typ != nil && *typ == "date" {
		t, err := time.Parse("2006-01-02", value)
		if err != nil {
			return fmt.Errorf("invalid date %q for %s: %w", value, loc, err)
		}
		if err := el.InputTime(t); err != nil {
			return wrapWait(ctx, "fill "+loc.String(), err)
		}
		return nil
	}

	// Clear existing text and input new value
	if err := el.SelectAllText(); err != nil {
		return wrapWait(ctx, "clear "+loc.String(), err)
	}
	if err := el.Input(value); err != nil {
		return wrapWait(ctx, "fill "+loc.String(), err)
	}
	return nil
}

// Click clicks the located element with the left mouse button
func (s *Session) Click(ctx context.Context, loc Locator) error {
	el, err := s.element(ctx, loc)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return wrapWait(ctx, "click "+loc.String(), err)
	}
	return nil
}

// SelectIndex selects the option at index of the located select element
func (s *Session) SelectIndex(ctx context.Context, loc Locator, index int) error {
	el, err := s.element(ctx, loc)
	if err != nil {
		return err
	}
	res, err := el.Eval(selectIndexJS, index)
	if err != nil {
		return wrapWait(ctx, "select option of "+loc.String(), err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("select %s: no option at index %d", loc, index)
	}
	return nil
}

// Count returns how many elements match the locator right now, without waiting
func (s *Session) Count(ctx context.Context, loc Locator) (int, error) {
	res, err := s.page.Context(ctx).Eval(countJS, loc.args()...)
	if err != nil {
		return 0, wrapWait(ctx, "count "+loc.String(), err)
	}
	return res.Value.Int(), nil
}
