package browser

import (
	"fmt"
	"strconv"
)

// Locator kinds
const (
	KindRole        = "role"
	KindLabel       = "label"
	KindPlaceholder = "placeholder"
	KindTitle       = "title"
	KindCSS         = "css"
)

// Locator describes how to find an element on the page. Names match as a
// case-insensitive substring unless Exact is set; Index picks the n-th match
// in document order.
type Locator struct {
	Kind  string `json:"kind"`
	Role  string `json:"role,omitempty"`
	Name  string `json:"name,omitempty"`
	Exact bool   `json:"exact,omitempty"`
	Index int    `json:"index,omitempty"`
}

// ByRole matches elements by ARIA role and accessible name
func ByRole(role, name string) Locator {
	return Locator{Kind: KindRole, Role: role, Name: name}
}

// ByLabel matches form controls by the text of their label
func ByLabel(label string) Locator {
	return Locator{Kind: KindLabel, Name: label}
}

// ByPlaceholder matches inputs by placeholder text
func ByPlaceholder(placeholder string) Locator {
	return Locator{Kind: KindPlaceholder, Name: placeholder}
}

// ByTitle matches elements by their title attribute
func ByTitle(title string) Locator {
	return Locator{Kind: KindTitle, Name: title}
}

// ByCSS matches elements with a CSS selector
func ByCSS(selector string) Locator {
	return Locator{Kind: KindCSS, Name: selector}
}

// Nth returns a copy of the locator that picks the i-th match
func (l Locator) Nth(i int) Locator {
	l.Index = i
	return l
}

// WithExact returns a copy of the locator that requires an exact name match
func (l Locator) WithExact() Locator {
	l.Exact = true
	return l
}

func (l Locator) String() string {
	var s string
	switch l.Kind {
	case KindRole:
		s = fmt.Sprintf("role=%s[name=%s]", l.Role, strconv.Quote(l.Name))
	case KindCSS:
		s = l.Name
	default:
		s = fmt.Sprintf("%s=%s", l.Kind, strconv.Quote(l.Name))
	}
	if l.Exact {
		s += " exact"
	}
	if l.Index > 0 {
		s += fmt.Sprintf(" >> nth=%d", l.Index)
	}
	return s
}

func (l Locator) args() []interface{} {
	return []interface{}{l.Kind, l.Role, l.Name, l.Exact}
}

// matchAllJS returns every element a locator matches, in document order.
// Role matches skip elements that are not rendered.
const matchAllJS = `function (kind, role, name, exact) {
	const norm = (s) => (s || '').replace(/\s+/g, ' ').trim();
	const want = norm(name);
	const test = (s) => {
		s = norm(s);
		return exact ? s === want : s.toLowerCase().includes(want.toLowerCase());
	};
	const rendered = (el) => !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
	const roles = {
		button: 'button, [role="button"], input[type="submit"], input[type="button"], input[type="reset"]',
		link: 'a[href], [role="link"]',
		heading: 'h1, h2, h3, h4, h5, h6, [role="heading"]',
		textbox: 'input:not([type]), input[type="text"], input[type="email"], input[type="password"], textarea, [role="textbox"]',
		combobox: 'select, [role="combobox"]',
	};
	const accessibleName = (el) => {
		const aria = el.getAttribute('aria-label');
		if (aria) return aria;
		const by = el.getAttribute('aria-labelledby');
		if (by) {
			return by.split(/\s+/).map((id) => {
				const n = document.getElementById(id);
				return n ? n.textContent : '';
			}).join(' ');
		}
		if (el.tagName === 'INPUT') return el.value || el.getAttribute('title') || '';
		return norm(el.textContent) || el.getAttribute('title') || '';
	};
	const controlsOf = (label) => {
		if (label.htmlFor) {
			const c = document.getElementById(label.htmlFor);
			return c ? [c] : [];
		}
		return Array.from(label.querySelectorAll('input, select, textarea'));
	};

	let found = [];
	switch (kind) {
	case 'role':
		found = Array.from(document.querySelectorAll(roles[role] || '[role="' + role + '"]'))
			.filter((el) => rendered(el) && (want === '' || test(accessibleName(el))));
		break;
	case 'label':
		document.querySelectorAll('label').forEach((label) => {
			if (test(label.textContent)) {
				controlsOf(label).forEach((c) => { if (!found.includes(c)) found.push(c); });
			}
		});
		document.querySelectorAll('input[aria-label], select[aria-label], textarea[aria-label]').forEach((el) => {
			if (test(el.getAttribute('aria-label')) && !found.includes(el)) found.push(el);
		});
		break;
	case 'placeholder':
		found = Array.from(document.querySelectorAll('[placeholder]')).filter((el) => test(el.getAttribute('placeholder')));
		break;
	case 'title':
		found = Array.from(document.querySelectorAll('[title]')).filter((el) => test(el.getAttribute('title')));
		break;
	case 'css':
		found = Array.from(document.querySelectorAll(name));
		break;
	}
	return found;
}`

var (
	locateJS = `(kind, role, name, exact, index) => (` + matchAllJS + `)(kind, role, name, exact)[index] || null`
	countJS  = `(kind, role, name, exact) => (` + matchAllJS + `)(kind, role, name, exact).length`
)
