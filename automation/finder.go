package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var ErrElementNotFound = errors.New("element not found")

// Finder resolves a Target against the page, walking the fallback chain:
// primary selector, declared alternatives, text-derived XPaths, then an
// XPath parsed out of the selector's attributes. The first visible and
// enabled match wins.
type Finder struct {
	page Page
	log  *zap.Logger
}

func NewFinder(page Page, log *zap.Logger) *Finder {
	return &Finder{page: page, log: log}
}

func (f *Finder) Find(ctx context.Context, t Target) (Element, error) {
	selectors := make([]string, 0, 1+len(t.Alternatives))
	if t.Selector != "" {
		selectors = append(selectors, t.Selector)
	}
	selectors = append(selectors, t.Alternatives...)

	for _, sel := range selectors {
		el, err := f.page.Element(ctx, sel)
		if err != nil {
			continue
		}
		if el.Visible() && el.Enabled() {
			return el, nil
		}
		f.log.Debug("element matched but not interactable", zap.String("selector", sel))
	}

	if t.Text != "" {
		for _, xpath := range TextXPaths(t.Text) {
			el, err := f.page.ElementX(ctx, xpath)
			if err != nil {
				continue
			}
			if el.Visible() && el.Enabled() {
				f.log.Debug("element found by text heuristic", zap.String("xpath", xpath))
				return el, nil
			}
		}
	}

	if t.Selector != "" {
		if xpath := AttributeXPath(t.Selector); xpath != "" {
			el, err := f.page.ElementX(ctx, xpath)
			if err == nil && el.Visible() && el.Enabled() {
				f.log.Debug("element found by attribute xpath", zap.String("xpath", xpath))
				return el, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrElementNotFound, describeTarget(t))
}

func describeTarget(t Target) string {
	if t.Selector != "" {
		return t.Selector
	}
	if t.Text != "" {
		return "text=" + t.Text
	}
	return "(empty target)"
}

// TextXPaths builds candidate XPaths locating interactive elements by their
// visible text, most specific first.
func TextXPaths(text string) []string {
	quoted := xpathLiteral(text)
	return []string{
		fmt.Sprintf("//button[normalize-space(.)=%s]", quoted),
		fmt.Sprintf("//input[@value=%s]", quoted),
		fmt.Sprintf("//a[normalize-space(.)=%s]", quoted),
		fmt.Sprintf("//button[contains(normalize-space(.), %s)]", quoted),
		fmt.Sprintf("//a[contains(normalize-space(.), %s)]", quoted),
		fmt.Sprintf("//*[@role='button'][contains(normalize-space(.), %s)]", quoted),
	}
}

// xpathLiteral quotes a string for use in an XPath expression. Strings with
// both quote kinds need concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+p+"'")
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

// AttributeXPath turns a simple CSS selector (tag, #id, .class, [attr=val],
// or a combination) into an equivalent XPath. Returns "" for selectors it
// cannot translate, such as descendant combinators.
func AttributeXPath(selector string) string {
	if strings.ContainsAny(selector, " >+~,") {
		return ""
	}

	tag := "*"
	rest := selector

	i := 0
	for i < len(rest) && rest[i] != '#' && rest[i] != '.' && rest[i] != '[' {
		i++
	}
	if i > 0 {
		tag = rest[:i]
		rest = rest[i:]
	}

	var conds []string
	for rest != "" {
		switch rest[0] {
		case '#':
			rest = rest[1:]
			end := nextDelim(rest)
			conds = append(conds, fmt.Sprintf("@id=%s", xpathLiteral(rest[:end])))
			rest = rest[end:]
		case '.':
			rest = rest[1:]
			end := nextDelim(rest)
			conds = append(conds, fmt.Sprintf("contains(concat(' ', normalize-space(@class), ' '), ' %s ')", rest[:end]))
			rest = rest[end:]
		case '[':
			closing := strings.Index(rest, "]")
			if closing < 0 {
				return ""
			}
			inner := rest[1:closing]
			rest = rest[closing+1:]
			if eq := strings.Index(inner, "="); eq >= 0 {
				name := inner[:eq]
				val := strings.Trim(inner[eq+1:], `"'`)
				conds = append(conds, fmt.Sprintf("@%s=%s", name, xpathLiteral(val)))
			} else {
				conds = append(conds, "@"+inner)
			}
		default:
			return ""
		}
	}

	xpath := "//" + tag
	for _, c := range conds {
		xpath += "[" + c + "]"
	}
	if len(conds) == 0 {
		return ""
	}
	return xpath
}

func nextDelim(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '#' || s[i] == '.' || s[i] == '[' {
			return i
		}
	}
	return len(s)
}
