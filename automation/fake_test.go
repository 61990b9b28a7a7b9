package automation

import (
	"context"
	"fmt"
	"sync"
)

// fakePage serves elements from a selector map. Selectors and xpaths share
// one namespace; errSelectors always fail.
type fakePage struct {
	mu        sync.Mutex
	elements  map[string]*fakeElement
	navigated []string
	keys      []string
	dialogs   int
}

func newFakePage() *fakePage {
	return &fakePage{elements: map[string]*fakeElement{}}
}

func (p *fakePage) add(selector string, el *fakeElement) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements[selector] = el
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = append(p.navigated, url)
	return nil
}

func (p *fakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.navigated) == 0 {
		return ""
	}
	return p.navigated[len(p.navigated)-1]
}

func (p *fakePage) Element(_ context.Context, selector string) (Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el, ok := p.elements[selector]; ok {
		return el, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
}

func (p *fakePage) ElementX(ctx context.Context, xpath string) (Element, error) {
	return p.Element(ctx, xpath)
}

func (p *fakePage) Has(_ context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.elements[selector]
	return ok, nil
}

func (p *fakePage) PressKey(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

func (p *fakePage) DismissDialog(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialogs++
	return nil
}

type fakeElement struct {
	mu        sync.Mutex
	visible   bool
	enabled   bool
	text      string
	attrs     map[string]string
	value     string
	clicks    int
	cleared   int
	inputErr  error
}

func visibleElement() *fakeElement {
	return &fakeElement{visible: true, enabled: true}
}

func (e *fakeElement) Click(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clicks++
	return nil
}

func (e *fakeElement) Input(_ context.Context, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inputErr != nil {
		return e.inputErr
	}
	e.value += text
	return nil
}

func (e *fakeElement) Clear(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cleared++
	e.value = ""
	return nil
}

func (e *fakeElement) Text(context.Context) (string, error) {
	return e.text, nil
}

func (e *fakeElement) Attribute(_ context.Context, name string) (string, error) {
	return e.attrs[name], nil
}

func (e *fakeElement) Visible() bool { return e.visible }
func (e *fakeElement) Enabled() bool { return e.enabled }
