package automation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFinderPrimarySelector(t *testing.T) {
	page := newFakePage()
	want := visibleElement()
	page.add("#btnSave", want)

	f := NewFinder(page, zap.NewNop())
	got, err := f.Find(context.Background(), Target{Selector: "#btnSave"})
	require.NoError(t, err)
	assert.Same(t, Element(want), got)
}

func TestFinderFallsBackToAlternatives(t *testing.T) {
	page := newFakePage()
	want := visibleElement()
	page.add("input[name=save]", want)

	f := NewFinder(page, zap.NewNop())
	got, err := f.Find(context.Background(), Target{
		Selector:     "#btnSave",
		Alternatives: []string{".save-button", "input[name=save]"},
	})
	require.NoError(t, err)
	assert.Same(t, Element(want), got)
}

func TestFinderSkipsInvisibleMatch(t *testing.T) {
	page := newFakePage()
	hidden := &fakeElement{visible: false, enabled: true}
	page.add("#btnSave", hidden)
	shown := visibleElement()
	page.add(".save-button", shown)

	f := NewFinder(page, zap.NewNop())
	got, err := f.Find(context.Background(), Target{
		Selector:     "#btnSave",
		Alternatives: []string{".save-button"},
	})
	require.NoError(t, err)
	assert.Same(t, Element(shown), got)
}

func TestFinderTextHeuristic(t *testing.T) {
	page := newFakePage()
	want := visibleElement()
	page.add("//button[normalize-space(.)='New']", want)

	f := NewFinder(page, zap.NewNop())
	got, err := f.Find(context.Background(), Target{Selector: "#missing", Text: "New"})
	require.NoError(t, err)
	assert.Same(t, Element(want), got)
}

func TestFinderNotFound(t *testing.T) {
	f := NewFinder(newFakePage(), zap.NewNop())
	_, err := f.Find(context.Background(), Target{Selector: "#nothing"})
	assert.ErrorIs(t, err, ErrElementNotFound)
}

func TestTextXPaths(t *testing.T) {
	paths := TextXPaths("New")
	require.NotEmpty(t, paths)
	assert.Equal(t, "//button[normalize-space(.)='New']", paths[0])
	assert.Contains(t, paths, "//input[@value='New']")
}

func TestXPathLiteral(t *testing.T) {
	assert.Equal(t, "'New'", xpathLiteral("New"))
	assert.Equal(t, `"it's"`, xpathLiteral("it's"))
	assert.Equal(t, `concat('a', "'", 'b"c')`, xpathLiteral(`a'b"c`))
}

func TestAttributeXPath(t *testing.T) {
	tests := []struct {
		selector string
		want     string
	}{
		{"#MainContent_txtTrxDate", "//*[@id='MainContent_txtTrxDate']"},
		{"input#txtHours", "//input[@id='txtHours']"},
		{"input.ui-autocomplete-input", "//input[contains(concat(' ', normalize-space(@class), ' '), ' ui-autocomplete-input ')]"},
		{"input[name=save]", "//input[@name='save']"},
		{"input[readonly]", "//input[@readonly]"},
		{"div > span", ""},
		{"input", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, AttributeXPath(tt.selector), tt.selector)
	}
}
