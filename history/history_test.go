package history

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unionhall/models"
	"unionhall/nav"
)

type failingBrowser struct {
	panics bool
}

func (f failingBrowser) PushState(*nav.State, string) error {
	if f.panics {
		panic("SecurityError: history access denied")
	}
	return errors.New("history unavailable")
}

func (f failingBrowser) ReplaceState(s *nav.State, u string) error {
	return f.PushState(s, u)
}

func TestBridgePushWritesFragmentAndPayload(t *testing.T) {
	stack := NewStack("/")
	bridge := NewBridge(stack)

	bridge.Push(nav.State{Tab: models.TabFree, PostID: nav.Post("42")})

	cur := stack.Current()
	assert.Equal(t, "/#tab=free&post=42", cur.URL)
	require.NotNil(t, cur.State)
	assert.Equal(t, "42", *cur.State.PostID)
	assert.Equal(t, 2, stack.Len())
}

func TestBridgeReplaceKeepsLength(t *testing.T) {
	stack := NewStack("/?utm=1")
	bridge := NewBridge(stack)

	bridge.Replace(nav.Default())

	assert.Equal(t, 1, stack.Len())
	assert.Equal(t, "/#tab=home", stack.Current().URL)
}

func TestBridgeSwallowsBrowserFailures(t *testing.T) {
	assert.NotPanics(t, func() {
		NewBridge(failingBrowser{}).Push(nav.Default())
		NewBridge(failingBrowser{panics: true}).Push(nav.Default())
		NewBridge(failingBrowser{panics: true}).Replace(nav.Default())
		NewBridge(nil).Push(nav.Default())
		var b *Bridge
		b.Push(nav.Default())
	})
}

func TestResolveFallsBackToURL(t *testing.T) {
	withPayload := Entry{URL: "/#tab=home", State: &nav.State{Tab: models.TabFree}}
	assert.Equal(t, models.TabFree, Resolve(withPayload).Tab)

	withoutPayload := Entry{URL: "https://example.org/#tab=resources&post=9"}
	got := Resolve(withoutPayload)
	assert.Equal(t, models.TabResources, got.Tab)
	assert.Equal(t, "9", *got.PostID)

	assert.True(t, Resolve(Entry{URL: "/"}).Equal(nav.Default()))
}

func TestStackBackForward(t *testing.T) {
	stack := NewStack("/")
	var seen []string
	stack.Listen(func(e Entry) { seen = append(seen, e.URL) })

	bridge := NewBridge(stack)
	bridge.Push(nav.State{Tab: models.TabFree})
	bridge.Push(nav.State{Tab: models.TabFree, PostID: nav.Post("1")})

	e, ok := stack.Back()
	assert.True(t, ok)
	assert.Equal(t, "/#tab=free", e.URL)

	e, ok = stack.Forward()
	assert.True(t, ok)
	assert.Equal(t, "/#tab=free&post=1", e.URL)

	_, ok = stack.Forward()
	assert.False(t, ok)

	stack.Back()
	bridge.Push(nav.State{Tab: models.TabResources})
	assert.Equal(t, 3, stack.Len(), "push truncates forward entries")

	stack.Visit("/#tab=intro")
	assert.Equal(t, []string{"/#tab=free", "/#tab=free&post=1", "/#tab=free", "/#tab=intro"}, seen)
	assert.Nil(t, stack.Current().State)
}

func TestStackCopiesPayload(t *testing.T) {
	stack := NewStack("/")
	s := nav.State{Tab: models.TabFree, PostID: nav.Post("1")}
	_ = stack.PushState(&s, nav.Link(s))
	*s.PostID = "2"
	assert.Equal(t, "1", *stack.Current().State.PostID)
}
