// Package history keeps the browser history in step with the navigation state
// so back/forward and deep links reconstruct the same view.
package history

import (
	"log"

	"unionhall/nav"
)

// Entry is one history slot. State is the payload stored with the entry and
// may be nil (first load, restored sessions).
type Entry struct {
	URL   string
	State *nav.State
}

// Browser is the history API the bridge drives. Implementations may fail or
// panic, for example inside a restricted embedding context.
type Browser interface {
	PushState(state *nav.State, url string) error
	ReplaceState(state *nav.State, url string) error
}

// Bridge pushes and replaces history entries on behalf of the view state.
// Navigation state is best effort: browser failures are logged and dropped.
type Bridge struct {
	browser Browser
}

func NewBridge(browser Browser) *Bridge {
	return &Bridge{browser: browser}
}

// Push adds a new history entry for s.
func (b *Bridge) Push(s nav.State) {
	b.call("push", func() error {
		return b.browser.PushState(&s, nav.Link(s))
	})
}

// Replace rewrites the current entry for s. It is used once at startup to
// normalize the initial URL.
func (b *Bridge) Replace(s nav.State) {
	b.call("replace", func() error {
		return b.browser.ReplaceState(&s, nav.Link(s))
	})
}

func (b *Bridge) call(op string, fn func() error) {
	if b == nil || b.browser == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("history: %s panicked: %v", op, r)
		}
	}()
	if err := fn(); err != nil {
		log.Printf("history: %s: %v", op, err)
	}
}

// Resolve returns the navigation state of an entry, reading the payload when
// there is one and decoding the URL fragment otherwise.
func Resolve(e Entry) nav.State {
	if e.State != nil {
		return *e.State
	}
	return nav.Decode(nav.FragmentOf(e.URL))
}
