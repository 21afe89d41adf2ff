package history

import "unionhall/nav"

// Stack is an in-memory Browser with back/forward semantics. Listeners are
// called on Back, Forward and Visit, the way popstate and hashchange fire.
type Stack struct {
	entries   []Entry
	index     int
	listeners []func(Entry)
}

// NewStack starts a history whose only entry is initialURL with no payload.
func NewStack(initialURL string) *Stack {
	return &Stack{entries: []Entry{{URL: initialURL}}}
}

func (s *Stack) PushState(state *nav.State, url string) error {
	s.entries = append(s.entries[:s.index+1], Entry{URL: url, State: copyState(state)})
	s.index++
	return nil
}

func (s *Stack) ReplaceState(state *nav.State, url string) error {
	s.entries[s.index] = Entry{URL: url, State: copyState(state)}
	return nil
}

// Listen registers a navigation callback.
func (s *Stack) Listen(fn func(Entry)) {
	s.listeners = append(s.listeners, fn)
}

// Back moves one entry back. It reports false at the start of history.
func (s *Stack) Back() (Entry, bool) {
	if s.index == 0 {
		return s.entries[0], false
	}
	s.index--
	s.fire()
	return s.entries[s.index], true
}

// Forward moves one entry forward. It reports false at the end of history.
func (s *Stack) Forward() (Entry, bool) {
	if s.index == len(s.entries)-1 {
		return s.entries[s.index], false
	}
	s.index++
	s.fire()
	return s.entries[s.index], true
}

// Visit simulates the user editing the address bar: a new entry without a
// payload, followed by a hashchange.
func (s *Stack) Visit(url string) {
	s.entries = append(s.entries[:s.index+1], Entry{URL: url})
	s.index++
	s.fire()
}

func (s *Stack) Current() Entry {
	return s.entries[s.index]
}

func (s *Stack) Len() int {
	return len(s.entries)
}

func (s *Stack) fire() {
	e := s.entries[s.index]
	for _, fn := range s.listeners {
		fn(e)
	}
}

func copyState(state *nav.State) *nav.State {
	if state == nil {
		return nil
	}
	cp := *state
	if state.PostID != nil {
		id := *state.PostID
		cp.PostID = &id
	}
	return &cp
}
