// Package nav encodes the site's navigation state into the URL fragment.
//
// The fragment grammar is
//
//	#tab=<string>&post=<string>&write=1
//
// with every key optional. Bookmarked and shared links depend on it, so the
// key names and the meaning of write=1 must not change.
package nav

import (
	"net/url"
	"strings"

	"unionhall/models"
)

const (
	keyTab   = "tab"
	keyPost  = "post"
	keyWrite = "write"
)

// State is the minimal serializable navigation descriptor. An empty Tab
// means absent.
type State struct {
	Tab     models.Tab `json:"tab,omitempty"`
	PostID  *string    `json:"post,omitempty"`
	Writing bool       `json:"write,omitempty"`
}

// Default is the state synthesized when a fragment carries nothing usable.
func Default() State {
	return State{Tab: models.TabHome}
}

// Post is a helper for building a State with a selected post.
func Post(id string) *string {
	return &id
}

// Equal compares two states by value.
func (s State) Equal(o State) bool {
	if s.Tab != o.Tab || s.Writing != o.Writing {
		return false
	}
	if s.PostID == nil || o.PostID == nil {
		return s.PostID == nil && o.PostID == nil
	}
	return *s.PostID == *o.PostID
}

// Encode renders s as a fragment without the leading '#'. Absent tab, nil
// post and writing=false contribute nothing. A writing state drops the post.
func Encode(s State) string {
	var parts []string
	if s.Tab != "" {
		parts = append(parts, keyTab+"="+url.QueryEscape(string(s.Tab)))
	}
	if s.PostID != nil && !s.Writing {
		parts = append(parts, keyPost+"="+url.QueryEscape(*s.PostID))
	}
	if s.Writing {
		parts = append(parts, keyWrite+"=1")
	}
	return strings.Join(parts, "&")
}

// Decode parses a fragment, with or without its leading '#'. It never fails:
// a malformed fragment yields Default().
func Decode(fragment string) State {
	fragment = strings.TrimPrefix(fragment, "#")
	values, err := url.ParseQuery(fragment)
	if err != nil {
		return Default()
	}
	s, _ := fromValues(values)
	return s
}

// ParseQuery reads a State out of query parameters. ok is false when none of
// the navigation keys are present.
func ParseQuery(values url.Values) (State, bool) {
	return fromValues(values)
}

func fromValues(values url.Values) (State, bool) {
	s := Default()
	_, hasTab := values[keyTab]
	_, hasPost := values[keyPost]
	_, hasWrite := values[keyWrite]

	if tab := values.Get(keyTab); tab != "" {
		s.Tab = models.Tab(tab)
	}
	if post := values.Get(keyPost); post != "" {
		s.PostID = &post
	}
	s.Writing = values.Get(keyWrite) == "1"
	if s.Writing {
		s.PostID = nil
	}
	return s, hasTab || hasPost || hasWrite
}

// Link returns the site-relative URL that opens s.
func Link(s State) string {
	frag := Encode(s)
	if frag == "" {
		return "/"
	}
	return "/#" + frag
}

// FragmentOf extracts the fragment part of a URL string. It returns "" when
// the URL has no fragment.
func FragmentOf(rawURL string) string {
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		return rawURL[i+1:]
	}
	return ""
}
