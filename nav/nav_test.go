package nav

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"unionhall/models"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		in   State
		want string
	}{
		{"empty", State{}, ""},
		{"tab only", State{Tab: models.TabFree}, "tab=free"},
		{"tab and post", State{Tab: models.TabFree, PostID: Post("42")}, "tab=free&post=42"},
		{"writing", State{Tab: models.TabNoticeAll, Writing: true}, "tab=notice_all&write=1"},
		{"writing drops post", State{Tab: models.TabFree, PostID: Post("42"), Writing: true}, "tab=free&write=1"},
		{"escapes values", State{Tab: "a b", PostID: Post("x&y=z")}, "tab=a+b&post=x%26y%3Dz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Encode(tt.in))
		})
	}
}

func TestDecodeDefaults(t *testing.T) {
	for _, in := range []string{"", "#", "garbage", "%zz%", "tab=&post=", "write=yes", "#;;;&&&"} {
		t.Run(in, func(t *testing.T) {
			got := Decode(in)
			assert.True(t, got.Equal(Default()), "got %+v", got)
			assert.Equal(t, models.TabHome, got.Tab)
			assert.Nil(t, got.PostID)
			assert.False(t, got.Writing)
		})
	}
}

func TestDecode(t *testing.T) {
	got := Decode("#tab=free&post=42")
	assert.Equal(t, models.TabFree, got.Tab)
	if assert.NotNil(t, got.PostID) {
		assert.Equal(t, "42", *got.PostID)
	}
	assert.False(t, got.Writing)

	got = Decode("post=7")
	assert.Equal(t, models.TabHome, got.Tab)
	assert.Equal(t, "7", *got.PostID)

	got = Decode("tab=free&post=%20a")
	assert.Equal(t, " a", *got.PostID, "values are percent-decoded and nothing else")

	got = Decode("tab=free&post=42&write=1")
	assert.True(t, got.Writing)
	assert.Nil(t, got.PostID, "writing takes precedence over post")
}

func TestRoundTripCanonicalStates(t *testing.T) {
	states := []State{
		{Tab: models.TabHome},
		{Tab: models.TabFree},
		{Tab: models.TabFree, PostID: Post("42")},
		{Tab: models.TabResources, Writing: true},
		{Tab: "custom tab/ü", PostID: Post("id with spaces & symbols=")},
		{Tab: models.TabAdmin, PostID: Post("0")},
		{Tab: models.TabFree, PostID: Post(" padded id ")},
	}
	for _, s := range states {
		t.Run(Encode(s), func(t *testing.T) {
			got := Decode(Encode(s))
			assert.True(t, got.Equal(s), "want %+v got %+v", s, got)
		})
	}
}

func TestParseQuery(t *testing.T) {
	s, ok := ParseQuery(url.Values{"tab": {"free"}, "post": {"9"}})
	assert.True(t, ok)
	assert.Equal(t, "tab=free&post=9", Encode(s))

	_, ok = ParseQuery(url.Values{"utm_source": {"mail"}})
	assert.False(t, ok)
}

func TestLink(t *testing.T) {
	assert.Equal(t, "/", Link(State{}))
	assert.Equal(t, "/#tab=free&post=1", Link(State{Tab: models.TabFree, PostID: Post("1")}))
}

func TestFragmentOf(t *testing.T) {
	assert.Equal(t, "tab=free", FragmentOf("https://example.org/#tab=free"))
	assert.Equal(t, "", FragmentOf("https://example.org/"))
}

func TestNotificationLinks(t *testing.T) {
	assert.Equal(t, "/#tab=notice_all&post=p1", NotificationLink(NotifyNewPost, models.BoardNoticeAll, "p1"))
	assert.Equal(t, "/#tab=free&post=p2", NotificationLink(NotifyNewPost, models.BoardFree, "p2"))
	assert.Equal(t, "/#tab=admin", NotificationLink(NotifySignup, "", ""))
	assert.Equal(t, "/#tab=admin", NotificationLink(NotifyWithdrawal, "", ""))
	assert.Equal(t, "/#tab=home", NotificationLink("unknown", "", ""))
}
