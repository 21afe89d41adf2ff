package nav

import "unionhall/models"

// NotificationKind is one of the push categories the site sends.
type NotificationKind string

const (
	NotifyNewPost    NotificationKind = "new_post"
	NotifySignup     NotificationKind = "member_signup"
	NotifyWithdrawal NotificationKind = "member_withdrawal"
)

// NotificationState resolves where a tapped notification should land.
// Unknown kinds land on the home tab.
func NotificationState(kind NotificationKind, board models.BoardType, postID string) State {
	switch kind {
	case NotifyNewPost:
		s := State{Tab: board.Tab()}
		if postID != "" {
			s.PostID = Post(postID)
		}
		return s
	case NotifySignup, NotifyWithdrawal:
		return State{Tab: models.TabAdmin}
	}
	return Default()
}

// NotificationLink is NotificationState rendered as a site-relative URL.
func NotificationLink(kind NotificationKind, board models.BoardType, postID string) string {
	return Link(NotificationState(kind, board, postID))
}

// BoardState is the state that shows a post on its board.
func BoardState(board models.BoardType, postID string) State {
	return NotificationState(NotifyNewPost, board, postID)
}
