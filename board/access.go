package board

import (
	"github.com/gin-gonic/gin"

	"unionhall/common"
	"unionhall/gate"
	"unionhall/models"
)

// PasswordHeader carries a post's legacy password on writes by callers who
// neither wrote the post nor administer the site.
const PasswordHeader = "X-Post-Password"

func callerMemberID(c *gin.Context) string {
	if m := common.CurrentMember(c); m != nil {
		return m.ID
	}
	return ""
}

// readable reports whether role may read the posts of board. Boards follow
// the access rules of the tab that lists them.
func readable(role models.Role, board models.BoardType) bool {
	return gate.CanAccess(role, gate.Tab(board.Tab())).Allow
}

// hiddenBoards lists the boards role may not read.
func hiddenBoards(role models.Role) []models.BoardType {
	var hidden []models.BoardType
	for _, b := range models.BoardTypes() {
		if !readable(role, b) {
			hidden = append(hidden, b)
		}
	}
	return hidden
}

// canManage reports whether the caller may edit or delete post as a whole:
// admins, the author, and anyone holding the post's legacy password.
func canManage(c *gin.Context, post *models.Post) bool {
	if common.CurrentRole(c) == models.RoleAdmin {
		return true
	}
	if id := callerMemberID(c); id != "" && post.AuthorID != nil && *post.AuthorID == id {
		return true
	}
	password := c.GetHeader(PasswordHeader)
	return password != "" && post.Password != "" && password == post.Password
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// onlyComments reports whether in leaves everything but the comments of
// stored as it was.
func onlyComments(in, stored *models.Post) bool {
	if in.Board != stored.Board || in.Title != stored.Title {
		return false
	}
	if in.Password != "" && in.Password != stored.Password {
		return false
	}
	if in.Content == nil {
		return true
	}
	if *in.Content != deref(stored.Content) || len(in.Attachments) != len(stored.Attachments) {
		return false
	}
	for i := range in.Attachments {
		if in.Attachments[i] != stored.Attachments[i] {
			return false
		}
	}
	return true
}

// commentsPreserved reports whether moving from stored to in only touches
// comments written by memberID. Replies under a comment the member deletes
// go with it. New comments must be signed with memberID.
func commentsPreserved(stored, in []models.Comment, memberID string) bool {
	owned := func(cm models.Comment) bool {
		return memberID != "" && cm.AuthorID != nil && *cm.AuthorID == memberID
	}

	incoming := map[string]models.Comment{}
	for _, cm := range in {
		incoming[cm.ID] = cm
		for _, r := range cm.Replies {
			incoming[r.ID] = r
		}
	}
	unchanged := func(cm models.Comment) bool {
		got, ok := incoming[cm.ID]
		return ok && got.Content == cm.Content && got.Author == cm.Author && deref(got.AuthorID) == deref(cm.AuthorID)
	}

	known := map[string]bool{}
	for _, cm := range stored {
		known[cm.ID] = true
		for _, r := range cm.Replies {
			known[r.ID] = true
		}

		if owned(cm) {
			continue
		}
		if !unchanged(cm) {
			return false
		}
		for _, r := range cm.Replies {
			if !owned(r) && !unchanged(r) {
				return false
			}
		}
	}

	for id, cm := range incoming {
		if !known[id] && !owned(cm) {
			return false
		}
	}
	return true
}
