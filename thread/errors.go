package thread

import "errors"

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrNestedReply     = errors.New("replies cannot have replies")
	ErrEmptyComment    = errors.New("comment is empty")
)
