package app

import (
	"errors"
	"log"
)

// Prompter shows messages and asks for confirmation. Every user-visible
// failure goes through it.
type Prompter interface {
	Alert(msg string)
	Confirm(msg string) bool
}

// LogPrompter writes alerts to the log and answers every confirmation with
// Answer. It is used by non-interactive callers.
type LogPrompter struct {
	Answer bool
}

func (p LogPrompter) Alert(msg string) {
	log.Println(msg)
}

func (p LogPrompter) Confirm(msg string) bool {
	log.Printf("%s (answered %v)", msg, p.Answer)
	return p.Answer
}

// User-facing messages.
const (
	MsgRetryLater         = "Something went wrong. Please try again later."
	MsgBadCredentials     = "The email or password is incorrect."
	MsgApprovalPending    = "Your membership is waiting for approval by an administrator."
	MsgNotAdmin           = "This account does not have administrator access."
	MsgPasswordMismatch   = "The password does not match."
	MsgPostNotFound       = "This post no longer exists."
	MsgCommentNotFound    = "This comment no longer exists."
	MsgNotAllowed         = "You do not have permission to do that."
	MsgEmailTaken         = "An account with this email already exists."
	MsgSignupReceived     = "Thank you for signing up. You can log in once an administrator approves your membership."
	MsgResetSent          = "If the address is registered, a password reset link is on its way."
	MsgWithdrawn          = "Your membership has been withdrawn."
	MsgConfirmDeletePost  = "Delete this post?"
	MsgConfirmDeleteReply = "Delete this comment?"
	MsgConfirmRemove      = "Remove this member? This cannot be undone."
	MsgConfirmWithdraw    = "Withdraw your membership? Your account will be deleted."
	MsgConfirmPurge       = "Delete this post permanently?"
)

var (
	// ErrInFlight is returned when the same action is already running.
	ErrInFlight = errors.New("action already in progress")
	// ErrBlocked is returned when the gate refused the action; a modal is open.
	ErrBlocked = errors.New("blocked")
	// ErrCancelled is returned when the user declined a confirmation.
	ErrCancelled        = errors.New("cancelled")
	ErrPasswordMismatch = errors.New("password mismatch")
	ErrNotAllowed       = errors.New("not allowed")
)

// ValidationError is a problem with user input, found before any backend
// call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}
