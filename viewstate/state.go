// Package viewstate is the client's view state machine: which tab is shown,
// whether a post is open or being written, and which modal is up.
package viewstate

import (
	"unionhall/models"
	"unionhall/nav"
)

type Mode string

const (
	ModeBrowsing Mode = "browsing"
	ModeWriting  Mode = "writing"
	ModeViewing  Mode = "viewing"
)

type Modal string

const (
	ModalMemberLogin     Modal = "member-login"
	ModalAdminLogin      Modal = "admin-login"
	ModalApprovalPending Modal = "approval-pending"
	ModalWithdrawal      Modal = "withdrawal"
	ModalPasswordReset   Modal = "password-reset"
)

// Modals holds the five independent modal flags.
type Modals struct {
	MemberLogin     bool
	AdminLogin      bool
	ApprovalPending bool
	Withdrawal      bool
	PasswordReset   bool
}

func (m *Modals) flag(which Modal) *bool {
	switch which {
	case ModalMemberLogin:
		return &m.MemberLogin
	case ModalAdminLogin:
		return &m.AdminLogin
	case ModalApprovalPending:
		return &m.ApprovalPending
	case ModalWithdrawal:
		return &m.Withdrawal
	case ModalPasswordReset:
		return &m.PasswordReset
	}
	return nil
}

// Any reports whether at least one modal is open.
func (m Modals) Any() bool {
	return m.MemberLogin || m.AdminLogin || m.ApprovalPending || m.Withdrawal || m.PasswordReset
}

// Fields are the transient form values behind the modals.
type Fields struct {
	LoginEmail       string
	LoginPassword    string
	AdminEmail       string
	AdminPassword    string
	ResetEmail       string
	WithdrawPassword string
}

// State is the whole view state. It is never persisted; only the NavState
// derived from it reaches the URL.
type State struct {
	Tab            models.Tab
	Mode           Mode
	WritingBoard   models.BoardType
	Editing        *models.Post
	SelectedPostID *string
	Modals         Modals
	Fields         Fields
}

// Initial is the state on first load and after logout.
func Initial() State {
	return State{Tab: models.TabHome, Mode: ModeBrowsing}
}

// Nav returns the navigation state that reproduces s.
func (s State) Nav() nav.State {
	ns := nav.State{Tab: s.Tab}
	switch s.Mode {
	case ModeWriting:
		ns.Writing = true
	case ModeViewing:
		if s.SelectedPostID != nil {
			ns.PostID = nav.Post(*s.SelectedPostID)
		}
	}
	return ns
}
