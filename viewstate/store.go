package viewstate

import (
	"unionhall/gate"
	"unionhall/models"
	"unionhall/nav"
)

// Pusher records navigation states in the browser history.
type Pusher interface {
	Push(nav.State)
}

// ViewCounter receives the view increments triggered by opening a post.
type ViewCounter interface {
	IncrementViews(postID string)
}

// Store owns the view state. It is driven from one goroutine.
type Store struct {
	state   State
	role    models.Role
	wide    bool
	history Pusher
	views   ViewCounter
}

// New returns a store in the initial state for a guest on a wide viewport.
// Either collaborator may be nil.
func New(history Pusher, views ViewCounter) *Store {
	return &Store{
		state:   Initial(),
		role:    models.RoleGuest,
		wide:    true,
		history: history,
		views:   views,
	}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	return s.state
}

func (s *Store) Role() models.Role {
	return s.role
}

func (s *Store) SetRole(r models.Role) {
	s.role = r
}

// SetWide records whether the viewport is wide. Narrow viewports keep the
// notice landing menu instead of jumping to its first board.
func (s *Store) SetWide(wide bool) {
	s.wide = wide
}

func (s *Store) push() {
	if s.history != nil {
		s.history.Push(s.state.Nav())
	}
}

// block opens the modal matching a gate refusal.
func (s *Store) block(d gate.Decision) {
	switch d.Reason {
	case gate.ReasonAdminAuthRequired:
		s.OpenModal(ModalAdminLogin)
	case gate.ReasonApprovalPending:
		s.OpenModal(ModalApprovalPending)
	}
}

// Check runs the gate for target and opens the matching modal on refusal.
func (s *Store) Check(target gate.Target) gate.Decision {
	d := gate.CanAccess(s.role, target)
	if !d.Allow {
		s.block(d)
	}
	return d
}

// ChangeTab switches to a tab. A refused tab opens a modal and changes
// nothing else.
func (s *Store) ChangeTab(tab models.Tab) gate.Decision {
	if tab == models.TabNotice && s.wide {
		tab = models.TabNoticeAll
	}
	d := gate.CanAccess(s.role, gate.Tab(tab))
	if !d.Allow {
		s.block(d)
		return d
	}
	s.state.Tab = tab
	s.state.Mode = ModeBrowsing
	s.state.WritingBoard = ""
	s.state.Editing = nil
	s.state.SelectedPostID = nil
	s.push()
	return d
}

// StartWriting opens the editor for a new post on board, or on the current
// tab's board when board is empty. When neither names a board nothing
// happens and the zero Decision is returned.
func (s *Store) StartWriting(board models.BoardType) gate.Decision {
	if board == "" {
		board = s.state.Tab.Board()
	}
	if !board.Valid() || board == models.BoardTrash {
		return gate.Decision{}
	}
	d := gate.CanAccess(s.role, gate.Write(board))
	if !d.Allow {
		s.block(d)
		return d
	}
	if s.state.Tab.Board() != board {
		s.state.Tab = board.Tab()
	}
	s.state.Mode = ModeWriting
	s.state.WritingBoard = board
	s.state.Editing = nil
	s.state.SelectedPostID = nil
	s.push()
	return d
}

// StartEditing opens the editor on an existing post. The caller has already
// checked that the user may manage it.
func (s *Store) StartEditing(p *models.Post) {
	if p == nil {
		return
	}
	s.state.Mode = ModeWriting
	s.state.WritingBoard = p.Board
	s.state.Editing = p
	s.state.SelectedPostID = nil
}

// FinishWriting leaves the editor. When postID is not nil the saved post is
// opened.
func (s *Store) FinishWriting(postID *string) {
	s.state.Editing = nil
	s.state.WritingBoard = ""
	s.SelectPost(postID)
}

// SelectPost opens a post, or returns to the list for nil. Opening a post
// counts a view.
func (s *Store) SelectPost(id *string) {
	s.state.Editing = nil
	s.state.WritingBoard = ""
	if id == nil {
		s.state.Mode = ModeBrowsing
		s.state.SelectedPostID = nil
		s.push()
		return
	}
	selected := *id
	s.state.Mode = ModeViewing
	s.state.SelectedPostID = &selected
	s.push()
	if s.views != nil {
		s.views.IncrementViews(selected)
	}
}

// Restore rebuilds the state from a browser navigation. It does not consult
// the gate and does not push: a state the user reached before is restored
// as is.
func (s *Store) Restore(ns nav.State) {
	fields := s.state.Fields
	s.state = Initial()
	s.state.Fields = fields
	if ns.Tab != "" {
		s.state.Tab = ns.Tab
	}
	switch {
	case ns.Writing:
		s.state.Mode = ModeWriting
		s.state.WritingBoard = s.state.Tab.Board()
	case ns.PostID != nil:
		id := *ns.PostID
		s.state.Mode = ModeViewing
		s.state.SelectedPostID = &id
	}
}

// Reset returns to the initial state, as on logout, and records it.
func (s *Store) Reset() {
	s.state = Initial()
	s.role = models.RoleGuest
	s.push()
}

func (s *Store) OpenModal(m Modal) {
	if f := s.state.Modals.flag(m); f != nil {
		*f = true
	}
}

// CloseModal hides a modal and clears the form fields it owns.
func (s *Store) CloseModal(m Modal) {
	f := s.state.Modals.flag(m)
	if f == nil {
		return
	}
	*f = false
	switch m {
	case ModalMemberLogin:
		s.state.Fields.LoginEmail = ""
		s.state.Fields.LoginPassword = ""
	case ModalAdminLogin:
		s.state.Fields.AdminEmail = ""
		s.state.Fields.AdminPassword = ""
	case ModalPasswordReset:
		s.state.Fields.ResetEmail = ""
	case ModalWithdrawal:
		s.state.Fields.WithdrawPassword = ""
	}
}

func (s *Store) ModalOpen(m Modal) bool {
	f := s.state.Modals.flag(m)
	return f != nil && *f
}

// UpdateFields edits the transient form values in place.
func (s *Store) UpdateFields(fn func(*Fields)) {
	fn(&s.state.Fields)
}
