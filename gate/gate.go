// Package gate decides whether a role may reach a tab, write to a board or
// perform an action. It is pure: the same inputs always give the same answer.
package gate

import "unionhall/models"

type Kind string

const (
	KindTab    Kind = "tab"
	KindWrite  Kind = "write"
	KindAction Kind = "action"
)

// Actions that are gated outside of tab navigation and writing.
const (
	ActionComment  = "comment"
	ActionWithdraw = "withdraw"
)

// Target is what the caller is trying to reach.
type Target struct {
	Kind Kind
	Name string
}

func Tab(t models.Tab) Target { return Target{Kind: KindTab, Name: string(t)} }
func Write(b models.BoardType) Target { return Target{Kind: KindWrite, Name: string(b)} }
func Action(name string) Target { return Target{Kind: KindAction, Name: name} }

type Reason string

const (
	ReasonAdminAuthRequired Reason = "admin-auth-required"
	ReasonApprovalPending   Reason = "approval-pending"
)

// Decision is the gate's answer. Reason is empty when Allow is true.
type Decision struct {
	Allow  bool
	Reason Reason
}

var allow = Decision{Allow: true}

// CanAccess applies the access rules in order:
//   - admin-only targets (writing to an admin-authored board, the admin tab)
//     reject anyone but an admin with ReasonAdminAuthRequired.
//   - members-only targets (the free and resources tabs, commenting,
//     withdrawal, writing to any other board) reject guests with
//     ReasonApprovalPending.
//   - everything else is allowed.
func CanAccess(role models.Role, t Target) Decision {
	if AdminOnly(t) && role != models.RoleAdmin {
		return Decision{Reason: ReasonAdminAuthRequired}
	}
	if MembersOnly(t) && role == models.RoleGuest {
		return Decision{Reason: ReasonApprovalPending}
	}
	return allow
}

// AdminOnly reports whether t is reserved for admins.
func AdminOnly(t Target) bool {
	switch t.Kind {
	case KindWrite:
		return models.BoardType(t.Name).AdminAuthored()
	case KindTab:
		return models.Tab(t.Name) == models.TabAdmin
	}
	return false
}

// MembersOnly reports whether t is closed to guests but open to every
// approved member. Admin-only targets are not in this set.
func MembersOnly(t Target) bool {
	switch t.Kind {
	case KindWrite:
		return !AdminOnly(t)
	case KindTab:
		switch models.Tab(t.Name) {
		case models.TabFree, models.TabResources:
			return true
		}
	case KindAction:
		switch t.Name {
		case ActionComment, ActionWithdraw:
			return true
		}
	}
	return false
}
