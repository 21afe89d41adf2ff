package models

// BoardType tags which section a post belongs to.
type BoardType string

const (
	BoardIntro        BoardType = "intro"
	BoardNoticeAll    BoardType = "notice_all"
	BoardFamilyEvents BoardType = "family_events"
	BoardFree         BoardType = "free"
	BoardResources    BoardType = "resources"
	BoardSignup       BoardType = "signup"
	BoardTrash        BoardType = "trash"
)

var boardTypes = map[BoardType]bool{
	BoardIntro:        true,
	BoardNoticeAll:    true,
	BoardFamilyEvents: true,
	BoardFree:         true,
	BoardResources:    true,
	BoardSignup:       true,
	BoardTrash:        true,
}

// BoardTypes lists every board type in a stable order.
func BoardTypes() []BoardType {
	return []BoardType{BoardIntro, BoardNoticeAll, BoardFamilyEvents, BoardFree, BoardResources, BoardSignup, BoardTrash}
}

// Valid reports whether b is one of the known board types.
func (b BoardType) Valid() bool {
	return boardTypes[b]
}

// AdminAuthored reports whether only admins may write to the board.
func (b BoardType) AdminAuthored() bool {
	switch b {
	case BoardNoticeAll, BoardFamilyEvents, BoardResources:
		return true
	}
	return false
}

// Tab returns the tab that lists the board. Boards without a tab of their
// own, such as trash, map to home.
func (b BoardType) Tab() Tab {
	switch b {
	case BoardNoticeAll:
		return TabNoticeAll
	case BoardFamilyEvents:
		return TabFamilyEvents
	case BoardFree:
		return TabFree
	case BoardResources:
		return TabResources
	case BoardIntro:
		return TabIntro
	case BoardSignup:
		return TabSignup
	}
	return TabHome
}

// Role is the caller's standing on the site.
type Role string

const (
	RoleGuest  Role = "guest"
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Tab names a top-level section of the site.
type Tab string

const (
	TabHome         Tab = "home"
	TabIntro        Tab = "intro"
	TabNotice       Tab = "notice"
	TabNoticeAll    Tab = "notice_all"
	TabFamilyEvents Tab = "family_events"
	TabFree         Tab = "free"
	TabResources    Tab = "resources"
	TabSignup       Tab = "signup"
	TabAdmin        Tab = "admin"
)

// Board returns the board type shown under the tab, or "" for tabs that are
// not boards.
func (t Tab) Board() BoardType {
	switch t {
	case TabNotice, TabNoticeAll:
		return BoardNoticeAll
	case TabIntro:
		return BoardIntro
	case TabFamilyEvents:
		return BoardFamilyEvents
	case TabFree:
		return BoardFree
	case TabResources:
		return BoardResources
	case TabSignup:
		return BoardSignup
	}
	return ""
}

// Garages is the fixed set of sites a member can belong to.
var Garages = []string{
	"Main Depot",
	"North Garage",
	"South Garage",
	"East Garage",
	"West Garage",
}

// ValidGarage reports whether g is in Garages.
func ValidGarage(g string) bool {
	for _, v := range Garages {
		if v == g {
			return true
		}
	}
	return false
}
