package models

import "time"

// Account is the backend sign-in identity. A member signs in with an account;
// admins may exist without a member record.
type Account struct {
	ID             int        `gorm:"primary_key;autoIncrement" json:"id"`
	Email          string     `gorm:"unique;not null" json:"email"`
	PasswordHash   string     `gorm:"not null" json:"-"` // json:"-" keeps the hash out of API responses
	IsAdmin        bool       `gorm:"default:false" json:"is_admin"`
	MemberID       string     `gorm:"index" json:"member_id,omitempty"`
	ResetToken     string     `gorm:"index" json:"-"`
	ResetExpiresAt *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
}

type Attachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// Comment is a top-level comment or, inside Replies, a reply. Replies never
// carry replies of their own.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	AuthorID  *string   `json:"author_id,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Replies   []Comment `json:"replies,omitempty"`
}

// Post is a board entry. List views leave Content, Attachments and Comments
// nil; detail views populate them.
type Post struct {
	ID          string       `gorm:"primaryKey" json:"id"`
	Board       BoardType    `gorm:"not null;index" json:"type"`
	Title       string       `gorm:"not null" json:"title"`
	Content     *string      `gorm:"type:text" json:"content,omitempty"`
	Author      string       `gorm:"not null" json:"author"`
	AuthorID    *string      `gorm:"index" json:"author_id,omitempty"`
	CreatedAt   time.Time    `gorm:"index" json:"created_at"`
	Views       int          `gorm:"default:0" json:"views"`
	Attachments []Attachment `gorm:"serializer:json" json:"attachments,omitempty"`
	Password    string       `json:"password,omitempty"` // legacy plaintext edit/delete password
	Comments    []Comment    `gorm:"serializer:json" json:"comments,omitempty"`
	Pinned      bool         `gorm:"default:false;index" json:"is_pinned"`
	PinnedAt    *time.Time   `json:"pinned_at,omitempty"`
}

// Detailed reports whether the post carries its detail-only fields.
func (p *Post) Detailed() bool {
	return p.Content != nil
}

// Light returns a list-view copy of the post.
func (p *Post) Light() *Post {
	cp := *p
	cp.Content = nil
	cp.Attachments = nil
	cp.Comments = nil
	cp.Password = ""
	return &cp
}

type Member struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	LoginID        *string   `gorm:"index" json:"login_id,omitempty"`
	LegacyPassword *string   `json:"-"`
	Name           string    `gorm:"not null" json:"name"`
	BirthDate      string    `json:"birth_date"` // YYYY-MM-DD
	Phone          string    `json:"phone"`
	Email          string    `gorm:"index" json:"email"`
	Garage         string    `gorm:"not null" json:"garage"`
	SignupAt       time.Time `json:"signup_at"`
	IsApproved     bool      `gorm:"default:false;index" json:"is_approved"`
}

type Office struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone,omitempty"`
	MapURL  string `json:"map_url,omitempty"`
}

type HistoryEntry struct {
	Year  string `json:"year"`
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

// SiteSettings is the single editable aggregate behind the public pages.
// There is one row (ID 1); the last write wins.
type SiteSettings struct {
	ID         uint           `gorm:"primary_key" json:"-"`
	HeroImages []string       `gorm:"serializer:json" json:"hero_images"`
	Greeting   string         `gorm:"type:text" json:"greeting"`
	About      string         `gorm:"type:text" json:"about"`
	Offices    []Office       `gorm:"serializer:json" json:"offices"`
	History    []HistoryEntry `gorm:"serializer:json" json:"history"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type PushSubscription struct {
	ID        uint      `gorm:"primary_key;autoIncrement" json:"id"`
	Token     string    `gorm:"unique;not null" json:"token"`
	MemberID  string    `gorm:"index" json:"member_id,omitempty"`
	Admin     bool      `gorm:"default:false;index" json:"admin"`
	CreatedAt time.Time `json:"created_at"`
}
