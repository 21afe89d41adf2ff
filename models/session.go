package models

// Session is what the backend reports about the signed-in caller. A signed
// out caller has RoleGuest and no email.
type Session struct {
	Email  string  `json:"email,omitempty"`
	Role   Role    `json:"role"`
	Member *Member `json:"member,omitempty"`
}

// SignedIn reports whether the session belongs to an account.
func (s *Session) SignedIn() bool {
	return s != nil && s.Email != ""
}

// DisplayName is the name shown as author of posts and comments.
func (s *Session) DisplayName() string {
	if s == nil {
		return ""
	}
	if s.Member != nil && s.Member.Name != "" {
		return s.Member.Name
	}
	if s.Role == RoleAdmin {
		return "Admin"
	}
	return s.Email
}

// MemberID returns the member id behind the session, or nil.
func (s *Session) MemberID() *string {
	if s == nil || s.Member == nil {
		return nil
	}
	id := s.Member.ID
	return &id
}

type SignupRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	Name      string `json:"name" binding:"required"`
	BirthDate string `json:"birth_date" binding:"required"`
	Phone     string `json:"phone" binding:"required"`
	Garage    string `json:"garage" binding:"required"`
}

type Credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}
