package domain

import "time"

type Role string

const (
	RoleEmployee Role = "employee"
	RoleHR       Role = "hr"
	RoleManager  Role = "manager"
	RoleDirector Role = "director"
)

var roleRank = map[Role]int{
	RoleEmployee: 1,
	RoleHR:       2,
	RoleManager:  3,
	RoleDirector: 4,
}

func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether the role ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min]
}

type User struct {
	ID        string
	Email     string
	Name      string
	Password  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RefreshToken is one stored, revocable refresh token. The token value is
// kept hashed.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Actor is the authenticated user performing a request, as resolved by the
// identity provider. It populates "issued by", "approved by" and message
// authorship on every write.
type Actor struct {
	ID   string
	Name string
	Role Role
}
