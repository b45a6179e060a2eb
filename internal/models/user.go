// internal/models/user.go
package models

// Role enumerates the actor roles in the review pipeline.
type Role string

const (
	RoleCitizen Role = "CITIZEN"
	RoleGN      Role = "GN" // Grama Niladhari, first-line reviewer
	RoleDS      Role = "DS" // Divisional Secretary, second-line reviewer
	RoleDRP     Role = "DRP"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleGN, RoleDS, RoleDRP:
		return true
	}
	return false
}

type User struct {
	ID         string `json:"id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Role       Role   `json:"role"`
	DivisionID string `json:"divisionId,omitempty"`
}
