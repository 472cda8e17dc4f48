// README: Role profiles mapping authenticated principals to owner/driver.
package roles

import "waterline/internal/types"

// Role is the access level a principal resolves to. Customers authenticate
// but carry no role document.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleDriver Role = "driver"
)

func (r Role) String() string { return string(r) }

// IsValid reports whether the stored role value is one the system recognises.
func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleDriver:
		return true
	}
	return false
}

// Profile is one document in the users collection, keyed by principal uid.
type Profile struct {
	UID      types.ID `firestore:"-" json:"uid"`
	Role     Role     `firestore:"role" json:"role"`
	IsActive bool     `firestore:"isActive" json:"isActive"`
	Name     string   `firestore:"name" json:"name"`
}
