package models

import "time"

// User represents an account in the directory. Email is the natural key and
// is immutable after creation. "Deletion" is a soft deactivation via Active.
type User struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	FirstName   string    `json:"firstName" gorm:"type:varchar(100);not null" validate:"required,max=100"`
	LastName    string    `json:"lastName" gorm:"type:varchar(100);not null" validate:"required,max=100"`
	Email       string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null" validate:"required,email"`
	Password    string    `json:"-" gorm:"type:varchar(255);not null"` // bcrypt hash, never serialized
	Role        Role      `json:"role" gorm:"type:varchar(20);not null"`
	Active      bool      `json:"active" gorm:"not null;default:true"`
	CreatedByID *uint     `json:"createdById"` // nil only for the bootstrap admin
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user holds the administrator role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// PublicProfile returns the fields safe to return from authentication
// endpoints.
func (u *User) PublicProfile() map[string]interface{} {
	return map[string]interface{}{
		"id":        u.ID,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"email":     u.Email,
		"role":      u.Role,
		"active":    u.Active,
	}
}
