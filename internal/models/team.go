package models

import "time"

// Team groups users and owns a set of issues. Name is globally unique.
type Team struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"uniqueIndex;type:varchar(100);not null"`
	Description string    `json:"description" gorm:"type:text"`
	Active      bool      `json:"active" gorm:"not null;default:true"`
	CreatorID   uint      `json:"creatorId" gorm:"not null"`
	Members     []User    `json:"-" gorm:"many2many:team_members"`
	Issues      []Issue   `json:"-" gorm:"foreignKey:TeamID"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasMember reports whether the user id is in the member set.
func (t *Team) HasMember(userID uint) bool {
	for _, u := range t.Members {
		if u.ID == userID {
			return true
		}
	}
	return false
}
