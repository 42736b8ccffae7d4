package models

import "time"

const (
	// MaxTitleLength is the longest accepted issue title.
	MaxTitleLength = 200
	// MaxDescriptionLength is the longest accepted issue description.
	MaxDescriptionLength = 5000
)

// Issue is a tracked ticket. Title is globally unique. Type is write-once.
// ResolvedAt is set the first time the status reaches Done and never reset.
// An archived issue is read-only for non-admins.
type Issue struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	Title        string       `json:"title" gorm:"uniqueIndex;type:varchar(200);not null"`
	Description  string       `json:"description" gorm:"type:text;not null"`
	Priority     Priority     `json:"priority" gorm:"type:varchar(20);not null"`
	Status       Status       `json:"status" gorm:"type:varchar(20);not null"`
	Type         IssueType    `json:"type" gorm:"type:varchar(20);not null"`
	Archived     bool         `json:"archived" gorm:"not null;default:false"`
	ArchivedAt   *time.Time   `json:"archivedAt"`
	ArchivedByID *uint        `json:"archivedById"`
	ResolvedAt   *time.Time   `json:"resolvedAt"`
	CreatorID    uint         `json:"creatorId" gorm:"not null"`
	Creator      *User        `json:"creator,omitempty" gorm:"foreignKey:CreatorID"`
	TeamID       *uint        `json:"teamId"`
	Assignees    []User       `json:"-" gorm:"many2many:issue_assignees"`
	Attachments  []Attachment `json:"-" gorm:"foreignKey:IssueID"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// HasAssignee reports whether the user id is in the assignee set.
func (i *Issue) HasAssignee(userID uint) bool {
	for _, u := range i.Assignees {
		if u.ID == userID {
			return true
		}
	}
	return false
}
