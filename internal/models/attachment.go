package models

import "time"

// Attachment is the metadata row for a binary blob bound to an issue. The
// bytes themselves live in the blob store under StoragePath; the row never
// holds raw content. Attachments are cascade-deleted with their issue.
type Attachment struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	IssueID     uint      `json:"issueId" gorm:"not null;index"`
	FileName    string    `json:"fileName" gorm:"type:varchar(255);not null"`
	ContentType string    `json:"contentType" gorm:"type:varchar(100);not null"`
	Size        int64     `json:"size" gorm:"not null"`
	StoragePath string    `json:"-" gorm:"type:varchar(512);not null"`
	UploadedAt  time.Time `json:"uploadedAt"`
}
