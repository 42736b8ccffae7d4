package models

import (
	"strings"

	"bugboard/internal/apperrors"
)

// Role is the access level of a user account.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// Priority is the urgency of an issue.
type Priority string

const (
	PriorityNone     Priority = "none"
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Status is the lifecycle state of an issue.
type Status string

const (
	StatusTodo       Status = "Todo"
	StatusInProgress Status = "InProgress"
	StatusDone       Status = "Done"
)

// IssueType categorizes an issue. Write-once: it can never change after
// creation.
type IssueType string

const (
	TypeBug           IssueType = "bug"
	TypeFeature       IssueType = "feature"
	TypeQuestion      IssueType = "question"
	TypeDocumentation IssueType = "documentation"
)

// ParseRole maps a string to a Role, case-insensitively.
func ParseRole(value string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "admin", "administrator":
		return RoleAdmin, nil
	case "user":
		return RoleUser, nil
	default:
		return "", apperrors.Validation("invalid role: %q (allowed: Admin, User)", value)
	}
}

// ParsePriority maps a string to a Priority, case-insensitively. A blank
// value defaults to PriorityNone.
func ParsePriority(value string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none":
		return PriorityNone, nil
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	case "critical":
		return PriorityCritical, nil
	default:
		return "", apperrors.Validation("invalid priority: %q", value)
	}
}

// ParseStatus maps a string to a Status, case-insensitively, accepting the
// in_progress/inprogress synonyms.
func ParseStatus(value string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "todo":
		return StatusTodo, nil
	case "inprogress", "in_progress", "in progress":
		return StatusInProgress, nil
	case "done":
		return StatusDone, nil
	default:
		return "", apperrors.Validation("invalid status: %q", value)
	}
}

// ParseIssueType maps a string to an IssueType, case-insensitively.
func ParseIssueType(value string) (IssueType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "bug":
		return TypeBug, nil
	case "feature", "features":
		return TypeFeature, nil
	case "question":
		return TypeQuestion, nil
	case "documentation":
		return TypeDocumentation, nil
	default:
		return "", apperrors.Validation("invalid issue type: %q", value)
	}
}

// Rank orders priorities from none (0) to critical (4), used for sorting.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}
