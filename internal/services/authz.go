package services

import "bugboard/internal/models"

// Pure authorization decision functions. No I/O: callers load the entities
// first, so every decision is made against the just-read state inside the
// request's transaction boundary.

// CanMutateIssue reports whether the actor may change an issue's fields.
// Admins pass every gate. Non-admins must be the creator or an assignee, and
// are locked out of archived issues and issues already in Done.
func CanMutateIssue(actor *models.User, issue *models.Issue) bool {
	if actor.IsAdmin() {
		return true
	}
	if issue.Archived || issue.Status == models.StatusDone {
		return false
	}
	return issue.CreatorID == actor.ID || issue.HasAssignee(actor.ID)
}

// CanDeleteIssue reports whether the actor may delete an issue: the creator
// or an admin, except that archived issues are deletable only by an admin.
func CanDeleteIssue(actor *models.User, issue *models.Issue) bool {
	if actor.IsAdmin() {
		return true
	}
	if issue.Archived {
		return false
	}
	return issue.CreatorID == actor.ID
}

// CanChangeUserStatus reports whether the actor may toggle the target's
// active flag. Self-deactivation is blocked even for admins.
func CanChangeUserStatus(actor, target *models.User) bool {
	return actor.IsAdmin() && actor.ID != target.ID
}

// CanChangeUserRole reports whether the actor may change the target's role.
// The admin role is one-way: once granted it can never be taken away, by
// anyone, including the holder.
func CanChangeUserRole(actor, target *models.User) bool {
	return actor.IsAdmin() && actor.ID != target.ID && !target.IsAdmin()
}
