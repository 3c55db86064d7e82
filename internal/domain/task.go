package domain

import "time"

// UnassignedName is the display name a task carries while no user is
// assigned to it. AssignedUser holds "" in that state.
const UnassignedName = "unassigned"

// Task is the domain entity for a tracked task. AssignedUser and
// AssignedUserName are a denormalized copy of the assignee; the matching
// membership in User.PendingTasks is maintained by the service layer.
type Task struct {
	ID               string
	Name             string
	Description      string
	Deadline         *time.Time
	Completed        bool
	AssignedUser     string
	AssignedUserName string
}

// Assigned reports whether the task currently references a user.
func (t Task) Assigned() bool { return t.AssignedUser != "" }
