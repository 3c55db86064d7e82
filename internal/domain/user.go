package domain

// User is the domain entity for somebody tasks can be assigned to.
// PendingTasks is the denormalized list of ids of tasks that are assigned
// to this user and not yet completed. Semantically a set; insertion order
// is preserved for display.
type User struct {
	ID           string
	Name         string
	Email        string
	PendingTasks []string
}

// HasPending reports whether taskID is already in the pending list.
func (u User) HasPending(taskID string) bool {
	for _, id := range u.PendingTasks {
		if id == taskID {
			return true
		}
	}
	return false
}
