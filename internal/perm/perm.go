package perm

import "teamboard/internal/model"

// Actor is the user a permission check is evaluated for.
type Actor struct {
	ID   int64
	Role model.Role
}

func ActorFor(u model.User) Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// canMutateStatus is the single rule behind every status gate: admins can
// always change status, everyone else only when they hold the assignment.
func canMutateStatus(a Actor, assignee *int64) bool {
	if a.IsAdmin() {
		return true
	}
	return assignee != nil && *assignee == a.ID
}

// CanMutateTaskStatus reports whether a may change the status of a team task.
// The backend enforces the same rule; this check only decides what the client
// offers.
func CanMutateTaskStatus(a Actor, t model.TeamTask) bool {
	return canMutateStatus(a, t.AssignedUserID)
}

// CanMutateSubTaskStatus reports whether a may change the status of a sub-task.
func CanMutateSubTaskStatus(a Actor, st model.SubTask) bool {
	return canMutateStatus(a, st.ResponsibleUserID)
}

// CanEditStructure gates title, description, assignment edits and deletes of
// tasks and sub-tasks.
func CanEditStructure(a Actor) bool {
	return a.IsAdmin()
}

// CanMutateTodo gates every write to a private todo.
func CanMutateTodo(a Actor, td model.PrivateTodo) bool {
	return td.OwnerUserID == a.ID
}
