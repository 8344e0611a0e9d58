package model

import (
	json "github.com/goccy/go-json"
)

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

type TodoStatus string

const (
	TodoStatusTodo       TodoStatus = "TODO"
	TodoStatusInProgress TodoStatus = "IN_PROGRESS"
	TodoStatusDone       TodoStatus = "DONE"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusBlocked    TaskStatus = "BLOCKED"
	TaskStatusDone       TaskStatus = "DONE"
)

type Team struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type User struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	TeamID *int64 `json:"team_id"`
	Team   *Team  `json:"team,omitempty"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// UserRef is the compact user object the backend embeds in tasks and sub-tasks.
type UserRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type TeamMember struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

type AuthResponse struct {
	User        User   `json:"user"`
	AccessToken string `json:"access_token"`
}

type PrivateTodo struct {
	ID          int64      `json:"id"`
	OwnerUserID int64      `json:"owner_user_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      TodoStatus `json:"status"`
	DueDate     *string    `json:"due_date"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// TeamTask is a shared team task.
//
// Progress is computed by the server from sub-task completion. It has no
// setter: the only way to obtain a new value is to fetch the task again.
type TeamTask struct {
	ID             int64      `json:"id"`
	TeamID         int64      `json:"team_id"`
	Title          string     `json:"title"`
	Description    *string    `json:"description"`
	Status         TaskStatus `json:"status"`
	AssignedUserID *int64     `json:"assigned_user_id"`
	AssignedUser   *UserRef   `json:"assigned_user,omitempty"`
	SubTasks       []SubTask  `json:"sub_tasks,omitempty"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`

	progress int
}

// Progress returns the server-computed completion percentage (0..100).
func (t TeamTask) Progress() int { return t.progress }

func (t TeamTask) MarshalJSON() ([]byte, error) {
	type plain TeamTask
	return json.Marshal(struct {
		plain
		Progress int `json:"progress"`
	}{plain: plain(t), Progress: t.progress})
}

func (t *TeamTask) UnmarshalJSON(b []byte) error {
	type plain TeamTask
	var aux struct {
		plain
		Progress int `json:"progress"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*t = TeamTask(aux.plain)
	t.progress = clampPercent(aux.Progress)
	return nil
}

func clampPercent(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

type SubTask struct {
	ID                int64      `json:"id"`
	TeamTaskID        int64      `json:"team_task_id"`
	Title             string     `json:"title"`
	Status            TaskStatus `json:"status"`
	ResponsibleUserID *int64     `json:"responsible_user_id"`
	ResponsibleUser   *UserRef   `json:"responsible_user,omitempty"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// FindSubTask returns a pointer into t.SubTasks.
func (t *TeamTask) FindSubTask(id int64) (*SubTask, bool) {
	for i := range t.SubTasks {
		if t.SubTasks[i].ID == id {
			return &t.SubTasks[i], true
		}
	}
	return nil, false
}

func Int64Ptr(v int64) *int64 { return &v }

func StringPtr(v string) *string { return &v }

// Deref returns *p or the zero value when p is nil.
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
