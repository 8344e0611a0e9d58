package model

import (
	json "github.com/goccy/go-json"
)

// Nullable is a field of an update payload that can be sent as a value or as
// an explicit null. Payloads hold *Nullable[T] with omitempty so a nil pointer
// leaves the field out of the request entirely.
type Nullable[T any] struct {
	Valid bool
	Value T
}

// Set returns a field carrying v.
func Set[T any](v T) *Nullable[T] {
	return &Nullable[T]{Valid: true, Value: v}
}

// Clear returns a field that is sent as null.
func Clear[T any]() *Nullable[T] {
	return &Nullable[T]{}
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		var zero T
		n.Valid = false
		n.Value = zero
		return nil
	}
	if err := json.Unmarshal(b, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type CreateTodo struct {
	Title       string      `json:"title" validate:"required,max=255"`
	Description *string     `json:"description,omitempty"`
	Status      *TodoStatus `json:"status,omitempty" validate:"omitempty,todoStatus"`
	DueDate     *string     `json:"due_date,omitempty"`
}

type UpdateTodo struct {
	Title       *string           `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description *Nullable[string] `json:"description,omitempty"`
	Status      *TodoStatus       `json:"status,omitempty" validate:"omitempty,todoStatus"`
	DueDate     *Nullable[string] `json:"due_date,omitempty"`
}

type CreateTask struct {
	Title          string      `json:"title" validate:"required,max=255"`
	Description    *string     `json:"description,omitempty"`
	Status         *TaskStatus `json:"status,omitempty" validate:"omitempty,taskStatus"`
	AssignedUserID *int64      `json:"assigned_user_id,omitempty"`
}

type UpdateTask struct {
	Title          *string           `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description    *Nullable[string] `json:"description,omitempty"`
	Status         *TaskStatus       `json:"status,omitempty" validate:"omitempty,taskStatus"`
	AssignedUserID *Nullable[int64]  `json:"assigned_user_id,omitempty"`
}

type CreateSubTask struct {
	Title             string      `json:"title" validate:"required,max=255"`
	Status            *TaskStatus `json:"status,omitempty" validate:"omitempty,taskStatus"`
	ResponsibleUserID *int64      `json:"responsible_user_id,omitempty"`
}

type UpdateSubTask struct {
	Title             *string          `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Status            *TaskStatus      `json:"status,omitempty" validate:"omitempty,taskStatus"`
	ResponsibleUserID *Nullable[int64] `json:"responsible_user_id,omitempty"`
}

type StatusPatch[S ~string] struct {
	Status S `json:"status"`
}

type AssignPatch struct {
	AssignedUserID *int64 `json:"assigned_user_id"`
}
