package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"

	"teamboard/internal/api"
	"teamboard/internal/model"
	"teamboard/internal/statusutil"
)

// Services groups the resource clients sharing one transport.
type Services struct {
	Auth  *AuthService
	Todos *TodoService
	Tasks *TaskService
	Users *UserService
}

func New(c *api.Client) *Services {
	b := base{c: c, v: statusutil.NewValidator()}
	return &Services{
		Auth:  &AuthService{b},
		Todos: &TodoService{b},
		Tasks: &TaskService{b},
		Users: &UserService{b},
	}
}

type base struct {
	c *api.Client
	v *validator.Validate
}

func (b base) validate(op string, payload any) error {
	if err := b.v.Struct(payload); err != nil {
		return fromValidator(op, err)
	}
	return nil
}

func (b base) validateTaskStatus(op string, st model.TaskStatus) error {
	if !statusutil.ValidTaskStatus(st) {
		return &ValidationError{Op: op, Fields: []FieldError{{Field: "status", Rule: "taskStatus"}}}
	}
	return nil
}

// call returns data when the envelope reports success and carries data.
func call[T any](ctx context.Context, b base, op, method, path string, body any, fallback string) (T, error) {
	var zero T
	env, err := api.Call[T](ctx, b.c, method, path, body)
	if err != nil {
		return zero, transportFailure(op, err, fallback)
	}
	if !env.Success || env.Data == nil {
		return zero, envelopeFailure(op, env, fallback)
	}
	return *env.Data, nil
}

// callNoData only requires success.
func callNoData(ctx context.Context, b base, op, method, path string, fallback string) error {
	env, err := api.Call[struct{}](ctx, b.c, method, path, nil)
	if err != nil {
		return transportFailure(op, err, fallback)
	}
	if !env.Success {
		return envelopeFailure(op, env, fallback)
	}
	return nil
}

func envelopeFailure[T any](op string, env api.Envelope[T], fallback string) error {
	e := &Error{Op: op, Message: fallback, Status: env.Status}
	if env.Error != nil {
		if env.Error.Message != "" {
			e.Message = env.Error.Message
		}
		e.Code = string(env.Error.Code)
		e.Details = env.Error.Details
	}
	return e
}

func transportFailure(op string, err error, fallback string) error {
	e := &Error{Op: op, Message: fallback, Err: err}
	var ae *api.Error
	if errors.As(err, &ae) {
		e.Status = ae.Status
		e.Code = ae.Code
		if errors.Is(err, api.ErrUnauthorized) && ae.Message != "" {
			e.Message = ae.Message
		}
	}
	return e
}
