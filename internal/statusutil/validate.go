package statusutil

import (
	"reflect"
	"strings"

	"teamboard/internal/model"

	"github.com/go-playground/validator/v10"
)

// IsValidTaskStatus is a validator.Func for the "taskStatus" tag.
func IsValidTaskStatus(fl validator.FieldLevel) bool {
	return ValidTaskStatus(model.TaskStatus(fl.Field().String()))
}

// IsValidTodoStatus is a validator.Func for the "todoStatus" tag.
func IsValidTodoStatus(fl validator.FieldLevel) bool {
	return ValidTodoStatus(model.TodoStatus(fl.Field().String()))
}

// NewValidator returns a validator with the status tags registered. Field
// names in errors are the JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("taskStatus", IsValidTaskStatus)
	_ = v.RegisterValidation("todoStatus", IsValidTodoStatus)
	return v
}
