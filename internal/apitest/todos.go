package apitest

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"teamboard/internal/model"
	"teamboard/internal/statusutil"
)

// AddTodo seeds a private todo owned by ownerID.
func (b *Backend) AddTodo(ownerID int64, title string, status model.TodoStatus) model.PrivateTodo {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.stamp()
	td := &model.PrivateTodo{ID: b.id(), OwnerUserID: ownerID, Title: title, Status: status, CreatedAt: now, UpdatedAt: now}
	b.todos[td.ID] = td
	return *td
}

// Todo returns the stored todo, bypassing HTTP.
func (b *Backend) Todo(id int64) (model.PrivateTodo, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	td, ok := b.todos[id]
	if !ok {
		return model.PrivateTodo{}, false
	}
	return *td, true
}

func validTitle(title string) (string, bool) {
	switch {
	case title == "":
		return "Title is required", false
	case len(title) > 255:
		return "Title must be less than 255 characters", false
	}
	return "", true
}

func todoStatusMessage() string {
	parts := make([]string, 0, len(statusutil.TodoStatuses))
	for _, s := range statusutil.TodoStatuses {
		parts = append(parts, string(s))
	}
	return "Status must be one of: " + strings.Join(parts, ", ")
}

func taskStatusMessage() string {
	parts := make([]string, 0, len(statusutil.TaskStatuses))
	for _, s := range statusutil.TaskStatuses {
		parts = append(parts, string(s))
	}
	return "Status must be one of: " + strings.Join(parts, ", ")
}

func parseDueDate(raw json.RawMessage) (*string, bool) {
	if isNull(raw) {
		return nil, true
	}
	s := rawString(raw)
	if s == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if _, err := time.Parse(layout, s); err == nil {
			return &s, true
		}
	}
	return nil, false
}

// ownedTodoLocked loads the todo named by :id and checks ownership.
func (b *Backend) ownedTodoLocked(c *gin.Context) (*model.PrivateTodo, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusNotFound, "Todo not found", nil)
		return nil, false
	}
	td, ok := b.todos[id]
	if !ok {
		fail(c, http.StatusNotFound, "Todo not found", nil)
		return nil, false
	}
	if td.OwnerUserID != c.GetInt64(ctxUserID) {
		fail(c, http.StatusForbidden, "Access denied", nil)
		return nil, false
	}
	return td, true
}

func (b *Backend) handleListTodos(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	uid := c.GetInt64(ctxUserID)
	out := []model.PrivateTodo{}
	for _, id := range sortedIDs(b.todos, true) {
		if td := b.todos[id]; td.OwnerUserID == uid {
			out = append(out, *td)
		}
	}
	succeed(c, http.StatusOK, out, "")
}

func (b *Backend) handleGetTodo(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	td, ok := b.ownedTodoLocked(c)
	if !ok {
		return
	}
	succeed(c, http.StatusOK, *td, "")
}

func (b *Backend) handleCreateTodo(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	title := rawString(body["title"])
	if msg, valid := validTitle(title); !valid {
		fail(c, http.StatusBadRequest, msg, nil)
		return
	}
	status := model.TodoStatusTodo
	if raw, present := body["status"]; present {
		status = model.TodoStatus(rawString(raw))
	}
	if !statusutil.ValidTodoStatus(status) {
		fail(c, http.StatusBadRequest, todoStatusMessage(), nil)
		return
	}
	due, valid := parseDueDate(body["due_date"])
	if !valid {
		fail(c, http.StatusBadRequest, "Invalid due_date format", nil)
		return
	}
	var desc *string
	if raw, present := body["description"]; present && !isNull(raw) {
		d := rawString(raw)
		desc = &d
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.stamp()
	td := &model.PrivateTodo{
		ID:          b.id(),
		OwnerUserID: c.GetInt64(ctxUserID),
		Title:       title,
		Description: desc,
		Status:      status,
		DueDate:     due,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b.todos[td.ID] = td
	succeed(c, http.StatusCreated, *td, "Todo created successfully")
}

func (b *Backend) handleUpdateTodo(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	td, ok := b.ownedTodoLocked(c)
	if !ok {
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}

	next := *td
	if raw, present := body["title"]; present {
		title := rawString(raw)
		if msg, valid := validTitle(title); !valid {
			fail(c, http.StatusBadRequest, msg, nil)
			return
		}
		next.Title = title
	}
	if raw, present := body["status"]; present {
		st := model.TodoStatus(rawString(raw))
		if !statusutil.ValidTodoStatus(st) {
			fail(c, http.StatusBadRequest, todoStatusMessage(), nil)
			return
		}
		next.Status = st
	}
	if raw, present := body["description"]; present {
		if isNull(raw) {
			next.Description = nil
		} else {
			d := rawString(raw)
			next.Description = &d
		}
	}
	if raw, present := body["due_date"]; present {
		due, valid := parseDueDate(raw)
		if !valid {
			fail(c, http.StatusBadRequest, "Invalid due_date format", nil)
			return
		}
		next.DueDate = due
	}
	next.UpdatedAt = b.stamp()
	*td = next
	succeed(c, http.StatusOK, next, "Todo updated successfully")
}

func (b *Backend) handleDeleteTodo(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	td, ok := b.ownedTodoLocked(c)
	if !ok {
		return
	}
	delete(b.todos, td.ID)
	succeed(c, http.StatusOK, nil, "Todo deleted successfully")
}
