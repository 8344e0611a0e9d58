// Package apitest is an in-process stand-in for the teamboard REST backend.
// It mirrors the backend's envelope, permission rules and progress
// computation closely enough to exercise the client end to end.
package apitest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"teamboard/internal/model"
)

type userRec struct {
	model.User
	password string
}

type fault struct {
	status int
	body   string
}

// Backend holds all server state in memory.
type Backend struct {
	mu sync.Mutex

	engine *gin.Engine
	secret []byte
	now    func() time.Time
	ttl    time.Duration

	nextID  int64
	teams   map[int64]*model.Team
	users   map[int64]*userRec
	todos   map[int64]*model.PrivateTodo
	tasks   map[int64]*taskRec
	subs    map[int64]*model.SubTask
	revoked map[string]bool

	requests []string
	faults   map[string]fault
	holds    map[string]chan struct{}
}

type taskRec struct {
	ID             int64
	TeamID         int64
	Title          string
	Description    *string
	Status         model.TaskStatus
	AssignedUserID *int64
	CreatedAt      string
	UpdatedAt      string
}

func New() *Backend {
	b := &Backend{
		secret:  []byte("teamboard-test-secret"),
		now:     func() time.Time { return time.Now().UTC() },
		ttl:     24 * time.Hour,
		teams:   map[int64]*model.Team{},
		users:   map[int64]*userRec{},
		todos:   map[int64]*model.PrivateTodo{},
		tasks:   map[int64]*taskRec{},
		subs:    map[int64]*model.SubTask{},
		revoked: map[string]bool{},
		faults:  map[string]fault{},
		holds:   map[string]chan struct{}{},
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(b.recordRequest)
	router.Use(b.injectFaults)
	b.engine = router
	b.registerRoutes()
	return b
}

// NewServer starts b on an httptest server closed at the end of the test. The
// returned URL includes the /api prefix.
func NewServer(t testing.TB) (*Backend, string) {
	t.Helper()
	b := New()
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return b, srv.URL + "/api"
}

func (b *Backend) Handler() http.Handler { return b.engine }

func (b *Backend) registerRoutes() {
	api := b.engine.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", b.handleRegister)
			auth.POST("/login", b.handleLogin)
			auth.POST("/logout", b.requireAuth, b.handleLogout)
			auth.GET("/me", b.requireAuth, b.handleMe)
		}

		api.GET("/teams/:id/users", b.requireAuth, b.handleTeamUsers)

		todos := api.Group("/private-todos", b.requireAuth)
		{
			todos.GET("", b.handleListTodos)
			todos.POST("", b.handleCreateTodo)
			todos.GET("/:id", b.handleGetTodo)
			todos.PUT("/:id", b.handleUpdateTodo)
			todos.DELETE("/:id", b.handleDeleteTodo)
		}

		tasks := api.Group("/team-tasks", b.requireAuth)
		{
			tasks.GET("", b.handleListTasks)
			tasks.POST("", b.requireAdmin, b.handleCreateTask)
			tasks.GET("/:id", b.handleGetTask)
			tasks.PUT("/:id", b.requireAdmin, b.handleUpdateTask)
			tasks.PATCH("/:id/status", b.handleTaskStatus)
			tasks.PATCH("/:id/assign", b.requireAdmin, b.handleAssignTask)
			tasks.DELETE("/:id", b.requireAdmin, b.handleDeleteTask)

			tasks.GET("/:id/sub-tasks", b.handleListSubTasks)
			tasks.POST("/:id/sub-tasks", b.requireAdmin, b.handleCreateSubTask)
			tasks.PUT("/:id/sub-tasks/:sub", b.requireAdmin, b.handleUpdateSubTask)
			tasks.PATCH("/:id/sub-tasks/:sub/status", b.handleSubTaskStatus)
			tasks.DELETE("/:id/sub-tasks/:sub", b.requireAdmin, b.handleDeleteSubTask)
		}
	}
}

func requestKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

func (b *Backend) recordRequest(c *gin.Context) {
	key := requestKey(c.Request.Method, c.Request.URL.Path)
	b.mu.Lock()
	b.requests = append(b.requests, key)
	hold := b.holds[key]
	b.mu.Unlock()
	if hold != nil {
		<-hold
	}
	c.Next()
}

func (b *Backend) injectFaults(c *gin.Context) {
	b.mu.Lock()
	f, ok := b.faults[requestKey(c.Request.Method, c.Request.URL.Path)]
	b.mu.Unlock()
	if !ok {
		c.Next()
		return
	}
	if f.body != "" {
		c.Data(f.status, "application/json", []byte(f.body))
	} else {
		c.Status(f.status)
	}
	c.Abort()
}

// Requests returns every request seen so far as "METHOD /api/path".
func (b *Backend) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

func (b *Backend) ResetRequests() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = nil
}

// Fail makes every request to method+path answer with status and an error
// envelope carrying message. An empty message sends no body at all.
func (b *Backend) Fail(method, path string, status int, message string) {
	f := fault{status: status}
	if message != "" {
		raw, _ := json.Marshal(envelope{Success: false, Error: &envelopeError{Message: message, Code: status}})
		f.body = string(raw)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults[requestKey(method, path)] = f
}

func (b *Backend) ClearFaults() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults = map[string]fault{}
}

// Hold blocks requests to method+path until release is called.
func (b *Backend) Hold(method, path string) (release func()) {
	ch := make(chan struct{})
	key := requestKey(method, path)
	b.mu.Lock()
	b.holds[key] = ch
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.holds, key)
			b.mu.Unlock()
			close(ch)
		})
	}
}

type envelope struct {
	Success bool           `json:"success"`
	Error   *envelopeError `json:"error,omitempty"`
}

type envelopeError struct {
	Message string            `json:"message"`
	Code    int               `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.Data(http.StatusInternalServerError, "text/plain", []byte(err.Error()))
		return
	}
	c.Data(status, "application/json", raw)
}

// succeed writes a success envelope. A nil data leaves the key out, an empty
// list is still sent as [].
func succeed(c *gin.Context, status int, data any, message string) {
	out := map[string]any{"success": true}
	if data != nil {
		out["data"] = data
	}
	if message != "" {
		out["message"] = message
	}
	writeJSON(c, status, out)
}

func fail(c *gin.Context, status int, message string, details map[string]string) {
	writeJSON(c, status, envelope{Success: false, Error: &envelopeError{Message: message, Code: status, Details: details}})
	c.Abort()
}

// readBody decodes a JSON object body keeping raw values so handlers can
// tell an absent key from an explicit null.
func readBody(c *gin.Context) (map[string]json.RawMessage, bool) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || len(raw) == 0 {
		fail(c, http.StatusBadRequest, "Request body is required", nil)
		return nil, false
	}
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &m); err != nil || len(m) == 0 {
		fail(c, http.StatusBadRequest, "Request body is required", nil)
		return nil, false
	}
	return m, true
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func rawString(raw json.RawMessage) string {
	var s string
	_ = json.Unmarshal(raw, &s)
	return s
}

func rawInt64(raw json.RawMessage) (int64, bool) {
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	return n, true
}

func (b *Backend) stamp() string {
	return b.now().Format(time.RFC3339)
}

func (b *Backend) id() int64 {
	b.nextID++
	return b.nextID
}

func sortedIDs[T any](m map[int64]T, desc bool) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if desc {
			return ids[i] > ids[j]
		}
		return ids[i] < ids[j]
	})
	return ids
}
