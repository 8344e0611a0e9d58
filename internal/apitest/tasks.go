package apitest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"teamboard/internal/model"
	"teamboard/internal/statusutil"
)

// taskView is the wire form of a team task, progress included.
type taskView struct {
	ID             int64            `json:"id"`
	TeamID         int64            `json:"team_id"`
	Title          string           `json:"title"`
	Description    *string          `json:"description"`
	Status         model.TaskStatus `json:"status"`
	AssignedUserID *int64           `json:"assigned_user_id"`
	AssignedUser   *model.UserRef   `json:"assigned_user,omitempty"`
	Progress       int              `json:"progress"`
	SubTasks       []model.SubTask  `json:"sub_tasks,omitempty"`
	CreatedAt      string           `json:"created_at"`
	UpdatedAt      string           `json:"updated_at"`
}

// AddTask seeds a team task in the default team.
func (b *Backend) AddTask(title string, status model.TaskStatus, assignee *int64) model.TeamTask {
	b.mu.Lock()
	now := b.stamp()
	t := &taskRec{
		ID:             b.id(),
		TeamID:         b.defaultTeamLocked().ID,
		Title:          title,
		Status:         status,
		AssignedUserID: assignee,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	b.tasks[t.ID] = t
	view := b.taskViewLocked(t, false)
	b.mu.Unlock()
	return decodeTask(view)
}

// AddSubTask seeds a sub-task under taskID.
func (b *Backend) AddSubTask(taskID int64, title string, status model.TaskStatus, responsible *int64) model.SubTask {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.stamp()
	st := &model.SubTask{ID: b.id(), TeamTaskID: taskID, Title: title, Status: status, ResponsibleUserID: responsible, CreatedAt: now, UpdatedAt: now}
	b.subs[st.ID] = st
	return b.subTaskViewLocked(st)
}

// Task returns the stored task as the client would decode it.
func (b *Backend) Task(id int64) (model.TeamTask, bool) {
	b.mu.Lock()
	t, ok := b.tasks[id]
	var view taskView
	if ok {
		view = b.taskViewLocked(t, true)
	}
	b.mu.Unlock()
	if !ok {
		return model.TeamTask{}, false
	}
	return decodeTask(view), true
}

func decodeTask(v taskView) model.TeamTask {
	raw, _ := json.Marshal(v)
	var t model.TeamTask
	_ = json.Unmarshal(raw, &t)
	return t
}

func (b *Backend) userRefLocked(id *int64) *model.UserRef {
	if id == nil {
		return nil
	}
	u, ok := b.users[*id]
	if !ok {
		return nil
	}
	return &model.UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
}

func (b *Backend) subTasksOfLocked(taskID int64) []model.SubTask {
	out := []model.SubTask{}
	for _, id := range sortedIDs(b.subs, false) {
		if st := b.subs[id]; st.TeamTaskID == taskID {
			out = append(out, b.subTaskViewLocked(st))
		}
	}
	return out
}

func (b *Backend) subTaskViewLocked(st *model.SubTask) model.SubTask {
	out := *st
	out.ResponsibleUser = b.userRefLocked(st.ResponsibleUserID)
	return out
}

// progressLocked: with no sub-tasks, 100 when DONE else 0; otherwise the
// truncated percentage of DONE sub-tasks.
func (b *Backend) progressLocked(t *taskRec) int {
	total, done := 0, 0
	for _, st := range b.subs {
		if st.TeamTaskID != t.ID {
			continue
		}
		total++
		if st.Status == model.TaskStatusDone {
			done++
		}
	}
	if total == 0 {
		if t.Status == model.TaskStatusDone {
			return 100
		}
		return 0
	}
	return done * 100 / total
}

func (b *Backend) taskViewLocked(t *taskRec, withSubTasks bool) taskView {
	v := taskView{
		ID:             t.ID,
		TeamID:         t.TeamID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         t.Status,
		AssignedUserID: t.AssignedUserID,
		AssignedUser:   b.userRefLocked(t.AssignedUserID),
		Progress:       b.progressLocked(t),
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if withSubTasks {
		v.SubTasks = b.subTasksOfLocked(t.ID)
	}
	return v
}

// teamTaskLocked loads the task named by :id and checks team access.
func (b *Backend) teamTaskLocked(c *gin.Context) (*userRec, *taskRec, bool) {
	u, ok := b.currentLocked(c)
	if !ok {
		return nil, nil, false
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusNotFound, "Task not found", nil)
		return nil, nil, false
	}
	t, ok := b.tasks[id]
	if !ok {
		fail(c, http.StatusNotFound, "Task not found", nil)
		return nil, nil, false
	}
	if u.TeamID == nil || *u.TeamID != t.TeamID {
		fail(c, http.StatusForbidden, "Access denied", nil)
		return nil, nil, false
	}
	return u, t, true
}

func (b *Backend) subTaskLocked(c *gin.Context, t *taskRec) (*model.SubTask, bool) {
	id, err := strconv.ParseInt(c.Param("sub"), 10, 64)
	if err != nil {
		fail(c, http.StatusNotFound, "Sub-task not found", nil)
		return nil, false
	}
	st, ok := b.subs[id]
	if !ok || st.TeamTaskID != t.ID {
		fail(c, http.StatusNotFound, "Sub-task not found", nil)
		return nil, false
	}
	return st, true
}

// memberIDLocked validates an assignee reference against the actor's team.
func (b *Backend) memberIDLocked(u *userRec, raw json.RawMessage) (*int64, bool) {
	if isNull(raw) {
		return nil, true
	}
	id, ok := rawInt64(raw)
	if !ok || id == 0 {
		return nil, ok
	}
	m, found := b.users[id]
	if !found || m.TeamID == nil || u.TeamID == nil || *m.TeamID != *u.TeamID {
		return nil, false
	}
	return &id, true
}

func (b *Backend) handleListTasks(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.currentLocked(c)
	if !ok {
		return
	}
	if u.TeamID == nil {
		fail(c, http.StatusBadRequest, "User is not in a team", nil)
		return
	}
	out := []taskView{}
	for _, id := range sortedIDs(b.tasks, true) {
		if t := b.tasks[id]; t.TeamID == *u.TeamID {
			out = append(out, b.taskViewLocked(t, false))
		}
	}
	succeed(c, http.StatusOK, out, "")
}

func (b *Backend) handleGetTask(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, t, ok := b.teamTaskLocked(c)
	if !ok {
		return
	}
	succeed(c, http.StatusOK, b.taskViewLocked(t, true), "")
}

func (b *Backend) handleCreateTask(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.currentLocked(c)
	if !ok {
		return
	}
	if u.TeamID == nil {
		fail(c, http.StatusBadRequest, "User is not in a team", nil)
		return
	}
	title := rawString(body["title"])
	if msg, valid := validTitle(title); !valid {
		fail(c, http.StatusBadRequest, msg, nil)
		return
	}
	status := model.TaskStatusTodo
	if raw, present := body["status"]; present {
		status = model.TaskStatus(rawString(raw))
	}
	if !statusutil.ValidTaskStatus(status) {
		fail(c, http.StatusBadRequest, taskStatusMessage(), nil)
		return
	}
	assignee, valid := b.memberIDLocked(u, body["assigned_user_id"])
	if !valid {
		fail(c, http.StatusBadRequest, "Invalid assigned user", nil)
		return
	}
	var desc *string
	if raw, present := body["description"]; present && !isNull(raw) {
		d := rawString(raw)
		desc = &d
	}

	now := b.stamp()
	t := &taskRec{
		ID:             b.id(),
		TeamID:         *u.TeamID,
		Title:          title,
		Description:    desc,
		Status:         status,
		AssignedUserID: assignee,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	b.tasks[t.ID] = t
	succeed(c, http.StatusCreated, b.taskViewLocked(t, false), "Task created successfully")
}

func (b *Backend) handleUpdateTask(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, t, ok := b.teamTaskLocked(c)
	if !ok {
		return
	}

	next := *t
	if raw, present := body["title"]; present {
		title := rawString(raw)
		if msg, valid := validTitle(title); !valid {
			fail(c, http.StatusBadRequest, msg, nil)
			return
		}
		next.Title = title
	}
	if raw, present := body["status"]; present {
		st := model.TaskStatus(rawString(raw))
		if !statusutil.ValidTaskStatus(st) {
			fail(c, http.StatusBadRequest, taskStatusMessage(), nil)
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
	if raw, present := body["assigned_user_id"]; present {
		assignee, valid := b.memberIDLocked(u, raw)
		if !valid {
			fail(c, http.StatusBadRequest, "Invalid assigned user", nil)
			return
		}
		next.AssignedUserID = assignee
	}
	next.UpdatedAt = b.stamp()
	*t = next
	succeed(c, http.StatusOK, b.taskViewLocked(t, false), "Task updated successfully")
}

func (b *Backend) handleTaskStatus(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, t, ok := b.teamTaskLocked(c)
	if !ok {
		return
	}
	isAssignee := t.AssignedUserID != nil && *t.AssignedUserID == u.ID
	if u.Role != model.RoleAdmin && !isAssignee {
		fail(c, http.StatusForbidden, "Only the assigned user or admin can update status", nil)
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}
	raw, present := body["status"]
	if !present {
		fail(c, http.StatusBadRequest, "Status is required", nil)
		return
	}
	st := model.TaskStatus(rawString(raw))
	if !statusutil.ValidTaskStatus(st) {
		fail(c, http.StatusBadRequest, taskStatusMessage(), nil)
		return
	}
	t.Status = st
	t.UpdatedAt = b.stamp()
	succeed(c, http.StatusOK, b.taskViewLocked(t, false), "Status updated successfully")
}

func (b *Backend) handleAssignTask(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, t, ok := b.teamTaskLocked(c)
	if !ok {
		return
	}
	assignee, valid := b.memberIDLocked(u, body["assigned_user_id"])
	if !valid {
		fail(c, http.StatusBadRequest, "Invalid assigned user", nil)
		return
	}
	t.AssignedUserID = assignee
	t.UpdatedAt = b.stamp()
	succeed(c, http.StatusOK, b.taskViewLocked(t, false), "Task assigned successfully")
}

func (b *Backend) handleDeleteTask(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, t, ok := b.teamTaskLocked(c)
	if !ok {
		return
	}
	for id, st := range b.subs {
		if st.TeamTaskID == t.ID {
			delete(b.subs, id)
		}
	}
	delete(b.tasks, t.ID)
	succeed(c, http.StatusOK, nil, "Task deleted successfully")
}

func (b *Backend) handleListSubTasks(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, t, ok := b.teamTaskLocked(c)
	if !ok {
		return
	}
	succeed(c, http.StatusOK, b.subTasksOfLocked(t.ID), "")
}

func (b *Backend) handleCreateSubTask(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, t, ok := b.teamTaskLocked(c)
	if !ok {
		return
	}
	title := rawString(body["title"])
	if msg, valid := validTitle(title); !valid {
		fail(c, http.StatusBadRequest, msg, nil)
		return
	}
	status := model.TaskStatusTodo
	if raw, present := body["status"]; present {
		status = model.TaskStatus(rawString(raw))
	}
	if !statusutil.ValidTaskStatus(status) {
		fail(c, http.StatusBadRequest, taskStatusMessage(), nil)
		return
	}
	responsible, valid := b.memberIDLocked(u, body["responsible_user_id"])
	if !valid {
		fail(c, http.StatusBadRequest, "Invalid responsible user", nil)
		return
	}
	now := b.stamp()
	st := &model.SubTask{
		ID:                b.id(),
		TeamTaskID:        t.ID,
		Title:             title,
		Status:            status,
		ResponsibleUserID: responsible,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	b.subs[st.ID] = st
	succeed(c, http.StatusCreated, b.subTaskViewLocked(st), "Sub-task created successfully")
}

func (b *Backend) handleUpdateSubTask(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, t, ok := b.teamTaskLocked(c)
	if !ok {
		return
	}
	st, ok := b.subTaskLocked(c, t)
	if !ok {
		return
	}

	next := *st
	if raw, present := body["title"]; present {
		title := rawString(raw)
		if msg, valid := validTitle(title); !valid {
			fail(c, http.StatusBadRequest, msg, nil)
			return
		}
		next.Title = title
	}
	if raw, present := body["status"]; present {
		s := model.TaskStatus(rawString(raw))
		if !statusutil.ValidTaskStatus(s) {
			fail(c, http.StatusBadRequest, taskStatusMessage(), nil)
			return
		}
		next.Status = s
	}
	if raw, present := body["responsible_user_id"]; present {
		responsible, valid := b.memberIDLocked(u, raw)
		if !valid {
			fail(c, http.StatusBadRequest, "Invalid responsible user", nil)
			return
		}
		next.ResponsibleUserID = responsible
	}
	next.UpdatedAt = b.stamp()
	*st = next
	succeed(c, http.StatusOK, b.subTaskViewLocked(st), "Sub-task updated successfully")
}

func (b *Backend) handleSubTaskStatus(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, t, ok := b.teamTaskLocked(c)
	if !ok {
		return
	}
	st, ok := b.subTaskLocked(c, t)
	if !ok {
		return
	}
	isResponsible := st.ResponsibleUserID != nil && *st.ResponsibleUserID == u.ID
	if u.Role != model.RoleAdmin && !isResponsible {
		fail(c, http.StatusForbidden, "Only the responsible user or admin can update status", nil)
		return
	}
	body, ok := readBody(c)
	if !ok {
		return
	}
	raw, present := body["status"]
	if !present {
		fail(c, http.StatusBadRequest, "Status is required", nil)
		return
	}
	s := model.TaskStatus(rawString(raw))
	if !statusutil.ValidTaskStatus(s) {
		fail(c, http.StatusBadRequest, taskStatusMessage(), nil)
		return
	}
	st.Status = s
	st.UpdatedAt = b.stamp()
	succeed(c, http.StatusOK, b.subTaskViewLocked(st), "Status updated successfully")
}

func (b *Backend) handleDeleteSubTask(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, t, ok := b.teamTaskLocked(c)
	if !ok {
		return
	}
	st, ok := b.subTaskLocked(c, t)
	if !ok {
		return
	}
	delete(b.subs, st.ID)
	succeed(c, http.StatusOK, nil, "Sub-task deleted successfully")
}
