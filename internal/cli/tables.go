package cli

import (
	"fmt"
	"strconv"

	"teamboard/internal/format"
	"teamboard/internal/model"
	"teamboard/internal/statusutil"
)

// List results carry a Rows method so --format table can render them. They
// marshal exactly like the plain slices.

type todoList []model.PrivateTodo

func (l todoList) Rows() format.Rows {
	r := format.Rows{Header: []string{"ID", "STATUS", "TITLE", "DUE"}}
	for _, t := range l {
		r.Data = append(r.Data, []string{id(t.ID), statusutil.Label(t.Status), t.Title, model.Deref(t.DueDate)})
	}
	return r
}

type taskList []model.TeamTask

func (l taskList) Rows() format.Rows {
	r := format.Rows{Header: []string{"ID", "STATUS", "PROGRESS", "ASSIGNEE", "TITLE"}}
	for _, t := range l {
		r.Data = append(r.Data, []string{id(t.ID), statusutil.Label(t.Status), percent(t.Progress()), userName(t.AssignedUser), t.Title})
	}
	return r
}

type subTaskList []model.SubTask

func (l subTaskList) Rows() format.Rows {
	r := format.Rows{Header: []string{"ID", "STATUS", "RESPONSIBLE", "TITLE"}}
	for _, st := range l {
		r.Data = append(r.Data, []string{id(st.ID), statusutil.Label(st.Status), userName(st.ResponsibleUser), st.Title})
	}
	return r
}

type memberList []model.TeamMember

func (l memberList) Rows() format.Rows {
	r := format.Rows{Header: []string{"ID", "ROLE", "NAME", "EMAIL"}}
	for _, m := range l {
		r.Data = append(r.Data, []string{id(m.ID), string(m.Role), m.Name, m.Email})
	}
	return r
}

func id(n int64) string { return strconv.FormatInt(n, 10) }

func percent(n int) string { return fmt.Sprintf("%d%%", n) }

func userName(u *model.UserRef) string {
	if u == nil {
		return "-"
	}
	return u.Name
}

// parseID parses a positional numeric id.
func parseID(kind, s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", kind, s)
	}
	return n, nil
}
