package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"teamboard/internal/model"
	"teamboard/internal/mutate"
	"teamboard/internal/perm"
	"teamboard/internal/statusutil"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "Team task commands",
	}

	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksShowCmd(app))
	cmd.AddCommand(newTasksCreateCmd(app))
	cmd.AddCommand(newTasksUpdateCmd(app))
	cmd.AddCommand(newTasksSetStatusCmd(app))
	cmd.AddCommand(newTasksAssignCmd(app))
	cmd.AddCommand(newTasksDeleteCmd(app))

	return cmd
}

func newTasksListCmd(app *App) *cobra.Command {
	var mine bool
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the team's tasks (newest first)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var want model.TaskStatus
			if status != "" {
				st, err := statusutil.ParseTaskStatus(status)
				if err != nil {
					return writeErr(cmd, err)
				}
				want = st
			}
			_, svc, u, err := app.signedIn(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			tasks, err := svc.Tasks.List(cmdContext(cmd))
			if err != nil {
				return writeErr(cmd, err)
			}
			out := taskList{}
			for _, t := range tasks {
				if mine && (t.AssignedUserID == nil || *t.AssignedUserID != u.ID) {
					continue
				}
				if want != "" && t.Status != want {
					continue
				}
				out = append(out, t)
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		},
	}

	cmd.Flags().BoolVar(&mine, "mine", false, "Only tasks assigned to you")
	cmd.Flags().StringVar(&status, "status", "", "Only tasks in this column (todo|in-progress|blocked|done)")

	return cmd
}

func newTasksShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task with its sub-tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			_, svc, u, err := app.signedIn(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			t, err := svc.Tasks.Get(cmdContext(cmd), taskID)
			if err != nil {
				return writeErr(cmd, err)
			}
			a := perm.ActorFor(u)
			return writeOut(cmd, app, map[string]any{
				"data": t,
				"meta": map[string]any{
					"can_change_status": perm.CanMutateTaskStatus(a, t),
					"can_edit":          perm.CanEditStructure(a),
				},
			})
		},
	}
}

func newTasksCreateCmd(app *App) *cobra.Command {
	var title string
	var description string
	var status string
	var assign int64

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a team task (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := model.CreateTask{Title: title}
			if cmd.Flags().Changed("description") {
				in.Description = &description
			}
			if cmd.Flags().Changed("assign") {
				in.AssignedUserID = &assign
			}
			if status != "" {
				st, err := statusutil.ParseTaskStatus(status)
				if err != nil {
					return writeErr(cmd, err)
				}
				in.Status = &st
			}
			_, svc, u, err := app.signedIn(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := mutate.RequireStructure(perm.ActorFor(u), "task", 0); err != nil {
				return writeErr(cmd, err)
			}
			t, err := svc.Tasks.Create(cmdContext(cmd), in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": t})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title (required)")
	cmd.Flags().StringVar(&description, "description", "", "Description (markdown)")
	cmd.Flags().StringVar(&status, "status", "", "Initial status (default todo)")
	cmd.Flags().Int64Var(&assign, "assign", 0, "Assignee user id")

	return cmd
}

func newTasksUpdateCmd(app *App) *cobra.Command {
	var title string
	var description string
	var clearDescription bool

	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Edit a task's title or description (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			var in model.UpdateTask
			if cmd.Flags().Changed("title") {
				in.Title = &title
			}
			switch {
			case clearDescription:
				in.Description = model.Clear[string]()
			case cmd.Flags().Changed("description"):
				in.Description = model.Set(description)
			}
			if in == (model.UpdateTask{}) {
				return writeErr(cmd, errors.New("nothing to update; pass --title or --description"))
			}
			_, svc, u, err := app.signedIn(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := mutate.RequireStructure(perm.ActorFor(u), "task", taskID); err != nil {
				return writeErr(cmd, err)
			}
			t, err := svc.Tasks.Update(cmdContext(cmd), taskID, in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": t})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description (markdown)")
	cmd.Flags().BoolVar(&clearDescription, "clear-description", false, "Remove the description")
	cmd.MarkFlagsMutuallyExclusive("description", "clear-description")

	return cmd
}

func newTasksSetStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "set-status <task-id> <status>",
		Aliases: []string{"move"},
		Short:   "Move a task to another column (admin or assignee)",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			to, err := statusutil.ParseTaskStatus(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			_, svc, u, err := app.signedIn(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			c := cmdContext(cmd)
			t, err := svc.Tasks.Get(c, taskID)
			if err != nil {
				return writeErr(cmd, err)
			}
			change, err := mutate.PlanTaskStatus(perm.ActorFor(u), t, to)
			if err != nil {
				return writeErr(cmd, err)
			}
			if change.Changed {
				if t, err = svc.Tasks.UpdateStatus(c, taskID, change.To); err != nil {
					return writeErr(cmd, err)
				}
			}
			return writeOut(cmd, app, map[string]any{"data": t, "meta": map[string]any{"changed": change.Changed}})
		},
	}
}

func newTasksAssignCmd(app *App) *cobra.Command {
	var none bool

	cmd := &cobra.Command{
		Use:   "assign <task-id> [user-id]",
		Short: "Assign a task to a team member, or unassign with --none (admin)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			var userID *int64
			switch {
			case none && len(args) == 2:
				return writeErr(cmd, errors.New("pass either a user id or --none"))
			case len(args) == 2:
				n, err := parseID("user", args[1])
				if err != nil {
					return writeErr(cmd, err)
				}
				userID = &n
			case !none:
				return writeErr(cmd, errors.New("missing user id (or --none to unassign)"))
			}
			_, svc, u, err := app.signedIn(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := mutate.RequireStructure(perm.ActorFor(u), "task", taskID); err != nil {
				return writeErr(cmd, err)
			}
			t, err := svc.Tasks.Assign(cmdContext(cmd), taskID, userID)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": t})
		},
	}

	cmd.Flags().BoolVar(&none, "none", false, "Remove the assignee")

	return cmd
}

func newTasksDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task and its sub-tasks (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			_, svc, u, err := app.signedIn(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := mutate.RequireStructure(perm.ActorFor(u), "task", taskID); err != nil {
				return writeErr(cmd, err)
			}
			if err := svc.Tasks.Delete(cmdContext(cmd), taskID); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": taskID, "deleted": true}})
		},
	}
}
