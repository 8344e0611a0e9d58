package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"teamboard/internal/model"
	"teamboard/internal/mutate"
	"teamboard/internal/perm"
	"teamboard/internal/statusutil"
)

func newSubTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subtasks",
		Aliases: []string{"subtask", "sub-tasks"},
		Short:   "Sub-task commands",
	}

	cmd.AddCommand(newSubTasksListCmd(app))
	cmd.AddCommand(newSubTasksCreateCmd(app))
	cmd.AddCommand(newSubTasksUpdateCmd(app))
	cmd.AddCommand(newSubTasksSetStatusCmd(app))
	cmd.AddCommand(newSubTasksDeleteCmd(app))

	return cmd
}

func parseTaskAndSub(args []string) (int64, int64, error) {
	taskID, err := parseID("task", args[0])
	if err != nil {
		return 0, 0, err
	}
	subID, err := parseID("sub-task", args[1])
	if err != nil {
		return 0, 0, err
	}
	return taskID, subID, nil
}

func newSubTasksListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <task-id>",
		Short: "List a task's sub-tasks (oldest first)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			_, svc, _, err := app.signedIn(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			subs, err := svc.Tasks.ListSubTasks(cmdContext(cmd), taskID)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": subTaskList(subs)})
		},
	}
}

func newSubTasksCreateCmd(app *App) *cobra.Command {
	var title string
	var status string
	var responsible int64

	cmd := &cobra.Command{
		Use:   "create <task-id>",
		Short: "Add a sub-task (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			in := model.CreateSubTask{Title: title}
			if cmd.Flags().Changed("responsible") {
				in.ResponsibleUserID = &responsible
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
			if err := mutate.RequireStructure(perm.ActorFor(u), "sub-task", 0); err != nil {
				return writeErr(cmd, err)
			}
			st, err := svc.Tasks.CreateSubTask(cmdContext(cmd), taskID, in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": st})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title (required)")
	cmd.Flags().StringVar(&status, "status", "", "Initial status (default todo)")
	cmd.Flags().Int64Var(&responsible, "responsible", 0, "Responsible user id")

	return cmd
}

func newSubTasksUpdateCmd(app *App) *cobra.Command {
	var title string
	var responsible int64
	var clearResponsible bool

	cmd := &cobra.Command{
		Use:   "update <task-id> <sub-task-id>",
		Short: "Edit a sub-task's title or responsible user (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, subID, err := parseTaskAndSub(args)
			if err != nil {
				return writeErr(cmd, err)
			}
			var in model.UpdateSubTask
			if cmd.Flags().Changed("title") {
				in.Title = &title
			}
			switch {
			case clearResponsible:
				in.ResponsibleUserID = model.Clear[int64]()
			case cmd.Flags().Changed("responsible"):
				in.ResponsibleUserID = model.Set(responsible)
			}
			if in == (model.UpdateSubTask{}) {
				return writeErr(cmd, errors.New("nothing to update; pass --title or --responsible"))
			}
			_, svc, u, err := app.signedIn(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := mutate.RequireStructure(perm.ActorFor(u), "sub-task", subID); err != nil {
				return writeErr(cmd, err)
			}
			st, err := svc.Tasks.UpdateSubTask(cmdContext(cmd), taskID, subID, in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": st})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().Int64Var(&responsible, "responsible", 0, "Responsible user id")
	cmd.Flags().BoolVar(&clearResponsible, "clear-responsible", false, "Remove the responsible user")
	cmd.MarkFlagsMutuallyExclusive("responsible", "clear-responsible")

	return cmd
}

func newSubTasksSetStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <task-id> <sub-task-id> <status>",
		Short: "Set a sub-task's status (admin or responsible user)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, subID, err := parseTaskAndSub(args)
			if err != nil {
				return writeErr(cmd, err)
			}
			to, err := statusutil.ParseTaskStatus(args[2])
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
			st, err := mutate.FindSubTask(&t, subID)
			if err != nil {
				return writeErr(cmd, err)
			}
			change, err := mutate.PlanSubTaskStatus(perm.ActorFor(u), *st, to)
			if err != nil {
				return writeErr(cmd, err)
			}
			out := *st
			if change.Changed {
				if out, err = svc.Tasks.UpdateSubTaskStatus(c, taskID, subID, change.To); err != nil {
					return writeErr(cmd, err)
				}
			}
			return writeOut(cmd, app, map[string]any{"data": out, "meta": map[string]any{"changed": change.Changed}})
		},
	}
}

func newSubTasksDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id> <sub-task-id>",
		Short: "Delete a sub-task (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, subID, err := parseTaskAndSub(args)
			if err != nil {
				return writeErr(cmd, err)
			}
			_, svc, u, err := app.signedIn(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := mutate.RequireStructure(perm.ActorFor(u), "sub-task", subID); err != nil {
				return writeErr(cmd, err)
			}
			if err := svc.Tasks.DeleteSubTask(cmdContext(cmd), taskID, subID); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": subID, "task_id": taskID, "deleted": true}})
		},
	}
}
