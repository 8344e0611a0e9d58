package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"teamboard/internal/model"
	"teamboard/internal/mutate"
	"teamboard/internal/perm"
	"teamboard/internal/statusutil"
)

func newTodosCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "todos",
		Aliases: []string{"todo"},
		Short:   "Private todo commands",
	}

	cmd.AddCommand(newTodosListCmd(app))
	cmd.AddCommand(newTodosShowCmd(app))
	cmd.AddCommand(newTodosCreateCmd(app))
	cmd.AddCommand(newTodosUpdateCmd(app))
	cmd.AddCommand(newTodosSetStatusCmd(app))
	cmd.AddCommand(newTodosDeleteCmd(app))

	return cmd
}

func newTodosListCmd(app *App) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your private todos (newest first)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var want model.TodoStatus
			if status != "" {
				st, err := statusutil.ParseTodoStatus(status)
				if err != nil {
					return writeErr(cmd, err)
				}
				want = st
			}
			_, svc, _, err := app.signedIn(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			todos, err := svc.Todos.List(cmdContext(cmd))
			if err != nil {
				return writeErr(cmd, err)
			}
			out := todoList{}
			for _, t := range todos {
				if want == "" || t.Status == want {
					out = append(out, t)
				}
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Only todos with this status (todo|in-progress|done)")

	return cmd
}

func newTodosShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <todo-id>",
		Short: "Show a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			todoID, err := parseID("todo", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			_, svc, _, err := app.signedIn(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			td, err := svc.Todos.Get(cmdContext(cmd), todoID)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": td})
		},
	}
}

func newTodosCreateCmd(app *App) *cobra.Command {
	var title string
	var description string
	var status string
	var due string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a private todo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := model.CreateTodo{Title: title}
			if cmd.Flags().Changed("description") {
				in.Description = &description
			}
			if cmd.Flags().Changed("due") {
				in.DueDate = &due
			}
			if status != "" {
				st, err := statusutil.ParseTodoStatus(status)
				if err != nil {
					return writeErr(cmd, err)
				}
				in.Status = &st
			}
			_, svc, _, err := app.signedIn(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			td, err := svc.Todos.Create(cmdContext(cmd), in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": td})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title (required)")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&status, "status", "", "Initial status (default todo)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD or RFC 3339)")

	return cmd
}

func newTodosUpdateCmd(app *App) *cobra.Command {
	var title string
	var description string
	var clearDescription bool
	var due string
	var clearDue bool

	cmd := &cobra.Command{
		Use:   "update <todo-id>",
		Short: "Edit a todo's title, description or due date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			todoID, err := parseID("todo", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			var in model.UpdateTodo
			if cmd.Flags().Changed("title") {
				in.Title = &title
			}
			switch {
			case clearDescription:
				in.Description = model.Clear[string]()
			case cmd.Flags().Changed("description"):
				in.Description = model.Set(description)
			}
			switch {
			case clearDue:
				in.DueDate = model.Clear[string]()
			case cmd.Flags().Changed("due"):
				in.DueDate = model.Set(due)
			}
			if in == (model.UpdateTodo{}) {
				return writeErr(cmd, errors.New("nothing to update; pass --title, --description or --due"))
			}
			_, svc, _, err := app.signedIn(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			td, err := svc.Todos.Update(cmdContext(cmd), todoID, in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": td})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().BoolVar(&clearDescription, "clear-description", false, "Remove the description")
	cmd.Flags().StringVar(&due, "due", "", "New due date")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "Remove the due date")
	cmd.MarkFlagsMutuallyExclusive("description", "clear-description")
	cmd.MarkFlagsMutuallyExclusive("due", "clear-due")

	return cmd
}

func newTodosSetStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <todo-id> <status>",
		Short: "Set a todo's status (todo|in-progress|done)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			todoID, err := parseID("todo", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			to, err := statusutil.ParseTodoStatus(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			_, svc, u, err := app.signedIn(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			c := cmdContext(cmd)
			td, err := svc.Todos.Get(c, todoID)
			if err != nil {
				return writeErr(cmd, err)
			}
			change, err := mutate.PlanTodoStatus(perm.ActorFor(u), td, to)
			if err != nil {
				return writeErr(cmd, err)
			}
			if change.Changed {
				if td, err = svc.Todos.UpdateStatus(c, todoID, change.To); err != nil {
					return writeErr(cmd, err)
				}
			}
			return writeOut(cmd, app, map[string]any{"data": td, "meta": map[string]any{"changed": change.Changed}})
		},
	}
}

func newTodosDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <todo-id>",
		Short: "Delete a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			todoID, err := parseID("todo", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			_, svc, _, err := app.signedIn(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := svc.Todos.Delete(cmdContext(cmd), todoID); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": todoID, "deleted": true}})
		},
	}
}
