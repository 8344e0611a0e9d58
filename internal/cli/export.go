package cli

import (
	"github.com/spf13/cobra"

	"teamboard/internal/publish"
)

func newExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write team tasks as markdown files",
	}
	cmd.AddCommand(newExportBoardCmd(app))
	cmd.AddCommand(newExportTaskCmd(app))
	return cmd
}

func newExportBoardCmd(app *App) *cobra.Command {
	var (
		to        string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Write index.md and one page per task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, u, err := app.signedIn(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			title := ""
			if u.Team != nil {
				title = u.Team.Name
			}
			res, err := publish.WriteBoard(cmdContext(cmd), svc.Tasks, to, publish.WriteOptions{Title: title, Overwrite: overwrite})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": res})
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Output directory")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing files")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func newExportTaskCmd(app *App) *cobra.Command {
	var (
		to        string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "task <task-id>",
		Short: "Write one task page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			_, svc, _, err := app.signedIn(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			res, err := publish.WriteTask(cmdContext(cmd), svc.Tasks, id, to, publish.WriteOptions{Overwrite: overwrite})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": res})
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Output directory")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing files")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
