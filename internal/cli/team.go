package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

func newTeamCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Team commands",
	}
	cmd.AddCommand(newTeamMembersCmd(app))
	return cmd
}

func newTeamMembersCmd(app *App) *cobra.Command {
	var teamID int64

	cmd := &cobra.Command{
		Use:   "members",
		Short: "List the members of your team",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, u, err := app.signedIn(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			id := teamID
			if !cmd.Flags().Changed("team") {
				if u.TeamID == nil {
					return writeErr(cmd, errors.New("you are not in a team"))
				}
				id = *u.TeamID
			}
			members, err := svc.Users.TeamMembers(cmdContext(cmd), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": memberList(members)})
		},
	}

	cmd.Flags().Int64Var(&teamID, "team", 0, "Team id (default: your team)")

	return cmd
}
