package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"verify-controller/internal/domain/model"
)

var (
	creditsRefresh bool
	shareAccess    string
	activityPage   int
	activityLimit  int
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Show the credit balance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			b, err := a.ctl.Balance(cmd.Context(), creditsRefresh)
			if err != nil {
				return err
			}
			return printBalance(b)
		})
	},
}

var shareCmd = &cobra.Command{
	Use:   "share <member-email> <job-or-list-id>...",
	Short: "Share lists with another account",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		access, err := model.ParseAccessType(shareAccess)
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app) error {
			m, err := a.ctl.Share(cmd.Context(), args[0], args[1:], access)
			if err != nil {
				return err
			}
			return printMembers([]model.Member{*m})
		})
	},
}

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "List accounts lists are shared with",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			ms, err := a.ctl.Members(cmd.Context())
			if err != nil {
				return err
			}
			return printMembers(ms)
		})
	},
}

var accessCmd = &cobra.Command{
	Use:   "access <member-id> <read|write>",
	Short: "Change a member's access level",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		access, err := model.ParseAccessType(args[1])
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app) error {
			return a.ctl.ChangeAccess(cmd.Context(), args[0], access)
		})
	},
}

var unshareCmd = &cobra.Command{
	Use:   "unshare <member-id>",
	Short: "Revoke a member's access to every shared list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			return a.ctl.RemoveMember(cmd.Context(), args[0])
		})
	},
}

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show the account activity log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			logs, err := a.ctl.ActivityLogs(cmd.Context(), activityPage, activityLimit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(logs)
			}
			tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tACTION\tDESCRIPTION")
			for _, l := range logs {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", l.CreatedAt.Local().Format(time.DateTime), l.Action, l.Description)
			}
			return tw.Flush()
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <email>",
	Short: "Verify a single address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			res, err := a.ctl.VerifySingle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(map[string]string{"email": args[0], "result": res})
			}
			_, err = fmt.Fprintf(stdout, "%s: %s\n", args[0], res)
			return err
		})
	},
}

func init() {
	creditsCmd.Flags().BoolVar(&creditsRefresh, "refresh", true, "fetch the balance from the server")
	shareCmd.Flags().StringVar(&shareAccess, "access", "read", "read|write")
	activityCmd.Flags().IntVar(&activityPage, "page", 1, "page number")
	activityCmd.Flags().IntVar(&activityLimit, "limit", 20, "entries per page (max 100)")

	rootCmd.AddCommand(creditsCmd, shareCmd, membersCmd, accessCmd, unshareCmd, activityCmd, verifyCmd)
}

func printMembers(ms []model.Member) error {
	if asJSON {
		return printJSON(ms)
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tACCESS\tLISTS")
	for _, m := range ms {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", m.ID, m.Email, m.Name, m.AccessType, m.ListCount)
	}
	return tw.Flush()
}
