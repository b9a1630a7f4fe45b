package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"verify-controller/internal/domain/model"
)

var (
	signinEmail    string
	signinPassword string
	signupFirst    string
	signupLast     string
)

var signinCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in and derive an API credential",
	Long: `Signs in with email and password, derives an API credential and stores
it according to credentials.persistence. The password is read from
--password, then VERIFYCTL_PASSWORD, then the first line of stdin.`,
	Args: cobra.NoArgs,
	RunE: runSignin,
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and sign in",
	Args:  cobra.NoArgs,
	RunE:  runSignup,
}

var signoutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sign out and forget the stored credential",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			return a.ctl.SignOut(cmd.Context())
		})
	},
}

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Replace the stored API credential with a fresh one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			return a.ctl.RotateCredentials(cmd.Context())
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show credential state and credit balance",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	for _, c := range []*cobra.Command{signinCmd, signupCmd} {
		c.Flags().StringVar(&signinEmail, "email", "", "account email")
		c.Flags().StringVar(&signinPassword, "password", "", "account password")
		_ = c.MarkFlagRequired("email")
	}
	signupCmd.Flags().StringVar(&signupFirst, "first-name", "", "first name")
	signupCmd.Flags().StringVar(&signupLast, "last-name", "", "last name")

	rootCmd.AddCommand(signinCmd, signupCmd, signoutCmd, rotateCmd, whoamiCmd)
}

func password() (string, error) {
	if signinPassword != "" {
		return signinPassword, nil
	}
	if v := os.Getenv("VERIFYCTL_PASSWORD"); v != "" {
		return v, nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runSignin(cmd *cobra.Command, _ []string) error {
	pw, err := password()
	if err != nil {
		return err
	}
	return withApp(cmd.Context(), func(a *app) error {
		if err := a.ctl.SignIn(cmd.Context(), signinEmail, pw); err != nil {
			return err
		}
		return showSession(cmd, a)
	})
}

func runSignup(cmd *cobra.Command, _ []string) error {
	pw, err := password()
	if err != nil {
		return err
	}
	req := model.SignUpRequest{Email: signinEmail, Password: pw, FirstName: signupFirst, LastName: signupLast}
	return withApp(cmd.Context(), func(a *app) error {
		if err := a.ctl.SignUp(cmd.Context(), req); err != nil {
			return err
		}
		return showSession(cmd, a)
	})
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		return showSession(cmd, a)
	})
}

func showSession(cmd *cobra.Command, a *app) error {
	st, bal := a.ctl.Status(cmd.Context())
	if asJSON {
		return printJSON(struct {
			model.SessionStatus
			Credits *model.CreditBalance `json:"credits,omitempty"`
		}{st, bal})
	}
	if !st.Credentialed {
		fmt.Fprintln(stdout, "not signed in")
		return nil
	}
	fmt.Fprintln(stdout, "signed in")
	if st.ExpiresAt != nil {
		fmt.Fprintf(stdout, "session expires: %s\n", st.ExpiresAt.Local().Format(time.RFC1123))
	}
	if bal != nil {
		return printBalance(*bal)
	}
	return nil
}
