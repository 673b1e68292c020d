package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/silvertree/stc/internal/credfile"
	"github.com/silvertree/stc/internal/silvertree"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and save the token pair",
		Long: `Exchange a username and password for an access/refresh token pair and
save it to the profile's credential file. Credentials default to the
profile's username and the STC_USERNAME/STC_PASSWORD environment variables.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}

	cmd.Flags().StringP("username", "u", "", "account username")
	cmd.Flags().StringP("password", "p", "", "account password")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved credential file",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check connectivity and credentials against the document service",
		Args:  cobra.NoArgs,
		RunE:  runPing,
	}
}

func newSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show information about the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			return runAuthenticated(cmd.Context(), cc, func(ctx context.Context, s *APISession) (any, error) {
				return s.Session.Info(ctx)
			})
		},
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	logger := cc.Logger

	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")

	if username == "" {
		username = cc.Cfg.Username
	}

	if password == "" {
		password = cc.Cfg.Password
	}

	if username == "" || password == "" {
		return errors.New("username and password are required (use --username/--password or STC_USERNAME/STC_PASSWORD)")
	}

	sess := newServiceSession(cc.Cfg, newHTTPClient(cc.Cfg.Timeout()), cc)

	cred, err := sess.Login(cmd.Context(), username, password)
	if err != nil {
		return err
	}

	if err := credfile.Save(cc.Cfg.CredentialsFile, cred.Token()); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	logger.Info("login successful", "profile", cc.Cfg.Name, "credentials_file", cc.Cfg.CredentialsFile)
	cc.Statusf("Login successful. Credentials saved to %s\n", cc.Cfg.CredentialsFile)

	return render(cc.Stdout, cc.Cfg.Output, map[string]any{
		"access_token":  cred.AccessToken,
		"refresh_token": cred.RefreshToken,
	})
}

func runLogout(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	removed, err := credfile.Remove(cc.Cfg.CredentialsFile)
	if err != nil {
		return err
	}

	if !removed {
		cc.Statusf("Not logged in.\n")
		return nil
	}

	cc.Logger.Info("logout successful", "profile", cc.Cfg.Name)
	cc.Statusf("Logged out.\n")

	return nil
}

func runPing(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	s, err := NewAPISession(cc)
	if err != nil {
		return err
	}

	result, err := silvertree.Recover(cmd.Context(), s.Recovery, s.Session.Ping)
	if err != nil {
		return err
	}

	return render(cc.Stdout, cc.Cfg.Output, result)
}
