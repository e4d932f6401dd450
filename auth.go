package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/contactrack/contactrack/internal/drive"
)

// loginTimeout bounds the wait for the browser consent flow. A dismissed
// consent screen never calls back, so the wait must have a deadline.
const loginTimeout = 5 * time.Minute

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate with Google Drive in the browser",
		RunE:  runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and remove the saved token",
		RunE:  runLogout,
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sign-in state and the authenticated account",
		RunE:  runStatus,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()

	creds := resolvedCfg.Credentials
	if !creds.Valid() {
		return fmt.Errorf("google api credentials not configured — set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET or add a [google] section to the config file")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), loginTimeout)
	defer cancel()

	ts, err := drive.Login(ctx, creds, resolvedCfg.TokenPath(), openBrowser, logger)
	if err != nil {
		return err
	}

	// Cache the account email for status output. Best-effort: login
	// succeeded even if the lookup fails.
	client := drive.NewClient(drive.DefaultBaseURL, drive.DefaultUploadURL, defaultHTTPClient(), ts, logger)

	if _, email, aboutErr := client.About(cmd.Context()); aboutErr == nil {
		statusf("Logged in as %s.\n", email)
	} else {
		statusf("Login successful.\n")
	}

	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	session := newSession(logger, nil)

	// SignIn here only loads the saved token; it never goes interactive
	// because no LoginFunc is wired.
	if session.SignIn(cmd.Context()) {
		session.SignOut(cmd.Context())
		statusf("Logged out.\n")

		return nil
	}

	if err := drive.Logout(resolvedCfg.TokenPath(), logger); err != nil {
		return err
	}

	statusf("Logged out.\n")

	return nil
}

// statusOutput is the JSON schema for `status --json`.
type statusOutput struct {
	SignedIn bool   `json:"signed_in"`
	Account  string `json:"account,omitempty"`
	Name     string `json:"name,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()

	ts, err := drive.TokenSourceFromPath(cmd.Context(), resolvedCfg.Credentials, resolvedCfg.TokenPath(), logger)
	if err != nil {
		if errors.Is(err, drive.ErrNotLoggedIn) {
			return printStatus(statusOutput{SignedIn: false})
		}

		return err
	}

	client := drive.NewClient(drive.DefaultBaseURL, drive.DefaultUploadURL, defaultHTTPClient(), ts, logger)

	name, email, err := client.About(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetching account info: %w", err)
	}

	return printStatus(statusOutput{SignedIn: true, Account: email, Name: name})
}

func printStatus(out statusOutput) error {
	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	}

	if !out.SignedIn {
		fmt.Println("Not signed in — run 'contactrack login' first.")
		return nil
	}

	fmt.Printf("Signed in as %s (%s)\n", out.Name, out.Account)

	return nil
}
