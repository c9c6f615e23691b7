package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brojonat/blinks/client"
	"github.com/urfave/cli/v2"
)

const defaultIdleTimeout = 30 * time.Minute

func tokenPath(c *cli.Context) string {
	return filepath.Join(c.String("state-dir"), "token")
}

func authStateStore(c *cli.Context) client.FileStateStore {
	return client.FileStateStore{Path: filepath.Join(c.String("state-dir"), "auth.json")}
}

func cliLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// apiClient returns a client carrying the saved session token, if any.
func apiClient(c *cli.Context) *client.Client {
	cl := client.NewClient(strings.TrimRight(c.String("server-url"), "/"), nil, cliLogger())
	if data, err := os.ReadFile(tokenPath(c)); err == nil {
		cl.SetToken(strings.TrimSpace(string(data)))
	}
	return cl
}

func saveToken(c *cli.Context, token string) error {
	path := tokenPath(c)
	if token == "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove session token: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	return os.WriteFile(path, []byte(token), 0o600)
}

func newHandshake(c *cli.Context, cl *client.Client) (*client.Handshake, error) {
	return client.NewHandshake(cl, authStateStore(c), c.Duration("signin-idle-timeout"), cliLogger())
}

func signInCommand() *cli.Command {
	return &cli.Command{
		Name:  "signin",
		Usage: "Sign the login challenge with the local keypair",
		Action: func(c *cli.Context) error {
			wallet, err := client.LoadKeypairWallet(c.String("keypair"))
			if err != nil {
				return err
			}

			cl := apiClient(c)
			h, err := newHandshake(c, cl)
			if err != nil {
				return err
			}

			session, err := h.Connect(context.Background(), wallet)
			if err != nil {
				return fmt.Errorf("sign-in failed (%s): %w", h.State(), err)
			}
			if err := saveToken(c, cl.Token()); err != nil {
				return err
			}

			if wantsJSON(c) {
				return outputJSON(c, session)
			}
			fmt.Fprintf(c.App.Writer, "✓ Signed in as %s\n", session.PublicKey)
			fmt.Fprintf(c.App.Writer, "  Expires: %s\n", session.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
}

func signOutCommand() *cli.Command {
	return &cli.Command{
		Name:  "signout",
		Usage: "End the session and clear the sign-in flags",
		Action: func(c *cli.Context) error {
			cl := apiClient(c)
			h, err := newHandshake(c, cl)
			if err != nil {
				return err
			}
			if err := h.SignOut(context.Background()); err != nil {
				return fmt.Errorf("sign-out failed: %w", err)
			}
			if err := saveToken(c, ""); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "✓ Signed out")
			return nil
		},
	}
}

func sessionCommand() *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Show the current session",
		Action: func(c *cli.Context) error {
			session, err := apiClient(c).Session(context.Background())
			if err != nil {
				return err
			}
			if wantsJSON(c) {
				if session == nil {
					return outputJSON(c, map[string]string{})
				}
				return outputJSON(c, session)
			}
			if session == nil {
				fmt.Fprintln(c.App.Writer, "Not signed in")
				return nil
			}
			fmt.Fprintf(c.App.Writer, "Public Key: %s\n", session.PublicKey)
			fmt.Fprintf(c.App.Writer, "User ID:    %s\n", session.UserID)
			fmt.Fprintf(c.App.Writer, "Expires:    %s\n", session.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
}
