package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hirelane/portal/internal/core/service"
	"github.com/hirelane/portal/internal/infrastructure/config"
	"github.com/hirelane/portal/internal/infrastructure/tokenstore"
	"github.com/hirelane/portal/pkg/logger"
)

const cliTabID = "cli"

var tokenFile string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and keep the token for later commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		auth, err := cliAuth(cmd.Context())
		if err != nil {
			return err
		}

		in := bufio.NewReader(cmd.InOrStdin())
		if username == "" {
			fmt.Fprint(cmd.ErrOrStderr(), "Username: ")
			if username, err = readLine(in); err != nil {
				return err
			}
		}
		password, err := readPassword(cmd, in)
		if err != nil {
			return err
		}

		user, err := auth.Login(cmd.Context(), username, password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", user.Username, user.Role)
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the user behind the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := cliAuth(cmd.Context())
		if err != nil {
			return err
		}
		if err := auth.Restore(cmd.Context()); err != nil {
			log := logger.Get()
			log.Debug().Err(err).Msg("restore failed")
		}

		snap := auth.Session().Snapshot()
		if !snap.Authenticated() {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%s)\n", snap.User.Username, snap.User.Email, snap.User.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveTokenFile()
		if err != nil {
			return err
		}
		session := service.NewSession(cliTabID, tokenstore.NewFile(path))
		if err := session.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&tokenFile, "token-file", "", "token file (default $XDG_CONFIG_HOME/hirelane/token)")
	loginCmd.Flags().StringP("username", "u", "", "username to log in with")

	rootCmd.AddCommand(loginCmd, whoamiCmd, logoutCmd)
}

func resolveTokenFile() (string, error) {
	if tokenFile != "" {
		return tokenFile, nil
	}
	return tokenstore.DefaultFilePath()
}

// cliAuth wires an AuthService over the file token slot, the same way the
// server wires one per tab.
func cliAuth(ctx context.Context) (*service.AuthService, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Service: "portal-cli"})

	path, err := resolveTokenFile()
	if err != nil {
		return nil, err
	}
	binder, err := newBinder(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.Component("cli")
	session := service.NewSession(cliTabID, tokenstore.NewFile(path), service.WithSessionLogger(log))
	backends := binder(session, session.Expire)
	return service.NewAuthService(session, backends.Auth, nil, log), nil
}

// readPassword prompts without echo on a terminal and reads a plain line
// otherwise, so scripts can pipe the password in.
func readPassword(cmd *cobra.Command, in *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if cmd.InOrStdin() == os.Stdin && term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(pw), nil
	}
	return readLine(in)
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
