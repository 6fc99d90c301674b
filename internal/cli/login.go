package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/evcraddock/frontdesk/internal/client"
)

func newLoginCmd() *cobra.Command {
	var server, username, passwordFile string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store an access token",
		Long: `Logs in with a username and password and stores the returned access token
in ~/.config/fd/config.yaml. The password is prompted for on the terminal
unless --password-file is given ("-" reads it from stdin).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), cmd.OutOrStdout(), os.Stdin, server, username, passwordFile)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "server URL (default: from config or "+defaultServerURL+")")
	cmd.Flags().StringVarP(&username, "username", "u", "", "username (prompted if omitted)")
	cmd.Flags().StringVar(&passwordFile, "password-file", "", `read the password from this file, or "-" for stdin`)

	return cmd
}

func runLogin(ctx context.Context, out io.Writer, in *os.File, serverFlag, username, passwordFile string) error {
	serverURL := serverFlag
	if serverURL == "" {
		serverURL = getServerURL()
	}

	reader := bufio.NewReader(in)
	if username == "" {
		fmt.Fprint(out, "Username: ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading username: %w", err)
		}
		username = line
	}

	password, err := readPassword(out, in, reader, passwordFile)
	if err != nil {
		return err
	}
	if err := validateCredentials(username, password); err != nil {
		return err
	}

	resp, err := client.New(serverURL, "").Login(ctx, strings.TrimSpace(username), password)
	if err != nil {
		return err
	}
	if resp.AccessToken == "" || resp.User == nil {
		return fmt.Errorf("server returned an incomplete login response")
	}

	cfg, err := loadConfig()
	if err != nil {
		cfg = CLIConfig{}
	}
	cfg.Token = resp.AccessToken
	cfg.Username = resp.User.Username
	if serverFlag != "" {
		cfg.ServerURL = serverFlag
	}
	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintf(out, "✓ Logged in as %s (%s). Token expires %s.\n",
		resp.User.Username, resp.User.Role, resp.ExpiresAt.Local().Format("2006-01-02 15:04"))
	return nil
}

// readPassword reads from passwordFile when given, from the terminal with
// echo disabled when stdin is one, and otherwise from the next stdin line.
func readPassword(out io.Writer, in *os.File, reader *bufio.Reader, passwordFile string) (string, error) {
	switch {
	case passwordFile != "" && passwordFile != "-":
		data, err := os.ReadFile(passwordFile)
		if err != nil {
			return "", fmt.Errorf("reading password file: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	case passwordFile == "" && term.IsTerminal(int(in.Fd())):
		fmt.Fprint(out, "Password: ")
		b, err := term.ReadPassword(int(in.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	default:
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}

// validateCredentials rejects blank input before it reaches the server.
func validateCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("no username provided")
	}
	if password == "" {
		return fmt.Errorf("no password provided")
	}
	return nil
}
