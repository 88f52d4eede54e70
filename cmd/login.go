package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/bandavail/internal/auth"
	"github.com/teemow/bandavail/internal/config"
	"github.com/teemow/bandavail/internal/google"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authorize bandavail to access the availability sheet",
		Long: `Authorize bandavail to access the availability sheet with your Google
account. The token is stored in the user cache directory (or GOOGLE_TOKEN_FILE)
and used by the CLI commands and the MCP server.

Open the printed URL, grant access, then paste the authorization code or the
full URL your browser was redirected to.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(os.Stderr, nil, config.RequireGoogle)
			if err != nil {
				return err
			}
			return runLogin(cmd.Context(), rt.newCodeLogin(), rt.tokenStore(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runLogin(ctx context.Context, login *auth.CodeLogin, store *google.FileTokenStore, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, `To authorize access to the band availability sheet:

1. Visit this URL in your browser:
   %s

2. Sign in with your Google account and grant access to Google Sheets
3. Paste the authorization code, or the whole URL you were redirected to:
`, login.AuthURL())

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read authorization code: %w", err)
		}
		return errors.New("no authorization code entered")
	}

	creds, err := login.Complete(ctx, scanner.Text())
	if err != nil {
		return fmt.Errorf("failed to complete authorization: %w", err)
	}
	if err := store.Save(creds.Token); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n✓ Authorization successful. Token saved to %s\n", store.Path())
	return nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored Google token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			store := google.NewFileTokenStore(cfg.Google.TokenFile)
			if err := store.Delete(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", store.Path())
			return nil
		},
	}
}
