package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/videofeed/internal/client/state"
	"github.com/dmitrijs2005/videofeed/internal/server/auth"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var passwordStdin, save bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange the admin password for a bearer token",
		Long: "Prints the token; export it as VIDEOFEED_TOKEN, pass it with --token,\n" +
			"or use --save to keep it in the local state for later commands.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient(cmd.Context())
			if err != nil {
				return err
			}
			pw, err := promptPassword(cmd.ErrOrStderr(), cmd.InOrStdin(), "Admin password: ", passwordStdin)
			if err != nil {
				return err
			}
			token, err := client.Login(cmd.Context(), pw)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if !save {
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			err = ctx.withState(cmd.Context(), true, func(st *state.State) error {
				return st.Tokens.Save(cmd.Context(), cfg.ServerURL, token)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s\n", cfg.ServerURL)
			return nil
		},
	}
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	cmd.Flags().BoolVar(&save, "save", false, "Save the token for this server instead of printing it")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the token saved for the configured server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var n int64
			err = ctx.withState(cmd.Context(), false, func(st *state.State) error {
				var derr error
				n, derr = st.Tokens.Delete(cmd.Context(), cfg.ServerURL)
				return derr
			})
			if err != nil && !errors.Is(err, state.ErrNoState) {
				return err
			}
			if n == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No token saved for %s\n", cfg.ServerURL)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged out from %s\n", cfg.ServerURL)
			return nil
		},
	}
}

func newHashPasswordCommand() *cobra.Command {
	var passwordStdin bool
	cmd := &cobra.Command{
		Use:         "hash-password",
		Short:       "Print a bcrypt hash for VIDEOFEED_ADMIN_PASSWORD_HASH",
		Args:        cobra.NoArgs,
		Annotations: skipConfig(),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := promptPassword(cmd.ErrOrStderr(), cmd.InOrStdin(), "New admin password: ", passwordStdin)
			if err != nil {
				return err
			}
			if !passwordStdin {
				again, err := promptPassword(cmd.ErrOrStderr(), cmd.InOrStdin(), "Repeat password: ", false)
				if err != nil {
					return err
				}
				if again != pw {
					return errors.New("passwords do not match")
				}
			}
			hash, err := auth.HashPassword(pw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}
