package cli

import (
	"time"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the videoctl command tree.
func NewRootCommand() *cobra.Command {
	var (
		configFlag  string
		serverFlag  string
		tokenFlag   string
		timeoutFlag time.Duration
	)

	ctx := newCommandContext(&configFlag, &serverFlag, &tokenFlag, &timeoutFlag)

	rootCmd := &cobra.Command{
		Use:           "videoctl",
		Short:         "Command-line client for the videofeed API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Client configuration file (JSON or TOML)")
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "Base URL of the videofeed server")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "Bearer token for mutating requests")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 0, "Timeout for API requests")

	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newUploadCommand(ctx))
	rootCmd.AddCommand(newCaptionCommand(ctx))
	rootCmd.AddCommand(newDeleteCommand(ctx))
	rootCmd.AddCommand(newTranscodeCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newLoginCommand(ctx))
	rootCmd.AddCommand(newLogoutCommand(ctx))
	rootCmd.AddCommand(newHashPasswordCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newSeedCommand())
	rootCmd.AddCommand(newCacheHeadersCommand())

	return rootCmd
}
