package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/edgard/nanorelay/internal/config"
	"github.com/edgard/nanorelay/internal/logger"
)

// options are shared by every subcommand and filled in by the root's
// PersistentPreRunE.
type options struct {
	configPath string
	cfg        *config.Config
	log        *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "nanorelay",
		Short: "nanorelay relays chat messages between Telegram or the web and Gemini",
		Long: "nanorelay answers messages from a web chat endpoint and from Telegram bot webhooks, " +
			"replying to slash commands itself and forwarding everything else to Google Gemini.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.log = logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
			slog.SetDefault(opts.log)
			opts.log.Debug("Configuration loaded", "path", opts.configPath)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "./config.yaml", "path to configuration file")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newSetWebhookCmd(opts))
	cmd.AddCommand(newBotInfoCmd(opts))

	return cmd
}
