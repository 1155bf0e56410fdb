package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgard/nanorelay/internal/config"
	"github.com/edgard/nanorelay/internal/credential"
	"github.com/edgard/nanorelay/internal/server"
	"github.com/edgard/nanorelay/internal/telegram"
)

func newSetWebhookCmd(opts *options) *cobra.Command {
	var apiKey string

	cmd := &cobra.Command{
		Use:   "setwebhook <bot-token> [webhook-url]",
		Short: "Register a bot's webhook with Telegram and store the registration",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			token := args[0]

			webhookURL := server.DefaultWebhookURL(opts.cfg.Server.PublicURL, token)
			if len(args) == 2 {
				webhookURL = args[1]
			}
			if webhookURL == "" {
				return errors.New("webhook URL is required when server.public_url is not configured")
			}

			// The registration has to outlive this process for the server to
			// accept the bot's updates.
			if opts.cfg.Store.Driver == config.StoreMemory {
				return errors.New("setwebhook needs a persistent store: store.driver=memory would lose the registration when the command exits")
			}

			store, err := credential.Open(ctx, opts.cfg.Store, opts.log)
			if err != nil {
				return fmt.Errorf("failed to open credential store: %w", err)
			}
			defer store.Close()

			tg := telegram.NewClient(opts.cfg.Telegram.APIURL, opts.log)
			if err := tg.SetWebhook(ctx, token, webhookURL, opts.cfg.Telegram.WebhookSecret); err != nil {
				if telegram.IsRefusal(err) {
					return fmt.Errorf("telegram refused webhook: %s", telegram.Description(err))
				}
				return err
			}

			now := time.Now().UTC()
			if err := store.Save(ctx, &credential.Registration{
				Token:      token,
				WebhookURL: webhookURL,
				APIKey:     apiKey,
				CreatedAt:  now,
				LastSeenAt: now,
			}); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Telegram bot webhook set successfully: %s\n", webhookURL)
			return nil
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "Gemini API key used for this bot's replies")
	return cmd
}

func newBotInfoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "botinfo <bot-token>",
		Short: "Print the bot account behind a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tg := telegram.NewClient(opts.cfg.Telegram.APIURL, opts.log)
			me, err := tg.GetMe(cmd.Context(), args[0])
			if err != nil {
				if telegram.IsRefusal(err) {
					return fmt.Errorf("telegram refused request: %s", telegram.Description(err))
				}
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(me)
		},
	}
}
