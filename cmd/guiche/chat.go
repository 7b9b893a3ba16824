package main

import (
	"context"
	"os"

	"github.com/aretw0/guiche"
	"github.com/aretw0/guiche/internal/logging"
	"github.com/aretw0/guiche/internal/presentation/tui"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts []guiche.Option
		if verbose, _ := cmd.Flags().GetBool("verbose"); !verbose {
			opts = append(opts, guiche.WithLogger(logging.NewNop()))
		}
		app, err := loadApp(cmd, opts...)
		if err != nil {
			return err
		}
		defer app.Close()

		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		ctx := cmd.Context()

		reply, err := app.Orchestrator.Start(ctx, sessionID)
		greeting, _ := app.Renderer.Render(ctx, reply)
		if err != nil {
			return err
		}

		return tui.Chat(ctx, tui.ChatOptions{
			In:          os.Stdin,
			Out:         os.Stdout,
			Interactive: tui.IsTerminal(os.Stdin) && tui.IsTerminal(os.Stdout),
			Greeting:    greeting,
		}, func(ctx context.Context, input string) (string, error) {
			reply, err := app.Orchestrator.HandleInput(ctx, sessionID, input)
			text, rerr := app.Renderer.Render(ctx, reply)
			if rerr != nil {
				return "", rerr
			}
			return text, err
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("session", "", "Resume this session ID")
	chatCmd.Flags().BoolP("verbose", "v", false, "Print logs to stderr")
}
