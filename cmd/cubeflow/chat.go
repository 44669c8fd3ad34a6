package main

import (
	"os"

	"github.com/aretw0/cubeflow/internal/cli"
	"github.com/aretw0/cubeflow/pkg/runner"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Reads questions from stdin until EOF, "exit" or "quit".
When the assistant asks which model to use, the next line is sent as the answer.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonMode, _ := cmd.Flags().GetBool("json")
		quiet, _ := cmd.Flags().GetBool("quiet")
		conversationID, _ := cmd.Flags().GetString("conversation")
		if conversationID == "" {
			conversationID = uuid.NewString()
		}

		app, err := loadApp(cmd, cli.Options{})
		if err != nil {
			return err
		}
		defer app.Close()

		ioOpts := cli.IOOptions{JSON: jsonMode, Quiet: quiet}
		cli.PrintBanner(os.Stdout, ioOpts)

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		r := runner.NewRunner(app.Sessions,
			runner.WithLogger(app.Logger),
			runner.WithConversationID(conversationID),
			runner.WithInputHandler(cli.NewIOHandler(ioOpts)),
			runner.WithStarters(!jsonMode && !quiet),
		)
		app.Logger.Info("Conversation started", "conversation_id", conversationID)

		err = cli.HandleExecutionError(r.Chat(sigCtx))
		if !jsonMode && !quiet && sigCtx.Signal() != nil {
			cli.PrintSystemMessage(os.Stdout, "Interrupted.")
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Bool("json", false, "Read JSON lines and emit NDJSON events")
	chatCmd.Flags().BoolP("quiet", "q", false, "Hide the banner, starters and progress")
	chatCmd.Flags().StringP("conversation", "c", "", "Conversation id (default: random)")
}
