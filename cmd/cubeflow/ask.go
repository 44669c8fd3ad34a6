package main

import (
	"strings"

	"github.com/aretw0/cubeflow/internal/cli"
	"github.com/aretw0/cubeflow/pkg/runner"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question",
	Long: `Runs the workflow once and prints the response.
With --json the stage and tool events are printed as NDJSON, followed by a result line.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonMode, _ := cmd.Flags().GetBool("json")
		quiet, _ := cmd.Flags().GetBool("quiet")
		conversationID, _ := cmd.Flags().GetString("conversation")

		app, err := loadApp(cmd, cli.Options{})
		if err != nil {
			return err
		}
		defer app.Close()

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		r := runner.NewRunner(app.Sessions,
			runner.WithLogger(app.Logger),
			runner.WithConversationID(conversationID),
			runner.WithInputHandler(cli.NewIOHandler(cli.IOOptions{JSON: jsonMode, Quiet: quiet})),
		)

		_, err = r.Ask(sigCtx, strings.Join(args, " "))
		if runner.IsInputError(err) {
			return err
		}
		if err != nil {
			app.Logger.Debug("Run ended with error", "err", err)
			if cli.HandleExecutionError(err) != nil {
				return errReported
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().Bool("json", false, "Emit NDJSON events and a result line")
	askCmd.Flags().BoolP("quiet", "q", false, "Hide stage and tool progress")
	askCmd.Flags().StringP("conversation", "c", "", "Conversation id; runs of one conversation never overlap")
}
