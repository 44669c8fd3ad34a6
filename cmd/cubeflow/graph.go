package main

import (
	"fmt"

	"github.com/aretw0/cubeflow"
	"github.com/aretw0/cubeflow/internal/presentation/graph"
	"github.com/aretw0/cubeflow/pkg/adapters/redis"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the workflow graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the workflow stages and their routing signals.
With --run, the stages visited by an archived run are highlighted (requires a redis store).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, _ := cmd.Flags().GetString("run")

		var overlay *graph.GraphOverlay
		if runID != "" {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Redis.URL == "" {
				return fmt.Errorf("--run needs a shared transcript store; set CUBEFLOW_REDIS_URL")
			}
			client, err := redis.NewClient(cfg.Redis.URL)
			if err != nil {
				return err
			}
			defer client.Close()

			store := redis.NewFromClient(client, redis.WithPrefix(cfg.Redis.Prefix))
			tr, err := store.Load(cmd.Context(), runID)
			if err != nil {
				return fmt.Errorf("error loading run %q: %w", runID, err)
			}
			overlay = graph.OverlayFor(tr)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(cubeflow.WorkflowEdges(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("run", "", "Highlight the stages visited by this run id")
}
