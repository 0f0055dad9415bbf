/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/mautops/claims-gin/internal/config"
	"github.com/mautops/claims-gin/internal/container"
	"github.com/mautops/claims-gin/internal/logging"
	"github.com/mautops/claims-gin/internal/model"
	"github.com/mautops/claims-gin/internal/workflow"
	"github.com/spf13/cobra"
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a claim against the workflow rules",
	Long: `Evaluate a claim against the configured workflow rules without storing it.
The command prints the computed total, the matched rules and the decision as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		name, _ := cmd.Flags().GetString("name")
		hours, _ := cmd.Flags().GetFloat64("hours")
		rate, _ := cmd.Flags().GetFloat64("rate")
		notes, _ := cmd.Flags().GetString("notes")

		engine := workflow.NewDefaultEngine(container.PolicyFromConfig(cfg.Workflow))
		orchestrator := workflow.NewOrchestrator(engine, logging.Discard())
		outcome, err := orchestrator.Preview(model.ClaimInput{
			LecturerName: name,
			HoursWorked:  hours,
			HourlyRate:   rate,
			Notes:        notes,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().String("config", "", "Config file path")
	evaluateCmd.Flags().String("name", "", "Lecturer name")
	evaluateCmd.Flags().Float64("hours", 0, "Hours worked")
	evaluateCmd.Flags().Float64("rate", 0, "Hourly rate")
	evaluateCmd.Flags().String("notes", "", "Additional notes")
}
