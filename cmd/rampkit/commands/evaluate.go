package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rampkit/rampkit-go/internal/manifest"
	"github.com/rampkit/rampkit-go/internal/targeting"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	evalContextPath string
	evalStableID    string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <manifest.json>",
	Short: "Preview flow assignment for a user context",
	Long: `Evaluate runs targeting and allocation against a manifest the same way
the server would, and prints which flow the given user lands on.

The context file holds the targeting categories:
  {"device": {"platform": "ios"}, "user": {"isNewUser": true}}

Examples:
  rampkit evaluate manifest.json --stable-id user-42
  rampkit evaluate manifest.json --context ctx.json --stable-id user-42 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manifest.LoadFile(args[0])
		if err != nil {
			return err
		}

		var ctx targeting.Context
		if evalContextPath != "" {
			data, err := os.ReadFile(evalContextPath)
			if err != nil {
				return fmt.Errorf("read context: %w", err)
			}
			if err := json.Unmarshal(data, &ctx); err != nil {
				return fmt.Errorf("parse context: %w", err)
			}
		}

		engine := targeting.NewEngine(zerolog.Nop())
		sel, err := engine.EvaluateTargets(m.Targets, &ctx, evalStableID)
		if err != nil {
			return fmt.Errorf("evaluate: %w", err)
		}
		if sel == nil {
			return fmt.Errorf("manifest has no targets")
		}
		if quiet {
			return nil
		}

		if format == "json" {
			return json.NewEncoder(os.Stdout).Encode(map[string]any{
				"targetId":     sel.TargetID,
				"targetName":   sel.TargetName,
				"onboardingId": sel.Onboarding.ID,
				"bucket":       sel.Bucket,
				"screens":      len(sel.Onboarding.Screens),
			})
		}

		fmt.Printf("target:     %s (%s)\n", sel.TargetID, sel.TargetName)
		fmt.Printf("onboarding: %s (%d screens)\n", sel.Onboarding.ID, len(sel.Onboarding.Screens))
		fmt.Printf("bucket:     %d\n", sel.Bucket)
		return nil
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evalContextPath, "context", "", "Path to a JSON targeting context file")
	evaluateCmd.Flags().StringVar(&evalStableID, "stable-id", "", "Stable user id for deterministic bucketing")
	_ = evaluateCmd.MarkFlagRequired("stable-id")
	rootCmd.AddCommand(evaluateCmd)
}
