package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rampkit/rampkit-go/internal/manifest"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <manifest.json>",
	Short: "Validate an onboarding manifest",
	Long: `Validate checks a manifest file for structural errors: duplicate ids,
allocations outside 0-100, flows without screens, and navigation graphs
referencing unknown screens.

Examples:
  rampkit validate manifest.json
  rampkit validate manifest.json --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manifest.LoadFile(args[0])
		if err != nil {
			return err
		}
		if quiet {
			return nil
		}

		fp, err := m.Fingerprint()
		if err != nil {
			return err
		}

		if format == "json" {
			return json.NewEncoder(os.Stdout).Encode(map[string]any{
				"valid":       true,
				"targets":     len(m.Targets),
				"fingerprint": fmt.Sprintf("%016x", fp),
			})
		}

		fmt.Printf("manifest OK: %d target(s), fingerprint %016x\n", len(m.Targets), fp)
		for _, t := range m.Targets {
			fmt.Printf("  target %s (priority %d): %d onboarding(s)\n", t.ID, t.Priority, len(t.Onboardings))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
