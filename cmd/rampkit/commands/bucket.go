package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rampkit/rampkit-go/internal/allocation"
	"github.com/spf13/cobra"
)

var (
	bucketN  int
	bucketID string
)

var bucketCmd = &cobra.Command{
	Use:   "bucket",
	Short: "Audit bucket distribution of the allocation hash",
	Long: `Bucket hashes random stable ids and reports how they spread across the
0-99 allocation range, for sanity-checking A/B split fairness. With
--stable-id it prints the bucket for that one id instead.

Examples:
  rampkit bucket --n 10000
  rampkit bucket --stable-id user-42`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if bucketID != "" {
			b := allocation.Bucket(bucketID)
			if quiet {
				return nil
			}
			if format == "json" {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"stableId": bucketID,
					"bucket":   b,
				})
			}
			fmt.Printf("%s -> bucket %d\n", bucketID, b)
			return nil
		}

		if bucketN <= 0 {
			return fmt.Errorf("--n must be positive")
		}

		counts := make([]int, 100)
		for i := 0; i < bucketN; i++ {
			counts[allocation.Bucket(uuid.New().String())]++
		}

		min, max := counts[0], counts[0]
		for _, c := range counts[1:] {
			if c < min {
				min = c
			}
			if c > max {
				max = c
			}
		}
		mean := float64(bucketN) / 100

		if quiet {
			return nil
		}
		if format == "json" {
			return json.NewEncoder(os.Stdout).Encode(map[string]any{
				"n":    bucketN,
				"mean": mean,
				"min":  min,
				"max":  max,
			})
		}

		fmt.Printf("hashed %d ids across 100 buckets\n", bucketN)
		fmt.Printf("mean %.1f per bucket, min %d, max %d\n", mean, min, max)
		return nil
	},
}

func init() {
	bucketCmd.Flags().IntVar(&bucketN, "n", 10000, "Number of random ids to hash")
	bucketCmd.Flags().StringVar(&bucketID, "stable-id", "", "Print the bucket for one stable id")
	rootCmd.AddCommand(bucketCmd)
}
