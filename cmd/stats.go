package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/retrace-dev/retrace/internal/utils"
	"github.com/retrace-dev/retrace/pkg/feed"
	"github.com/retrace-dev/retrace/pkg/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show visit-frequency analytics per root domain",
	Run: func(cmd *cobra.Command, args []string) {
		days, _ := cmd.Flags().GetInt("days")
		topN, _ := cmd.Flags().GetInt("top")
		asJSON, _ := cmd.Flags().GetBool("json")

		source, err := openSource()
		if err != nil {
			utils.Log.Fatal(err)
		}
		defer source.Close()

		rules, err := loadRules()
		if err != nil {
			utils.Log.Fatal(err)
		}

		ctx := context.Background()
		end := time.Now().UnixMilli()
		start := end - int64(days)*24*int64(time.Hour/time.Millisecond)

		records, err := source.Search(ctx, start, end, maxSearchResults)
		if err != nil {
			utils.Log.Fatal("searching history: ", err)
		}

		result := feed.Aggregate(records, rules)
		aggs, err := stats.Aggregate(ctx, source, result.Filtered)
		if err != nil {
			utils.Log.Fatal("aggregating: ", err)
		}
		aggs = stats.TopN(aggs, topN)

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(aggs); err != nil {
				utils.Log.Fatal(err)
			}
			return
		}

		fmt.Printf("%-40s %8s %8s %8s %7s\n", "DOMAIN", "VISITS", "TYPED", "CLICKED", "%")
		for _, a := range aggs {
			fmt.Printf("%-40s %8d %8d %8d %6.1f%%\n",
				a.Domain, a.VisitCount, a.TypedCount, a.ClickedCount, a.Percentage)
		}
	},
}

func init() {
	statsCmd.Flags().IntP("days", "d", 7, "How many days of history to analyze")
	statsCmd.Flags().IntP("top", "t", 10, "Show the top N domains (0 = all)")
	statsCmd.Flags().Bool("json", false, "Print aggregates as JSON")
	rootCmd.AddCommand(statsCmd)
}
