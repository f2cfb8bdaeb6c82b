package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/retrace-dev/retrace/internal/utils"
	"github.com/retrace-dev/retrace/pkg/feed"
	"github.com/retrace-dev/retrace/pkg/history"
)

// maxSearchResults bounds how many records one load pulls from the
// history database.
const maxSearchResults = 5000

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Print the filtered history feed, batch by batch",
	Run: func(cmd *cobra.Command, args []string) {
		days, _ := cmd.Flags().GetInt("days")
		batchSize, _ := cmd.Flags().GetInt("batch")
		pages, _ := cmd.Flags().GetInt("pages")
		asJSON, _ := cmd.Flags().GetBool("json")

		if batchSize <= 0 {
			batchSize = viper.GetInt("feed.batch_size")
		}

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
		utils.Log.Infof("%d records loaded, %d blacklisted", len(records), result.FilteredOut)

		paginator := feed.NewPaginator(source, result.Filtered, batchSize)
		for page := 0; pages <= 0 || page < pages; page++ {
			batch, err := paginator.NextBatch(ctx)
			if err != nil {
				utils.Log.Fatal("loading batch: ", err)
			}
			if len(batch) == 0 {
				break
			}
			printBatch(batch, asJSON)
			if paginator.Exhausted() {
				break
			}
		}
	},
}

func printBatch(batch []history.VisitRecord, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(batch); err != nil {
			utils.Log.Fatal(err)
		}
		return
	}
	for _, r := range batch {
		when := time.UnixMilli(r.LastVisitTime).Format("2006-01-02 15:04")
		title := r.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s  %-60s %s (%d visits)\n", when, title, r.URL, r.VisitCount)
	}
}

func init() {
	feedCmd.Flags().IntP("days", "d", 7, "How many days of history to load")
	feedCmd.Flags().IntP("batch", "b", 0, "Batch size (default from config)")
	feedCmd.Flags().IntP("pages", "p", 0, "How many batches to print (0 = all)")
	feedCmd.Flags().Bool("json", false, "Print batches as JSON")
	rootCmd.AddCommand(feedCmd)
}
