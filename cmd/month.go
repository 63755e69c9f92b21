package cmd

import (
	"fmt"
	"time"

	"github.com/theirongolddev/ccproj/internal/cli"

	"github.com/spf13/cobra"
)

var monthCmd = &cobra.Command{
	Use:   "month [yyyy-mm]",
	Short: "Monthly activity summary (current month by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMonth,
}

func init() {
	rootCmd.AddCommand(monthCmd)
}

func runMonth(_ *cobra.Command, args []string) error {
	month := time.Now().Format("2006-01")
	if len(args) == 1 {
		month = args[0]
	}

	cache, err := loadCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	summary, err := cache.MonthlySummary(month)
	if err != nil {
		return err
	}
	start, _ := time.ParseInLocation("2006-01", summary.Month, time.Local)

	fmt.Println()
	fmt.Println(cli.RenderTitle("MONTH  " + start.Format("January 2006")))
	fmt.Println()

	if summary.TotalSessions == 0 {
		fmt.Println("  No sessions this month.")
		fmt.Println()
		return nil
	}

	fmt.Printf("  Sessions:       %s\n", cli.FormatCount(summary.TotalSessions))
	fmt.Printf("  Total time:     %s\n", cli.FormatDurationMs(summary.TotalDurationMs))
	fmt.Printf("  Active days:    %d\n", len(summary.Days))
	fmt.Printf("  Estimated cost: %s\n", cli.FormatCost(summary.EstimatedCostUSD))
	fmt.Println()

	fmt.Print(cli.RenderHeatmap(start, summary.Days))
	fmt.Println()

	rows := make([][]string, 0, len(summary.TopProjects))
	for i, p := range summary.TopProjects {
		rows = append(rows, []string{
			fmt.Sprintf("%d. %s", i+1, cli.Truncate(p.Name, 28)),
			cli.FormatCount(p.Sessions),
			cli.FormatDurationMs(p.DurationMs),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Top projects",
		Headers: []string{"Project", "Sessions", "Time"},
		Rows:    rows,
	}))
	return nil
}
