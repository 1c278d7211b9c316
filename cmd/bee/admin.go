package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bee-finder/pkg/database"
	"bee-finder/pkg/finder"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative tasks",
	Long:  "Commands for inspecting generation history and re-animating past bees.",
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show generation statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withHistory(cmd.Context(), func(repo database.Repository) error {
			fmt.Println("Fetching stats...")
			records, err := repo.ListGenerations(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("error listing generations: %w", err)
			}
			printStats(os.Stdout, database.Summarize(records))
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent generations",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withHistory(cmd.Context(), func(repo database.Repository) error {
			fmt.Printf("Listing last %d generations...\n", limit)
			records, err := repo.ListGenerations(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("error listing generations: %w", err)
			}
			printList(os.Stdout, records)
			return nil
		})
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Animate a past generation's picture",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		duration, _ := cmd.Flags().GetInt("duration")
		if id == "" {
			return errors.New("id is required (use --id)")
		}
		return runRefresh(cmd.Context(), id, duration)
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(statsCmd)
	adminCmd.AddCommand(listCmd)
	adminCmd.AddCommand(refreshCmd)

	statsCmd.Flags().Int("limit", 1000, "Number of recent generations to summarize")
	listCmd.Flags().Int("limit", 20, "Max number of results")

	refreshCmd.Flags().String("id", "", "Generation ID to animate")
	refreshCmd.Flags().Int("duration", 0, "Animation length in seconds (4-8)")
}

// withHistory opens the Firestore history for the duration of fn.
func withHistory(ctx context.Context, fn func(database.Repository) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return errors.New("generation history is disabled (set HISTORY_ENABLED=true)")
	}
	db, err := database.NewClient(ctx, cfg.History.ProjectID, cfg.History.DatabaseID, logger)
	if err != nil {
		return fmt.Errorf("failed to init DB: %w", err)
	}
	defer db.Close()
	return fn(db)
}

func printStats(out io.Writer, stats database.Stats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Metric\tValue")
	fmt.Fprintln(w, "------\t-----")
	fmt.Fprintf(w, "Total Generations\t%d\n", stats.Total)
	fmt.Fprintf(w, "With Image\t%d\n", stats.WithImage)
	fmt.Fprintf(w, "With Video\t%d\n", stats.WithVideo)
	for _, k := range sortedKeys(stats.ByBucket) {
		fmt.Fprintf(w, "Scene %s\t%d\n", k, stats.ByBucket[k])
	}
	for _, k := range sortedKeys(stats.ByState) {
		fmt.Fprintf(w, "State %s\t%d\n", k, stats.ByState[k])
	}
	for i, b := range stats.TopBees {
		if i == 3 {
			break
		}
		fmt.Fprintf(w, "Top Bee #%d\t%s (%d)\n", i+1, b.Name, b.Count)
	}
	w.Flush()
}

func printList(out io.Writer, records []database.GenerationRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLocation\tBee\tScene\tVideo\tCreated")
	fmt.Fprintln(w, "--\t--------\t---\t-----\t-----\t-------")
	for _, r := range records {
		loc := r.Location
		if len(loc) > 30 {
			loc = loc[:27] + "..."
		}
		video := "no"
		if r.VideoURL != "" {
			video = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, loc, r.BeeName, r.Bucket, video, r.CreatedAt.Format("02 Jan 15:04"))
	}
	w.Flush()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runRefresh(ctx context.Context, id string, duration int) error {
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.history.GetGeneration(ctx, id)
	if err != nil {
		return fmt.Errorf("generation %s not found: %w", id, err)
	}
	if rec.ImageURL == "" {
		return fmt.Errorf("generation %s has no stored image", id)
	}

	a.logger.Info("animating past generation", "id", id, "bee", rec.BeeName)
	res, err := a.finder.Video(ctx, finder.VideoRequest{ImageURL: rec.ImageURL, Duration: duration, GenerationID: id}, printStatus)
	if err != nil {
		return err
	}
	fmt.Println(res.Message)
	if res.VideoURL != nil {
		fmt.Printf("Video available at: %s\n", *res.VideoURL)
	}
	return nil
}
