package main

import (
	"context"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"bee-finder/pkg/asset"
	"bee-finder/pkg/finder"
	"bee-finder/pkg/location"
	"bee-finder/pkg/scene"
	"bee-finder/pkg/storage"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Find and paint the bee near a location",
	Long: `Runs the multi-step flow from the command line: resolve the location, offer bees, paint the chosen one
and optionally animate it. Use --csv to run a batch of locations (columns: zipcode,city,state).`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().String("zipcode", "", "5-digit US zipcode")
	generateCmd.Flags().String("city", "", "City name")
	generateCmd.Flags().String("state", "", "Two-letter state code")
	generateCmd.Flags().String("bee", "", "Bee to paint; must be one of the bees on offer (default: the first one)")
	generateCmd.Flags().Bool("animate", false, "Also animate the picture")
	generateCmd.Flags().Int("duration", 0, "Animation length in seconds (4-8)")
	generateCmd.Flags().String("out", ".", "Directory to write files to")
	generateCmd.Flags().String("csv", "", "Path to CSV file (format: zipcode,city,state)")
}

type generateOptions struct {
	bee      string
	animate  bool
	duration int
	out      string
}

func runGenerate(cmd *cobra.Command, args []string) error {
	zipcode, _ := cmd.Flags().GetString("zipcode")
	city, _ := cmd.Flags().GetString("city")
	state, _ := cmd.Flags().GetString("state")
	csvPath, _ := cmd.Flags().GetString("csv")

	var opts generateOptions
	opts.bee, _ = cmd.Flags().GetString("bee")
	opts.animate, _ = cmd.Flags().GetBool("animate")
	opts.duration, _ = cmd.Flags().GetInt("duration")
	opts.out, _ = cmd.Flags().GetString("out")

	var queries []location.Query
	if csvPath != "" {
		qs, err := readQueries(csvPath)
		if err != nil {
			return err
		}
		queries = qs
	} else {
		q, err := location.ParseRequest(zipcode, city, state)
		if err != nil {
			return err
		}
		queries = []location.Query{q}
	}

	ctx := cmd.Context()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var failed int
	for i, q := range queries {
		a.logger.Info("processing", "index", i+1, "total", len(queries), "query", q.String())
		if err := generateOne(ctx, a, q, opts); err != nil {
			if len(queries) == 1 {
				return err
			}
			a.logger.Error("generation failed", "query", q.String(), "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d generations failed", failed, len(queries))
	}
	a.logger.Info("done")
	return nil
}

func readQueries(path string) ([]location.Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	var out []location.Query
	for i, row := range records {
		if i == 0 && len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "zipcode") {
			continue
		}
		for len(row) < 3 {
			row = append(row, "")
		}
		q, err := location.ParseRequest(row[0], row[1], row[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, q)
	}
	return out, nil
}

func printStatus(event, data string) {
	switch event {
	case finder.EventStatus, finder.EventProgress:
		fmt.Println(data)
	}
}

func generateOne(ctx context.Context, a *app, q location.Query, opts generateOptions) error {
	view, err := a.finder.StartSession(ctx, q, printStatus)
	if err != nil {
		return err
	}
	defer a.finder.Sessions.Delete(view.ID)

	fmt.Printf("\n%s: %s, local hour %d\n", view.Location.DisplayName, view.Weather.ShortDescription, view.Weather.LocalHour)
	names := make([]string, len(view.Bees))
	for i, b := range view.Bees {
		names[i] = b.Name
	}
	fmt.Printf("Bees nearby: %s\n", strings.Join(names, ", "))

	bee, err := pickBee(opts.bee, names)
	if err != nil {
		return err
	}
	view, err = a.finder.ChooseBee(ctx, view.ID, bee, printStatus)
	if err != nil {
		return err
	}

	img, name, err := a.finder.SessionImage(view.ID)
	if err != nil {
		return err
	}
	imgPath := filepath.Join(opts.out, name)
	if err := os.WriteFile(imgPath, img.Data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}

	fmt.Printf("\n%s on a %s\n%q\nDid you know? %s\nSaved %s\n", view.Result.BeeName, view.Result.Flower, view.Result.BeeMessage, view.Result.Fact, imgPath)

	if !opts.animate {
		return nil
	}
	view, err = a.finder.AnimateSession(ctx, view.ID, opts.duration, printStatus)
	if err != nil {
		return err
	}
	videoPath := filepath.Join(opts.out, asset.VideoFileName(view.Result.BeeName))
	return saveMedia(ctx, a.store, *view.Result.VideoURL, videoPath)
}

// pickBee checks the --bee choice against the catalog and the bees on offer.
func pickBee(want string, offered []string) (string, error) {
	if want == "" {
		return offered[0], nil
	}
	b, ok := scene.FindBee(want)
	if !ok {
		return "", fmt.Errorf("unknown bee %q", want)
	}
	if !slices.Contains(offered, b.Name) {
		return "", fmt.Errorf("%s is not nearby right now (bees on offer: %s)", b.Name, strings.Join(offered, ", "))
	}
	return b.Name, nil
}

// saveMedia writes a data URI or a stored /media/ object to path. Public URLs are only printed.
func saveMedia(ctx context.Context, store storage.Store, url, path string) error {
	var data []byte
	switch {
	case strings.HasPrefix(url, "data:"):
		_, payload, ok := strings.Cut(url, ",")
		if !ok {
			return errors.New("malformed data URI")
		}
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return fmt.Errorf("decode video: %w", err)
		}
		data = decoded
	case strings.HasPrefix(url, storage.MediaPrefix) && store != nil:
		stored, _, err := store.Get(ctx, strings.TrimPrefix(url, storage.MediaPrefix))
		if err != nil {
			return fmt.Errorf("read video: %w", err)
		}
		data = stored
	default:
		fmt.Printf("Video available at: %s\n", url)
		return nil
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write video: %w", err)
	}
	fmt.Printf("Saved %s\n", path)
	return nil
}
