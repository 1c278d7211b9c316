package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bee",
	Short: "Bee Finder",
	Long:  `Bee Finder paints the bee buzzing near you right now, based on your location, the local weather and the time of day.`,

	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// config.Load reads CONFIG_PATH, so the flag only has to export it.
		if path, _ := cmd.Flags().GetString("config"); path != "" {
			return os.Setenv("CONFIG_PATH", path)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
