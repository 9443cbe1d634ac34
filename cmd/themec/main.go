package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ersinkoc/Shopologic-sub016/pkg/config"
	"github.com/ersinkoc/Shopologic-sub016/pkg/theme"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	configPath string
	verbose    bool
	logger     = slog.Default()
)

var rootCmd = cobra.Command{
	Use:           "themec",
	Short:         "Render, check and preview storefront themes",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	},
}

// openTheme loads the configuration named by --config and opens its theme.
func openTheme() (*theme.Theme, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	th, err := theme.Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("opening theme %s: %w", cfg.Theme, err)
	}
	return th, nil
}

// loadData reads a YAML mapping used as render context.
func loadData(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var data map[string]any
	if err := yaml.NewDecoder(f).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding data file %s: %w", path, err)
	}
	return data, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "theme.yaml", "Path to theme configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	renderCmd.Flags().String("data", "", "YAML file with the render context")
	renderCmd.Flags().StringP("output", "o", "", "Write the result to this file instead of stdout")
	rootCmd.AddCommand(&renderCmd)

	rootCmd.AddCommand(&checkCmd)

	astCmd.Flags().Bool("unresolved", false, "Print the template as parsed, before inheritance is applied")
	rootCmd.AddCommand(&astCmd)

	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().String("data", "", "YAML file with the render context")
	rootCmd.AddCommand(&serveCmd)

	rootCmd.AddCommand(&importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}
