package main

import (
	"fmt"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
)

var renderCmd = cobra.Command{
	Use:   "render NAME",
	Short: "Render a template to stdout or a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataPath, _ := cmd.Flags().GetString("data")
		output, _ := cmd.Flags().GetString("output")

		data, err := loadData(dataPath)
		if err != nil {
			return err
		}
		th, err := openTheme()
		if err != nil {
			return err
		}
		defer th.Close()

		out, err := th.Render(args[0], data)
		if err != nil {
			return err
		}
		if output == "" {
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		}
		if err := atomic.WriteFile(output, strings.NewReader(out)); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}
		logger.Info("rendered", "template", args[0], "output", output, "bytes", len(out))
		return nil
	},
}
