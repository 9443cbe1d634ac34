package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/ersinkoc/Shopologic-sub016/pkg/theme"
	"github.com/spf13/cobra"
)

var (
	okStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10b981")).
			Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ef4444")).
			Bold(true)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3b82f6"))

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8")).
			PaddingLeft(4)
)

var checkCmd = cobra.Command{
	Use:   "check",
	Short: "Parse and resolve every template of the theme",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		th, err := openTheme()
		if err != nil {
			return err
		}
		defer th.Close()

		checked, problems, err := th.Check(cmd.Context())
		if err != nil {
			return err
		}
		report(cmd.OutOrStdout(), checked, problems)
		if len(problems) > 0 {
			return fmt.Errorf("%d of %d templates failed", len(problems), checked)
		}
		return nil
	},
}

func report(w io.Writer, checked int, problems []theme.Problem) {
	for _, p := range problems {
		fmt.Fprintf(w, "%s %s\n", failStyle.Render("FAIL"), nameStyle.Render(p.Name))
		fmt.Fprintln(w, detailStyle.Render(p.Err.Error()))
	}
	if len(problems) == 0 {
		fmt.Fprintf(w, "%s %d templates\n", okStyle.Render("OK"), checked)
		return
	}
	fmt.Fprintf(w, "%s %d/%d templates\n", failStyle.Render("FAILED"), len(problems), checked)
}
