package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var importCmd = cobra.Command{
	Use:   "import DIR",
	Short: "Store every template below DIR in the theme database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		th, err := openTheme()
		if err != nil {
			return err
		}
		defer th.Close()
		if th.Store == nil {
			return errors.New("the theme configuration has no database")
		}
		n, err := th.Store.ImportDir(cmd.Context(), args[0], th.Config.Extension)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d templates from %s\n", n, args[0])
		return nil
	},
}
