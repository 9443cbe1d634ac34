package main

import (
	"fmt"

	"github.com/ersinkoc/Shopologic-sub016/pkg/tmpl"
	"github.com/spf13/cobra"
)

var astCmd = cobra.Command{
	Use:   "ast NAME",
	Short: "Print the syntax tree of a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		unresolved, _ := cmd.Flags().GetBool("unresolved")
		th, err := openTheme()
		if err != nil {
			return err
		}
		defer th.Close()

		var tree *tmpl.TemplateNode
		if unresolved {
			src, err := th.Cache.Source(args[0])
			if err != nil {
				return err
			}
			tree, err = tmpl.Parse(args[0], src)
			if err != nil {
				return err
			}
		} else {
			tree, err = th.Engine.Resolve(args[0])
			if err != nil {
				return err
			}
		}
		fmt.Fprint(cmd.OutOrStdout(), tmpl.Pretty(tree))
		return nil
	},
}
