package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"finitefield.org/uniform-studio/internal/nav"
)

func newMenuCmd(root *rootOptions) *cobra.Command {
	var loggedIn bool
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Print the navigation menu for a login state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, lang, err := root.bundle()
			if err != nil {
				return err
			}
			entries := nav.Localize(nav.Menu(loggedIn), bundle.Translator(lang))
			out := cmd.OutOrStdout()
			for i, e := range entries {
				fmt.Fprintf(out, "%d. %s\t%s\n", i+1, e.Label, e.Href)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&loggedIn, "logged-in", false, "render the member menu")
	return cmd
}
