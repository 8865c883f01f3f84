package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"finitefield.org/uniform-studio/internal/uniform"
)

func newPayloadCmd(_ *rootOptions) *cobra.Command {
	form := &formFlags{}
	cmd := &cobra.Command{
		Use:   "payload",
		Short: "Print the JSON request body built from the form flags",
		Long:  "Print the JSON request body built from the form flags. No validation is performed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := uniform.BuildPayload(form.state(cmd.Flags()))
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(req.Map())
		},
	}
	form.bind(cmd)
	return cmd
}
