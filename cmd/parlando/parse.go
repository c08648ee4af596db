package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"
)

func parseCmd() *cobra.Command {
	var confidence float64

	cmd := &cobra.Command{
		Use:   "parse [transcript]",
		Short: "Parse a transcript and print the result as JSON, without executing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			parser := buildParser(cfg, nil)
			parsed := parser.Parse(strings.Join(args, " "), confidence)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(parsed)
		},
	}

	cmd.Flags().Float64Var(&confidence, "confidence", 1.0, "capture confidence to fuse with (0..1)")
	return cmd
}
