package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alexchoi0/blueprint/internal/export"
	"github.com/alexchoi0/blueprint/internal/plan"
)

func newExportCommand() *cobra.Command {
	opts := pipelineOptions{}
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a compiled plan as text, JSON, or Graphviz DOT",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireASTPath(opts); err != nil {
				return err
			}
			p, _, err := buildPlan(opts)
			if err != nil {
				return err
			}

			var rendered string
			switch format {
			case "text", "":
				rendered = export.ToText(p)
			case "dot":
				rendered = export.ToDot(p)
			case "json":
				levels, lerr := plan.ComputeLevels(p)
				var levelIds [][]plan.OpId
				if lerr == nil {
					levelIds = levels
				}
				data, err := export.ToJSON(p, levelIds)
				if err != nil {
					return fail(ExitIOError, "render json: %w", err)
				}
				rendered = string(data)
			default:
				return fail(ExitUsageError, "unknown --format %q (want text|json|dot)", format)
			}

			if out == "" || out == "-" {
				fmt.Fprintln(cmd.OutOrStdout(), rendered)
				return nil
			}
			if err := os.WriteFile(out, []byte(rendered), 0o644); err != nil {
				return fail(ExitIOError, "write export file %s: %w", out, err)
			}
			return nil
		},
	}

	addPipelineFlags(cmd.Flags(), &opts)
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json, or dot")
	cmd.Flags().StringVar(&out, "out", "", "output path (default: stdout)")
	return cmd
}
