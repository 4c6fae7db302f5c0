package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexchoi0/blueprint/internal/approval"
	"github.com/alexchoi0/blueprint/internal/policy"
	"github.com/alexchoi0/blueprint/internal/validator"
)

func newValidateCommand() *cobra.Command {
	opts := pipelineOptions{}
	var (
		policyPath string
		preflight  bool
		sourcePath string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run the full validation pipeline against a script without executing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireASTPath(opts); err != nil {
				return err
			}

			if preflight {
				scanPath := sourcePath
				if scanPath == "" {
					scanPath = opts.astPath
				}
				actions, err := approval.AnalyzeScript(scanPath)
				if err != nil {
					return fail(ExitIOError, "preflight scan %s: %w", scanPath, err)
				}
				for _, a := range actions {
					fmt.Fprintln(cmd.OutOrStdout(), a.String())
				}
			}

			p, ectx, err := buildPlan(opts)
			if err != nil {
				return err
			}

			var checker approval.PolicyChecker
			pp := policyPath
			if pp == "" {
				pp = loadPolicyPath(cmd)
			}
			if pp != "" {
				pol, err := policy.Load(pp)
				if err != nil {
					return fail(ExitIOError, "load policy %s: %w", pp, err)
				}
				checker = pol
			}

			result, err := validator.Validate(p, ectx, checker)
			if err != nil {
				return fail(ExitCompileError, "validate plan: %w", err)
			}

			for _, w := range result.Warnings {
				fmt.Fprintln(cmd.OutOrStdout(), "warning:", w.String())
			}
			for _, e := range result.Errors {
				fmt.Fprintln(cmd.OutOrStdout(), "error:", e.Error())
			}

			if !result.Valid() {
				return fail(ExitCompileError, "plan has %d validation error(s)", len(result.Errors))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d ops, %d level(s), %d warning(s)\n", len(p.Ops), len(result.Levels), len(result.Warnings))
			return nil
		},
	}

	addPipelineFlags(cmd.Flags(), &opts)
	cmd.Flags().StringVar(&policyPath, "policy", "", "path to a TOML policy file")
	cmd.Flags().BoolVar(&preflight, "preflight", false, "also print a best-effort action scan of the raw source before compiling")
	cmd.Flags().StringVar(&sourcePath, "source", "", "raw .bp source file to scan for --preflight (default: --ast)")
	return cmd
}
