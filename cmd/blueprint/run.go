package main

import (
	gocontext "context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/alexchoi0/blueprint/internal/approval"
	"github.com/alexchoi0/blueprint/internal/interpreter"
	"github.com/alexchoi0/blueprint/internal/nativeops"
	"github.com/alexchoi0/blueprint/internal/policy"
	"github.com/alexchoi0/blueprint/internal/validator"
)

func newRunCommand() *cobra.Command {
	opts := pipelineOptions{}
	var (
		policyPath string
		approveAll bool
		dryRun     bool
		workers    int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compile and execute a script, gating side-effecting ops behind approval",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireASTPath(opts); err != nil {
				return err
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
				log.WithFields(logrus.Fields{"stage": "validate"}).Warn(w.String())
			}
			if !result.Valid() {
				for _, e := range result.Errors {
					log.WithFields(logrus.Fields{"stage": "validate"}).Error(e.Error())
				}
				return fail(ExitCompileError, "plan has %d validation error(s)", len(result.Errors))
			}

			registry := interpreter.NewRegistry()
			nativeops.Register(registry)

			var prompter approval.Prompter
			if !approveAll {
				prompter = newInteractivePrompter()
			}
			gate := approval.NewGate(checker, prompter)
			gate.AutoApprove = approveAll
			gate.NonInteractive = approveAll

			runOpts := interpreter.Options{
				Workers: workers,
				DryRun:  dryRun,
				Gate:    gate,
			}

			oc, err := interpreter.Execute(gocontext.Background(), p, result.Levels, ectx, registry, runOpts)
			if err != nil {
				return fail(ExitExecutionError, "execute plan: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "executed %d ops across %d level(s), %d cached value(s)\n", len(p.Ops), len(result.Levels), oc.Len())
			return nil
		},
	}

	addPipelineFlags(cmd.Flags(), &opts)
	cmd.Flags().StringVar(&policyPath, "policy", "", "path to a TOML policy file")
	cmd.Flags().BoolVar(&approveAll, "approve-all", false, "non-interactive mode: auto-approve every action a policy doesn't deny")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "trace the plan without executing any side-effecting op")
	cmd.Flags().IntVar(&workers, "workers", 0, "max concurrent ops per level (default: runtime.NumCPU())")
	return cmd
}
