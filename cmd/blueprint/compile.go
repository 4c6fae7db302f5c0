package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alexchoi0/blueprint/internal/compiled"
)

func newCompileCommand() *cobra.Command {
	opts := pipelineOptions{}
	var (
		outPath    string
		embedAsIs  bool
		compiledAt int64
	)

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Generate, resolve, and optimize a script into a compiled plan file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireASTPath(opts); err != nil {
				return err
			}
			p, _, err := buildPlan(opts)
			if err != nil {
				return err
			}

			level, err := parseOptimizeLevel(opts.optimize)
			if err != nil {
				return err
			}

			var meta *compiled.Metadata
			if embedAsIs {
				meta = &compiled.Metadata{SourceFile: opts.astPath}
			}
			sourceHash, err := hashSourceFile(opts.astPath)
			if err != nil {
				return fail(ExitIOError, "hash ast file %s: %w", opts.astPath, err)
			}
			cp := compiled.NewCompiledPlan(p, sourceHash, level, compiledAt, meta)

			if outPath == "" {
				outPath = opts.astPath + ".bp"
			}
			if err := cp.Save(outPath); err != nil {
				return fail(ExitIOError, "save compiled plan %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "compiled %d ops to %s\n", len(p.Ops), outPath)
			return nil
		},
	}

	addPipelineFlags(cmd.Flags(), &opts)
	cmd.Flags().StringVar(&outPath, "out", "", "output .bp path (default: <ast path>.bp)")
	cmd.Flags().BoolVar(&embedAsIs, "embed-source", false, "embed the source AST path in the compiled file's metadata")
	cmd.Flags().Int64Var(&compiledAt, "compiled-at", 0, "unix timestamp stamped into the compiled file (default: 0)")
	return cmd
}

// hashSourceFile fingerprints the AST source file the same way the
// schema generation cache does, so a compiled container's source_hash
// lines up with generator.Key for the same input.
func hashSourceFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
