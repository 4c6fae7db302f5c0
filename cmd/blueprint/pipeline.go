package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/alexchoi0/blueprint/internal/astjson"
	"github.com/alexchoi0/blueprint/internal/context"
	"github.com/alexchoi0/blueprint/internal/generator"
	"github.com/alexchoi0/blueprint/internal/optimizer"
	"github.com/alexchoi0/blueprint/internal/plan"
	"github.com/alexchoi0/blueprint/internal/resolver"
	"github.com/alexchoi0/blueprint/internal/schema"
)

var schemaCache = generator.NewSchemaCache()

// pipelineOptions carries the flags every subcommand that touches the
// generate -> resolve -> optimize chain shares.
type pipelineOptions struct {
	astPath     string
	contextPath string
	optimize    string
}

// buildExecutionContext assembles an ExecutionContext from the current
// process environment, optionally layering a TOML project config on top.
func buildExecutionContext(configPath string) (*context.ExecutionContext, error) {
	ectx, err := context.FromCurrentEnv()
	if err != nil {
		return nil, fail(ExitIOError, "capture execution context: %w", err)
	}
	if configPath != "" {
		if err := ectx.LoadConfig(configPath); err != nil {
			return nil, fail(ExitIOError, "load project config %s: %w", configPath, err)
		}
	}
	return ectx, nil
}

func parseOptimizeLevel(s string) (optimizer.Level, error) {
	switch s {
	case "", "none":
		return optimizer.None, nil
	case "basic":
		return optimizer.Basic, nil
	case "aggressive":
		return optimizer.Aggressive, nil
	default:
		return optimizer.None, fail(ExitUsageError, "unknown --optimize level %q (want none|basic|aggressive)", s)
	}
}

// generateSchema reads and decodes the AST at path, then runs it through
// the schema generator, consulting the package-level generation cache
// keyed by the source file's content hash.
func generateSchema(path string) (*schema.Schema, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fail(ExitIOError, "read ast file %s: %w", path, err)
	}
	key := generator.Key(compiledSchemaVersion, source)
	if cached, ok := schemaCache.Get(key); ok {
		log.WithFields(logrus.Fields{"stage": "generate", "cache": "hit"}).Debug("schema cache hit")
		return cached, nil
	}
	prog, err := astjson.Decode(source)
	if err != nil {
		return nil, fail(ExitCompileError, "decode ast %s: %w", path, err)
	}
	sch, err := generator.New().Generate(prog)
	if err != nil {
		return nil, fail(ExitCompileError, "generate schema: %w", err)
	}
	log.WithFields(logrus.Fields{"stage": "generate", "ops": len(sch.Ops)}).Debug("schema generated")
	schemaCache.Put(key, sch)
	return sch, nil
}

// compiledSchemaVersion pins the cache key to the generator's output
// shape; bumping it invalidates every previously cached schema.
const compiledSchemaVersion = 1

// buildPlan runs the full generate -> resolve -> optimize pipeline and
// returns the resulting Plan alongside the ExecutionContext it was
// resolved against.
func buildPlan(opts pipelineOptions) (*plan.Plan, *context.ExecutionContext, error) {
	sch, err := generateSchema(opts.astPath)
	if err != nil {
		return nil, nil, err
	}
	ectx, err := buildExecutionContext(opts.contextPath)
	if err != nil {
		return nil, nil, err
	}
	p, err := resolver.Resolve(sch, ectx)
	if err != nil {
		return nil, nil, fail(ExitCompileError, "resolve plan: %w", err)
	}
	log.WithFields(logrus.Fields{"stage": "resolve", "ops": len(p.Ops)}).Debug("plan resolved")

	level, err := parseOptimizeLevel(opts.optimize)
	if err != nil {
		return nil, nil, err
	}
	before := len(p.Ops)
	p = optimizer.Optimize(p, level)
	log.WithFields(logrus.Fields{"stage": "optimize", "level": level.String(), "ops_removed": before - len(p.Ops)}).Debug("plan optimized")

	return p, ectx, nil
}

func addPipelineFlags(flags *pflag.FlagSet, opts *pipelineOptions) {
	flags.StringVar(&opts.astPath, "ast", "", "path to the parsed AST JSON file (required)")
	flags.StringVar(&opts.contextPath, "context", "", "path to a TOML project config overlaying the execution context")
	flags.StringVar(&opts.optimize, "optimize", "none", "optimization level: none, basic, or aggressive")
}

func requireASTPath(opts pipelineOptions) error {
	if opts.astPath == "" {
		return fail(ExitUsageError, "--ast is required")
	}
	return nil
}
