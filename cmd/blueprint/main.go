// Command blueprint compiles and runs Blueprint scripts: it drives the
// schema generator, plan resolver, optimizer, validator, and interpreter
// described by the internal packages of this module, wiring them behind
// a cobra CLI with compile/run/validate/export subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Exit codes: success, usage error, I/O error, compile (generation/
// resolution/validation) error, and a reserved range for op-level
// execution failure.
const (
	ExitSuccess          = 0
	ExitUsageError       = 1
	ExitIOError          = 2
	ExitCompileError     = 3
	ExitExecutionError   = 70
)

var log = logrus.New()

func main() {
	log.SetFormatter(&nested.Formatter{
		HideKeys:    true,
		FieldsOrder: []string{"component", "op"},
	})

	root := newRootCommand()
	if err := root.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func newRootCommand() *cobra.Command {
	var (
		verbose bool
	)

	root := &cobra.Command{
		Use:           "blueprint",
		Short:         "Compile and run Blueprint configuration scripts",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")

	root.AddCommand(newCompileCommand())
	root.AddCommand(newValidateCommand())
	root.AddCommand(newRunCommand())
	root.AddCommand(newExportCommand())

	return root
}

// exitCode lets a subcommand's RunE attach a precise exit status
// instead of the generic failure status cobra would pick.
type exitCode struct {
	code int
	err  error
}

func (e *exitCode) Error() string { return e.err.Error() }
func (e *exitCode) Unwrap() error { return e.err }

func fail(code int, format string, args ...interface{}) error {
	return &exitCode{code: code, err: fmt.Errorf(format, args...)}
}

func exitCodeFor(err error) int {
	var ec *exitCode
	if e, ok := err.(*exitCode); ok {
		ec = e
	}
	if ec != nil {
		fmt.Fprintln(os.Stderr, "Error:", ec.err)
		return ec.code
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return ExitUsageError
}

// loadPolicyPath resolves the --policy flag through viper so it may also
// be supplied via a BLUEPRINT_POLICY env var or a config file.
func loadPolicyPath(cmd *cobra.Command) string {
	v := viper.New()
	v.SetEnvPrefix("BLUEPRINT")
	v.AutomaticEnv()
	_ = v.BindPFlag("policy", cmd.Flags().Lookup("policy"))
	return v.GetString("policy")
}
