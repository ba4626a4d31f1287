// Package config parses the smogvm CLI's flags and environment. It
// follows the standard library's own flag package rather than reaching
// for a third-party CLI framework — see DESIGN.md for that abstention.
package config

import (
	"flag"
	"os"
)

// Config holds the CLI's runtime knobs.
type Config struct {
	// Trace enables per-instruction execution tracing (stack dump plus
	// disassembled instruction) before every opcode runs.
	Trace bool
}

// Parse parses args (typically os.Args[1:]) into a Config plus the
// remaining positional arguments (subcommand and its own arguments).
// SMOGVM_TRACE=1 in the environment is equivalent to passing -trace,
// letting a REPL session be traced without editing the invocation.
func Parse(args []string) (*Config, []string) {
	fs := flag.NewFlagSet("smogvm", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	trace := fs.Bool("trace", false, "trace bytecode execution")
	_ = fs.Parse(args)

	cfg := &Config{Trace: *trace}
	if os.Getenv("SMOGVM_TRACE") == "1" {
		cfg.Trace = true
	}
	return cfg, fs.Args()
}
