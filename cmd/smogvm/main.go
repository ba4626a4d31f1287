// Command smogvm is the driver for the bytecode virtual machine: a
// REPL, a file runner (source or pre-compiled bytecode), a compiler
// frontend, and a disassembler. Subcommands are repl, run, compile,
// disassemble, version and help, and the process exit code follows the
// usual interpreter convention: 0 for a clean run, 65 for a compile
// error, 70 for a runtime error.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/kristofer/smogvm/internal/config"
	"github.com/kristofer/smogvm/pkg/bytecode"
	"github.com/kristofer/smogvm/pkg/vm"
)

const version = "0.1.0"

const (
	exitOK           = 0
	exitCompileError = 65
	exitRuntimeError = 70
)

func main() {
	cfg, rest := config.Parse(os.Args[1:])

	if len(rest) == 0 {
		runREPL(cfg)
		return
	}

	switch rest[0] {
	case "version", "-v", "--version":
		fmt.Printf("smogvm version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	case "repl":
		runREPL(cfg)
	case "run":
		if len(rest) < 2 {
			fmt.Fprintln(os.Stderr, "Error: no file specified")
			printUsage()
			os.Exit(exitCompileError)
		}
		os.Exit(runFile(cfg, rest[1]))
	case "compile":
		if len(rest) < 2 {
			fmt.Fprintln(os.Stderr, "Error: no file specified")
			fmt.Fprintln(os.Stderr, "\nUsage: smogvm compile <input.smog> [output.sgc]")
			os.Exit(exitCompileError)
		}
		out := ""
		if len(rest) >= 3 {
			out = rest[2]
		}
		os.Exit(compileFile(rest[1], out))
	case "disassemble", "disasm":
		if len(rest) < 2 {
			fmt.Fprintln(os.Stderr, "Error: no file specified")
			fmt.Fprintln(os.Stderr, "\nUsage: smogvm disassemble <file.sgc>")
			os.Exit(exitCompileError)
		}
		os.Exit(disassembleFile(rest[1]))
	default:
		os.Exit(runFile(cfg, rest[0]))
	}
}

func printUsage() {
	fmt.Println("smogvm - a small bytecode virtual machine")
	fmt.Println("\nUsage:")
	fmt.Println("  smogvm                        Start interactive REPL")
	fmt.Println("  smogvm [file]                 Run a .smog or .sgc file")
	fmt.Println("  smogvm run [file]             Run a .smog or .sgc file")
	fmt.Println("  smogvm compile <in> [out]     Compile .smog to .sgc bytecode")
	fmt.Println("  smogvm disassemble <file>     Disassemble .sgc bytecode")
	fmt.Println("  smogvm repl                   Start interactive REPL")
	fmt.Println("  smogvm version                Show version")
	fmt.Println("  smogvm help                   Show this help")
	fmt.Println("\nFlags:")
	fmt.Println("  -trace                        Trace bytecode execution")
	fmt.Println("\nFile extensions:")
	fmt.Println("  .smog   Source code (text)")
	fmt.Println("  .sgc    Compiled bytecode (binary)")
}

// runFile runs filename, dispatching on its extension: .sgc loads
// bytecode directly, anything else is treated as source and compiled
// first.
func runFile(cfg *config.Config, filename string) int {
	machine := vm.New(os.Stdout)
	defer machine.Free()
	machine.SetTrace(cfg.Trace)

	if filepath.Ext(filename) == ".sgc" {
		f, err := os.Open(filename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
			return exitCompileError
		}
		defer f.Close()
		fn, err := vm.LoadBinary(f, machine.Heap())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading bytecode: %v\n", err)
			return exitCompileError
		}
		result, err := machine.Run(fn)
		return resultToExitCode(result, err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		return exitCompileError
	}
	result, err := machine.Interpret(string(data))
	return resultToExitCode(result, err)
}

func compileFile(inputFile, outputFile string) int {
	if outputFile == "" {
		ext := filepath.Ext(inputFile)
		outputFile = inputFile[:len(inputFile)-len(ext)] + ".sgc"
	}

	data, err := os.ReadFile(inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		return exitCompileError
	}

	machine := vm.New(os.Stdout)
	defer machine.Free()
	fn, err := machine.Compile(string(data))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compile error: %v\n", err)
		return exitCompileError
	}

	out, err := os.Create(outputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
		return exitCompileError
	}
	defer out.Close()

	if err := vm.SaveBinary(out, fn); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing bytecode: %v\n", errors.WithStack(err))
		return exitCompileError
	}
	fmt.Printf("Compiled %s -> %s\n", inputFile, outputFile)
	return exitOK
}

func disassembleFile(filename string) int {
	f, err := os.Open(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		return exitCompileError
	}
	defer f.Close()

	machine := vm.New(os.Stdout)
	defer machine.Free()
	fn, err := vm.LoadBinary(f, machine.Heap())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading bytecode: %v\n", err)
		return exitCompileError
	}

	name := "<script>"
	if fn.Name != nil {
		name = fn.Name.Chars
	}
	bytecode.Disassemble(os.Stdout, fn.Chunk, name)
	return exitOK
}

// runREPL is a read-compile-run loop: each line is compiled and
// executed against the same VM, so declarations and side effects
// persist across lines. A runtime error resets execution state but
// keeps going (globals and interned strings survive); a compile error
// on one line likewise does not end the session.
func runREPL(cfg *config.Config) {
	machine := vm.New(os.Stdout)
	defer machine.Free()
	machine.SetTrace(cfg.Trace)

	fmt.Printf("smogvm %s\n", version)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		if _, err := machine.Interpret(line); err != nil {
			// Interpret has already printed diagnostics; the REPL just
			// keeps prompting.
			continue
		}
	}
}

func resultToExitCode(result vm.InterpretResult, err error) int {
	switch result {
	case vm.InterpretOK:
		return exitOK
	case vm.InterpretCompileError:
		return exitCompileError
	case vm.InterpretRuntimeError:
		return exitRuntimeError
	default:
		if err != nil {
			return exitRuntimeError
		}
		return exitOK
	}
}
