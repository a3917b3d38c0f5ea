package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wasmlink/jsld"
	"github.com/wasmlink/jsld/linker"
)

var errStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FF6B6B"))

// stringList collects repeatable flags.
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	var (
		symbolsFiles stringList
		exportsFiles stringList
		memorySpecs  stringList
	)
	output := flag.String("output", "", "Path of the JavaScript module to write")
	externs := flag.String("externs", "", "JS file whose top-level declarations extend the externs allowlist")
	name := flag.String("name", "", "UMD module name (default: output base name)")
	verbose := flag.Bool("verbose", false, "Enable development logging")
	interactive := flag.Bool("i", false, "Show an interactive link report after a successful link")
	flag.Var(&symbolsFiles, "symbols", "JS symbols file (repeatable)")
	flag.Var(&exportsFiles, "exports", "JS exports file (repeatable)")
	flag.Var(&memorySpecs, "memory", "Memory definition name:min[:max] in pages (repeatable)")
	flag.Parse()

	if flag.NArg() != 1 || *output == "" {
		fmt.Fprintln(os.Stderr, "Usage: jsld --output <out.js> [--symbols <file.js>]... [--exports <file.js>]...")
		fmt.Fprintln(os.Stderr, "            [--externs <file.js>] [--memory name:min[:max]]... <input.wasm>")
		os.Exit(2)
	}

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger = l
	}
	defer logger.Sync()

	memories, err := parseMemorySpecs(memorySpecs)
	if err != nil {
		fail(err)
	}

	result, err := jsld.Link(context.Background(), jsld.Options{
		WasmPath:     flag.Arg(0),
		Output:       *output,
		SymbolsFiles: symbolsFiles,
		ExportsFiles: exportsFiles,
		ExternsFile:  *externs,
		Memories:     memories,
		ModuleName:   *name,
		Logger:       logger,
	})
	if err != nil {
		fail(err)
	}

	if *interactive && term.IsTerminal(int(os.Stdout.Fd())) {
		if err := runReport(result); err != nil {
			fail(err)
		}
	}
}

func fail(err error) {
	msg := err.Error()
	if term.IsTerminal(int(os.Stderr.Fd())) {
		msg = errStyle.Render("jsld: ") + msg
	} else {
		msg = "jsld: " + msg
	}
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

// parseMemorySpecs parses repeated name:min[:max] definitions.
func parseMemorySpecs(specs []string) ([]linker.MemoryDefinition, error) {
	var out []linker.MemoryDefinition
	for _, spec := range specs {
		md, err := parseMemorySpec(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, md)
	}
	return out, nil
}

func parseMemorySpec(spec string) (linker.MemoryDefinition, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
		return linker.MemoryDefinition{}, fmt.Errorf("invalid memory definition %q (want name:min[:max])", spec)
	}
	md := linker.MemoryDefinition{Name: parts[0]}
	min, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return linker.MemoryDefinition{}, fmt.Errorf("invalid memory minimum in %q: %v", spec, err)
	}
	md.Limits.Min = uint32(min)
	if len(parts) == 3 {
		max, err := strconv.ParseUint(parts[2], 10, 32)
		if err != nil {
			return linker.MemoryDefinition{}, fmt.Errorf("invalid memory maximum in %q: %v", spec, err)
		}
		md.Limits.Max = uint32(max)
		md.Limits.HasMax = true
	}
	return md, nil
}
