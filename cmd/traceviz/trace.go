package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rendis/traceviz/internal/diagram"
	"github.com/rendis/traceviz/internal/filter"
	"github.com/rendis/traceviz/internal/validation"
	"github.com/rendis/traceviz/pkg/schema"
)

// runLayout compiles a trace file into a layout and prints it as JSON.
func runLayout(args []string) error {
	fs := flag.NewFlagSet("layout", flag.ExitOnError)
	tracePath := fs.String("f", "", "trace file (JSON array of steps, - for stdin)")
	namesPath := fs.String("names", "", "agent display-name map file (JSON object)")
	filterExpr := fs.String("filter", "", "step filter expression")
	engineName := fs.String("engine", "cel", "filter engine: cel, expr or jq")
	diagnostics := fs.Bool("diagnostics", false, "include dropped-step diagnostics")
	if err := fs.Parse(args); err != nil {
		return err
	}

	steps, err := loadTraceFile(*tracePath)
	if err != nil {
		return err
	}
	steps, err = applyFilterExpr(steps, *filterExpr, *engineName)
	if err != nil {
		return err
	}
	names, err := loadNamesFile(*namesPath)
	if err != nil {
		return err
	}

	layout, dropped := diagram.CompileWithDiagnostics(steps, names)
	out := map[string]any{"layout": layout}
	if *diagnostics {
		if dropped == nil {
			dropped = []diagram.DroppedStep{}
		}
		out["dropped_steps"] = dropped
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// runRender compiles a trace file and renders it in the requested format.
func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	tracePath := fs.String("f", "", "trace file (JSON array of steps, - for stdin)")
	namesPath := fs.String("names", "", "agent display-name map file (JSON object)")
	format := fs.String("format", "mermaid", "output format: mermaid, ascii or png")
	outPath := fs.String("o", "", "output file (default stdout; required for png)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	steps, err := loadTraceFile(*tracePath)
	if err != nil {
		return err
	}
	names, err := loadNamesFile(*namesPath)
	if err != nil {
		return err
	}
	layout := diagram.Compile(steps, names)

	var output []byte
	switch *format {
	case "mermaid":
		output = []byte(diagram.RenderMermaid(layout))
	case "ascii":
		output = []byte(diagram.RenderASCII(layout))
	case "png":
		if *outPath == "" {
			return fmt.Errorf("png output requires -o")
		}
		output, err = diagram.RenderImage(layout)
		if err != nil {
			return fmt.Errorf("render image: %w", err)
		}
	default:
		return fmt.Errorf("unknown format %q (want mermaid, ascii or png)", *format)
	}

	if *outPath == "" {
		_, err = os.Stdout.Write(output)
		return err
	}
	return os.WriteFile(*outPath, output, 0o644)
}

// loadTraceFile reads, validates and parses a trace document.
func loadTraceFile(path string) ([]schema.VisualizerStep, error) {
	if path == "" {
		return nil, fmt.Errorf("trace file is required (-f)")
	}

	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}

	validator, err := validation.NewTraceValidator()
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateTrace(raw); err != nil {
		return nil, err
	}
	return schema.ParseSteps(raw)
}

func loadNamesFile(path string) (schema.AgentNameMap, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read names: %w", err)
	}
	var names schema.AgentNameMap
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("parse names: %w", err)
	}
	return names, nil
}

func applyFilterExpr(steps []schema.VisualizerStep, expression, engineName string) ([]schema.VisualizerStep, error) {
	if expression == "" {
		return steps, nil
	}
	eng, err := filter.New(engineName)
	if err != nil {
		return nil, err
	}
	return filter.Apply(context.Background(), eng, expression, steps)
}
