package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/artpar/reshape/app"
	"github.com/artpar/reshape/domain/bridge"
	"github.com/artpar/reshape/domain/transform"
)

var (
	opsFile   string
	inputFile string
	compact   bool
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Apply an operation set to a JSON document",
	Long: `Apply a declarative operation set to a JSON document and print
the result. The operation file is YAML: either a bare list of
operation records, or a document with "ops" and optional "models".

Examples:
  reshape transform --ops ops.yaml < input.json
  reshape transform --ops ops.yaml --input payload.json

Operation file:
  - move:
      fullName: name
  - cast:
      age: number
  - func:
      email: lower(value)`,
	RunE: runTransform,
}

func init() {
	rootCmd.AddCommand(transformCmd)

	transformCmd.Flags().StringVar(&opsFile, "ops", "", "operation file (required)")
	transformCmd.Flags().StringVar(&inputFile, "input", "", "input JSON file (default: stdin)")
	transformCmd.Flags().BoolVar(&compact, "compact", false, "emit compact JSON")
	transformCmd.MarkFlagRequired("ops")
}

// opsDocument is the long form of the operation file.
type opsDocument struct {
	Models map[string]bridge.Operations `yaml:"models"`
	Ops    bridge.Operations            `yaml:"ops"`
}

func runTransform(cmd *cobra.Command, args []string) error {
	doc, err := loadOpsFile(opsFile)
	if err != nil {
		return err
	}

	exprs := app.NewExprCompiler(zerolog.Nop())
	registry := transform.NewRegistry()

	for name, ops := range doc.Models {
		set, err := compileOps(exprs, registry, ops)
		if err != nil {
			return fmt.Errorf("model %q: %w", name, err)
		}
		registry.Register(name, set)
	}

	set, err := compileOps(exprs, registry, doc.Ops)
	if err != nil {
		return fmt.Errorf("ops: %w", err)
	}
	if set == nil {
		return fmt.Errorf("operation file %s contains no operations", opsFile)
	}

	var in io.Reader = os.Stdin
	if inputFile != "" {
		f, err := os.Open(inputFile)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	var value any
	if err := json.NewDecoder(in).Decode(&value); err != nil {
		return fmt.Errorf("parse input: %w", err)
	}

	out, err := set.Process(value)
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(out)
}

func loadOpsFile(path string) (opsDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return opsDocument{}, err
	}

	// Bare list form first.
	var list bridge.Operations
	if err := yaml.Unmarshal(data, &list); err == nil && len(list) > 0 {
		return opsDocument{Ops: list}, nil
	}

	var doc opsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return opsDocument{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func compileOps(exprs *app.ExprCompiler, registry *transform.Registry, ops bridge.Operations) (*transform.Set, error) {
	if len(ops) == 0 {
		return nil, nil
	}
	records := make([]map[string]any, 0, len(ops))
	for _, rec := range ops {
		rewritten, err := exprs.RewriteRecord(rec)
		if err != nil {
			return nil, err
		}
		records = append(records, rewritten)
	}
	set, err := transform.New(registry, records)
	if err != nil {
		return nil, err
	}
	return set, nil
}
