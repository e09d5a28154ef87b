package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/synerthink/dotlanth/pkg/arch"
	"github.com/synerthink/dotlanth/pkg/transpiler"
)

var (
	transpileTargetTier string
	transpileOut        string
	transpileOptimize   bool
)

var transpileCmd = &cobra.Command{
	Use:   "transpile <wasm-file>",
	Short: "Compile a WASM module into a DotVM bytecode image",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranspile,
}

func init() {
	transpileCmd.Flags().StringVar(&transpileTargetTier, "target-tier", "Arch32", "Target DotVM architecture tier (Arch32, Arch64, Arch128, Arch256, Arch512)")
	transpileCmd.Flags().StringVar(&transpileOut, "out", "", "Output path for the bytecode image (defaults to <input>.dotb)")
	transpileCmd.Flags().BoolVar(&transpileOptimize, "optimize", true, "Run the constant-fold, peephole, and vectorize passes before generating")
}

// parseTierName accepts both the bare tier number ("32") and the Tier
// String() form ("Arch32"), since arch.ParseTier only decodes the raw
// header byte and the CLI's natural input is a human-typed tier name.
func parseTierName(s string) (arch.Tier, error) {
	switch strings.TrimPrefix(strings.ToLower(s), "arch") {
	case "32":
		return arch.Arch32, nil
	case "64":
		return arch.Arch64, nil
	case "128":
		return arch.Arch128, nil
	case "256":
		return arch.Arch256, nil
	case "512":
		return arch.Arch512, nil
	default:
		return 0, fmt.Errorf("unknown architecture tier %q", s)
	}
}

func runTranspile(cmd *cobra.Command, args []string) error {
	tier, err := parseTierName(transpileTargetTier)
	if err != nil {
		return err
	}

	wasm, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading wasm file: %w", err)
	}

	mod, err := transpiler.ParseModule(wasm)
	if err != nil {
		return fmt.Errorf("parsing wasm module: %w", err)
	}

	funcs, err := transpiler.Translate(mod, tier)
	if err != nil {
		return fmt.Errorf("translating to IR: %w", err)
	}

	if transpileOptimize {
		for i := range funcs {
			code := funcs[i].Code
			code = transpiler.ConstantFold(code)
			code = transpiler.Peephole(code)
			code = transpiler.Vectorize(code, tier)
			funcs[i].Code = code
		}
	}

	img, err := transpiler.Generate(funcs, tier)
	if err != nil {
		return fmt.Errorf("generating bytecode: %w", err)
	}

	out := transpileOut
	if out == "" {
		out = args[0] + ".dotb"
	}
	if err := os.WriteFile(out, img.ToBytes(), 0o644); err != nil {
		return fmt.Errorf("writing bytecode image: %w", err)
	}

	fmt.Printf("wrote %s (%d instructions, tier %s)\n", out, len(img.Instructions), tier)
	return nil
}
