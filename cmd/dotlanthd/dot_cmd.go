package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/synerthink/dotlanth/pkg/executor"
	"github.com/synerthink/dotlanth/pkg/paradot"
)

var dotCmd = &cobra.Command{
	Use:   "dot",
	Short: "Run a compiled dot bytecode image",
}

var dotLocals int

var dotRunCmd = &cobra.Command{
	Use:   "run <bytecode-file>",
	Short: "Execute a DotVM bytecode image and print the resulting stack top",
	Args:  cobra.ExactArgs(1),
	RunE:  runDot,
}

func init() {
	dotRunCmd.Flags().IntVar(&dotLocals, "locals", 0, "Number of local-variable slots to allocate before running")
	dotCmd.AddCommand(dotRunCmd)
}

// runDot loads a bytecode image produced by `transpile` (or hand-built via
// executor.NewImage/ToBytes) and runs it to completion with no capability
// or quota enforcement, mirroring the unmetered executor.New default. The
// daemon's pkg/stateexec executor applies no capability gate or meter
// either.
func runDot(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading bytecode file: %w", err)
	}

	img, err := executor.ParseImage(data)
	if err != nil {
		return fmt.Errorf("parsing bytecode image: %w", err)
	}

	exec := executor.New(img.Header.Tier)
	exec.ParaDot = paradot.NewScheduler()
	if dotLocals > 0 {
		if err := exec.AllocateLocals(dotLocals); err != nil {
			return fmt.Errorf("allocating locals: %w", err)
		}
	}

	if err := exec.Run(img.Instructions); err != nil {
		return fmt.Errorf("running bytecode: %w", err)
	}

	if exec.Stack.Len() == 0 {
		fmt.Println("ok (empty stack)")
		return nil
	}
	top, err := exec.Stack.Peek()
	if err != nil {
		return err
	}
	if top.IsBigInt() {
		fmt.Printf("ok: %s\n", top.Big().String())
	} else {
		fmt.Printf("ok: %v\n", top.Float64())
	}
	return nil
}
