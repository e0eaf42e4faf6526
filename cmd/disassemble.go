package main

import (
	"fmt"
	"os"
	"strings"

	"gdetector/internal/ethereum/state"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	bytecode     string
	bytecodeFile string
)

// 场景文件中事件的pc是这里打印的指令序号
var disassembleCommand = &cobra.Command{
	Use:   "disassemble",
	Short: "decode bytecode and print instruction indexes",
	Long:  ``,
	RunE: func(*cobra.Command, []string) error {
		return disassemble()
	},
}

func init() {
	disassembleCommand.Flags().StringVar(&bytecode, "code", "", "hex bytecode")
	disassembleCommand.Flags().StringVar(&bytecodeFile, "file", "", "file containing hex bytecode")
}

func disassemble() error {
	code := bytecode
	if bytecodeFile != "" {
		data, err := os.ReadFile(bytecodeFile)
		if err != nil {
			return errors.Wrap(err, "read bytecode")
		}
		code = strings.TrimSpace(string(data))
	}
	if code == "" {
		return errors.New("--code or --file is required")
	}
	decoded, err := state.NewCode(code)
	if err != nil {
		return errors.Wrap(err, "decode bytecode")
	}
	for i, instruction := range decoded.GetInstructions() {
		fmt.Printf("\033[36m%-6d\033[0m %-6d %-14s %s\n", i, instruction.Address, instruction.OPCode, instruction.Argument)
	}
	return nil
}
