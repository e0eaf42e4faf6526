package state

import (
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/pkg/errors"
)

// Instruction 一条EVM指令，Address是字节码中的偏移
type Instruction struct {
	Address  int
	OPCode   string
	Argument string
}

// Code 账户的字节码以及解码出的指令列表，指令列表创建之后不会变更
type Code struct {
	bytecode     string
	instructions []Instruction
}

func NewCode(bytecode string) (*Code, error) {
	instructions, err := decodeInstructions(bytecode)
	if err != nil {
		return nil, errors.Wrap(err, "decodeInstructions")
	}
	return &Code{
		bytecode:     bytecode,
		instructions: instructions,
	}, nil
}

// NewCodeFromInstructions 由执行引擎直接提供指令列表
func NewCodeFromInstructions(bytecode string, instructions []Instruction) *Code {
	c := &Code{
		bytecode:     bytecode,
		instructions: make([]Instruction, len(instructions)),
	}
	copy(c.instructions, instructions)
	return c
}

func (c *Code) GetBytecode() string {
	if c == nil {
		return ""
	}
	return c.bytecode
}

func (c *Code) GetInstructions() []Instruction {
	if c == nil {
		return nil
	}
	return c.instructions
}

func decodeInstructions(bytecode string) ([]Instruction, error) {
	code, err := hexutil.Decode("0x" + strings.TrimPrefix(bytecode, "0x"))
	if err != nil {
		return nil, err
	}
	instructions := make([]Instruction, 0, len(code))
	for pc := 0; pc < len(code); pc++ {
		op := vm.OpCode(code[pc])
		instruction := Instruction{
			Address: pc,
			OPCode:  op.String(),
		}
		if op >= vm.PUSH1 && op <= vm.PUSH32 {
			size := int(op-vm.PUSH1) + 1
			end := pc + 1 + size
			if end > len(code) {
				end = len(code)
			}
			instruction.Argument = hexutil.Encode(code[pc+1 : end])
			pc += size
		}
		instructions = append(instructions, instruction)
	}
	return instructions, nil
}
