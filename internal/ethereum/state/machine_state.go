package state

import (
	"gdetector/internal/smt"

	"github.com/pkg/errors"
)

const STACK_SIZE = 1024

var (
	ErrStackOverflow  = errors.New("stack overflow")
	ErrStackUnderflow = errors.New("stack underflow")
)

type MachineStack struct {
	stack []smt.StorableType
}

func NewMachineStack() *MachineStack {
	return &MachineStack{
		stack: make([]smt.StorableType, 0, 16),
	}
}

func (mstack *MachineStack) Size() int {
	return len(mstack.stack)
}

func (mstack *MachineStack) Push(element smt.StorableType) error {
	if len(mstack.stack) >= STACK_SIZE {
		return ErrStackOverflow
	}
	mstack.stack = append(mstack.stack, element)
	return nil
}

// Peek 0是栈顶
func (mstack *MachineStack) Peek(n int) (smt.StorableType, error) {
	if n < 0 || n >= len(mstack.stack) {
		return nil, errors.Wrapf(ErrStackUnderflow, "peek %d of %d", n, len(mstack.stack))
	}
	return mstack.stack[len(mstack.stack)-1-n], nil
}

func (mstack *MachineStack) Clone() *MachineStack {
	s := &MachineStack{
		stack: make([]smt.StorableType, len(mstack.stack)),
	}
	copy(s.stack, mstack.stack)
	return s
}

type MachineState struct {
	pc         int
	gasUsedMin int64
	gasUsedMax int64
	stack      *MachineStack
}

func NewMachineState() *MachineState {
	return &MachineState{
		stack: NewMachineStack(),
	}
}

func (ms *MachineState) GasUsedAdd(gasMin, gasMax int64) {
	ms.gasUsedMin += gasMin
	ms.gasUsedMax += gasMax
}

func (ms *MachineState) GetGasUsedMin() int64 {
	return ms.gasUsedMin
}

func (ms *MachineState) GetGasUsedMax() int64 {
	return ms.gasUsedMax
}

func (ms *MachineState) Jump(dest int) {
	ms.pc = dest
}

func (ms *MachineState) GetPC() int {
	return ms.pc
}

func (ms *MachineState) StackSize() int {
	return ms.stack.Size()
}

func (ms *MachineState) PushStack(element smt.StorableType) error {
	return ms.stack.Push(element)
}

// PeekBitVec 第n个栈元素（0是栈顶），bool会被转成bitvec
func (ms *MachineState) PeekBitVec(n int) (*smt.BitVec, error) {
	elem, err := ms.stack.Peek(n)
	if err != nil {
		return nil, err
	}
	switch v := elem.(type) {
	case *smt.BitVec:
		return v, nil
	case smt.Bool:
		return v.AsBitVec(), nil
	case *smt.Bool:
		return v.AsBitVec(), nil
	}
	return nil, errors.Errorf("type missmatch: %s", elem.Type())
}

func (ms *MachineState) Clone() *MachineState {
	return &MachineState{
		pc:         ms.pc,
		gasUsedMin: ms.gasUsedMin,
		gasUsedMax: ms.gasUsedMax,
		stack:      ms.stack.Clone(),
	}
}
