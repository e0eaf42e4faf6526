package state

import (
	"gdetector/internal/smt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// GlobalState 执行引擎在某个指令处的快照，hook只读取，不修改
type GlobalState struct {
	WorldState   *WorldState
	Enviroment   *Enviroment
	MachineState *MachineState
	annotations  []smt.Annotation
}

func NewGlobalState(worldState *WorldState, enviroment *Enviroment, machineState *MachineState, annotations ...smt.Annotation) *GlobalState {
	gs := &GlobalState{
		WorldState:  worldState,
		Enviroment:  enviroment,
		annotations: annotations,
	}
	if machineState != nil {
		gs.MachineState = machineState
	} else {
		gs.MachineState = NewMachineState()
	}
	return gs
}

func (gs *GlobalState) GetAccounts() map[common.Address]*Account {
	return gs.WorldState.GetAccounts()
}

func (gs *GlobalState) GetAccount(address common.Address) (*Account, error) {
	return gs.WorldState.GetAccount(address)
}

func (gs *GlobalState) GetBalance(address *smt.BitVec) (*smt.BitVec, error) {
	return gs.WorldState.GetBalance(address)
}

func (gs *GlobalState) GetConstraint() *Constraint {
	return gs.WorldState.GetConstraint()
}

func (gs *GlobalState) ActiveAccount() (*Account, error) {
	if gs.Enviroment == nil || gs.Enviroment.ActiveAccount == nil {
		return nil, errors.Wrap(ErrAccess, "no active account")
	}
	return gs.Enviroment.ActiveAccount, nil
}

func (gs *GlobalState) ActiveContractName() string {
	if gs.Enviroment == nil || gs.Enviroment.ActiveAccount == nil {
		return ""
	}
	return gs.Enviroment.ActiveAccount.ContractName
}

func (gs *GlobalState) ActiveFunctionName() string {
	if gs.Enviroment == nil {
		return ""
	}
	return gs.Enviroment.ActiveFuncName
}

func (gs *GlobalState) instructionAt(pc int) (Instruction, error) {
	if gs.Enviroment == nil {
		return Instruction{}, errors.Wrap(ErrAccess, "no enviroment")
	}
	ins := gs.Enviroment.Code.GetInstructions()
	if pc < 0 || pc >= len(ins) {
		return Instruction{Address: pc, OPCode: "STOP"}, errors.Wrapf(ErrAccess, "pc %d out of bound", pc)
	}
	return ins[pc], nil
}

// GetCurrentInstruction pre hook看到的是即将执行的指令
func (gs *GlobalState) GetCurrentInstruction() (Instruction, error) {
	return gs.instructionAt(gs.MachineState.GetPC())
}

// GetPreviousInstruction post hook看到的state中pc已经前进，刚执行的指令在pc-1
func (gs *GlobalState) GetPreviousInstruction() (Instruction, error) {
	return gs.instructionAt(gs.MachineState.GetPC() - 1)
}

// StackTopN 返回栈顶n个元素，[0]是栈顶
func (gs *GlobalState) StackTopN(n int) ([]*smt.BitVec, error) {
	if n > gs.MachineState.StackSize() {
		return nil, errors.Wrapf(ErrAccess, "stack has %d elements, want %d", gs.MachineState.StackSize(), n)
	}
	result := make([]*smt.BitVec, n)
	for i := 0; i < n; i++ {
		bv, err := gs.MachineState.PeekBitVec(i)
		if err != nil {
			return nil, errors.Wrapf(err, "stack element %d", i)
		}
		result[i] = bv
	}
	return result, nil
}

func (gs *GlobalState) AddAnnotation(annotation smt.Annotation) {
	gs.annotations = append(gs.annotations, annotation)
}

func (gs *GlobalState) GetAnnotations() []smt.Annotation {
	return gs.annotations
}

func (gs *GlobalState) Clone() *GlobalState {
	ws := gs.WorldState.Clone()
	newState := &GlobalState{
		WorldState:   ws,
		MachineState: gs.MachineState.Clone(),
		annotations:  make([]smt.Annotation, len(gs.annotations)),
	}
	if gs.Enviroment != nil {
		newState.Enviroment = gs.Enviroment.Clone(ws)
	}
	for i, annotation := range gs.annotations {
		newState.annotations[i] = annotation.Clone()
	}
	return newState
}
