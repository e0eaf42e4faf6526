package state

import (
	"math/big"
	"testing"

	"gdetector/internal/smt"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_DecodeInstructions(t *testing.T) {
	// PUSH1 0x80 PUSH1 0x40 MSTORE SSTORE
	code, err := NewCode("6080604052" + "55")
	require.Nil(t, err)
	ins := code.GetInstructions()
	require.Len(t, ins, 4)
	assert.Equal(t, "PUSH1", ins[0].OPCode)
	assert.Equal(t, "0x80", ins[0].Argument)
	assert.Equal(t, 2, ins[1].Address)
	assert.Equal(t, "MSTORE", ins[2].OPCode)
	assert.Equal(t, "SSTORE", ins[3].OPCode)

	// 截断的PUSH
	code, err = NewCode("0x61ff")
	require.Nil(t, err)
	require.Len(t, code.GetInstructions(), 1)
	assert.Equal(t, "0xff", code.GetInstructions()[0].Argument)

	_, err = NewCode("zz")
	assert.NotNil(t, err)
}

func Test_GlobalStateAccessors(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	ws := NewWorldState()
	code, err := NewCode("6001600255")
	require.Nil(t, err)
	account, err := ws.CreateAccount(SomeGuyAddress, "Vault", code, big.NewInt(1), SymbolicStorage)
	require.Nil(t, err)

	gs := NewGlobalState(ws, NewEnviroment(account, nil), nil)
	assert.Equal(t, 0, gs.MachineState.GetPC())

	_, err = gs.StackTopN(1)
	assert.True(t, errors.Is(err, ErrAccess))

	require.Nil(t, gs.MachineState.PushStack(smt.NewBitVecValFromInt64(1, 256)))
	require.Nil(t, gs.MachineState.PushStack(smt.NewBitVecValFromInt64(2, 256)))
	top, err := gs.StackTopN(2)
	require.Nil(t, err)
	assert.Equal(t, int64(2), top[0].GetBigInt().Int64())
	assert.Equal(t, int64(1), top[1].GetBigInt().Int64())

	gs.MachineState.Jump(2)
	ins, err := gs.GetCurrentInstruction()
	require.Nil(t, err)
	assert.Equal(t, "SSTORE", ins.OPCode)
	prev, err := gs.GetPreviousInstruction()
	require.Nil(t, err)
	assert.Equal(t, "PUSH1", prev.OPCode)

	assert.Equal(t, "Vault", gs.ActiveContractName())

	clone := gs.Clone()
	cloned, err := clone.ActiveAccount()
	require.Nil(t, err)
	assert.NotSame(t, account, cloned)
	assert.Equal(t, 2, clone.MachineState.StackSize())
}
