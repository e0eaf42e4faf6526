package module

import (
	"context"
	"math/big"
	"testing"

	"gdetector/internal/ethereum/state"
	"gdetector/internal/smt"
	"gdetector/internal/solver"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	tokenAddress = common.HexToAddress("0x0000000000000000000000000000000000001000")
	poolAddress  = common.HexToAddress("0x0000000000000000000000000000000000002000")
	otherAddress = common.HexToAddress("0x0000000000000000000000000000000000003000")
)

func newTestRun() *Run {
	return NewRun(DefaultDetectionConfig(), NewRoleResolver(nil), solver.DefaultOptions(), nil)
}

// newHookState code部署在account上，pc指向第pc条指令，并加入一笔消息调用
func newHookState(t *testing.T, ws *state.WorldState, address common.Address, name, bytecode string, pc int) *state.GlobalState {
	code, err := state.NewCode(bytecode)
	require.Nil(t, err)
	account, err := ws.CreateAccount(address, name, code, big.NewInt(0), state.ConcreteStorage)
	require.Nil(t, err)
	ws.AddTransaction(state.NewMessageCallTransaction(account))
	gs := state.NewGlobalState(ws, state.NewEnviroment(account, nil), state.NewMachineState())
	gs.MachineState.Jump(pc)
	return gs
}

func push(t *testing.T, gs *state.GlobalState, values ...*smt.BitVec) {
	for _, v := range values {
		require.Nil(t, gs.MachineState.PushStack(v))
	}
}

type timeoutGateway struct{}

func (timeoutGateway) Solve(ctx context.Context, gs *state.GlobalState, constraints []smt.Bool) (*solver.TransactionSequence, error) {
	return nil, solver.ErrSolverTimeout
}

// interleavedGateway 求解返回前先执行afterSolve，模拟另一条路径在求解期间已经报了同一位置
type interleavedGateway struct {
	inner      solver.Gateway
	afterSolve func()
}

func (g interleavedGateway) Solve(ctx context.Context, gs *state.GlobalState, constraints []smt.Bool) (*solver.TransactionSequence, error) {
	ts, err := g.inner.Solve(ctx, gs, constraints)
	g.afterSolve()
	return ts, err
}
