package gscanner

import (
	"context"
	"testing"

	"gdetector/internal/ethereum/state"
	"gdetector/internal/issuse"
	"gdetector/internal/module"
	"gdetector/internal/smt"
	"gdetector/internal/solver"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const depositScenario = `
name: deposit
accounts:
  - address: "0x0000000000000000000000000000000000001000"
    name: Token
    code: "55"
paths:
  - name: transfer
    transactions: ["0x0000000000000000000000000000000000001000"]
    events:
      - account: "0x0000000000000000000000000000000000001000"
        function: "mint(uint256)"
        opcode: SSTORE
        when: pre
        pc: 0
        stack: ["sym:write_slot", "sym:value"]
`

const poolScenario = `
name: pool
accounts:
  - address: "0x0000000000000000000000000000000000001000"
    name: Token
    storage:
      - slot: "slot(ATTACKER,0)"
        value: "sym:holding"
  - address: "0x0000000000000000000000000000000000002000"
    name: StakingPool
    code: "6000f1"
paths:
  - name: first
    transactions: ["0x0000000000000000000000000000000000002000"]
    balances:
      - account: ATTACKER
        value: "sym:attacker_balance"
    events:
      - account: "0x0000000000000000000000000000000000002000"
        opcode: CALL
        when: post
        pc: 1
        gas: {min: 21000, max: 30000}
  - name: second
    transactions: ["0x0000000000000000000000000000000000002000"]
    balances:
      - account: ATTACKER
        value: "sym:attacker_balance"
    events:
      - account: "0x0000000000000000000000000000000000002000"
        opcode: CALL
        when: post
        pc: 1
`

type timeoutGateway struct{}

func (timeoutGateway) Solve(ctx context.Context, gs *state.GlobalState, constraints []smt.Bool) (*solver.TransactionSequence, error) {
	return nil, solver.ErrSolverTimeout
}

func newAnalyzer(t *testing.T) *Analyzer {
	modules, err := module.NewModules(nil)
	require.Nil(t, err)
	mm := module.NewModuleManager()
	for _, dm := range modules {
		require.Nil(t, mm.AddModule(dm))
	}
	return NewAnalyzer(mm, nil, DefaultOptions())
}

func detectors(issuses []*issuse.Issuse) []string {
	var result []string
	for _, is := range issuses {
		result = append(result, is.Detector)
	}
	return result
}

func Test_ReplayDeposit(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	sc, err := ParseScenario([]byte(depositScenario))
	require.Nil(t, err)
	report, err := newAnalyzer(t).Replay(context.Background(), sc)
	require.Nil(t, err)

	// 旧值是0，TokenDrain无解
	require.Equal(t, []string{"TokenDeposit"}, detectors(report.Issuses))
	is := report.Issuses[0]
	assert.Equal(t, "Token", is.Contract)
	assert.Equal(t, "mint(uint256)", is.FunctionName)
	assert.Equal(t, 0, is.Address)
	require.Len(t, is.TransactionSequence.Steps, 1)
	assert.Len(t, report.Inconclusive, 0)
}

func Test_ReplayPool(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	sc, err := ParseScenario([]byte(poolScenario))
	require.Nil(t, err)
	ma := newAnalyzer(t)
	report, err := ma.Replay(context.Background(), sc)
	require.Nil(t, err)

	// 两条路径在同一位置的问题只报一次
	assert.ElementsMatch(t, []string{"EtherWithdraw", "PoolLiveness"}, detectors(report.Issuses))
	for _, is := range report.Issuses {
		assert.Equal(t, "StakingPool", is.Contract)
		assert.Equal(t, 2, is.Address)
	}

	roles, err := ma.Run().Roles.Resolve(ma.Run().ID, mustWorldState(t, ma, sc))
	require.Nil(t, err)
	assert.Equal(t, "0x0000000000000000000000000000000000002000", roles.Pool.Hex())

	// 新的run不保留上一次的结果
	previous := ma.Run().ID
	ma.NewRun()
	assert.NotEqual(t, previous, ma.Run().ID)
	assert.Len(t, ma.RetrieveIssuses(), 0)
}

func mustWorldState(t *testing.T, ma *Analyzer, sc *Scenario) *state.WorldState {
	ws, err := newPathBuilder(ma.Run()).worldState(sc, sc.Paths[0])
	require.Nil(t, err)
	return ws
}

func Test_ReplayOpcodeMismatch(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	sc, err := ParseScenario([]byte(depositScenario))
	require.Nil(t, err)
	sc.Paths[0].Events[0].Opcode = "CALL"
	_, err = newAnalyzer(t).Replay(context.Background(), sc)
	assert.NotNil(t, err)
}

func Test_CheckPotentialIssuesTimeout(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	sc, err := ParseScenario([]byte(depositScenario))
	require.Nil(t, err)
	ma := newAnalyzer(t)
	run := ma.NewRun()
	gateway := run.Solver

	pb := newPathBuilder(run)
	_, err = pb.worldState(sc, sc.Paths[0])
	require.Nil(t, err)
	gs, err := pb.globalState(sc.Paths[0].Events[0], nil)
	require.Nil(t, err)
	issuses, err := ma.PreHook(context.Background(), gs)
	require.Nil(t, err)
	assert.Len(t, issuses, 0)
	anno := issuse.GetPotentialIssusesAnnotation(gs)
	require.Equal(t, 2, anno.Len())

	run.Solver = timeoutGateway{}
	for i := 0; i < 2; i++ {
		issuses, err = ma.CheckPotentialIssues(context.Background(), gs)
		require.Nil(t, err)
		assert.Len(t, issuses, 0)
		assert.Equal(t, 2, anno.Len())
		assert.Len(t, ma.Inconclusive(), 2)
	}

	// 超时的问题之后仍然可以被确认
	run.Solver = gateway
	issuses, err = ma.CheckPotentialIssues(context.Background(), gs)
	require.Nil(t, err)
	assert.Equal(t, []string{"TokenDeposit"}, detectors(issuses))
	assert.Equal(t, 0, anno.Len())
	assert.Len(t, ma.Inconclusive(), 0)
	require.Len(t, issuse.GetIssuseAnnotations(gs), 1)

	issuses, err = ma.CheckPotentialIssues(context.Background(), gs)
	require.Nil(t, err)
	assert.Len(t, issuses, 0)
}

func Test_CheckPotentialIssuesWithoutRun(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	ma := newAnalyzer(t)
	gs := state.NewGlobalState(state.NewWorldState(), nil, nil)
	_, err := ma.CheckPotentialIssues(context.Background(), gs)
	assert.NotNil(t, err)
}
