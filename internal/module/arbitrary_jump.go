package module

import (
	"context"
	"math/big"

	"gdetector/internal/ethereum/state"
	"gdetector/internal/issuse"
	"gdetector/internal/smt"
	"gdetector/internal/solver"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type ArbitraryJump struct {
	*BaseModule
}

func NewArbitraryJump() *ArbitraryJump {
	bm := newBaseModule("ArbitraryJump", SWCDataMap["127"], issuse.SeverityHigh, EagerCheck, nil)
	bm.preHooks = []string{"JUMP", "JUMPI"}
	return &ArbitraryJump{BaseModule: bm}
}

// Execute 跳转目标是符号值，并且在路径约束下不唯一
func (arbitraryJump *ArbitraryJump) Execute(ctx context.Context, when HookWhen, globalState *state.GlobalState) ([]*issuse.Issuse, error) {
	log.Info("Entering ArbitraryJump")
	defer log.Info("Exiting ArbitraryJump")

	operands, err := globalState.StackTopN(1)
	if err != nil {
		log.WithError(err).Debug("no jump target")
		return nil, nil
	}
	jumpAddress := operands[0]
	if !jumpAddress.IsSymbolic() {
		return nil, nil
	}

	const tail = "The jump destination can be set to more than one value."
	observed, err := arbitraryJump.observedTarget(ctx, globalState, jumpAddress)
	switch {
	case errors.Is(err, solver.ErrUnsatisfiable):
		return nil, nil
	case errors.Is(err, solver.ErrSolverTimeout):
		// 拿不到可行值就没法构造不唯一的约束，只能按路径约束记为inconclusive
		outcome, err := arbitraryJump.inconclusive(when, globalState, tail)
		arbitraryJump.logOutcome(globalState, when, outcome, err)
		return nil, err
	case err != nil:
		return nil, err
	}
	policy := jumpTargetNotUnique{
		target:   jumpAddress,
		observed: smt.NewBitVecValFromBigInt(observed, jumpAddress.Size()),
	}
	outcome, issuses, err := arbitraryJump.check(ctx, when, globalState, policy, tail)
	arbitraryJump.logOutcome(globalState, when, outcome, err)
	return issuses, err
}

func (arbitraryJump *ArbitraryJump) inconclusive(when HookWhen, globalState *state.GlobalState, tail string) (Outcome, error) {
	instruction, err := arbitraryJump.hookedInstruction(globalState, when)
	if err != nil {
		return OutcomeAborted, errors.Wrap(err, "hookedInstruction")
	}
	p := arbitraryJump.provenance(globalState, instruction.Address, tail)
	if arbitraryJump.HasIssuse(p) {
		return OutcomeSkipped, nil
	}
	arbitraryJump.AddInconclusive(issuse.NewPotentialIssuse(p, globalState.GetConstraint().GetConstraints()))
	return OutcomeInconclusive, nil
}

// observedTarget 路径约束下跳转目标的一个可行值
func (arbitraryJump *ArbitraryJump) observedTarget(ctx context.Context, globalState *state.GlobalState, jumpAddress *smt.BitVec) (value *big.Int, err error) {
	run := arbitraryJump.currentRun()
	if run == nil {
		return nil, errors.New("module ArbitraryJump has no run, call Reset first")
	}
	ts, err := run.Solver.Solve(ctx, globalState, globalState.GetConstraint().GetConstraints())
	if err != nil {
		return nil, err
	}
	defer ts.Close()
	return ts.Eval(jumpAddress)
}
