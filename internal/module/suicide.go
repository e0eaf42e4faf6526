package module

import (
	"context"

	"gdetector/internal/ethereum/state"
	"gdetector/internal/issuse"

	log "github.com/sirupsen/logrus"
)

const (
	killableWithdraw = "Any sender can trigger execution of the SELFDESTRUCT instruction to destroy this contract account and withdraw its balance to an arbitrary address."
	killableOnly     = "Any sender can trigger execution of the SELFDESTRUCT instruction to destroy this contract account."
)

type AccidentallyKillable struct {
	*BaseModule
}

func NewAccidentallyKillable() *AccidentallyKillable {
	bm := newBaseModule("AccidentallyKillable", SWCDataMap["106"], issuse.SeverityHigh, EagerCheck, attackerBeneficiary{})
	bm.preHooks = []string{"SELFDESTRUCT"}
	return &AccidentallyKillable{BaseModule: bm}
}

// Execute 先看attacker能否成为受益人，不能的话再看attacker能否触发自毁
func (ak *AccidentallyKillable) Execute(ctx context.Context, when HookWhen, globalState *state.GlobalState) ([]*issuse.Issuse, error) {
	log.Info("Entering AccidentallyKillable")
	defer log.Info("Exiting AccidentallyKillable")

	outcome, issuses, err := ak.check(ctx, when, globalState, attackerBeneficiary{}, killableWithdraw)
	if err == nil && outcome == OutcomeDiscarded {
		outcome, issuses, err = ak.check(ctx, when, globalState, attackerSends{}, killableOnly)
	}
	ak.logOutcome(globalState, when, outcome, err)
	return issuses, err
}
