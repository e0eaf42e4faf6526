package module

import (
	"context"

	"gdetector/internal/ethereum/state"
	"gdetector/internal/issuse"

	log "github.com/sirupsen/logrus"
)

// TokenDeposit SSTORE能把attacker的token余额写大
type TokenDeposit struct {
	*BaseModule
}

func NewTokenDeposit() *TokenDeposit {
	bm := newBaseModule("TokenDeposit", SWCDataMap["TokenDeposit"], issuse.SeverityMedium, DeferredCheck, StorageDelta{Direction: Increase})
	bm.preHooks = []string{"SSTORE"}
	return &TokenDeposit{BaseModule: bm}
}

func (td *TokenDeposit) Execute(ctx context.Context, when HookWhen, globalState *state.GlobalState) ([]*issuse.Issuse, error) {
	log.Info("Entering TokenDeposit")
	defer log.Info("Exiting TokenDeposit")

	return td.execute(ctx, when, globalState)
}
