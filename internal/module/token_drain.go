package module

import (
	"context"

	"gdetector/internal/ethereum/state"
	"gdetector/internal/issuse"

	log "github.com/sirupsen/logrus"
)

// TokenDrain SSTORE能把attacker的token余额写小
type TokenDrain struct {
	*BaseModule
}

func NewTokenDrain() *TokenDrain {
	bm := newBaseModule("TokenDrain", SWCDataMap["TokenDrain"], issuse.SeverityMedium, DeferredCheck, StorageDelta{Direction: Decrease})
	bm.preHooks = []string{"SSTORE"}
	return &TokenDrain{BaseModule: bm}
}

func (td *TokenDrain) Execute(ctx context.Context, when HookWhen, globalState *state.GlobalState) ([]*issuse.Issuse, error) {
	log.Info("Entering TokenDrain")
	defer log.Info("Exiting TokenDrain")

	return td.execute(ctx, when, globalState)
}
