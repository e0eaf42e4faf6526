package module

import (
	"context"

	"gdetector/internal/ethereum/state"
	"gdetector/internal/issuse"

	log "github.com/sirupsen/logrus"
)

// PoolLiveness pool发出CALL之后attacker持有token
type PoolLiveness struct {
	*BaseModule
}

func NewPoolLiveness() *PoolLiveness {
	bm := newBaseModule("PoolLiveness", SWCDataMap["PoolLiveness"], issuse.SeverityMedium, DeferredCheck, PoolTokenHolding{})
	bm.postHooks = []string{"CALL"}
	return &PoolLiveness{BaseModule: bm}
}

func (pl *PoolLiveness) Execute(ctx context.Context, when HookWhen, globalState *state.GlobalState) ([]*issuse.Issuse, error) {
	log.Info("Entering PoolLiveness")
	defer log.Info("Exiting PoolLiveness")

	return pl.execute(ctx, when, globalState)
}
