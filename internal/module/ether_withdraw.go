package module

import (
	"context"

	"gdetector/internal/ethereum/state"
	"gdetector/internal/issuse"

	log "github.com/sirupsen/logrus"
)

// EtherWithdraw 调用之后attacker能拿到以太
type EtherWithdraw struct {
	*BaseModule
}

func NewEtherWithdraw() *EtherWithdraw {
	bm := newBaseModule("EtherWithdraw", SWCDataMap["105"], issuse.SeverityMedium, EagerCheck, EtherExtraction{})
	bm.postHooks = []string{"CALL", "STATICCALL"}
	return &EtherWithdraw{BaseModule: bm}
}

func (ew *EtherWithdraw) Execute(ctx context.Context, when HookWhen, globalState *state.GlobalState) ([]*issuse.Issuse, error) {
	log.Info("Entering EtherWithdraw")
	defer log.Info("Exiting EtherWithdraw")

	return ew.execute(ctx, when, globalState)
}
