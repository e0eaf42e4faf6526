package module

import (
	"context"
	"runtime/debug"
	"strings"

	"gdetector/internal/ethereum/state"
	"gdetector/internal/issuse"

	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type HookWhen string

const (
	PreHook  HookWhen = "pre"
	PostHook HookWhen = "post"
)

type ModuleManager struct {
	modules   []DetectionModule
	byName    map[string]DetectionModule
	PreHooks  map[string][]DetectionModule
	PostHooks map[string][]DetectionModule
}

func NewModuleManager() *ModuleManager {
	return &ModuleManager{
		modules:   make([]DetectionModule, 0),
		byName:    make(map[string]DetectionModule),
		PreHooks:  make(map[string][]DetectionModule),
		PostHooks: make(map[string][]DetectionModule),
	}
}

// validOpcode STOP的值是0，和未知名字无法区分，单独判断
func validOpcode(name string) bool {
	return name == "STOP" || vm.StringToOp(name) != vm.STOP
}

func (mm *ModuleManager) AddModule(dm DetectionModule) error {
	if _, ok := mm.byName[dm.Name()]; ok {
		return errors.Errorf("module %s already registered", dm.Name())
	}
	for _, hooks := range [][]string{dm.GetPreHooks(), dm.GetPostHooks()} {
		for _, opCode := range hooks {
			if !validOpcode(opCode) {
				return errors.Errorf("module %s: unknown opcode %q", dm.Name(), opCode)
			}
		}
	}
	for _, opCode := range dm.GetPreHooks() {
		mm.PreHooks[opCode] = append(mm.PreHooks[opCode], dm)
	}
	for _, opCode := range dm.GetPostHooks() {
		mm.PostHooks[opCode] = append(mm.PostHooks[opCode], dm)
	}
	mm.modules = append(mm.modules, dm)
	mm.byName[dm.Name()] = dm
	return nil
}

func (mm *ModuleManager) Modules() []DetectionModule {
	return mm.modules
}

func (mm *ModuleManager) ModuleByName(name string) (DetectionModule, bool) {
	dm, ok := mm.byName[name]
	return dm, ok
}

// Reset 所有模块切换到新的run
func (mm *ModuleManager) Reset(run *Run) {
	for _, dm := range mm.modules {
		dm.Reset(run)
	}
}

// Fire 依次调用注册在opcode上的模块，单个模块出错或panic不影响其他模块
func (mm *ModuleManager) Fire(ctx context.Context, when HookWhen, opcode string, gs *state.GlobalState) []*issuse.Issuse {
	var hooks []DetectionModule
	switch when {
	case PreHook:
		hooks = mm.PreHooks[strings.ToUpper(opcode)]
	case PostHook:
		hooks = mm.PostHooks[strings.ToUpper(opcode)]
	}
	var result []*issuse.Issuse
	for _, dm := range hooks {
		result = append(result, mm.fireOne(ctx, dm, when, opcode, gs)...)
	}
	return result
}

func (mm *ModuleManager) fireOne(ctx context.Context, dm DetectionModule, when HookWhen, opcode string, gs *state.GlobalState) (issuses []*issuse.Issuse) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"module": dm.Name(),
				"hook":   string(when),
				"opcode": opcode,
			}).Errorf("module panic: %v\n%s", r, debug.Stack())
			issuses = nil
		}
	}()
	issuses, err := dm.Execute(ctx, when, gs)
	if err != nil {
		log.WithFields(log.Fields{
			"module": dm.Name(),
			"hook":   string(when),
			"opcode": opcode,
		}).WithError(err).Error("module failed")
		return nil
	}
	return issuses
}

// AllModules 所有内置模块
func AllModules() []DetectionModule {
	return []DetectionModule{
		NewEtherWithdraw(),
		NewTokenDeposit(),
		NewTokenDrain(),
		NewPoolLiveness(),
		NewAccidentallyKillable(),
		NewArbitraryJump(),
	}
}

// NewModules names为空时返回全部模块
func NewModules(names []string) ([]DetectionModule, error) {
	all := AllModules()
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]DetectionModule, len(all))
	for _, dm := range all {
		byName[dm.Name()] = dm
	}
	result := make([]DetectionModule, 0, len(names))
	for _, name := range names {
		dm, ok := byName[name]
		if !ok {
			return nil, errors.Errorf("unknown module %q", name)
		}
		result = append(result, dm)
	}
	return result, nil
}
