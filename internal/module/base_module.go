package module

import (
	"context"
	"sync"
	"sync/atomic"

	"gdetector/internal/ethereum/state"
	"gdetector/internal/issuse"
	"gdetector/internal/smt"
	"gdetector/internal/solver"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// CheckStrategy hook里直接求解还是留给之后的汇总
type CheckStrategy int

const (
	EagerCheck CheckStrategy = iota
	DeferredCheck
)

func (s CheckStrategy) String() string {
	if s == DeferredCheck {
		return "deferred"
	}
	return "eager"
}

// Outcome 一次hook调用的结果
type Outcome int

const (
	OutcomeDiscarded Outcome = iota
	OutcomeReported
	OutcomeDeferred
	OutcomeInconclusive
	OutcomeAborted
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDiscarded:
		return "discarded"
	case OutcomeReported:
		return "reported"
	case OutcomeDeferred:
		return "deferred"
	case OutcomeInconclusive:
		return "inconclusive"
	case OutcomeAborted:
		return "aborted"
	case OutcomeSkipped:
		return "skipped"
	}
	return "unknown"
}

// Phase 模块实例当前所处的阶段
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseHookTriggered
	PhaseSynthesizing
	PhaseSolving
	PhaseReported
	PhaseDiscarded
)

type BaseModule struct {
	name      string
	swcData   *SWCData // SWC信息
	severity  string
	strategy  CheckStrategy
	policy    Policy
	preHooks  []string // 在这些指令执行前，执行本模块的hook
	postHooks []string // 在这些指令执行后，执行本模块的hook

	// phase 只反映最近一次调用，多个goroutine同时调用Execute时没有意义
	phase int32

	mu           sync.Mutex
	run          *Run
	issuses      []*issuse.Issuse
	inconclusive []*issuse.PotentialIssuse
	cache        map[string]struct{}
}

func newBaseModule(name string, swcData *SWCData, severity string, strategy CheckStrategy, policy Policy) *BaseModule {
	return &BaseModule{
		name:     name,
		swcData:  swcData,
		severity: severity,
		strategy: strategy,
		policy:   policy,
		cache:    make(map[string]struct{}),
	}
}

func (bm *BaseModule) Name() string {
	return bm.name
}

func (bm *BaseModule) GetPreHooks() []string {
	return bm.preHooks
}

func (bm *BaseModule) GetPostHooks() []string {
	return bm.postHooks
}

func (bm *BaseModule) GetStrategy() CheckStrategy {
	return bm.strategy
}

func (bm *BaseModule) GetSWCData() *SWCData {
	return bm.swcData
}

// Phase 只在顺序分发hook时有意义
func (bm *BaseModule) Phase() Phase {
	return Phase(atomic.LoadInt32(&bm.phase))
}

func (bm *BaseModule) setPhase(p Phase) {
	atomic.StoreInt32(&bm.phase, int32(p))
}

// Reset 新的run开始时清空上一轮的结果和缓存，上一轮见证的model随之释放
func (bm *BaseModule) Reset(run *Run) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	for _, is := range bm.issuses {
		is.TransactionSequence.Close()
	}
	bm.run = run
	bm.issuses = nil
	bm.inconclusive = nil
	bm.cache = make(map[string]struct{})
	bm.setPhase(PhaseIdle)
}

func (bm *BaseModule) currentRun() *Run {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return bm.run
}

// AddIssuse 同一合约同一地址只保留第一个
func (bm *BaseModule) AddIssuse(is *issuse.Issuse) bool {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	key := is.Key()
	if _, ok := bm.cache[key]; ok {
		return false
	}
	bm.cache[key] = struct{}{}
	bm.issuses = append(bm.issuses, is)
	return true
}

func (bm *BaseModule) HasIssuse(p issuse.Provenance) bool {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	_, ok := bm.cache[p.Key()]
	return ok
}

func (bm *BaseModule) AddInconclusive(pi *issuse.PotentialIssuse) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	bm.inconclusive = append(bm.inconclusive, pi)
}

func (bm *BaseModule) GetIssuses() []*issuse.Issuse {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	result := make([]*issuse.Issuse, len(bm.issuses))
	copy(result, bm.issuses)
	return result
}

func (bm *BaseModule) GetInconclusive() []*issuse.PotentialIssuse {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	result := make([]*issuse.PotentialIssuse, len(bm.inconclusive))
	copy(result, bm.inconclusive)
	return result
}

// hookedInstruction post hook的state里pc已经越过了触发的指令
func (bm *BaseModule) hookedInstruction(gs *state.GlobalState, when HookWhen) (state.Instruction, error) {
	if when == PostHook {
		return gs.GetPreviousInstruction()
	}
	return gs.GetCurrentInstruction()
}

func (bm *BaseModule) provenance(gs *state.GlobalState, address int, descriptionTail string) issuse.Provenance {
	p := issuse.Provenance{
		Contract:        gs.ActiveContractName(),
		FunctionName:    gs.ActiveFunctionName(),
		Address:         address,
		Severity:        bm.severity,
		DescriptionTail: descriptionTail,
		Detector:        bm.name,
	}
	if gs.Enviroment != nil {
		p.Bytecode = gs.Enviroment.Code.GetBytecode()
	}
	if bm.swcData != nil {
		p.SWCID = bm.swcData.ID
		p.Title = bm.swcData.Title
		p.DescriptionHead = bm.swcData.Description
	}
	return p
}

// isRecoverable AccessError和InsufficientContext只放弃本次hook
func isRecoverable(err error) bool {
	return errors.Is(err, state.ErrAccess) || errors.Is(err, ErrInsufficientContext)
}

// execute 按默认policy跑一次
func (bm *BaseModule) execute(ctx context.Context, when HookWhen, gs *state.GlobalState) ([]*issuse.Issuse, error) {
	outcome, issuses, err := bm.check(ctx, when, gs, bm.policy, "")
	bm.logOutcome(gs, when, outcome, err)
	return issuses, err
}

// check Idle → HookTriggered → Synthesizing → Solving → Reported | Discarded → Idle
func (bm *BaseModule) check(ctx context.Context, when HookWhen, gs *state.GlobalState, policy Policy, descriptionTail string) (Outcome, []*issuse.Issuse, error) {
	bm.setPhase(PhaseHookTriggered)
	defer bm.setPhase(PhaseIdle)

	run := bm.currentRun()
	if run == nil {
		return OutcomeAborted, nil, errors.Errorf("module %s has no run, call Reset first", bm.name)
	}
	instruction, err := bm.hookedInstruction(gs, when)
	if err != nil {
		return OutcomeAborted, nil, errors.Wrap(err, "hookedInstruction")
	}
	p := bm.provenance(gs, instruction.Address, descriptionTail)
	if bm.HasIssuse(p) {
		return OutcomeSkipped, nil, nil
	}

	bm.setPhase(PhaseSynthesizing)
	extra, err := policy.Synthesize(run, gs)
	if err != nil {
		if isRecoverable(err) {
			log.WithFields(log.Fields{
				"module": bm.name,
				"policy": policy.Name(),
			}).WithError(err).Debug("synthesis aborted")
			return OutcomeAborted, nil, nil
		}
		return OutcomeAborted, nil, errors.Wrapf(err, "%s.Synthesize", policy.Name())
	}
	constraints := gs.GetConstraint().With(extra...)

	if bm.strategy == DeferredCheck {
		issuse.GetPotentialIssusesAnnotation(gs).Append(issuse.NewPotentialIssuse(p, constraints))
		return OutcomeDeferred, nil, nil
	}

	bm.setPhase(PhaseSolving)
	ts, err := run.Solver.Solve(ctx, gs, constraints)
	switch {
	case errors.Is(err, solver.ErrUnsatisfiable):
		bm.setPhase(PhaseDiscarded)
		return OutcomeDiscarded, nil, nil
	case errors.Is(err, solver.ErrSolverTimeout):
		bm.AddInconclusive(issuse.NewPotentialIssuse(p, constraints))
		return OutcomeInconclusive, nil, nil
	case err != nil:
		return OutcomeAborted, nil, errors.Wrap(err, "Solve")
	}

	bm.setPhase(PhaseReported)
	is := issuse.NewIssuse(p, ts, issuse.GasUsed{
		Min: gs.MachineState.GetGasUsedMin(),
		Max: gs.MachineState.GetGasUsedMax(),
	})
	if !bm.AddIssuse(is) {
		ts.Close()
		return OutcomeSkipped, nil, nil
	}
	gs.AddAnnotation(issuse.NewIssuseAnnotation(bm.name, is, []smt.Bool{smt.And(constraints...)}))
	return OutcomeReported, []*issuse.Issuse{is}, nil
}

func (bm *BaseModule) logOutcome(gs *state.GlobalState, when HookWhen, outcome Outcome, err error) {
	fields := log.Fields{
		"module":   bm.name,
		"hook":     string(when),
		"outcome":  outcome.String(),
		"contract": gs.ActiveContractName(),
	}
	if instruction, e := bm.hookedInstruction(gs, when); e == nil {
		fields["opcode"] = instruction.OPCode
		fields["address"] = instruction.Address
	}
	entry := log.WithFields(fields)
	switch {
	case err != nil:
		entry.WithError(err).Error("hook failed")
	case outcome == OutcomeInconclusive:
		entry.Warn("hook inconclusive")
	case outcome == OutcomeReported:
		entry.Info("issue reported")
	default:
		entry.Debug("hook finished")
	}
}

type DetectionModule interface {
	Name() string
	Execute(ctx context.Context, when HookWhen, globalState *state.GlobalState) ([]*issuse.Issuse, error)
	GetPreHooks() []string
	GetPostHooks() []string
	GetStrategy() CheckStrategy
	GetSWCData() *SWCData
	GetIssuses() []*issuse.Issuse
	GetInconclusive() []*issuse.PotentialIssuse
	AddIssuse(is *issuse.Issuse) bool
	HasIssuse(p issuse.Provenance) bool
	AddInconclusive(pi *issuse.PotentialIssuse)
	Reset(run *Run)
}
