package gscanner

import (
	"context"
	"time"

	"gdetector/internal/ethereum/state"
	"gdetector/internal/issuse"
	"gdetector/internal/module"
	"gdetector/internal/smt"
	"gdetector/internal/solver"
	"gdetector/internal/strategy"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Options struct {
	Detection module.DetectionConfig
	Solver    solver.Options
	Metrics   *solver.Metrics
	// Strategy 路径的处理顺序，bfs或dfs
	Strategy string
}

func DefaultOptions() Options {
	return Options{
		Detection: module.DefaultDetectionConfig(),
		Solver:    solver.DefaultOptions(),
	}
}

// Analyzer 管理一次分析的run，转发hook，并在路径结束时确认延迟检查的问题
type Analyzer struct {
	moduleManager *module.ModuleManager
	roles         *module.RoleResolver
	opts          Options

	run *module.Run
	// timedOut 当前仍然超时的延迟问题，resolved 曾经超时、之后有了结论的
	timedOut map[*issuse.PotentialIssuse]bool
	resolved map[*issuse.PotentialIssuse]bool
}

func NewAnalyzer(mm *module.ModuleManager, roles *module.RoleResolver, opts Options) *Analyzer {
	if roles == nil {
		roles = module.NewRoleResolver(nil)
	}
	return &Analyzer{
		moduleManager: mm,
		roles:         roles,
		opts:          opts,
		timedOut:      make(map[*issuse.PotentialIssuse]bool),
		resolved:      make(map[*issuse.PotentialIssuse]bool),
	}
}

// NewRun 开始新的分析，上一次run的角色缓存、keccak缓存和模块结果都丢弃
func (ma *Analyzer) NewRun() *module.Run {
	if ma.run != nil {
		ma.roles.Forget(ma.run.ID)
	}
	ma.run = module.NewRun(ma.opts.Detection, ma.roles, ma.opts.Solver, ma.opts.Metrics)
	ma.timedOut = make(map[*issuse.PotentialIssuse]bool)
	ma.resolved = make(map[*issuse.PotentialIssuse]bool)
	ma.moduleManager.Reset(ma.run)
	log.WithField("run", ma.run.ID).Info("analysis run started")
	return ma.run
}

func (ma *Analyzer) Run() *module.Run {
	return ma.run
}

// PreHook gs的pc指向即将执行的指令
func (ma *Analyzer) PreHook(ctx context.Context, gs *state.GlobalState) ([]*issuse.Issuse, error) {
	instruction, err := gs.GetCurrentInstruction()
	if err != nil {
		return nil, errors.Wrap(err, "GetCurrentInstruction")
	}
	return ma.moduleManager.Fire(ctx, module.PreHook, instruction.OPCode, gs), nil
}

// PostHook gs的pc已经越过刚执行的指令
func (ma *Analyzer) PostHook(ctx context.Context, gs *state.GlobalState) ([]*issuse.Issuse, error) {
	instruction, err := gs.GetPreviousInstruction()
	if err != nil {
		return nil, errors.Wrap(err, "GetPreviousInstruction")
	}
	return ma.moduleManager.Fire(ctx, module.PostHook, instruction.OPCode, gs), nil
}

// CheckPotentialIssues 在路径结束时求解挂在gs上的延迟问题
// sat的问题转为Issuse，unsat的丢弃，超时的保留并记为inconclusive
func (ma *Analyzer) CheckPotentialIssues(ctx context.Context, gs *state.GlobalState) ([]*issuse.Issuse, error) {
	if ma.run == nil {
		return nil, errors.New("no run, call NewRun first")
	}
	anno := issuse.GetPotentialIssusesAnnotation(gs)
	var (
		pending  []*issuse.PotentialIssuse
		result   []*issuse.Issuse
		firstErr error
	)
	for _, pi := range anno.Elements() {
		dm, ok := ma.moduleManager.ModuleByName(pi.Detector)
		if !ok {
			log.WithField("detector", pi.Detector).Warn("potential issue from unknown detector dropped")
			continue
		}
		if dm.HasIssuse(pi.Provenance) {
			continue
		}
		fields := log.Fields{
			"detector": pi.Detector,
			"contract": pi.Contract,
			"address":  pi.Address,
		}
		ts, err := ma.run.Solver.Solve(ctx, gs, gs.GetConstraint().With(pi.Constraints...))
		if err == nil || errors.Is(err, solver.ErrUnsatisfiable) {
			ma.settle(pi)
		}
		switch {
		case errors.Is(err, solver.ErrUnsatisfiable):
			log.WithFields(fields).Debug("potential issue discarded")
		case errors.Is(err, solver.ErrSolverTimeout):
			log.WithFields(fields).Warn("potential issue inconclusive")
			pending = append(pending, pi)
			if !ma.timedOut[pi] {
				ma.timedOut[pi] = true
				dm.AddInconclusive(pi)
			}
		case err != nil:
			pending = append(pending, pi)
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "solve %s at %d", pi.Detector, pi.Address)
			}
		default:
			is := issuse.NewIssuse(pi.Provenance, ts, issuse.GasUsed{
				Min: gs.MachineState.GetGasUsedMin(),
				Max: gs.MachineState.GetGasUsedMax(),
			})
			if !dm.AddIssuse(is) {
				ts.Close()
				continue
			}
			gs.AddAnnotation(issuse.NewIssuseAnnotation(pi.Detector, is, pi.Constraints))
			log.WithFields(fields).Info("potential issue confirmed")
			result = append(result, is)
		}
	}
	anno.Replace(pending)
	return result, firstErr
}

func (ma *Analyzer) settle(pi *issuse.PotentialIssuse) {
	if ma.timedOut[pi] {
		delete(ma.timedOut, pi)
		ma.resolved[pi] = true
	}
}

func (ma *Analyzer) RetrieveIssuses() []*issuse.Issuse {
	var result []*issuse.Issuse
	for _, dm := range ma.moduleManager.Modules() {
		result = append(result, dm.GetIssuses()...)
	}
	return result
}

// Inconclusive 超时并且之后没有得到结论的问题
func (ma *Analyzer) Inconclusive() []*issuse.PotentialIssuse {
	var result []*issuse.PotentialIssuse
	for _, dm := range ma.moduleManager.Modules() {
		for _, pi := range dm.GetInconclusive() {
			if !ma.resolved[pi] && !dm.HasIssuse(pi.Provenance) {
				result = append(result, pi)
			}
		}
	}
	return result
}

// Report 一次Replay的结果
type Report struct {
	Scenario     string
	Issuses      []*issuse.Issuse
	Inconclusive []*issuse.PotentialIssuse
	Duration     time.Duration
}

// Replay 在一个新的run中依次回放场景里的每条路径
func (ma *Analyzer) Replay(ctx context.Context, sc *Scenario) (*Report, error) {
	startTime := time.Now()
	ma.NewRun()

	paths, err := strategy.New[PathSpec](ma.opts.Strategy)
	if err != nil {
		return nil, err
	}
	if err := paths.Push(sc.Paths...); err != nil {
		return nil, err
	}
	for paths.HasNext() {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "replay cancelled")
		}
		path, err := paths.Pop()
		if err != nil {
			return nil, err
		}
		if err := ma.replayPath(ctx, sc, path); err != nil {
			return nil, errors.Wrapf(err, "path %s", path.Name)
		}
	}

	report := &Report{
		Scenario:     sc.Name,
		Issuses:      ma.RetrieveIssuses(),
		Inconclusive: ma.Inconclusive(),
		Duration:     time.Since(startTime),
	}
	log.WithFields(log.Fields{
		"scenario":     sc.Name,
		"issuses":      len(report.Issuses),
		"inconclusive": len(report.Inconclusive),
	}).Infof("analyze time used: %s", report.Duration)
	return report, nil
}

func (ma *Analyzer) replayPath(ctx context.Context, sc *Scenario, path PathSpec) error {
	log.Infof("replaying path %s with %d events", path.Name, len(path.Events))
	pb := newPathBuilder(ma.run)
	if _, err := pb.worldState(sc, path); err != nil {
		return err
	}

	var (
		annotations []smt.Annotation
		last        *state.GlobalState
	)
	for i, event := range path.Events {
		gs, err := pb.globalState(event, annotations)
		if err != nil {
			return errors.Wrapf(err, "event %d", i)
		}
		when, _ := event.hookWhen()
		if when == module.PostHook {
			_, err = ma.PostHook(ctx, gs)
		} else {
			_, err = ma.PreHook(ctx, gs)
		}
		if err != nil {
			return errors.Wrapf(err, "event %d", i)
		}
		if err := pb.applyEffects(event); err != nil {
			return errors.Wrapf(err, "event %d effects", i)
		}
		annotations = gs.GetAnnotations()
		last = gs
	}
	if last == nil {
		return nil
	}
	_, err := ma.CheckPotentialIssues(ctx, last)
	return err
}
