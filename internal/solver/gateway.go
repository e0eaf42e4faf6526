package solver

import (
	"context"
	"math/big"
	"time"

	"gdetector/internal/ethereum/state"
	"gdetector/internal/smt"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrUnsatisfiable 约束无解，这条路径上没有问题
	ErrUnsatisfiable = errors.New("unsatisfiable")
	// ErrSolverTimeout 求解超时，结果未知，不能当作unsat
	ErrSolverTimeout = errors.New("solver timeout")
)

// Gateway constraints需要包含路径约束，gs只用于构造见证
type Gateway interface {
	Solve(ctx context.Context, gs *state.GlobalState, constraints []smt.Bool) (*TransactionSequence, error)
}

// AxiomSource 求解时额外断言的公理，例如keccak的约束
type AxiomSource interface {
	CreateConditions() smt.Bool
}

type Options struct {
	Timeout            time.Duration
	MaxCalldataSize    int64
	MaxStartingBalance *big.Int
}

func DefaultOptions() Options {
	return Options{
		Timeout:            10 * time.Second,
		MaxCalldataSize:    5000,
		MaxStartingBalance: new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil),
	}
}

type YicesGateway struct {
	opts    Options
	axioms  AxiomSource
	metrics *Metrics
}

func NewYicesGateway(opts Options, axioms AxiomSource, metrics *Metrics) *YicesGateway {
	return &YicesGateway{
		opts:    opts,
		axioms:  axioms,
		metrics: metrics,
	}
}

func (g *YicesGateway) Solve(ctx context.Context, gs *state.GlobalState, constraints []smt.Bool) (*TransactionSequence, error) {
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	terms := make([]yices2.TermT, 0, len(constraints)+8)
	for _, c := range constraints {
		terms = append(terms, c.GetRaw())
	}
	if g.axioms != nil {
		terms = append(terms, g.axioms.CreateConditions().GetRaw())
	}
	bounds, err := g.minimisationConstraints(gs.WorldState)
	if err != nil {
		return nil, errors.Wrap(err, "minimisationConstraints")
	}
	for _, b := range bounds {
		terms = append(terms, b.GetRaw())
	}

	start := time.Now()
	solver := smt.NewSolver()
	defer solver.Close()
	status, model, err := solver.CheckContext(ctx, terms...)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, smt.ErrInterrupted) {
			g.metrics.observe(OutcomeTimeout, elapsed)
			log.WithFields(log.Fields{
				"constraints": len(constraints),
				"elapsed":     elapsed,
			}).Warn("solver timeout")
			return nil, errors.Wrap(ErrSolverTimeout, err.Error())
		}
		g.metrics.observe(OutcomeError, elapsed)
		return nil, errors.Wrap(err, "CheckContext")
	}
	if status == yices2.StatusUnsat || model == nil {
		g.metrics.observe(OutcomeUnsat, elapsed)
		return nil, ErrUnsatisfiable
	}
	g.metrics.observe(OutcomeSat, elapsed)

	ts, err := newTransactionSequence(gs.WorldState, model, g.opts.MaxCalldataSize)
	if err != nil {
		model.Close()
		return nil, errors.Wrap(err, "newTransactionSequence")
	}
	return ts, nil
}

// minimisationConstraints calldata大小和初始余额的上界，让见证的数值保持在合理范围
func (g *YicesGateway) minimisationConstraints(ws *state.WorldState) ([]smt.Bool, error) {
	var result []smt.Bool
	if g.opts.MaxCalldataSize > 0 {
		maxSize := smt.NewBitVecValFromInt64(g.opts.MaxCalldataSize, smt.DefaultBitVecSize)
		for _, tx := range ws.TransactionSequence {
			result = append(result, *tx.GetCalldata().Size().Ule(maxSize))
		}
	}
	if g.opts.MaxStartingBalance != nil {
		maxBalance := smt.NewBitVecValFromBigInt(g.opts.MaxStartingBalance, smt.DefaultBitVecSize)
		for _, address := range balanceHolders(ws) {
			balance, err := ws.GetStartingBalance(state.AddressBitVec(address))
			if err != nil {
				return nil, err
			}
			result = append(result, *balance.Ule(maxBalance))
		}
	}
	return result, nil
}
