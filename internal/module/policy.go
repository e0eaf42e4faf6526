package module

import (
	"gdetector/internal/ethereum/state"
	"gdetector/internal/smt"

	"github.com/pkg/errors"
)

// Policy 把一种漏洞模式编码成额外的约束，返回的约束不含路径约束
type Policy interface {
	Name() string
	Synthesize(run *Run, gs *state.GlobalState) ([]smt.Bool, error)
}

func zero() *smt.BitVec {
	return smt.NewBitVecValFromInt64(0, smt.DefaultBitVecSize)
}

func attacker() *smt.BitVec {
	return state.AddressBitVec(state.AttackerAddress)
}

// attackerSlot attacker在余额mapping里的slot
func attackerSlot(run *Run) *smt.BitVec {
	base := smt.NewBitVecValFromBigInt(run.Config.BalanceSlot, smt.DefaultBitVecSize)
	return run.Keccak.DeriveSlot(attacker(), base)
}

// EtherExtraction attacker的余额大于0
type EtherExtraction struct{}

func (EtherExtraction) Name() string {
	return "EtherExtraction"
}

func (EtherExtraction) Synthesize(run *Run, gs *state.GlobalState) ([]smt.Bool, error) {
	balance, err := gs.GetBalance(attacker())
	if err != nil {
		return nil, errors.Wrap(err, "GetBalance")
	}
	return []smt.Bool{*smt.UGT(balance, zero())}, nil
}

type Direction int

const (
	Increase Direction = iota
	Decrease
)

func (d Direction) String() string {
	if d == Decrease {
		return "decrease"
	}
	return "increase"
}

// StorageDelta SSTORE之前：写入的slot是attacker的余额slot，且新值大于(或小于)旧值
type StorageDelta struct {
	Direction Direction
}

func (p StorageDelta) Name() string {
	return "StorageDelta(" + p.Direction.String() + ")"
}

func (p StorageDelta) Synthesize(run *Run, gs *state.GlobalState) ([]smt.Bool, error) {
	// SSTORE的操作数还在栈上：[0]是slot，[1]是value
	operands, err := gs.StackTopN(2)
	if err != nil {
		return nil, errors.Wrap(err, "StackTopN")
	}
	writeSlot, value := operands[0], operands[1]

	target, err := TargetAccount(run, gs.WorldState)
	if err != nil {
		return nil, errors.Wrap(err, "TargetAccount")
	}
	slot := attackerSlot(run)
	before, err := target.StorageGet(slot)
	if err != nil {
		return nil, errors.Wrap(err, "StorageGet")
	}
	var cmp *smt.Bool
	if p.Direction == Decrease {
		cmp = smt.ULT(value, before)
	} else {
		cmp = smt.UGT(value, before)
	}
	return []smt.Bool{*writeSlot.Eq(slot), *cmp}, nil
}

// PoolTokenHolding 调用之后attacker在token合约中的余额大于0
type PoolTokenHolding struct{}

func (PoolTokenHolding) Name() string {
	return "PoolTokenHolding"
}

func (PoolTokenHolding) Synthesize(run *Run, gs *state.GlobalState) ([]smt.Bool, error) {
	roles, err := run.Roles.Resolve(run.ID, gs.WorldState)
	if err != nil {
		return nil, errors.Wrap(err, "Resolve")
	}
	token, err := gs.GetAccount(roles.Token)
	if err != nil {
		return nil, errors.Wrap(err, "token account")
	}
	if _, err := gs.GetAccount(roles.Pool); err != nil {
		return nil, errors.Wrap(err, "pool account")
	}
	holding, err := token.StorageGet(attackerSlot(run))
	if err != nil {
		return nil, errors.Wrap(err, "StorageGet")
	}
	return []smt.Bool{*smt.UGT(holding, zero())}, nil
}

// attackerBeneficiary SELFDESTRUCT的受益人是attacker
type attackerBeneficiary struct{}

func (attackerBeneficiary) Name() string {
	return "AttackerBeneficiary"
}

func (attackerBeneficiary) Synthesize(run *Run, gs *state.GlobalState) ([]smt.Bool, error) {
	operands, err := gs.StackTopN(1)
	if err != nil {
		return nil, errors.Wrap(err, "StackTopN")
	}
	return append(attackerSenders(gs), *attacker().Eq(operands[0])), nil
}

// attackerSends 所有消息调用都由attacker直接发出
type attackerSends struct{}

func (attackerSends) Name() string {
	return "AttackerSends"
}

func (attackerSends) Synthesize(run *Run, gs *state.GlobalState) ([]smt.Bool, error) {
	return attackerSenders(gs), nil
}

func attackerSenders(gs *state.GlobalState) []smt.Bool {
	var result []smt.Bool
	for _, tx := range gs.WorldState.TransactionSequence {
		if tx.Kind() == state.ContractCreation {
			continue
		}
		result = append(result, *attacker().Eq(tx.GetCaller()), *tx.GetCaller().Eq(tx.GetOrigin()))
	}
	return result
}

// jumpTargetNotUnique 跳转目标可以取到observed以外的值
type jumpTargetNotUnique struct {
	target   *smt.BitVec
	observed *smt.BitVec
}

func (jumpTargetNotUnique) Name() string {
	return "JumpTargetNotUnique"
}

func (p jumpTargetNotUnique) Synthesize(run *Run, gs *state.GlobalState) ([]smt.Bool, error) {
	return []smt.Bool{*p.target.Ne(p.observed)}, nil
}
