package solver

import (
	"fmt"
	"math/big"
	"strings"

	"gdetector/internal/ethereum/state"
	"gdetector/internal/smt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// ConcreteTransaction 见证中的一笔交易
type ConcreteTransaction struct {
	ID      string                `json:"id"`
	Kind    state.TransactionKind `json:"kind"`
	Caller  common.Address        `json:"caller"`
	Origin  common.Address        `json:"origin"`
	Address common.Address        `json:"address"`
	Value   *uint256.Int          `json:"value"`
	Input   hexutil.Bytes         `json:"input"`
}

// TransactionSequence 求解得到的见证，按顺序重放可以到达违规状态
type TransactionSequence struct {
	Steps           []ConcreteTransaction           `json:"steps"`
	InitialBalances map[common.Address]*uint256.Int `json:"initialBalances"`

	model *smt.Model
}

// Holds 在见证的model下对约束求值
func (ts *TransactionSequence) Holds(constraint smt.Bool) (bool, error) {
	if ts == nil || ts.model == nil || ts.model.GetRaw() == nil {
		return false, errors.New("no model")
	}
	return ts.model.BoolValue(constraint)
}

// Eval 在见证的model下对bitvec求值
func (ts *TransactionSequence) Eval(bv *smt.BitVec) (*big.Int, error) {
	if ts == nil || ts.model == nil || ts.model.GetRaw() == nil {
		return nil, errors.New("no model")
	}
	return evalBig(ts.model, bv), nil
}

// Close 释放model，之后Holds/Eval返回错误，Steps仍然可用
func (ts *TransactionSequence) Close() {
	if ts == nil {
		return
	}
	ts.model.Close()
}

func (ts *TransactionSequence) String() string {
	var b strings.Builder
	for _, step := range ts.Steps {
		fmt.Fprintf(&b, "%s %s: %s -> %s value=%s input=%s\n",
			step.ID, step.Kind, step.Caller.Hex(), step.Address.Hex(), step.Value.ToBig().String(), step.Input.String())
	}
	return b.String()
}

// evalBig 没有出现在约束里的符号不在model中，取任意值都成立，这里取0
func evalBig(model *smt.Model, bv *smt.BitVec) *big.Int {
	value, err := model.BitVecValue(bv)
	if err != nil {
		return new(big.Int)
	}
	return value
}

func evalUint256(model *smt.Model, bv *smt.BitVec) (*uint256.Int, error) {
	value := evalBig(model, bv)
	result, overflow := uint256.FromBig(value)
	if overflow {
		return nil, errors.Errorf("value %s overflows uint256", value.String())
	}
	return result, nil
}

func evalAddress(model *smt.Model, bv *smt.BitVec) common.Address {
	return common.BigToAddress(evalBig(model, bv))
}

func evalCalldata(model *smt.Model, calldata state.Calldata, maxSize int64) (hexutil.Bytes, error) {
	size := evalBig(model, calldata.Size())
	if size.Cmp(big.NewInt(maxSize)) > 0 {
		size = big.NewInt(maxSize)
	}
	n := size.Int64()
	input := make([]byte, n)
	for i := int64(0); i < n; i++ {
		b, err := calldata.GetByteAt(smt.NewBitVecValFromInt64(i, smt.DefaultBitVecSize))
		if err != nil {
			return nil, errors.Wrapf(err, "calldata byte %d", i)
		}
		input[i] = byte(evalBig(model, b).Uint64())
	}
	return input, nil
}

// newTransactionSequence 从model中取出每笔交易和初始余额的具体值
func newTransactionSequence(ws *state.WorldState, model *smt.Model, maxCalldataSize int64) (*TransactionSequence, error) {
	ts := &TransactionSequence{
		Steps:           make([]ConcreteTransaction, 0, len(ws.TransactionSequence)),
		InitialBalances: make(map[common.Address]*uint256.Int),
		model:           model,
	}
	for _, tx := range ws.TransactionSequence {
		step := ConcreteTransaction{
			ID:   tx.GetTxID(),
			Kind: tx.Kind(),
		}
		step.Caller = evalAddress(model, tx.GetCaller())
		step.Origin = evalAddress(model, tx.GetOrigin())
		var err error
		if callee := tx.GetCallee(); callee != nil {
			step.Address = callee.GetAddress()
		}
		if step.Value, err = evalUint256(model, tx.GetCallValue()); err != nil {
			return nil, errors.Wrapf(err, "tx %s value", step.ID)
		}
		if step.Input, err = evalCalldata(model, tx.GetCalldata(), maxCalldataSize); err != nil {
			return nil, errors.Wrapf(err, "tx %s input", step.ID)
		}
		ts.Steps = append(ts.Steps, step)
	}
	for _, address := range balanceHolders(ws) {
		balance, err := ws.GetStartingBalance(state.AddressBitVec(address))
		if err != nil {
			return nil, errors.Wrap(err, "starting balance")
		}
		value, err := evalUint256(model, balance)
		if err != nil {
			return nil, errors.Wrapf(err, "starting balance of %s", address.Hex())
		}
		ts.InitialBalances[address] = value
	}
	return ts, nil
}

// balanceHolders 所有账户加上三个actor
func balanceHolders(ws *state.WorldState) []common.Address {
	result := []common.Address{state.CreatorAddress, state.AttackerAddress, state.SomeGuyAddress}
	for _, account := range ws.SortedAccounts() {
		if !state.IsActor(account.GetAddress()) {
			result = append(result, account.GetAddress())
		}
	}
	return result
}
