package state

import (
	"fmt"

	"gdetector/internal/smt"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
)

type Calldata interface {
	GetTxID() string
	Size() *smt.BitVec
	GetByteAt(index *smt.BitVec) (*smt.BitVec, error)
}

// SymbolicCalldata 大小和内容都是符号值
type SymbolicCalldata struct {
	txID string
	size *smt.BitVec
	data smt.Array
}

func NewSymbolicCalldata(txID string) *SymbolicCalldata {
	return &SymbolicCalldata{
		txID: txID,
		size: smt.NewBitVec(fmt.Sprintf("%s_calldatasize", txID), smt.DefaultBitVecSize),
		data: smt.NewArrayWithRange(fmt.Sprintf("%s_calldata", txID), smt.DefaultBitVecSize, 8),
	}
}

func (cd *SymbolicCalldata) GetTxID() string {
	return cd.txID
}

func (cd *SymbolicCalldata) Size() *smt.BitVec {
	return cd.size
}

func (cd *SymbolicCalldata) GetByteAt(index *smt.BitVec) (*smt.BitVec, error) {
	return cd.data.Get(index)
}

type ConcreteCalldata struct {
	txID string
	data []byte
}

func NewConcreteCalldata(txID string, data []byte) *ConcreteCalldata {
	cd := &ConcreteCalldata{
		txID: txID,
		data: make([]byte, len(data)),
	}
	copy(cd.data, data)
	return cd
}

func (cd *ConcreteCalldata) GetTxID() string {
	return cd.txID
}

func (cd *ConcreteCalldata) Size() *smt.BitVec {
	return smt.NewBitVecValFromInt64(int64(len(cd.data)), smt.DefaultBitVecSize)
}

// GetByteAt 越界读0
func (cd *ConcreteCalldata) GetByteAt(index *smt.BitVec) (*smt.BitVec, error) {
	if !index.IsSymbolic() {
		i := index.GetBigInt()
		if !i.IsInt64() || i.Int64() >= int64(len(cd.data)) {
			return smt.NewBitVecValFromInt64(0, 8), nil
		}
		return smt.NewBitVecValFromInt64(int64(cd.data[i.Int64()]), 8), nil
	}
	result := smt.NewBitVecValFromInt64(0, 8)
	for i := len(cd.data) - 1; i >= 0; i-- {
		cond := index.Eq(smt.NewBitVecValFromInt64(int64(i), index.Size()))
		value := smt.NewBitVecValFromInt64(int64(cd.data[i]), 8)
		result = smt.NewBitVecFromTerm(yices2.Ite(cond.GetRaw(), value.GetRaw(), result.GetRaw()))
	}
	return result, nil
}
