package smt

import (
	"math/big"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/pkg/errors"
)

// Model 一次sat求解得到的赋值
type Model struct {
	raw *yices2.ModelT
}

func NewModel(raw *yices2.ModelT) *Model {
	return &Model{raw: raw}
}

func (m *Model) GetRaw() *yices2.ModelT {
	return m.raw
}

// Close 释放yices model，可重复调用
func (m *Model) Close() {
	if m == nil || m.raw == nil {
		return
	}
	yices2.CloseModel(m.raw)
	m.raw = nil
}

// BitVecValue 在model下对任意bitvec项求值
func (m *Model) BitVecValue(bv *BitVec) (*big.Int, error) {
	if m == nil || m.raw == nil {
		return nil, errors.New("nil model")
	}
	if !bv.IsSymbolic() {
		return bv.GetBigInt(), nil
	}
	bits := make([]int32, bv.Size())
	if errcode := yices2.GetBvValue(*m.raw, bv.GetRaw(), bits); errcode != 0 {
		return nil, errors.Errorf("get bv value: %s", yices2.ErrorString())
	}
	return bitsToBigInt(bits), nil
}

// BoolValue 在model下对公式求值
func (m *Model) BoolValue(b Bool) (bool, error) {
	if m == nil || m.raw == nil {
		return false, errors.New("nil model")
	}
	var val int32
	if errcode := yices2.GetBoolValue(*m.raw, b.GetRaw(), &val); errcode != 0 {
		return false, errors.Errorf("get bool value: %s", yices2.ErrorString())
	}
	return val != 0, nil
}
