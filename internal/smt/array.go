package smt

import (
	"github.com/pkg/errors"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
)

// Yices的Array可以通过function实现，Set就是function update

// Array implementation of symbolic array
type Array struct {
	name   string
	domain uint32
	rng    uint32
	term   yices2.TermT
}

func NewArray(name string) Array {
	return NewArrayWithRange(name, DefaultBitVecSize, DefaultBitVecSize)
}

func NewArrayWithRange(name string, domain, rng uint32) Array {
	funcType := yices2.FunctionType1(yices2.BvType(domain), yices2.BvType(rng))
	term := yices2.NewUninterpretedTerm(funcType)
	if name != "" {
		yices2.SetTermName(term, name)
	}
	return Array{
		name:   name,
		domain: domain,
		rng:    rng,
		term:   term,
	}
}

func (array *Array) GetName() string {
	return array.name
}

func (array *Array) GetRange() uint32 {
	return array.rng
}

func (array *Array) GetRaw() yices2.TermT {
	return array.term
}

func (array *Array) Get(index *BitVec) (*BitVec, error) {
	term := yices2.Application1(array.term, index.PadToSize(array.domain).GetRaw())
	if term == yices2.NullTerm {
		return nil, errors.Errorf("array %s get: %s", array.name, yices2.ErrorString())
	}
	return NewBitVecFromTerm(term), nil
}

func (array *Array) Set(index, value *BitVec) error {
	term := yices2.Update1(array.term, index.PadToSize(array.domain).GetRaw(), value.PadToSize(array.rng).GetRaw())
	if term == yices2.NullTerm {
		return errors.Errorf("array %s set: %s", array.name, yices2.ErrorString())
	}
	array.term = term
	return nil
}
