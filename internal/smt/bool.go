package smt

import (
	"fmt"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
)

type Bool struct {
	name  string
	value yices2.TermT
}

func NewBoolVal(value bool) Bool {
	if value {
		return Bool{value: yices2.True()}
	}
	return Bool{value: yices2.False()}
}

func NewBool(name string) Bool {
	term := yices2.NewUninterpretedTerm(yices2.BoolType())
	if errcode := yices2.SetTermName(term, name); errcode < 0 {
		fmt.Println("set term name ", errcode)
	}
	return Bool{
		name:  name,
		value: term,
	}
}

func NewBoolFromTerm(term yices2.TermT) Bool {
	return Bool{value: term}
}

// And 合取，空参数为true
func And(bools ...Bool) Bool {
	if len(bools) == 0 {
		return NewBoolVal(true)
	}
	terms := make([]yices2.TermT, len(bools))
	for i := range bools {
		terms[i] = bools[i].value
	}
	return Bool{value: yices2.And(terms)}
}

// Or 析取，空参数为false
func Or(bools ...Bool) Bool {
	if len(bools) == 0 {
		return NewBoolVal(false)
	}
	terms := make([]yices2.TermT, len(bools))
	for i := range bools {
		terms[i] = bools[i].value
	}
	return Bool{value: yices2.Or(terms)}
}

func (b Bool) GetRaw() yices2.TermT {
	return b.value
}

func (b Bool) Type() string {
	return BoolType
}

func (b Bool) Size() uint32 {
	return 0
}

func (b Bool) Not() Bool {
	return Bool{value: yices2.Not(b.value)}
}

func (b Bool) IsSymbolic() bool {
	return yices2.TermConstructor(b.value) != yices2.TrmCnstrBoolConstant
}

func (b Bool) IsTrue() bool {
	if b.IsSymbolic() {
		return false
	}
	var val int32
	yices2.BoolConstValue(b.value, &val)
	return val != 0
}

func (b Bool) IsFalse() bool {
	if b.IsSymbolic() {
		return false
	}
	var val int32
	yices2.BoolConstValue(b.value, &val)
	return val == 0
}

// AsBitVec 256位的0/1
func (b Bool) AsBitVec() *BitVec {
	term := yices2.Ite(b.value, yices2.BvconstInt64(DefaultBitVecSize, 1), yices2.BvconstInt64(DefaultBitVecSize, 0))
	return &BitVec{
		name:  b.name,
		value: term,
	}
}
