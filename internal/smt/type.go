package smt

import yices2 "github.com/ianamason/yices2_go_bindings/yices_api"

const (
	BitVecType = "bitvec"
	BoolType   = "bool"

	DefaultBitVecSize = 256
)

type StorableType interface {
	GetRaw() yices2.TermT
	Type() string
	Size() uint32
}

// Annotation 注解类型，挂在GlobalState上，用于在hook之间传递分析结果
type Annotation interface {
	Clone() Annotation
	PersistToWorldState() bool
	PersistOverCalls() bool
}
