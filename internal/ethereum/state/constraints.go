package state

import (
	"gdetector/internal/smt"
)

// Constraint 路径约束，只追加
type Constraint struct {
	constraints []smt.Bool
}

func NewConstraints(constraints ...smt.Bool) *Constraint {
	c := &Constraint{
		constraints: make([]smt.Bool, len(constraints)),
	}
	copy(c.constraints, constraints)
	return c
}

func (c *Constraint) Append(values ...smt.Bool) {
	c.constraints = append(c.constraints, values...)
}

func (c *Constraint) Len() int {
	return len(c.constraints)
}

// GetConstraints 返回副本
func (c *Constraint) GetConstraints() []smt.Bool {
	result := make([]smt.Bool, len(c.constraints))
	copy(result, c.constraints)
	return result
}

// With 路径约束加上extra，不修改c
func (c *Constraint) With(extra ...smt.Bool) []smt.Bool {
	result := make([]smt.Bool, 0, len(c.constraints)+len(extra))
	result = append(result, c.constraints...)
	return append(result, extra...)
}

func (c *Constraint) Clone() *Constraint {
	return NewConstraints(c.constraints...)
}
