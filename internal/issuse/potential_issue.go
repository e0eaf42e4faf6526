package issuse

import (
	"gdetector/internal/smt"
)

// PotentialIssuse 还没有求解的问题，Constraints成立时才是真的问题
type PotentialIssuse struct {
	Provenance
	Constraints []smt.Bool
}

func NewPotentialIssuse(p Provenance, constraints []smt.Bool) *PotentialIssuse {
	pi := &PotentialIssuse{
		Provenance:  p,
		Constraints: make([]smt.Bool, len(constraints)),
	}
	copy(pi.Constraints, constraints)
	return pi
}
