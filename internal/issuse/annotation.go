package issuse

import (
	"sync"

	"gdetector/internal/ethereum/state"
	"gdetector/internal/smt"
)

// PotentialIssusesAnnotation 挂在GlobalState上，跟随路径
type PotentialIssusesAnnotation struct {
	sync.RWMutex
	PotentialIssuses []*PotentialIssuse
}

func NewPotentialIssusesAnnotation() *PotentialIssusesAnnotation {
	return &PotentialIssusesAnnotation{
		PotentialIssuses: make([]*PotentialIssuse, 0),
	}
}

func (anno *PotentialIssusesAnnotation) PersistToWorldState() bool {
	return false
}

func (anno *PotentialIssusesAnnotation) PersistOverCalls() bool {
	return false
}

func (anno *PotentialIssusesAnnotation) Append(items ...*PotentialIssuse) {
	anno.Lock()
	defer anno.Unlock()
	anno.PotentialIssuses = append(anno.PotentialIssuses, items...)
}

// Elements 返回副本
func (anno *PotentialIssusesAnnotation) Elements() []*PotentialIssuse {
	anno.RLock()
	defer anno.RUnlock()
	result := make([]*PotentialIssuse, len(anno.PotentialIssuses))
	copy(result, anno.PotentialIssuses)
	return result
}

func (anno *PotentialIssusesAnnotation) Replace(arr []*PotentialIssuse) {
	anno.Lock()
	defer anno.Unlock()
	anno.PotentialIssuses = arr
}

func (anno *PotentialIssusesAnnotation) Len() int {
	anno.RLock()
	defer anno.RUnlock()
	return len(anno.PotentialIssuses)
}

func (anno *PotentialIssusesAnnotation) Clone() smt.Annotation {
	return &PotentialIssusesAnnotation{
		PotentialIssuses: anno.Elements(),
	}
}

// GetPotentialIssusesAnnotation 没有的话新建一个挂上去
func GetPotentialIssusesAnnotation(globalState *state.GlobalState) *PotentialIssusesAnnotation {
	for _, annotation := range globalState.GetAnnotations() {
		if anno, ok := annotation.(*PotentialIssusesAnnotation); ok {
			return anno
		}
	}
	anno := NewPotentialIssusesAnnotation()
	globalState.AddAnnotation(anno)
	return anno
}

// IssuseAnnotation 确认的问题以及证明它的约束
type IssuseAnnotation struct {
	Detector   string
	Issue      *Issuse
	Conditions []smt.Bool
}

func NewIssuseAnnotation(detector string, issue *Issuse, conditions []smt.Bool) *IssuseAnnotation {
	anno := &IssuseAnnotation{
		Detector:   detector,
		Issue:      issue,
		Conditions: make([]smt.Bool, len(conditions)),
	}
	copy(anno.Conditions, conditions)
	return anno
}

func (anno *IssuseAnnotation) PersistToWorldState() bool {
	return true
}

func (anno *IssuseAnnotation) PersistOverCalls() bool {
	return false
}

// Clone issue不可变，可以共享
func (anno *IssuseAnnotation) Clone() smt.Annotation {
	return NewIssuseAnnotation(anno.Detector, anno.Issue, anno.Conditions)
}

func GetIssuseAnnotations(globalState *state.GlobalState) []*IssuseAnnotation {
	var result []*IssuseAnnotation
	for _, annotation := range globalState.GetAnnotations() {
		if anno, ok := annotation.(*IssuseAnnotation); ok {
			result = append(result, anno)
		}
	}
	return result
}
