package issuse

import (
	"testing"

	"gdetector/internal/ethereum/state"
	"gdetector/internal/smt"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProvenance = Provenance{
	Contract:        "Vault",
	FunctionName:    "withdraw(uint256)",
	Address:         42,
	SWCID:           "105",
	Title:           "Unprotected Ether Withdrawal",
	Bytecode:        "6080",
	Severity:        SeverityHigh,
	DescriptionHead: "Any sender can withdraw Ether from the contract account.",
	Detector:        "EtherWithdraw",
}

func Test_NewIssuse(t *testing.T) {
	is := NewIssuse(testProvenance, nil, GasUsed{Min: 100, Max: 200})
	assert.Equal(t, "Vault", is.Contract)
	assert.NotEmpty(t, is.BytecodeHash)
	assert.Equal(t, "Any sender can withdraw Ether from the contract account.", is.Description())
	assert.Contains(t, is.String(), "withdraw(uint256)")
	assert.Contains(t, is.String(), "100 - 200")

	other := NewIssuse(testProvenance, nil, GasUsed{})
	assert.Equal(t, is.Key(), other.Key())
	assert.Equal(t, "EtherWithdraw@Vault:42", is.Key())

	moved := testProvenance
	moved.Address = 43
	assert.NotEqual(t, is.Key(), moved.Key())
	byOther := testProvenance
	byOther.Detector = "TokenDrain"
	assert.NotEqual(t, is.Key(), byOther.Key())
}

func Test_PotentialIssusesAnnotation(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	gs := state.NewGlobalState(state.NewWorldState(), nil, nil)
	anno := GetPotentialIssusesAnnotation(gs)
	assert.Same(t, anno, GetPotentialIssusesAnnotation(gs))
	assert.Len(t, gs.GetAnnotations(), 1)

	constraints := []smt.Bool{smt.NewBool("c")}
	pi := NewPotentialIssuse(testProvenance, constraints)
	constraints[0] = smt.NewBoolVal(false)
	assert.True(t, pi.Constraints[0].IsSymbolic())

	anno.Append(pi)
	assert.Equal(t, 1, anno.Len())

	// fork之后两条路径互不影响
	clone := gs.Clone()
	cloned := GetPotentialIssusesAnnotation(clone)
	assert.NotSame(t, anno, cloned)
	cloned.Append(NewPotentialIssuse(testProvenance, nil))
	assert.Equal(t, 1, anno.Len())
	assert.Equal(t, 2, cloned.Len())

	anno.Replace(nil)
	assert.Equal(t, 0, anno.Len())
}

func Test_IssuseAnnotation(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	gs := state.NewGlobalState(state.NewWorldState(), nil, nil)
	assert.Len(t, GetIssuseAnnotations(gs), 0)

	is := NewIssuse(testProvenance, nil, GasUsed{})
	gs.AddAnnotation(NewIssuseAnnotation("EtherWithdraw", is, []smt.Bool{smt.NewBool("c")}))
	annos := GetIssuseAnnotations(gs)
	require.Len(t, annos, 1)
	assert.Same(t, is, annos[0].Issue)
	assert.True(t, annos[0].PersistToWorldState())
}
