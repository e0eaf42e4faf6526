package issuse

import (
	"fmt"
	"strings"

	"gdetector/internal/solver"
	"gdetector/internal/util"
)

const (
	SeverityHigh   = "High"
	SeverityMedium = "Medium"
	SeverityLow    = "Low"
)

// Provenance 问题出现的位置以及描述，Issuse和PotentialIssuse共用
type Provenance struct {
	Contract        string
	FunctionName    string
	Address         int
	SWCID           string
	Title           string
	Bytecode        string
	Severity        string
	DescriptionHead string
	DescriptionTail string
	Detector        string
}

// Key 同一个detector在同一个合约地址上只报一次
func (p Provenance) Key() string {
	return fmt.Sprintf("%s@%s:%d", p.Detector, p.Contract, p.Address)
}

type GasUsed struct {
	Min int64
	Max int64
}

// Issuse 已经被求解器确认的问题，构造之后不再修改
type Issuse struct {
	Provenance
	TransactionSequence *solver.TransactionSequence
	GasUsed             GasUsed
	BytecodeHash        string

	File string
	Line int
	Code string
}

func NewIssuse(p Provenance, ts *solver.TransactionSequence, gas GasUsed) *Issuse {
	is := &Issuse{
		Provenance:          p,
		TransactionSequence: ts,
		GasUsed:             gas,
		File:                "Internal file",
	}
	if hash, _, err := util.GetCodeHash(p.Bytecode); err == nil {
		is.BytecodeHash = hash
	}
	return is
}

func (is *Issuse) Description() string {
	return strings.TrimSpace(is.DescriptionHead + "\n" + is.DescriptionTail)
}

func (is *Issuse) String() string {
	swcDescription := fmt.Sprintf("ID: %s\nTitle: %s\nSeverity: %s\nContract: %s\nFunction: %s\nPC address: %d\nDescription: %s\n\n",
		is.SWCID, is.Title, is.Severity, is.Contract, is.FunctionName, is.Address, is.Description())
	swcDescription = Colour(31, swcDescription)

	codeInfo := fmt.Sprintf("In file: %s:%d\n%s\n", is.File, is.Line, is.Code)
	codeInfo = Colour(33, codeInfo)

	gasInfo := fmt.Sprintf("Estimated Gas Usage: %d - %d\n", is.GasUsed.Min, is.GasUsed.Max)
	txInfo := ""
	if is.TransactionSequence != nil {
		txInfo = Colour(36, "Transaction Sequence:\n"+is.TransactionSequence.String())
	}
	return fmt.Sprintf("%s%s%s%s", swcDescription, codeInfo, gasInfo, txInfo)
}

func Colour(color int, str string) string {
	return fmt.Sprintf("\033[%dm%s\033[0m", color, str)
}
