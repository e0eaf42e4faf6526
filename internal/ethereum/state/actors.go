package state

import (
	"gdetector/internal/smt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	CreatorAddress  = common.HexToAddress("0xAFFEAFFEAFFEAFFEAFFEAFFEAFFEAFFEAFFEAFFE")
	AttackerAddress = common.HexToAddress("0xDEADBEEFDEADBEEFDEADBEEFDEADBEEFDEADBEEF")
	SomeGuyAddress  = common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
)

const (
	CreatorActor  = "CREATOR"
	AttackerActor = "ATTACKER"
	SomeGuyActor  = "SOMEGUY"
)

// AddressBitVec 地址对应的256位具体值，需要在yices2.Init之后调用
func AddressBitVec(address common.Address) *smt.BitVec {
	return smt.NewBitVecValFromBytes(address.Bytes(), smt.DefaultBitVecSize)
}

func IsActor(address common.Address) bool {
	return address == CreatorAddress || address == AttackerAddress || address == SomeGuyAddress
}

func ActorAddress(name string) (common.Address, bool) {
	switch name {
	case CreatorActor:
		return CreatorAddress, true
	case AttackerActor:
		return AttackerAddress, true
	case SomeGuyActor:
		return SomeGuyAddress, true
	}
	return common.Address{}, false
}
