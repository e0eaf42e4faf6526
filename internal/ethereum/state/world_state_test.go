package state

import (
	"math/big"
	"testing"

	"gdetector/internal/smt"

	"github.com/ethereum/go-ethereum/common"
	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_WorldStateAccounts(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	ws := NewWorldState()
	b := common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	a := common.HexToAddress("0x0000000000000000000000000000000000000a0a")
	_, err := ws.CreateAccount(b, "Token", nil, big.NewInt(0), ConcreteStorage)
	require.Nil(t, err)
	_, err = ws.CreateAccount(a, "", nil, big.NewInt(0), ConcreteStorage)
	require.Nil(t, err)

	sorted := ws.SortedAccounts()
	require.Len(t, sorted, 2)
	assert.Equal(t, a, sorted[0].GetAddress())
	assert.Equal(t, "0x0000000000000000000000000000000000000a0a", sorted[0].ContractName)
	assert.Equal(t, "Token", sorted[1].ContractName)

	_, err = ws.GetAccount(common.HexToAddress("0x01"))
	assert.True(t, errors.Is(err, ErrAccess))
}

func Test_WorldStateBalance(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	ws := NewWorldState()
	attacker := AddressBitVec(AttackerAddress)
	creator := AddressBitVec(CreatorAddress)

	// 没有设置余额时是符号值，和starting balance相同
	balance, err := ws.GetBalance(attacker)
	require.Nil(t, err)
	assert.True(t, balance.IsSymbolic())
	starting, err := ws.GetStartingBalance(attacker)
	require.Nil(t, err)
	assert.Equal(t, starting.GetRaw(), balance.GetRaw())

	_, err = ws.CreateAccount(CreatorAddress, "", nil, big.NewInt(10), ConcreteStorage)
	require.Nil(t, err)
	require.Nil(t, ws.SetBalance(attacker, smt.NewBitVecValFromInt64(0, 256)))
	require.Nil(t, ws.TransferETH(creator, attacker, smt.NewBitVecValFromInt64(4, 256)))

	balance, err = ws.GetBalance(attacker)
	require.Nil(t, err)
	assert.Equal(t, int64(4), balance.GetBigInt().Int64())
	balance, err = ws.GetBalance(creator)
	require.Nil(t, err)
	assert.Equal(t, int64(6), balance.GetBigInt().Int64())

	clone := ws.Clone()
	require.Nil(t, clone.SetBalance(attacker, smt.NewBitVecValFromInt64(100, 256)))
	balance, err = ws.GetBalance(attacker)
	require.Nil(t, err)
	assert.Equal(t, int64(4), balance.GetBigInt().Int64())
}

func Test_ConstraintAppendOnly(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	c := NewConstraints(smt.NewBool("a"))
	extended := c.With(smt.NewBool("b"))
	assert.Len(t, extended, 2)
	assert.Equal(t, 1, c.Len())

	clone := c.Clone()
	clone.Append(smt.NewBool("c"))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 2, clone.Len())
}

func Test_IsActor(t *testing.T) {
	assert.True(t, IsActor(common.HexToAddress("0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")))
	assert.False(t, IsActor(common.HexToAddress("0x01")))
	addr, ok := ActorAddress(SomeGuyActor)
	assert.True(t, ok)
	assert.Equal(t, SomeGuyAddress, addr)

	yices2.Init()
	defer yices2.Exit()
	bv := AddressBitVec(AttackerAddress)
	assert.False(t, bv.IsSymbolic())
	assert.Equal(t, uint32(256), bv.Size())
	assert.Equal(t, AttackerAddress, common.BigToAddress(bv.GetBigInt()))
}
