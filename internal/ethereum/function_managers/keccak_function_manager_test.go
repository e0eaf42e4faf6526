package funcmanager

import (
	"math/big"
	"sync"
	"testing"

	"gdetector/internal/smt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var attacker = common.HexToAddress("0xDEADBEEFDEADBEEFDEADBEEFDEADBEEFDEADBEEF")

func Test_DeriveSlotConcrete(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	kfm := NewKeccakFunctionManager()
	key := smt.NewBitVecValFromBytes(attacker.Bytes(), 160)
	base := smt.NewBitVecValFromInt64(3, 256)
	slot := kfm.DeriveSlot(key, base)
	assert.False(t, slot.IsSymbolic())

	expected := crypto.Keccak256(
		common.LeftPadBytes(attacker.Bytes(), 32),
		common.LeftPadBytes(big.NewInt(3).Bytes(), 32),
	)
	assert.Equal(t, new(big.Int).SetBytes(expected).String(), slot.GetBigInt().String())
}

func Test_DeriveSlotDeterministic(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	kfm := NewKeccakFunctionManager()
	key := smt.NewBitVec("key", 256)
	base := smt.NewBitVecValFromInt64(0, 256)

	first := kfm.DeriveSlot(key, base)
	assert.True(t, first.IsSymbolic())

	var wg sync.WaitGroup
	results := make([]*smt.BitVec, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = kfm.DeriveSlot(key, base)
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Same(t, first, r)
		assert.Equal(t, first.GetRaw(), r.GetRaw())
	}

	kfm.Reset()
	again := kfm.DeriveSlot(key, base)
	assert.NotSame(t, first, again)
}

func Test_DeriveSlotAndCreateKeccakConcurrent(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	kfm := NewKeccakFunctionManager()
	key := smt.NewBitVec("holder", 256)
	attackerKey := smt.NewBitVecValFromBytes(attacker.Bytes(), 256)
	base := smt.NewBitVecValFromInt64(1, 256)
	data := smt.Concat(smt.NewBitVec("data", 256), base)

	const workers = 16
	var wg sync.WaitGroup
	symbolic := make([]*smt.BitVec, workers)
	concrete := make([]*smt.BitVec, workers)
	hashed := make([]*smt.BitVec, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			symbolic[i] = kfm.DeriveSlot(key, base)
			concrete[i] = kfm.DeriveSlot(attackerKey, base)
			hashed[i] = kfm.CreateKeccak(data)
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		assert.Same(t, symbolic[0], symbolic[i])
		assert.Same(t, concrete[0], concrete[i])
		assert.Same(t, hashed[0], hashed[i])
	}
	assert.True(t, symbolic[0].IsSymbolic())
	assert.False(t, concrete[0].IsSymbolic())
	assert.Same(t, hashed[0], kfm.CreateKeccak(data))
}

func Test_CreateConditions(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	kfm := NewKeccakFunctionManager()
	x := smt.NewBitVec("x", 256)
	base := smt.NewBitVecValFromInt64(0, 256)
	attackerKey := smt.NewBitVecValFromBytes(attacker.Bytes(), 256)

	symbolicSlot := kfm.DeriveSlot(x, base)
	attackerSlot := kfm.DeriveSlot(attackerKey, base)

	// 只有x等于attacker时两个slot才能相等
	status, model, err := smt.NewSolver().Check(
		kfm.CreateConditions().GetRaw(),
		symbolicSlot.Eq(attackerSlot).GetRaw(),
	)
	require.Nil(t, err)
	require.Equal(t, yices2.StatusSat, status)
	value, err := model.BitVecValue(x)
	require.Nil(t, err)
	assert.Equal(t, new(big.Int).SetBytes(attacker.Bytes()).String(), value.String())

	status, _, err = smt.NewSolver().Check(
		kfm.CreateConditions().GetRaw(),
		symbolicSlot.Eq(attackerSlot).GetRaw(),
		x.Ne(attackerKey).GetRaw(),
	)
	require.Nil(t, err)
	assert.Equal(t, yices2.StatusUnsat, status)
}

func Test_CreateConditionsEmpty(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	assert.True(t, NewKeccakFunctionManager().CreateConditions().IsTrue())
}
