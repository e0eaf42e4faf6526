package smt

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/math"
	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Concat(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	a := NewBitVecValFromInt64(1, 8)
	b := NewBitVecValFromInt64(2, 8)
	z := Concat(a, b)
	assert.Equal(t, uint32(16), z.Size())
	assert.Equal(t, "0102", z.HexString())
}

func Test_GetBigBvValue(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	for i := 0; i < 32; i++ {
		p := math.BigPow(256, int64(i))
		bv := NewBitVecValFromBigInt(p, 256)
		assert.False(t, bv.IsSymbolic())
		assert.Equal(t, p.String(), bv.GetBigInt().String())
	}

	bv := NewBitVecValFromInt64(0xFF, 256)
	assert.Equal(t, "255", bv.String())
	assert.Equal(t, "ff", bv.HexString())
}

func Test_PadToSize(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	bv := NewBitVecValFromInt64(0xAB, 8).PadToSize(256)
	assert.Equal(t, uint32(256), bv.Size())
	assert.Equal(t, int64(0xAB), bv.GetBigInt().Int64())

	sym := NewBitVec("sym", 160).PadToSize(256)
	assert.Equal(t, uint32(256), sym.Size())
	assert.True(t, sym.IsSymbolic())
}

func Test_UnsignedCompare(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	a := NewBitVecValFromBigInt(math.BigPow(2, 255), 256)
	b := NewBitVecValFromInt64(1, 256)

	// 无符号: 2^255 > 1
	status, model, err := NewSolver().Check(UGT(a, b).GetRaw())
	require.Nil(t, err)
	assert.Equal(t, yices2.StatusSat, status)
	assert.NotNil(t, model)

	status, _, err = NewSolver().Check(UGT(a, b).Not().GetRaw())
	require.Nil(t, err)
	assert.Equal(t, yices2.StatusUnsat, status)

	status, _, err = NewSolver().Check(ULT(b, a).GetRaw())
	require.Nil(t, err)
	assert.Equal(t, yices2.StatusSat, status)
}

func Test_ModelValue(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	x := NewBitVec("x", 256)
	big5 := NewBitVecValFromInt64(5, 256)
	f := x.Eq(x.Sub(x).Add(big5))

	solver := NewSolver()
	defer solver.Close()
	status, model, err := solver.Check(f.GetRaw())
	require.Nil(t, err)
	require.Equal(t, yices2.StatusSat, status)

	val, err := model.BitVecValue(x)
	require.Nil(t, err)
	assert.Equal(t, big.NewInt(5), val)

	holds, err := model.BoolValue(*x.Ugt(NewBitVecValFromInt64(4, 256)))
	require.Nil(t, err)
	assert.True(t, holds)
}

func Test_CheckContextCancelled(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	x := NewBitVec("x", 256)
	_, model, err := NewSolver().CheckContext(ctx, x.Ugt(NewBitVecValFromInt64(1, 256)).GetRaw())
	assert.Nil(t, model)
	assert.True(t, errors.Is(err, ErrInterrupted))
}

func Test_CheckContextCloseAfterReturn(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	x := NewBitVec("x", 256)
	for i := 0; i < 50; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		solver := NewSolver()
		status, model, err := solver.CheckContext(ctx, x.Ugt(NewBitVecValFromInt64(int64(i), 256)).GetRaw())
		require.Nil(t, err)
		require.Equal(t, yices2.StatusSat, status)
		model.Close()
		// 返回时打断goroutine已退出，Close之后再cancel不会触碰已释放的context
		solver.Close()
		cancel()
	}
}

func Test_ModelClose(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	x := NewBitVec("x", 256)
	solver := NewSolver()
	defer solver.Close()
	status, model, err := solver.Check(x.Ugt(NewBitVecValFromInt64(1, 256)).GetRaw())
	require.Nil(t, err)
	require.Equal(t, yices2.StatusSat, status)

	model.Close()
	assert.Nil(t, model.GetRaw())
	_, err = model.BitVecValue(x)
	assert.NotNil(t, err)
	// 重复Close无副作用
	model.Close()
	var nilModel *Model
	nilModel.Close()
}

func Test_Array(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	array := NewArray("balance")
	key := NewBitVecValFromInt64(8888, 256)
	err := array.Set(key, NewBitVecValFromInt64(5, 256))
	require.Nil(t, err)

	val, err := array.Get(key)
	require.Nil(t, err)
	assert.False(t, val.IsSymbolic())
	assert.Equal(t, int64(5), val.GetBigInt().Int64())

	other, err := array.Get(NewBitVecValFromInt64(7777, 256))
	require.Nil(t, err)
	assert.True(t, other.IsSymbolic())
}
