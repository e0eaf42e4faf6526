package smt

import (
	"encoding/hex"
	"fmt"
	"math/big"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
)

type BitVec struct {
	name  string
	value yices2.TermT
}

func NewBitVec(name string, size uint32) *BitVec {
	term := yices2.NewUninterpretedTerm(yices2.BvType(size))
	if errcode := yices2.SetTermName(term, name); errcode < 0 {
		fmt.Println("set term name ", errcode)
	}
	return &BitVec{
		name:  name,
		value: term,
	}
}

func NewBitVecFromTerm(value yices2.TermT) *BitVec {
	return &BitVec{
		value: value,
	}
}

func NewBitVecValFromInt64(value int64, size uint32) *BitVec {
	return &BitVec{
		value: yices2.BvconstInt64(size, value),
	}
}

func NewBitVecValFromBigInt(value *big.Int, size uint32) *BitVec {
	// 负数按补码截断
	v := new(big.Int).Set(value)
	if v.Sign() < 0 {
		v.Add(v, new(big.Int).Lsh(big.NewInt(1), uint(size)))
	}
	bits := make([]int32, size)
	for j := 0; j < int(size) && j < v.BitLen(); j++ {
		bits[j] = int32(v.Bit(j))
	}
	return &BitVec{
		value: yices2.BvconstFromArray(bits),
	}
}

func NewBitVecValFromBytes(bytes []byte, size uint32) *BitVec {
	return NewBitVecValFromBigInt(new(big.Int).SetBytes(bytes), size)
}

// Concat 计算结果的size是两者之和，lhv在高位
func Concat(lhv, rhv *BitVec) *BitVec {
	return &BitVec{
		value: yices2.Bvconcat2(lhv.value, rhv.value),
	}
}

// GetBigBvValue 只对常量有效
func GetBigBvValue(value yices2.TermT) *big.Int {
	bits := make([]int32, yices2.TermBitsize(value))
	if errorcode := yices2.BvConstValue(value, bits); errorcode != 0 {
		return big.NewInt(0)
	}
	return bitsToBigInt(bits)
}

func bitsToBigInt(bits []int32) *big.Int {
	result := big.NewInt(0)
	for i := range bits {
		result.SetBit(result, i, uint(bits[i]))
	}
	return result
}

func (bv *BitVec) GetRaw() yices2.TermT {
	return bv.value
}

func (bv *BitVec) GetName() string {
	return bv.name
}

func (bv *BitVec) Type() string {
	return BitVecType
}

func (bv *BitVec) Size() uint32 {
	return yices2.TermBitsize(bv.value)
}

func (bv *BitVec) IsSymbolic() bool {
	return yices2.TermConstructor(bv.value) != yices2.TrmCnstrBvConstant
}

func (bv *BitVec) GetBigInt() *big.Int {
	return GetBigBvValue(bv.value)
}

func (bv *BitVec) String() string {
	if bv.IsSymbolic() {
		if bv.name != "" {
			return bv.name
		}
		return fmt.Sprintf("term_%d", bv.value)
	}
	return bv.GetBigInt().String()
}

// HexString 返回16进制编码的string，大端序
func (bv *BitVec) HexString() string {
	return hex.EncodeToString(bv.GetBigInt().Bytes())
}

// PadToSize 高位补零
func (bv *BitVec) PadToSize(size uint32) *BitVec {
	oldSize := bv.Size()
	if oldSize >= size {
		return bv
	}
	return Concat(NewBitVecValFromInt64(0, size-oldSize), bv)
}

func (bv *BitVec) Concat(other *BitVec) *BitVec {
	return Concat(bv, other)
}

func (bv *BitVec) Add(other *BitVec) *BitVec {
	return &BitVec{value: yices2.Bvadd(bv.value, other.value)}
}

func (bv *BitVec) Sub(other *BitVec) *BitVec {
	return &BitVec{value: yices2.Bvsub(bv.value, other.value)}
}

func (bv *BitVec) URem(other *BitVec) *BitVec {
	return &BitVec{value: yices2.Bvrem(bv.value, other.value)}
}

func (bv *BitVec) Eq(other *BitVec) *Bool {
	return &Bool{value: yices2.Eq(bv.value, other.value)}
}

func (bv *BitVec) Ne(other *BitVec) *Bool {
	return &Bool{value: yices2.BvneqAtom(bv.value, other.value)}
}

// Bvs{xxxx} 有符号
// Bv{xxxx} 无符号
// EVM的word都是无符号256位整数，检测条件一律用U开头的比较

func (bv *BitVec) Ult(other *BitVec) *Bool {
	return &Bool{value: yices2.BvltAtom(bv.value, other.value)}
}

func (bv *BitVec) Ugt(other *BitVec) *Bool {
	return &Bool{value: yices2.BvgtAtom(bv.value, other.value)}
}

func (bv *BitVec) Ule(other *BitVec) *Bool {
	return &Bool{value: yices2.BvleAtom(bv.value, other.value)}
}

func (bv *BitVec) Uge(other *BitVec) *Bool {
	return &Bool{value: yices2.BvgeAtom(bv.value, other.value)}
}

// UGT / ULT 无符号比较的函数形式
func UGT(a, b *BitVec) *Bool {
	return a.Ugt(b)
}

func ULT(a, b *BitVec) *Bool {
	return a.Ult(b)
}
