package funcmanager

import (
	"fmt"
	"math/big"
	"sync"

	"gdetector/internal/smt"
	"gdetector/internal/util"

	"github.com/ethereum/go-ethereum/common/math"
	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	log "github.com/sirupsen/logrus"
)

var (
	TotalParts         = math.BigPow(10, 40)                          // 10**40
	Part               = new(big.Int).Div(math.MaxBig256, TotalParts) // (2**256 - 1) / 10**40
	IntervalDifference = math.BigPow(10, 30)                          // 10**30
)

func initialIndex() *big.Int {
	return new(big.Int).Sub(TotalParts, big.NewInt(34534))
}

type FuncInfo struct {
	Func        *smt.Function
	FuncReverse *smt.Function
}

type concreteHash struct {
	input *smt.BitVec
	hash  *smt.BitVec
}

// KeccakFunctionManager 一次分析只用一个实例，符号输入的keccak建模成未解释函数
type KeccakFunctionManager struct {
	mu sync.Mutex

	storeFunction   map[uint32]FuncInfo
	intervalForSize map[uint32]*big.Int
	indexCounter    *big.Int
	results         map[yices2.TermT]*smt.BitVec
	concreteHashes  []concreteHash
	symbolicInputs  []*smt.BitVec
}

func NewKeccakFunctionManager() *KeccakFunctionManager {
	kfm := &KeccakFunctionManager{}
	kfm.reset()
	return kfm
}

func (kfm *KeccakFunctionManager) reset() {
	kfm.storeFunction = make(map[uint32]FuncInfo)
	kfm.intervalForSize = make(map[uint32]*big.Int)
	kfm.indexCounter = initialIndex()
	kfm.results = make(map[yices2.TermT]*smt.BitVec)
	kfm.concreteHashes = nil
	kfm.symbolicInputs = nil
}

// Reset 清空所有缓存，新一轮分析开始时调用
func (kfm *KeccakFunctionManager) Reset() {
	kfm.mu.Lock()
	defer kfm.mu.Unlock()
	kfm.reset()
}

// DeriveSlot mapping的slot: keccak256(pad32(key) ++ pad32(base))
func (kfm *KeccakFunctionManager) DeriveSlot(key, base *smt.BitVec) *smt.BitVec {
	kfm.mu.Lock()
	defer kfm.mu.Unlock()

	data := smt.Concat(key.PadToSize(smt.DefaultBitVecSize), base.PadToSize(smt.DefaultBitVecSize))
	return kfm.createKeccak(data)
}

// CreateKeccak 相同的输入term返回同一个*smt.BitVec
func (kfm *KeccakFunctionManager) CreateKeccak(data *smt.BitVec) *smt.BitVec {
	kfm.mu.Lock()
	defer kfm.mu.Unlock()
	return kfm.createKeccak(data)
}

// createKeccak yices的term表不是并发安全的，调用方需持有mu
func (kfm *KeccakFunctionManager) createKeccak(data *smt.BitVec) *smt.BitVec {
	if result, ok := kfm.results[data.GetRaw()]; ok {
		return result
	}
	var result *smt.BitVec
	if !data.IsSymbolic() {
		result = smt.NewBitVecValFromBigInt(util.Keccak256Int(data.GetBigInt(), data.Size()), smt.DefaultBitVecSize)
		kfm.concreteHashes = append(kfm.concreteHashes, concreteHash{input: data, hash: result})
	} else {
		result = kfm.getFunction(data.Size()).Func.Call(data)
		kfm.symbolicInputs = append(kfm.symbolicInputs, data)
	}
	kfm.results[data.GetRaw()] = result
	log.WithFields(log.Fields{
		"size":     data.Size(),
		"symbolic": data.IsSymbolic(),
	}).Debug("keccak created")
	return result
}

func (kfm *KeccakFunctionManager) getFunction(length uint32) FuncInfo {
	funcInfo, ok := kfm.storeFunction[length]
	if ok {
		return funcInfo
	}
	funcInfo = FuncInfo{
		Func:        smt.NewFunction(fmt.Sprintf("keccak256_%d", length), []uint32{length}, smt.DefaultBitVecSize),
		FuncReverse: smt.NewFunction(fmt.Sprintf("keccak256_%d-1", length), []uint32{smt.DefaultBitVecSize}, length),
	}
	kfm.storeFunction[length] = funcInfo
	return funcInfo
}

// CreateConditions keccak的公理，求解时和路径约束一起断言
func (kfm *KeccakFunctionManager) CreateConditions() smt.Bool {
	kfm.mu.Lock()
	defer kfm.mu.Unlock()

	conditions := make([]smt.Bool, 0, len(kfm.symbolicInputs)+len(kfm.concreteHashes))
	for _, input := range kfm.symbolicInputs {
		conditions = append(conditions, kfm.createCondition(input))
	}
	for _, c := range kfm.concreteHashes {
		funcInfo := kfm.getFunction(c.input.Size())
		funcReturnData := funcInfo.Func.Call(c.input)
		invFuncReturnData := funcInfo.FuncReverse.Call(funcReturnData)
		conditions = append(conditions, *funcReturnData.Eq(c.hash), *invFuncReturnData.Eq(c.input))
	}
	return smt.And(conditions...)
}

// createCondition 每种宽度的哈希值落在互不相交的区间里，且64对齐；否则必须等于某个已知的具体哈希
func (kfm *KeccakFunctionManager) createCondition(funcInput *smt.BitVec) smt.Bool {
	length := funcInput.Size()
	index, ok := kfm.intervalForSize[length]
	if !ok {
		index = new(big.Int).Set(kfm.indexCounter)
		kfm.intervalForSize[length] = index
		kfm.indexCounter = new(big.Int).Sub(kfm.indexCounter, IntervalDifference)
	}
	var (
		funcInfo   = kfm.getFunction(length)
		lowerBound = new(big.Int).Mul(index, Part)
		upperBound = new(big.Int).Add(lowerBound, Part)
	)

	funcReturnData := funcInfo.Func.Call(funcInput)
	invFuncReturnData := funcInfo.FuncReverse.Call(funcReturnData)
	lowerBoundBv := smt.NewBitVecValFromBigInt(lowerBound, smt.DefaultBitVecSize)
	upperBoundBv := smt.NewBitVecValFromBigInt(upperBound, smt.DefaultBitVecSize)
	number64 := smt.NewBitVecValFromInt64(64, smt.DefaultBitVecSize)
	zero := smt.NewBitVecValFromInt64(0, smt.DefaultBitVecSize)

	cond := smt.And(
		*lowerBoundBv.Ule(funcReturnData),
		*funcReturnData.Ult(upperBoundBv),
		*funcReturnData.URem(number64).Eq(zero),
	)
	concreteConds := make([]smt.Bool, 0)
	for _, c := range kfm.concreteHashes {
		if c.input.Size() != length {
			continue
		}
		concreteConds = append(concreteConds, smt.And(*funcReturnData.Eq(c.hash), *c.input.Eq(funcInput)))
	}
	return smt.And(
		*invFuncReturnData.Eq(funcInput),
		smt.Or(cond, smt.Or(concreteConds...)),
	)
}
