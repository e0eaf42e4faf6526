package util

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

// GetCodeHash bytecode的keccak256，用于issue去重
func GetCodeHash(code string) (string, []byte, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(code, "0x"))
	if err != nil {
		return "", nil, err
	}
	result := crypto.Keccak256(data)
	return hex.EncodeToString(result), result, nil
}

// Keccak256Int value按size位大端编码后做keccak256
func Keccak256Int(value *big.Int, size uint32) *big.Int {
	width := int(size+7) / 8
	data := math.PaddedBigBytes(value, width)
	// value超出宽度时只取低位
	data = data[len(data)-width:]
	return new(big.Int).SetBytes(crypto.Keccak256(data))
}
