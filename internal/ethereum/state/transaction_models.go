package state

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"gdetector/internal/smt"
)

var nextTxID int64

// GetNextTxID 进程内唯一
func GetNextTxID() string {
	return strconv.FormatInt(atomic.AddInt64(&nextTxID, 1), 10)
}

type TransactionKind string

const (
	MessageCall      TransactionKind = "MESSAGE_CALL"
	ContractCreation TransactionKind = "CONTRACT_CREATION"
)

type Transaction interface {
	GetTxID() string
	Kind() TransactionKind
	GetCaller() *smt.BitVec
	GetOrigin() *smt.BitVec
	GetCallValue() *smt.BitVec
	GetCalldata() Calldata
	GetCallee() *Account
}

type baseTransaction struct {
	ID            string
	CalleeAccount *Account
	Caller        *smt.BitVec
	Origin        *smt.BitVec
	CallValue     *smt.BitVec
	Calldata      Calldata
}

func newBaseTransaction(callee *Account) baseTransaction {
	id := GetNextTxID()
	caller := smt.NewBitVec(fmt.Sprintf("sender_%s", id), smt.DefaultBitVecSize)
	return baseTransaction{
		ID:            id,
		CalleeAccount: callee,
		Caller:        caller,
		Origin:        caller,
		CallValue:     smt.NewBitVec(fmt.Sprintf("call_value%s", id), smt.DefaultBitVecSize),
		Calldata:      NewSymbolicCalldata(id),
	}
}

func (tx *baseTransaction) GetTxID() string {
	return tx.ID
}

func (tx *baseTransaction) GetCaller() *smt.BitVec {
	return tx.Caller
}

func (tx *baseTransaction) GetOrigin() *smt.BitVec {
	return tx.Origin
}

func (tx *baseTransaction) GetCallValue() *smt.BitVec {
	return tx.CallValue
}

func (tx *baseTransaction) GetCalldata() Calldata {
	return tx.Calldata
}

func (tx *baseTransaction) GetCallee() *Account {
	return tx.CalleeAccount
}

type MessageCallTransaction struct {
	baseTransaction
}

// NewMessageCallTransaction 调用者、value和calldata都是符号值
func NewMessageCallTransaction(callee *Account) *MessageCallTransaction {
	return &MessageCallTransaction{
		baseTransaction: newBaseTransaction(callee),
	}
}

func (tx *MessageCallTransaction) Kind() TransactionKind {
	return MessageCall
}

type ContractCreationTransaction struct {
	baseTransaction
	ContractName string
}

// NewContractCreationTransaction 部署者固定为creator
func NewContractCreationTransaction(callee *Account, contractName string) *ContractCreationTransaction {
	tx := &ContractCreationTransaction{
		baseTransaction: newBaseTransaction(callee),
		ContractName:    contractName,
	}
	creator := AddressBitVec(CreatorAddress)
	tx.Caller = creator
	tx.Origin = creator
	return tx
}

func (tx *ContractCreationTransaction) Kind() TransactionKind {
	return ContractCreation
}
