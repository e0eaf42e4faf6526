package state

import (
	"strings"

	"gdetector/internal/smt"

	"github.com/ethereum/go-ethereum/common"
	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/pkg/errors"
)

// StoragePolicy 读未写入slot时的行为
type StoragePolicy int

const (
	// ConcreteStorage 未写入的slot读出0
	ConcreteStorage StoragePolicy = iota
	// SymbolicStorage 未写入的slot读出未解释数组上的符号值
	SymbolicStorage
	// StrictStorage 未写入的slot返回ErrAccess
	StrictStorage
)

func (p StoragePolicy) String() string {
	switch p {
	case ConcreteStorage:
		return "concrete"
	case SymbolicStorage:
		return "symbolic"
	case StrictStorage:
		return "strict"
	}
	return "unknown"
}

// ParseStoragePolicy 配置文件里的名字转成StoragePolicy
func ParseStoragePolicy(name string) (StoragePolicy, error) {
	switch strings.ToLower(name) {
	case "", "concrete":
		return ConcreteStorage, nil
	case "symbolic":
		return SymbolicStorage, nil
	case "strict":
		return StrictStorage, nil
	}
	return ConcreteStorage, errors.Errorf("unknown storage policy %q", name)
}

type storageWrite struct {
	key   *smt.BitVec
	value *smt.BitVec
}

type Storage struct {
	policy  StoragePolicy
	storage smt.Array

	// 按写入顺序记录，读的时候从后往前匹配
	writes    []storageWrite
	knownKeys map[yices2.TermT]*smt.BitVec
}

func NewStorage(policy StoragePolicy) *Storage {
	return &Storage{
		policy:    policy,
		storage:   smt.NewArray(""),
		knownKeys: make(map[yices2.TermT]*smt.BitVec),
	}
}

func (s *Storage) Policy() StoragePolicy {
	return s.policy
}

// Get concrete和strict策略下按写入顺序展开成ite链，同一个key term直接覆盖
func (s *Storage) Get(key *smt.BitVec) (*smt.BitVec, error) {
	key = key.PadToSize(smt.DefaultBitVecSize)
	if s.policy == SymbolicStorage {
		return s.storage.Get(key)
	}
	if _, ok := s.knownKeys[key.GetRaw()]; !ok && s.policy == StrictStorage {
		return nil, errors.Wrapf(ErrAccess, "storage slot %s not written", key.String())
	}
	result := smt.NewBitVecValFromInt64(0, smt.DefaultBitVecSize)
	for _, w := range s.writes {
		if w.key.GetRaw() == key.GetRaw() {
			result = w.value
			continue
		}
		cond := key.Eq(w.key)
		if cond.IsFalse() {
			continue
		}
		result = smt.NewBitVecFromTerm(yices2.Ite(cond.GetRaw(), w.value.GetRaw(), result.GetRaw()))
	}
	return result, nil
}

func (s *Storage) Set(key, value *smt.BitVec) error {
	key = key.PadToSize(smt.DefaultBitVecSize)
	value = value.PadToSize(smt.DefaultBitVecSize)
	if err := s.storage.Set(key, value); err != nil {
		return err
	}
	s.writes = append(s.writes, storageWrite{key: key, value: value})
	s.knownKeys[key.GetRaw()] = value
	return nil
}

// Keys 所有写过的slot，按写入顺序，不去重
func (s *Storage) Keys() []*smt.BitVec {
	keys := make([]*smt.BitVec, len(s.writes))
	for i, w := range s.writes {
		keys[i] = w.key
	}
	return keys
}

func (s *Storage) Clone() *Storage {
	result := &Storage{
		policy:    s.policy,
		storage:   s.storage,
		writes:    make([]storageWrite, len(s.writes)),
		knownKeys: make(map[yices2.TermT]*smt.BitVec, len(s.knownKeys)),
	}
	copy(result.writes, s.writes)
	for k, v := range s.knownKeys {
		result.knownKeys[k] = v
	}
	return result
}

type Account struct {
	Nonce        int64
	Code         *Code
	Address      *smt.BitVec
	Storage      *Storage
	ContractName string
	Deleted      bool

	address common.Address
}

func NewAccount(address common.Address, contractName string, code *Code, policy StoragePolicy) *Account {
	account := &Account{
		Address: AddressBitVec(address),
		Storage: NewStorage(policy),
		address: address,
	}
	if contractName == "" {
		account.ContractName = strings.ToLower(address.Hex())
	} else {
		account.ContractName = contractName
	}
	if code == nil {
		account.Code = NewCodeFromInstructions("", nil)
	} else {
		account.Code = code
	}
	return account
}

func (account *Account) GetAddress() common.Address {
	return account.address
}

func (account *Account) StorageGet(key *smt.BitVec) (*smt.BitVec, error) {
	return account.Storage.Get(key)
}

func (account *Account) StorageSet(key, value *smt.BitVec) error {
	return account.Storage.Set(key, value)
}

func (account *Account) Clone() *Account {
	return &Account{
		Nonce:        account.Nonce,
		Code:         account.Code,
		Address:      account.Address,
		Storage:      account.Storage.Clone(),
		ContractName: account.ContractName,
		Deleted:      account.Deleted,
		address:      account.address,
	}
}
