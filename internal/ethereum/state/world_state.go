package state

import (
	"bytes"
	"math/big"
	"sort"

	"gdetector/internal/smt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// WorldState 账户、余额以及路径约束
type WorldState struct {
	accounts            map[common.Address]*Account
	balances            smt.Array
	startingBalances    smt.Array
	constraint          *Constraint
	TransactionSequence []Transaction
}

func NewWorldState() *WorldState {
	starting := smt.NewArray("starting_balance")
	return &WorldState{
		accounts: make(map[common.Address]*Account),
		// 初始余额就是starting_balance，之后的转账只更新balances
		balances:         starting,
		startingBalances: starting,
		constraint:       NewConstraints(),
	}
}

// GetAccounts 返回的map不要修改
func (ws *WorldState) GetAccounts() map[common.Address]*Account {
	return ws.accounts
}

// SortedAccounts 按地址升序
func (ws *WorldState) SortedAccounts() []*Account {
	result := make([]*Account, 0, len(ws.accounts))
	for _, account := range ws.accounts {
		result = append(result, account)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].GetAddress(), result[j].GetAddress()
		return bytes.Compare(a.Bytes(), b.Bytes()) < 0
	})
	return result
}

func (ws *WorldState) GetAccount(address common.Address) (*Account, error) {
	account, ok := ws.accounts[address]
	if !ok {
		return nil, errors.Wrapf(ErrAccess, "account %s not found", address.Hex())
	}
	return account, nil
}

func (ws *WorldState) PutAccount(account *Account) {
	ws.accounts[account.GetAddress()] = account
}

// CreateAccount balance为nil时余额保持符号值
func (ws *WorldState) CreateAccount(address common.Address, contractName string, code *Code, balance *big.Int, policy StoragePolicy) (*Account, error) {
	account := NewAccount(address, contractName, code, policy)
	if balance != nil {
		value := smt.NewBitVecValFromBigInt(balance, smt.DefaultBitVecSize)
		if err := ws.startingBalances.Set(account.Address, value); err != nil {
			return nil, errors.Wrap(err, "set starting balance")
		}
		if err := ws.balances.Set(account.Address, value); err != nil {
			return nil, errors.Wrap(err, "set balance")
		}
	}
	ws.PutAccount(account)
	log.WithFields(log.Fields{
		"address":  address.Hex(),
		"contract": account.ContractName,
		"storage":  policy.String(),
	}).Debug("account created")
	return account, nil
}

func (ws *WorldState) GetBalance(address *smt.BitVec) (*smt.BitVec, error) {
	return ws.balances.Get(address)
}

func (ws *WorldState) GetStartingBalance(address *smt.BitVec) (*smt.BitVec, error) {
	return ws.startingBalances.Get(address)
}

func (ws *WorldState) SetBalance(address, value *smt.BitVec) error {
	return ws.balances.Set(address, value)
}

// TransferETH from减少、to增加amount，不检查余额是否足够
func (ws *WorldState) TransferETH(from, to, amount *smt.BitVec) error {
	fromBalance, err := ws.balances.Get(from)
	if err != nil {
		return errors.Wrap(err, "Get")
	}
	if err := ws.balances.Set(from, fromBalance.Sub(amount)); err != nil {
		return errors.Wrap(err, "Set")
	}
	toBalance, err := ws.balances.Get(to)
	if err != nil {
		return errors.Wrap(err, "Get")
	}
	return ws.balances.Set(to, toBalance.Add(amount))
}

func (ws *WorldState) GetConstraint() *Constraint {
	return ws.constraint
}

func (ws *WorldState) SetConstraint(constraint *Constraint) {
	ws.constraint = constraint
}

func (ws *WorldState) AddConstraints(constraints ...smt.Bool) {
	ws.constraint.Append(constraints...)
}

func (ws *WorldState) AddTransaction(tx Transaction) {
	ws.TransactionSequence = append(ws.TransactionSequence, tx)
}

func (ws *WorldState) Clone() *WorldState {
	result := &WorldState{
		accounts:            make(map[common.Address]*Account, len(ws.accounts)),
		balances:            ws.balances,
		startingBalances:    ws.startingBalances,
		constraint:          ws.constraint.Clone(),
		TransactionSequence: make([]Transaction, len(ws.TransactionSequence)),
	}
	for k, v := range ws.accounts {
		result.accounts[k] = v.Clone()
	}
	copy(result.TransactionSequence, ws.TransactionSequence)
	return result
}
