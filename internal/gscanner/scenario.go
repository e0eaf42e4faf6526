package gscanner

import (
	"math/big"
	"os"
	"strings"

	"gdetector/internal/ethereum/state"
	"gdetector/internal/module"
	"gdetector/internal/smt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Scenario 执行引擎产生的hook轨迹
//
// 值的写法：
//   - 十进制或0x十六进制常量
//   - CREATOR / ATTACKER / SOMEGUY，对应actor地址
//   - sym:<name>，同一条路径中同名的是同一个符号
//   - slot(<key>,<base>)，mapping中key对应的slot
type Scenario struct {
	Name     string        `yaml:"name"`
	Accounts []AccountSpec `yaml:"accounts"`
	Paths    []PathSpec    `yaml:"paths"`
}

type AccountSpec struct {
	Address string `yaml:"address"`
	Name    string `yaml:"name"`
	Code    string `yaml:"code"`
	// Balance 为空时是符号值
	Balance       string        `yaml:"balance"`
	StoragePolicy string        `yaml:"storagePolicy"`
	Storage       []StorageSpec `yaml:"storage"`
}

type StorageSpec struct {
	// Account 只在事件的副作用中使用
	Account string `yaml:"account"`
	Slot    string `yaml:"slot"`
	Value   string `yaml:"value"`
}

type BalanceSpec struct {
	Account string `yaml:"account"`
	Value   string `yaml:"value"`
}

// TransferSpec 一次ETH转账，From减少、To增加Value
type TransferSpec struct {
	From  string `yaml:"from"`
	To    string `yaml:"to"`
	Value string `yaml:"value"`
}

type ConstraintSpec struct {
	Lhs string `yaml:"lhs"`
	Op  string `yaml:"op"`
	Rhs string `yaml:"rhs"`
}

// PathSpec 一条执行路径，各条路径的world state互相独立
type PathSpec struct {
	Name         string           `yaml:"name"`
	Transactions []string         `yaml:"transactions"`
	Balances     []BalanceSpec    `yaml:"balances"`
	Constraints  []ConstraintSpec `yaml:"constraints"`
	Events       []EventSpec      `yaml:"events"`
}

type GasSpec struct {
	Min int64 `yaml:"min"`
	Max int64 `yaml:"max"`
}

// EventSpec 一次hook，Pc是被hook指令的序号
type EventSpec struct {
	Account  string `yaml:"account"`
	Function string `yaml:"function"`
	Opcode   string `yaml:"opcode"`
	When     string `yaml:"when"`
	Pc       int    `yaml:"pc"`
	// Stack 第一个是栈顶
	Stack       []string         `yaml:"stack"`
	Gas         GasSpec          `yaml:"gas"`
	Constraints []ConstraintSpec `yaml:"constraints"`
	// Storage、Balances、Transfers在hook之后按顺序生效
	Storage   []StorageSpec  `yaml:"storage"`
	Balances  []BalanceSpec  `yaml:"balances"`
	Transfers []TransferSpec `yaml:"transfers"`
}

func (e EventSpec) hookWhen() (module.HookWhen, error) {
	switch strings.ToLower(e.When) {
	case "", "pre":
		return module.PreHook, nil
	case "post":
		return module.PostHook, nil
	}
	return module.PreHook, errors.Errorf("unknown hook kind %q", e.When)
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read scenario %s", path)
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	sc := &Scenario{}
	if err := yaml.Unmarshal(data, sc); err != nil {
		return nil, errors.Wrap(err, "decode scenario")
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// Validate 只检查不需要yices就能检查的部分
func (sc *Scenario) Validate() error {
	if len(sc.Paths) == 0 {
		return errors.New("scenario has no paths")
	}
	seen := make(map[common.Address]bool)
	for _, account := range sc.Accounts {
		if !common.IsHexAddress(account.Address) {
			return errors.Errorf("account address %q is not a hex address", account.Address)
		}
		address := common.HexToAddress(account.Address)
		if seen[address] {
			return errors.Errorf("account %s declared twice", address.Hex())
		}
		seen[address] = true
		if _, err := state.ParseStoragePolicy(account.StoragePolicy); err != nil {
			return errors.Wrapf(err, "account %s", address.Hex())
		}
	}
	for i, path := range sc.Paths {
		for j, event := range path.Events {
			if _, err := event.hookWhen(); err != nil {
				return errors.Wrapf(err, "path %d event %d", i, j)
			}
			if event.Pc < 0 {
				return errors.Errorf("path %d event %d: negative pc", i, j)
			}
		}
	}
	return nil
}

// pathBuilder 把一条路径的描述变成world state和global state
type pathBuilder struct {
	run     *module.Run
	symbols map[string]*smt.BitVec
	ws      *state.WorldState
}

func newPathBuilder(run *module.Run) *pathBuilder {
	return &pathBuilder{
		run:     run,
		symbols: make(map[string]*smt.BitVec),
	}
}

func (pb *pathBuilder) term(expr string) (*smt.BitVec, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New("empty value")
	}
	if strings.HasPrefix(expr, "sym:") {
		name := strings.TrimPrefix(expr, "sym:")
		if bv, ok := pb.symbols[name]; ok {
			return bv, nil
		}
		bv := smt.NewBitVec(name, smt.DefaultBitVecSize)
		pb.symbols[name] = bv
		return bv, nil
	}
	if address, ok := state.ActorAddress(strings.ToUpper(expr)); ok {
		return state.AddressBitVec(address), nil
	}
	if strings.HasPrefix(expr, "slot(") && strings.HasSuffix(expr, ")") {
		parts := strings.Split(strings.TrimSuffix(strings.TrimPrefix(expr, "slot("), ")"), ",")
		if len(parts) != 2 {
			return nil, errors.Errorf("slot needs key and base: %q", expr)
		}
		key, err := pb.term(parts[0])
		if err != nil {
			return nil, err
		}
		base, err := pb.term(parts[1])
		if err != nil {
			return nil, err
		}
		return pb.run.Keccak.DeriveSlot(key, base), nil
	}
	value, ok := math.ParseBig256(expr)
	if !ok || value.Sign() < 0 {
		return nil, errors.Errorf("bad value %q", expr)
	}
	return smt.NewBitVecValFromBigInt(value, smt.DefaultBitVecSize), nil
}

func (pb *pathBuilder) address(ref string) (common.Address, error) {
	if address, ok := state.ActorAddress(strings.ToUpper(ref)); ok {
		return address, nil
	}
	if !common.IsHexAddress(ref) {
		return common.Address{}, errors.Errorf("bad account reference %q", ref)
	}
	return common.HexToAddress(ref), nil
}

func (pb *pathBuilder) constraint(spec ConstraintSpec) (smt.Bool, error) {
	lhs, err := pb.term(spec.Lhs)
	if err != nil {
		return smt.Bool{}, errors.Wrap(err, "lhs")
	}
	rhs, err := pb.term(spec.Rhs)
	if err != nil {
		return smt.Bool{}, errors.Wrap(err, "rhs")
	}
	switch strings.ToLower(spec.Op) {
	case "eq", "==":
		return *lhs.Eq(rhs), nil
	case "ne", "!=":
		return *lhs.Ne(rhs), nil
	case "ugt", ">":
		return *lhs.Ugt(rhs), nil
	case "uge", ">=":
		return *lhs.Uge(rhs), nil
	case "ult", "<":
		return *lhs.Ult(rhs), nil
	case "ule", "<=":
		return *lhs.Ule(rhs), nil
	}
	return smt.Bool{}, errors.Errorf("unknown operator %q", spec.Op)
}

func (pb *pathBuilder) addConstraints(specs []ConstraintSpec) error {
	for _, spec := range specs {
		c, err := pb.constraint(spec)
		if err != nil {
			return err
		}
		pb.ws.AddConstraints(c)
	}
	return nil
}

func (pb *pathBuilder) setBalances(specs []BalanceSpec) error {
	for _, spec := range specs {
		address, err := pb.address(spec.Account)
		if err != nil {
			return err
		}
		value, err := pb.term(spec.Value)
		if err != nil {
			return errors.Wrapf(err, "balance of %s", spec.Account)
		}
		target := state.AddressBitVec(address)
		if err := pb.ws.SetBalance(target, value); err != nil {
			return errors.Wrap(err, "SetBalance")
		}
	}
	return nil
}

func (pb *pathBuilder) transferAll(specs []TransferSpec) error {
	for _, spec := range specs {
		from, err := pb.address(spec.From)
		if err != nil {
			return err
		}
		to, err := pb.address(spec.To)
		if err != nil {
			return err
		}
		value, err := pb.term(spec.Value)
		if err != nil {
			return errors.Wrapf(err, "transfer %s -> %s", spec.From, spec.To)
		}
		if err := pb.ws.TransferETH(state.AddressBitVec(from), state.AddressBitVec(to), value); err != nil {
			return errors.Wrap(err, "TransferETH")
		}
	}
	return nil
}

func (pb *pathBuilder) storeAll(account *state.Account, specs []StorageSpec) error {
	for _, spec := range specs {
		target := account
		if spec.Account != "" {
			address, err := pb.address(spec.Account)
			if err != nil {
				return err
			}
			if target, err = pb.ws.GetAccount(address); err != nil {
				return err
			}
		}
		slot, err := pb.term(spec.Slot)
		if err != nil {
			return errors.Wrap(err, "slot")
		}
		value, err := pb.term(spec.Value)
		if err != nil {
			return errors.Wrap(err, "value")
		}
		if err := target.StorageSet(slot, value); err != nil {
			return errors.Wrap(err, "StorageSet")
		}
	}
	return nil
}

// worldState 按场景中的账户和路径的前置条件构造初始world state
func (pb *pathBuilder) worldState(sc *Scenario, path PathSpec) (*state.WorldState, error) {
	pb.ws = state.NewWorldState()
	for _, spec := range sc.Accounts {
		code, err := state.NewCode(spec.Code)
		if err != nil {
			return nil, errors.Wrapf(err, "code of %s", spec.Address)
		}
		policy, err := state.ParseStoragePolicy(spec.StoragePolicy)
		if err != nil {
			return nil, err
		}
		var balance *big.Int
		if spec.Balance != "" {
			value, ok := math.ParseBig256(spec.Balance)
			if !ok || value.Sign() < 0 {
				return nil, errors.Errorf("bad balance %q of %s", spec.Balance, spec.Address)
			}
			balance = value
		}
		account, err := pb.ws.CreateAccount(common.HexToAddress(spec.Address), spec.Name, code, balance, policy)
		if err != nil {
			return nil, errors.Wrap(err, "CreateAccount")
		}
		if err := pb.storeAll(account, spec.Storage); err != nil {
			return nil, errors.Wrapf(err, "storage of %s", spec.Address)
		}
	}
	for _, ref := range path.Transactions {
		address, err := pb.address(ref)
		if err != nil {
			return nil, err
		}
		callee, err := pb.ws.GetAccount(address)
		if err != nil {
			return nil, errors.Wrap(err, "transaction callee")
		}
		pb.ws.AddTransaction(state.NewMessageCallTransaction(callee))
	}
	if err := pb.setBalances(path.Balances); err != nil {
		return nil, err
	}
	if err := pb.addConstraints(path.Constraints); err != nil {
		return nil, err
	}
	return pb.ws, nil
}

// globalState 构造hook看到的state，post hook的pc已经越过被hook的指令
func (pb *pathBuilder) globalState(event EventSpec, annotations []smt.Annotation) (*state.GlobalState, error) {
	address, err := pb.address(event.Account)
	if err != nil {
		return nil, err
	}
	account, err := pb.ws.GetAccount(address)
	if err != nil {
		return nil, errors.Wrap(err, "event account")
	}
	when, err := event.hookWhen()
	if err != nil {
		return nil, err
	}
	if err := pb.addConstraints(event.Constraints); err != nil {
		return nil, err
	}

	var tx state.Transaction
	if n := len(pb.ws.TransactionSequence); n > 0 {
		tx = pb.ws.TransactionSequence[n-1]
	}
	env := state.NewEnviroment(account, tx)
	env.ActiveFuncName = event.Function

	ms := state.NewMachineState()
	ms.GasUsedAdd(event.Gas.Min, event.Gas.Max)
	for i := len(event.Stack) - 1; i >= 0; i-- {
		value, err := pb.term(event.Stack[i])
		if err != nil {
			return nil, errors.Wrapf(err, "stack[%d]", i)
		}
		if err := ms.PushStack(value); err != nil {
			return nil, errors.Wrap(err, "PushStack")
		}
	}
	pc := event.Pc
	if when == module.PostHook {
		pc++
	}
	ms.Jump(pc)

	gs := state.NewGlobalState(pb.ws, env, ms, annotations...)
	if event.Opcode != "" {
		instruction, err := gs.GetCurrentInstruction()
		if when == module.PostHook {
			instruction, err = gs.GetPreviousInstruction()
		}
		if err != nil {
			return nil, errors.Wrap(err, "hooked instruction")
		}
		if !strings.EqualFold(instruction.OPCode, event.Opcode) {
			return nil, errors.Errorf("instruction %d of %s is %s, not %s", event.Pc, account.ContractName, instruction.OPCode, event.Opcode)
		}
	}
	return gs, nil
}

// applyEffects hook之后指令产生的写入
func (pb *pathBuilder) applyEffects(event EventSpec) error {
	address, err := pb.address(event.Account)
	if err != nil {
		return err
	}
	account, err := pb.ws.GetAccount(address)
	if err != nil {
		return err
	}
	if err := pb.storeAll(account, event.Storage); err != nil {
		return err
	}
	if err := pb.setBalances(event.Balances); err != nil {
		return err
	}
	return pb.transferAll(event.Transfers)
}
