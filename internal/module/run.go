package module

import (
	"math/big"

	funcmanager "gdetector/internal/ethereum/function_managers"
	"gdetector/internal/solver"

	"github.com/google/uuid"
)

// DetectionConfig 各个policy需要的参数
type DetectionConfig struct {
	// BalanceSlot token合约里余额mapping的base slot
	BalanceSlot *big.Int
}

func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		BalanceSlot: big.NewInt(0),
	}
}

// Run 一次独立的分析，keccak缓存和角色缓存都以Run为界
type Run struct {
	ID     string
	Keccak *funcmanager.KeccakFunctionManager
	Roles  *RoleResolver
	Solver solver.Gateway
	Config DetectionConfig
}

// NewRun 每次调用都生成新的run id和新的keccak管理器
func NewRun(cfg DetectionConfig, roles *RoleResolver, opts solver.Options, metrics *solver.Metrics) *Run {
	kfm := funcmanager.NewKeccakFunctionManager()
	if cfg.BalanceSlot == nil {
		cfg.BalanceSlot = big.NewInt(0)
	}
	return &Run{
		ID:     uuid.New().String(),
		Keccak: kfm,
		Roles:  roles,
		Solver: solver.NewYicesGateway(opts, kfm, metrics),
		Config: cfg,
	}
}
