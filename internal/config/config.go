// Package config 加载扫描配置
package config

import (
	"math/big"
	"os"
	"time"

	"gdetector/internal/module"
	"gdetector/internal/solver"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel  string          `yaml:"logLevel"`
	Solver    SolverConfig    `yaml:"solver"`
	Detection DetectionConfig `yaml:"detection"`
}

type SolverConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	MaxCalldataSize int64         `yaml:"maxCalldataSize"`
	// MaxStartingBalance 十进制或0x开头的十六进制，单位wei
	MaxStartingBalance string `yaml:"maxStartingBalance"`
}

type DetectionConfig struct {
	// Modules 为空时启用全部模块
	Modules     []string     `yaml:"modules"`
	BalanceSlot string       `yaml:"balanceSlot"`
	PoolLabel   string       `yaml:"poolLabel"`
	Roles       *RolesConfig `yaml:"roles"`
}

// RolesConfig 给出后不再按合约名推断
type RolesConfig struct {
	Pool  string `yaml:"pool"`
	Token string `yaml:"token"`
}

func Default() *Config {
	return &Config{
		LogLevel: "info",
		Solver: SolverConfig{
			Timeout:            10 * time.Second,
			MaxCalldataSize:    5000,
			MaxStartingBalance: "100000000000000000000",
		},
		Detection: DetectionConfig{
			BalanceSlot: "0",
			PoolLabel:   "Pool",
		},
	}
}

// Load 文件中没有出现的字段保持默认值
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "decode config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "logLevel")
	}
	if c.Solver.Timeout <= 0 {
		return errors.Errorf("solver.timeout must be positive, got %s", c.Solver.Timeout)
	}
	if c.Solver.MaxCalldataSize <= 0 {
		return errors.Errorf("solver.maxCalldataSize must be positive, got %d", c.Solver.MaxCalldataSize)
	}
	if _, ok := parseUint256(c.Solver.MaxStartingBalance); !ok {
		return errors.Errorf("solver.maxStartingBalance %q is not a 256-bit integer", c.Solver.MaxStartingBalance)
	}
	if _, ok := parseUint256(c.Detection.BalanceSlot); !ok {
		return errors.Errorf("detection.balanceSlot %q is not a 256-bit integer", c.Detection.BalanceSlot)
	}
	if _, err := module.NewModules(c.Detection.Modules); err != nil {
		return errors.Wrap(err, "detection.modules")
	}
	if roles := c.Detection.Roles; roles != nil {
		if !common.IsHexAddress(roles.Pool) || !common.IsHexAddress(roles.Token) {
			return errors.Errorf("detection.roles needs hex pool and token addresses, got %q and %q", roles.Pool, roles.Token)
		}
		if common.HexToAddress(roles.Pool) == common.HexToAddress(roles.Token) {
			return errors.New("detection.roles pool and token must differ")
		}
	} else if c.Detection.PoolLabel == "" {
		return errors.New("detection.poolLabel is required when roles are not configured")
	}
	return nil
}

// parseUint256 math.ParseBig256会接受负数
func parseUint256(s string) (*big.Int, bool) {
	value, ok := math.ParseBig256(s)
	if !ok || value.Sign() < 0 {
		return nil, false
	}
	return value, true
}

func (c *Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

func (c *Config) SolverOptions() solver.Options {
	maxBalance, ok := parseUint256(c.Solver.MaxStartingBalance)
	if !ok {
		maxBalance = solver.DefaultOptions().MaxStartingBalance
	}
	return solver.Options{
		Timeout:            c.Solver.Timeout,
		MaxCalldataSize:    c.Solver.MaxCalldataSize,
		MaxStartingBalance: maxBalance,
	}
}

func (c *Config) DetectionConfig() module.DetectionConfig {
	slot, ok := parseUint256(c.Detection.BalanceSlot)
	if !ok {
		slot = big.NewInt(0)
	}
	return module.DetectionConfig{BalanceSlot: slot}
}

// RoleSource 配置了roles用ConfiguredRoles，否则按poolLabel推断
func (c *Config) RoleSource() module.RoleSource {
	if roles := c.Detection.Roles; roles != nil {
		return module.ConfiguredRoles{
			Pool:  common.HexToAddress(roles.Pool),
			Token: common.HexToAddress(roles.Token),
		}
	}
	return module.InferredRoles{PoolLabel: c.Detection.PoolLabel}
}
