package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gdetector/internal/module"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.Nil(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func Test_Default(t *testing.T) {
	cfg := Default()
	require.Nil(t, cfg.Validate())
	assert.Equal(t, log.InfoLevel, cfg.Level())

	opts := cfg.SolverOptions()
	assert.Equal(t, 10*time.Second, opts.Timeout)
	assert.Equal(t, int64(5000), opts.MaxCalldataSize)
	assert.Equal(t, 0, opts.MaxStartingBalance.Cmp(new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil)))

	assert.Equal(t, 0, cfg.DetectionConfig().BalanceSlot.Sign())
	assert.Equal(t, module.InferredRoles{PoolLabel: "Pool"}, cfg.RoleSource())
}

func Test_Load(t *testing.T) {
	path := writeConfig(t, `
logLevel: debug
solver:
  timeout: 3s
  maxStartingBalance: "0x10"
detection:
  modules: [TokenDeposit, TokenDrain]
  balanceSlot: "3"
  roles:
    pool: "0x0000000000000000000000000000000000002000"
    token: "0x0000000000000000000000000000000000001000"
`)
	cfg, err := Load(path)
	require.Nil(t, err)
	assert.Equal(t, log.DebugLevel, cfg.Level())

	opts := cfg.SolverOptions()
	assert.Equal(t, 3*time.Second, opts.Timeout)
	// 没写的字段保持默认
	assert.Equal(t, int64(5000), opts.MaxCalldataSize)
	assert.Equal(t, int64(16), opts.MaxStartingBalance.Int64())

	assert.Equal(t, int64(3), cfg.DetectionConfig().BalanceSlot.Int64())
	assert.Equal(t, []string{"TokenDeposit", "TokenDrain"}, cfg.Detection.Modules)
	assert.Equal(t, module.ConfiguredRoles{
		Pool:  common.HexToAddress("0x2000"),
		Token: common.HexToAddress("0x1000"),
	}, cfg.RoleSource())
}

func Test_LoadInvalid(t *testing.T) {
	cases := map[string]string{
		"level":   "logLevel: loud\n",
		"timeout": "solver:\n  timeout: 0s\n",
		"balance": "solver:\n  maxStartingBalance: lots\n",
		"slot":    "detection:\n  balanceSlot: \"-1\"\n",
		"module":  "detection:\n  modules: [Reentrancy]\n",
		"roles":   "detection:\n  roles:\n    pool: nowhere\n    token: \"0x1000\"\n",
		"label":   "detection:\n  poolLabel: \"\"\n",
		"yaml":    "solver: [\n",
	}
	for name, content := range cases {
		_, err := Load(writeConfig(t, content))
		assert.NotNil(t, err, name)
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NotNil(t, err)
}
