package module

import (
	"strings"
	"sync"

	"gdetector/internal/ethereum/state"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ErrInsufficientContext 无法确定需要的账户或slot
var ErrInsufficientContext = errors.New("insufficient context")

// RoleSource ConfiguredRoles或InferredRoles
type RoleSource interface {
	isRoleSource()
}

// ConfiguredRoles 配置里直接给出的pool和token地址
type ConfiguredRoles struct {
	Pool  common.Address
	Token common.Address
}

func (ConfiguredRoles) isRoleSource() {}

// InferredRoles 通过合约名里是否包含PoolLabel区分pool和token
type InferredRoles struct {
	PoolLabel string
}

func (InferredRoles) isRoleSource() {}

type Roles struct {
	Pool  common.Address
	Token common.Address
}

// RoleResolver 每个run只解析一次，并发的首次解析共享同一个结果
type RoleResolver struct {
	source RoleSource
	group  singleflight.Group

	mu    sync.RWMutex
	cache map[string]Roles
}

func NewRoleResolver(source RoleSource) *RoleResolver {
	if source == nil {
		source = InferredRoles{PoolLabel: "Pool"}
	}
	return &RoleResolver{
		source: source,
		cache:  make(map[string]Roles),
	}
}

func (r *RoleResolver) Source() RoleSource {
	return r.source
}

func (r *RoleResolver) cached(runID string) (Roles, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roles, ok := r.cache[runID]
	return roles, ok
}

// Resolve 失败不缓存，之后账户更全的state还可以再解析
func (r *RoleResolver) Resolve(runID string, ws *state.WorldState) (Roles, error) {
	if roles, ok := r.cached(runID); ok {
		return roles, nil
	}
	v, err, _ := r.group.Do(runID, func() (interface{}, error) {
		if roles, ok := r.cached(runID); ok {
			return roles, nil
		}
		roles, err := r.resolve(ws)
		if err != nil {
			return Roles{}, err
		}
		r.mu.Lock()
		r.cache[runID] = roles
		r.mu.Unlock()
		log.WithFields(log.Fields{
			"run":   runID,
			"pool":  roles.Pool.Hex(),
			"token": roles.Token.Hex(),
		}).Info("roles resolved")
		return roles, nil
	})
	if err != nil {
		return Roles{}, err
	}
	return v.(Roles), nil
}

// Forget 清除某个run的缓存
func (r *RoleResolver) Forget(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, runID)
}

func (r *RoleResolver) resolve(ws *state.WorldState) (Roles, error) {
	switch source := r.source.(type) {
	case ConfiguredRoles:
		return Roles{Pool: source.Pool, Token: source.Token}, nil
	case InferredRoles:
		return inferRoles(ws, source.PoolLabel)
	}
	return Roles{}, errors.Errorf("unknown role source %T", r.source)
}

// inferRoles 只接受恰好两个非actor账户，其中恰好一个带pool标签
func inferRoles(ws *state.WorldState, poolLabel string) (Roles, error) {
	candidates := nonActorAccounts(ws)
	if len(candidates) != 2 {
		return Roles{}, errors.Wrapf(ErrInsufficientContext, "need 2 non-actor accounts, got %d", len(candidates))
	}
	var pools, tokens []*state.Account
	for _, account := range candidates {
		if poolLabel != "" && strings.Contains(account.ContractName, poolLabel) {
			pools = append(pools, account)
		} else {
			tokens = append(tokens, account)
		}
	}
	if len(pools) != 1 {
		return Roles{}, errors.Wrapf(ErrInsufficientContext, "%d accounts labelled %q", len(pools), poolLabel)
	}
	return Roles{Pool: pools[0].GetAddress(), Token: tokens[0].GetAddress()}, nil
}

// nonActorAccounts 按地址排序
func nonActorAccounts(ws *state.WorldState) []*state.Account {
	var result []*state.Account
	for _, account := range ws.SortedAccounts() {
		if !state.IsActor(account.GetAddress()) {
			result = append(result, account)
		}
	}
	return result
}

// TargetAccount 只有一个非actor账户时就是它，否则取token账户
func TargetAccount(run *Run, ws *state.WorldState) (*state.Account, error) {
	candidates := nonActorAccounts(ws)
	switch len(candidates) {
	case 0:
		return nil, errors.Wrap(ErrInsufficientContext, "no contract account")
	case 1:
		return candidates[0], nil
	}
	roles, err := run.Roles.Resolve(run.ID, ws)
	if err != nil {
		return nil, err
	}
	return ws.GetAccount(roles.Token)
}
