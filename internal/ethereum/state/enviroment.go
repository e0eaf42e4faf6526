package state

import (
	"gdetector/internal/smt"
)

type Enviroment struct {
	ActiveAccount  *Account
	Sender         *smt.BitVec
	CallValue      *smt.BitVec
	Origin         *smt.BitVec
	CallData       Calldata
	Code           *Code
	Static         bool
	ActiveFuncName string
}

// NewEnviroment 以tx的字段构造执行环境
func NewEnviroment(account *Account, tx Transaction) *Enviroment {
	env := &Enviroment{
		ActiveAccount: account,
		Code:          account.Code,
	}
	if tx != nil {
		env.Sender = tx.GetCaller()
		env.Origin = tx.GetOrigin()
		env.CallValue = tx.GetCallValue()
		env.CallData = tx.GetCalldata()
	}
	return env
}

// Clone account在WorldState.Clone中已经复制过，这里按地址重新关联
func (env *Enviroment) Clone(ws *WorldState) *Enviroment {
	newEnv := *env
	if env.ActiveAccount != nil && ws != nil {
		if account, err := ws.GetAccount(env.ActiveAccount.GetAddress()); err == nil {
			newEnv.ActiveAccount = account
		}
	}
	return &newEnv
}
