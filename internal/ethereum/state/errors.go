package state

import "github.com/pkg/errors"

// ErrAccess 请求的account、storage slot或栈深度不存在
var ErrAccess = errors.New("access error")
