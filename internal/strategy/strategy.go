// Package strategy 决定待处理路径的先后顺序
package strategy

import (
	"github.com/pkg/errors"
)

type Strategy[T any] interface {
	Size() int
	HasNext() bool
	Pop() (T, error)
	Push(...T) error
}

// New name为dfs或bfs
func New[T any](name string) (Strategy[T], error) {
	switch name {
	case "", "bfs":
		return NewBFS[T](), nil
	case "dfs":
		return NewDFS[T](), nil
	}
	return nil, errors.Errorf("unknown strategy %q", name)
}
