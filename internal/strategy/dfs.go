package strategy

import (
	"github.com/pkg/errors"
)

// ErrEmpty 队列为空
var ErrEmpty = errors.New("strategy queue is empty")

// DFS 后进先出
type DFS[T any] struct {
	items []T
}

func NewDFS[T any]() *DFS[T] {
	return &DFS[T]{
		items: make([]T, 0),
	}
}

func (dfs *DFS[T]) Size() int {
	return len(dfs.items)
}

func (dfs *DFS[T]) HasNext() bool {
	return len(dfs.items) > 0
}

func (dfs *DFS[T]) Pop() (T, error) {
	var zero T
	if len(dfs.items) <= 0 {
		return zero, ErrEmpty
	}
	item := dfs.items[len(dfs.items)-1]
	dfs.items[len(dfs.items)-1] = zero
	dfs.items = dfs.items[:len(dfs.items)-1]
	return item, nil
}

func (dfs *DFS[T]) Push(items ...T) error {
	dfs.items = append(dfs.items, items...)
	return nil
}
