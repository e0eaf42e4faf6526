package strategy

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, s Strategy[int]) []int {
	var result []int
	for s.HasNext() {
		item, err := s.Pop()
		require.Nil(t, err)
		result = append(result, item)
	}
	return result
}

func Test_Order(t *testing.T) {
	dfs, err := New[int]("dfs")
	require.Nil(t, err)
	require.Nil(t, dfs.Push(1, 2, 3))
	assert.Equal(t, 3, dfs.Size())
	assert.Equal(t, []int{3, 2, 1}, drain(t, dfs))

	bfs, err := New[int]("")
	require.Nil(t, err)
	require.Nil(t, bfs.Push(1, 2))
	require.Nil(t, bfs.Push(3))
	assert.Equal(t, []int{1, 2, 3}, drain(t, bfs))

	_, err = bfs.Pop()
	assert.True(t, errors.Is(err, ErrEmpty))

	_, err = New[int]("random")
	assert.NotNil(t, err)
}
