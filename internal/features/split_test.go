package features

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrainTestSplit(t *testing.T) {
	train, test := TrainTestSplit(101, 0.2, 42)
	assert.Len(t, test, 21)
	assert.Len(t, train, 80)

	all := append(slices.Clone(train), test...)
	slices.Sort(all)
	for i, v := range all {
		assert.Equal(t, i, v)
	}
}

func TestTrainTestSplit_Deterministic(t *testing.T) {
	train1, test1 := TrainTestSplit(50, 0.1, 42)
	train2, test2 := TrainTestSplit(50, 0.1, 42)
	assert.Equal(t, train1, train2)
	assert.Equal(t, test1, test2)

	_, other := TrainTestSplit(50, 0.1, 43)
	assert.NotEqual(t, test1, other)
}

func TestTrainTestSplit_Bounds(t *testing.T) {
	train, test := TrainTestSplit(5, 0, 1)
	assert.Len(t, train, 5)
	assert.Empty(t, test)

	train, test = TrainTestSplit(5, 1.5, 1)
	assert.Empty(t, train)
	assert.Len(t, test, 5)
}

func TestSelect(t *testing.T) {
	assert.Equal(t, []string{"c", "a"}, Select([]string{"a", "b", "c"}, []int{2, 0}))
}
