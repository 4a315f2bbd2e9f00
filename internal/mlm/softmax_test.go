package mlm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoftmaxSumsToOne(t *testing.T) {
	probs := softmax([]float32{1, 2, 3, 4})
	var sum float64
	for _, p := range probs {
		assert.Greater(t, p, 0.0)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	// Larger logit, larger probability.
	for i := 1; i < len(probs); i++ {
		assert.Greater(t, probs[i], probs[i-1])
	}
}

func TestSoftmaxStableOnLargeLogits(t *testing.T) {
	probs := softmax([]float32{1000, 1000})
	require.Len(t, probs, 2)
	assert.InDelta(t, 0.5, probs[0], 1e-9)
}

func TestSoftmaxEmpty(t *testing.T) {
	assert.Nil(t, softmax(nil))
}

func TestTopKIndices(t *testing.T) {
	values := []float64{0.1, 0.9, 0.3, 0.7, 0.2}
	assert.Equal(t, []int{1, 3, 2}, topKIndices(values, 3))
	assert.Equal(t, []int{1, 3, 2, 4, 0}, topKIndices(values, 10))
	assert.Nil(t, topKIndices(values, 0))
}
