package mlm

import "math"

// softmax converts one row of logits into a probability distribution.
// Accumulation happens in float64 with the usual max-shift for stability.
func softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := float64(logits[0])
	for _, l := range logits[1:] {
		if float64(l) > maxLogit {
			maxLogit = float64(l)
		}
	}
	probs := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		e := math.Exp(float64(l) - maxLogit)
		probs[i] = e
		sum += e
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// topKIndices returns the indices of the k largest values, sorted by
// descending value. k is tiny (3 or 5), so insertion into a fixed-size
// window beats sorting the whole vocabulary.
func topKIndices(values []float64, k int) []int {
	if k <= 0 {
		return nil
	}
	if k > len(values) {
		k = len(values)
	}
	top := make([]int, 0, k)
	for i, v := range values {
		pos := len(top)
		for pos > 0 && v > values[top[pos-1]] {
			pos--
		}
		if pos >= k {
			continue
		}
		top = append(top, 0)
		copy(top[pos+1:], top[pos:])
		top[pos] = i
		if len(top) > k {
			top = top[:k]
		}
	}
	return top
}
