package memory

import "math"

// CosineSimilarity returns dot(a,b) / (|a|·|b|). It returns 0 when the
// vectors differ in length or either has zero norm, where the similarity
// is undefined.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	na, nb := vectorNorm(a), vectorNorm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot(a, b) / (na * nb)
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func vectorNorm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
