package trainer

import "math/rand"

// trainTestSplit shuffles row indices with a seeded source and holds out
// int(n*testRatio) of them. The same seed always gives the same split.
func trainTestSplit(n int, testRatio float64, seed int64) (train, test []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(float64(n) * testRatio)
	return perm[nTest:], perm[:nTest]
}

func subset(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for i, j := range idx {
		xs[i] = X[j]
		ys[i] = y[j]
	}
	return xs, ys
}
