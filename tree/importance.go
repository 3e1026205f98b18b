package tree

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// featureImportances replays the training rows through the fitted tree and
// sums the weighted impurity decrease of every split per feature.
func (t *Classifier) featureImportances(X [][]float64, y []int) []float64 {
	imp := make([]float64, t.nFeatures)
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	t.decrease(t.root, X, y, idx, imp)
	if total := floats.Sum(imp); total > 0 {
		floats.Scale(1/total, imp)
	}
	return imp
}

func (t *Classifier) decrease(n *node, X [][]float64, y []int, idx []int, imp []float64) {
	if n == nil || !n.Split || len(idx) == 0 {
		return
	}
	var left, right []int
	for _, i := range idx {
		if n.goesLeft(X[i]) {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	imp[n.Feature] += float64(len(idx))*t.impurity(y, idx) -
		float64(len(left))*t.impurity(y, left) -
		float64(len(right))*t.impurity(y, right)
	t.decrease(n.Left, X, y, left, imp)
	t.decrease(n.Right, X, y, right, imp)
}

func (t *Classifier) impurity(y []int, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	pos := make(map[int]int, len(t.classes))
	for i, c := range t.classes {
		pos[c] = i
	}
	p := make([]float64, len(t.classes))
	for _, i := range idx {
		p[pos[y[i]]]++
	}
	floats.Scale(1/float64(len(idx)), p)
	if t.Criterion == Entropy {
		return stat.Entropy(p)
	}
	return 1 - floats.Dot(p, p)
}
