package trainer

import "github.com/danthegoodman1/credittree/artifact"

// evaluate scores predictions against the held out labels. Precision and
// recall treat class 1 as the positive class.
func evaluate(yTrue, yPred []int) artifact.Metrics {
	m := artifact.Metrics{TestRows: len(yTrue)}
	if len(yTrue) == 0 {
		return m
	}

	correct, tp, fp, fn := 0, 0, 0, 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
		switch {
		case yPred[i] == 1 && yTrue[i] == 1:
			tp++
		case yPred[i] == 1:
			fp++
		case yTrue[i] == 1:
			fn++
		}
	}
	m.Accuracy = float64(correct) / float64(len(yTrue))
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}
