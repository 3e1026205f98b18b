package tree

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/sjwhitworth/golearn/base"
	"github.com/sjwhitworth/golearn/trees"
)

// missing is where NaN lands after scaling: below any finite scaled value.
const missing = -math.MaxFloat64 / 2

// scale halves every value before golearn sees it. CART thresholds are
// midpoints (a+b)/2, which overflow to +Inf for values near MaxFloat64.
func scale(v float64) float64 {
	if math.IsNaN(v) {
		return missing
	}
	return v / 2
}

// newGrid lays X out as golearn float attributes. When y is non-nil it
// becomes the class attribute.
func newGrid(X [][]float64, y []int, p int) (base.FixedDataGrid, error) {
	inst := base.NewDenseInstances()
	specs := make([]base.AttributeSpec, p)
	for j := range specs {
		specs[j] = inst.AddAttribute(base.NewFloatAttribute(fmt.Sprintf("x%d", j)))
	}
	var classSpec base.AttributeSpec
	if y != nil {
		classAttr := base.NewFloatAttribute("class")
		classSpec = inst.AddAttribute(classAttr)
		if err := inst.AddClassAttribute(classAttr); err != nil {
			return nil, fmt.Errorf("error in AddClassAttribute: %w", err)
		}
	}
	if err := inst.Extend(len(X)); err != nil {
		return nil, fmt.Errorf("error in Extend: %w", err)
	}
	for i, row := range X {
		for j, v := range row {
			inst.Set(specs[j], i, base.PackFloatToBytes(scale(v)))
		}
		if y != nil {
			inst.Set(classSpec, i, base.PackFloatToBytes(float64(y[i])))
		}
	}
	return inst, nil
}

// node mirrors golearn's unexported tree node through its exported fields.
// Thresholds are in scaled units. A nil child is a leaf carrying the
// matching side's label; a root with Split false is a lone leaf.
type node struct {
	Left       *node
	Right      *node
	Threshold  float64
	Feature    int64
	LeftLabel  int64
	RightLabel int64
	Split      bool `json:"Use_not"`
}

func mirror(cart *trees.CARTDecisionTreeClassifier) (*node, error) {
	if cart.RootNode == nil {
		return nil, ErrNotFitted
	}
	b, err := json.Marshal(cart.RootNode)
	if err != nil {
		return nil, fmt.Errorf("error in json.Marshal: %w", err)
	}
	var n node
	if err = json.Unmarshal(b, &n); err != nil {
		return nil, fmt.Errorf("error in json.Unmarshal: %w", err)
	}
	return &n, nil
}

// restore rebuilds a golearn tree from a mirrored node.
func restore(c Criterion, maxDepth int, classes []int, root *node) (*trees.CARTDecisionTreeClassifier, error) {
	cart := trees.NewDecisionTreeClassifier(string(c), golearnDepth(maxDepth), labelsOf(classes))
	b, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("error in json.Marshal: %w", err)
	}
	if err = json.Unmarshal(b, &cart.RootNode); err != nil {
		return nil, fmt.Errorf("error in json.Unmarshal: %w", err)
	}
	return cart, nil
}

func labelsOf(classes []int) []int64 {
	out := make([]int64, len(classes))
	for i, c := range classes {
		out[i] = int64(c)
	}
	return out
}

// threshold is the split point in feature units.
func (n *node) threshold() float64 {
	return n.Threshold * 2
}

func (n *node) goesLeft(x []float64) bool {
	return scale(x[n.Feature]) < n.Threshold
}

func (n *node) depth() int {
	if n == nil || !n.Split {
		return 0
	}
	l, r := n.Left.depth(), n.Right.depth()
	if l > r {
		return l + 1
	}
	return r + 1
}

func (n *node) leaves() int {
	if !n.Split {
		return 1
	}
	return childLeaves(n.Left) + childLeaves(n.Right)
}

func childLeaves(n *node) int {
	if n == nil {
		return 1
	}
	return n.leaves()
}
