package tree

import (
	"fmt"
	"strings"
)

// ExportText renders the tree as indented rules. Branches deeper than
// maxDepth are summarised; maxDepth <= 0 prints everything.
func (t *Classifier) ExportText(featureNames []string, maxDepth int) string {
	if t.root == nil {
		return ""
	}
	var sb strings.Builder
	if !t.root.Split {
		fmt.Fprintf(&sb, "|--- class: %d\n", t.root.LeftLabel)
		return sb.String()
	}
	exportNode(&sb, t.root, featureNames, 0, maxDepth)
	return sb.String()
}

func exportNode(sb *strings.Builder, n *node, names []string, d, maxDepth int) {
	indent := strings.Repeat("|   ", d) + "|--- "
	if maxDepth > 0 && d >= maxDepth {
		fmt.Fprintf(sb, "%struncated branch of depth %d\n", indent, n.depth())
		return
	}
	name := fmt.Sprintf("feature_%d", n.Feature)
	if int(n.Feature) < len(names) {
		name = names[n.Feature]
	}
	fmt.Fprintf(sb, "%s%s <  %.2f\n", indent, name, n.threshold())
	exportChild(sb, n.Left, n.LeftLabel, names, d+1, maxDepth)
	fmt.Fprintf(sb, "%s%s >= %.2f\n", indent, name, n.threshold())
	exportChild(sb, n.Right, n.RightLabel, names, d+1, maxDepth)
}

func exportChild(sb *strings.Builder, n *node, label int64, names []string, d, maxDepth int) {
	if n == nil {
		fmt.Fprintf(sb, "%s|--- class: %d\n", strings.Repeat("|   ", d), label)
		return
	}
	exportNode(sb, n, names, d, maxDepth)
}
