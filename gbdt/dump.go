package gbdt

import (
	"fmt"
	"strconv"
	"strings"
)

// Dump renders tree i in the indented text format of Booster.get_dump.
func (m *Model) Dump(i int, withStats bool) (string, error) {
	tree, err := m.Tree(i)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	var walk func(id, depth int)
	walk = func(id, depth int) {
		node := &tree.Nodes[id]
		sb.WriteString(strings.Repeat("\t", depth))
		if node.IsLeaf() {
			fmt.Fprintf(&sb, "%d:leaf=%s", id, formatFloat(node.Condition))
			if withStats {
				fmt.Fprintf(&sb, ",cover=%s", formatFloat(node.Cover))
			}
			sb.WriteByte('\n')
			return
		}

		missing := node.Right
		if node.DefaultLeft {
			missing = node.Left
		}
		fmt.Fprintf(&sb, "%d:[%s<%s] yes=%d,no=%d,missing=%d",
			id, m.FeatureName(node.Feature), formatFloat(node.Condition), node.Left, node.Right, missing)
		if withStats {
			fmt.Fprintf(&sb, ",gain=%s,cover=%s", formatFloat(node.Gain), formatFloat(node.Cover))
		}
		sb.WriteByte('\n')
		walk(node.Left, depth+1)
		walk(node.Right, depth+1)
	}
	walk(0, 0)
	return sb.String(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 32)
}
