package classifier

type forestModel struct {
	trees []Tree
}

func newForest(f *Forest) *forestModel {
	return &forestModel{trees: f.Trees}
}

// path returns the node indices visited from the root to a leaf.
func (t Tree) path(x []float64) []int {
	nodes := []int{0}
	i := 0
	for t.Nodes[i].Feature >= 0 {
		node := t.Nodes[i]
		if x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
		nodes = append(nodes, i)
	}
	return nodes
}

func (m *forestModel) probability(x []float64) float64 {
	var sum float64
	for _, t := range m.trees {
		p := t.path(x)
		sum += t.Nodes[p[len(p)-1]].Value
	}
	return sum / float64(len(m.trees))
}

// contributions attribute each step along the decision path to the feature
// that was split on: the change in node value is credited to that feature.
// Per tree they sum to leaf value minus root value.
func (m *forestModel) contributions(x []float64) []float64 {
	out := make([]float64, len(x))
	for _, t := range m.trees {
		p := t.path(x)
		for k := 1; k < len(p); k++ {
			parent := t.Nodes[p[k-1]]
			out[parent.Feature] += t.Nodes[p[k]].Value - parent.Value
		}
	}
	n := float64(len(m.trees))
	for i := range out {
		out[i] /= n
	}
	return out
}
