package gbm

// Node is a tree node in a flat slice. Leaves have Left == -1.
type Node struct {
	Feature   int     `json:"f,omitempty"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v,omitempty"`
}

// Tree is one boosting round. Rows with x[Feature] <= Threshold go left.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) predict(row []float64) float64 {
	i := 0
	for t.Nodes[i].Left >= 0 {
		n := &t.Nodes[i]
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Value
}

// leaf is a node still open for splitting.
type leaf struct {
	node int
	rows []int
	sumG float64

	gain    float64
	feature int
	bin     int
}

type grower struct {
	b    *binned
	cfg  *settings
	grad []float64
	hist []histBin
}

type histBin struct {
	sumG  float64
	count int
}

// grow builds one tree leaf-wise: the open leaf with the largest gain is
// split until maxLeaves is reached or no split improves the loss.
func (g *grower) grow() (Tree, []*leaf) {
	rows := make([]int, len(g.grad))
	var sum float64
	for i := range rows {
		rows[i] = i
		sum += g.grad[i]
	}

	tree := Tree{Nodes: []Node{{Left: -1, Right: -1}}}
	root := &leaf{node: 0, rows: rows, sumG: sum}
	g.findSplit(root)
	leaves := []*leaf{root}

	for len(leaves) < g.cfg.maxLeaves {
		best := -1
		for i, l := range leaves {
			if l.gain > 0 && (best < 0 || l.gain > leaves[best].gain) {
				best = i
			}
		}
		if best < 0 {
			break
		}

		parent := leaves[best]
		left, right := g.split(&tree, parent)
		leaves[best] = left
		leaves = append(leaves, right)
	}

	for _, l := range leaves {
		tree.Nodes[l.node].Value = g.leafValue(l.sumG, len(l.rows))
	}
	return tree, leaves
}

func (g *grower) leafValue(sumG float64, count int) float64 {
	// Squared loss has unit hessian, so the Newton step is -G/(n+lambda).
	return -g.cfg.learningRate * sumG / (float64(count) + g.cfg.lambda)
}

func (g *grower) score(sumG float64, count int) float64 {
	return sumG * sumG / (float64(count) + g.cfg.lambda)
}

// findSplit records the best histogram split of l, or gain 0 when no split
// leaves minLeaf rows on both sides.
func (g *grower) findSplit(l *leaf) {
	l.gain = 0
	n := len(l.rows)
	if n < 2*g.cfg.minLeaf {
		return
	}
	parent := g.score(l.sumG, n)

	for f := range g.b.bins {
		nb := len(g.b.uppers[f])
		if nb < 2 {
			continue
		}
		if cap(g.hist) < nb {
			g.hist = make([]histBin, nb)
		}
		hist := g.hist[:nb]
		clear(hist)
		col := g.b.bins[f]
		for _, i := range l.rows {
			h := &hist[col[i]]
			h.sumG += g.grad[i]
			h.count++
		}

		var leftG float64
		leftN := 0
		for bin := 0; bin < nb-1; bin++ {
			leftG += hist[bin].sumG
			leftN += hist[bin].count
			rightN := n - leftN
			if leftN < g.cfg.minLeaf {
				continue
			}
			if rightN < g.cfg.minLeaf {
				break
			}
			gain := g.score(leftG, leftN) + g.score(l.sumG-leftG, rightN) - parent
			if gain > l.gain+1e-12 {
				l.gain = gain
				l.feature = f
				l.bin = bin
			}
		}
	}
}

// split turns l into an internal node and returns its two children with
// their own best splits computed.
func (g *grower) split(tree *Tree, l *leaf) (*leaf, *leaf) {
	col := g.b.bins[l.feature]
	var leftRows, rightRows []int
	var leftG float64
	for _, i := range l.rows {
		if int(col[i]) <= l.bin {
			leftRows = append(leftRows, i)
			leftG += g.grad[i]
		} else {
			rightRows = append(rightRows, i)
		}
	}

	li := len(tree.Nodes)
	tree.Nodes = append(tree.Nodes, Node{Left: -1, Right: -1}, Node{Left: -1, Right: -1})
	tree.Nodes[l.node] = Node{
		Feature:   l.feature,
		Threshold: g.b.uppers[l.feature][l.bin],
		Left:      li,
		Right:     li + 1,
	}

	left := &leaf{node: li, rows: leftRows, sumG: leftG}
	right := &leaf{node: li + 1, rows: rightRows, sumG: l.sumG - leftG}
	g.findSplit(left)
	g.findSplit(right)
	return left, right
}
