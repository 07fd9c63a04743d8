package forest

import (
	"fmt"
	"slices"
)

// Node is a single tree node. Leaves have no children and carry one value
// per output. The root always sits at index 0, so a child index of 0 marks
// a leaf.
type Node struct {
	Value     []float64 `json:"v,omitempty"`
	Threshold float64   `json:"t,omitempty"`
	Feature   int       `json:"f,omitempty"`
	Left      int       `json:"l,omitempty"`
	Right     int       `json:"r,omitempty"`
}

// IsLeaf reports whether the node is terminal.
func (n Node) IsLeaf() bool {
	return n.Left == 0 && n.Right == 0
}

// Tree is a flattened regression tree.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) leaf(x []float64) []float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Depth returns the number of edges on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(0)
}

func (t *Tree) validate(features, outputs int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	for i, n := range t.Nodes {
		if n.IsLeaf() {
			if len(n.Value) != outputs {
				return fmt.Errorf("leaf %d has %d values, want %d", i, len(n.Value), outputs)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= features {
			return fmt.Errorf("node %d splits on feature %d of %d", i, n.Feature, features)
		}
		// Children are always appended after their parent.
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has invalid children %d/%d", i, n.Left, n.Right)
		}
	}
	return nil
}

type builder struct {
	x     [][]float64
	y     [][]float64
	cfg   Config
	nodes []Node

	// scratch buffers reused across splits
	order    []int
	leftSum  []float64
	leftSq   []float64
	totalSum []float64
	totalSq  []float64
}

func fitTree(x, y [][]float64, sample []int, cfg Config) Tree {
	outputs := len(y[0])
	b := &builder{
		x:        x,
		y:        y,
		cfg:      cfg,
		order:    make([]int, len(sample)),
		leftSum:  make([]float64, outputs),
		leftSq:   make([]float64, outputs),
		totalSum: make([]float64, outputs),
		totalSq:  make([]float64, outputs),
	}
	b.grow(sample, 0)
	return Tree{Nodes: b.nodes}
}

// grow appends the subtree for idx and returns its root index.
func (b *builder) grow(idx []int, depth int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{})

	if len(idx) < b.cfg.MinSamplesSplit ||
		len(idx) < 2*b.cfg.MinSamplesLeaf ||
		(b.cfg.MaxDepth > 0 && depth >= b.cfg.MaxDepth) ||
		b.pure(idx) {
		b.nodes[id] = Node{Value: b.mean(idx)}
		return id
	}

	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		b.nodes[id] = Node{Value: b.mean(idx)}
		return id
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return id
}

func (b *builder) mean(idx []int) []float64 {
	out := make([]float64, len(b.y[0]))
	for _, i := range idx {
		for o, v := range b.y[i] {
			out[o] += v
		}
	}
	for o := range out {
		out[o] /= float64(len(idx))
	}
	return out
}

func (b *builder) pure(idx []int) bool {
	first := b.y[idx[0]]
	for _, i := range idx[1:] {
		for o, v := range b.y[i] {
			if v != first[o] {
				return false
			}
		}
	}
	return true
}

// bestSplit scans every feature and returns the threshold that minimizes
// the summed squared error of both children across all outputs.
func (b *builder) bestSplit(idx []int) (int, float64, bool) {
	n := len(idx)
	minLeaf := b.cfg.MinSamplesLeaf

	clear(b.totalSum)
	clear(b.totalSq)
	for _, i := range idx {
		for o, v := range b.y[i] {
			b.totalSum[o] += v
			b.totalSq[o] += v * v
		}
	}

	var (
		bestFeature   = -1
		bestThreshold float64
		bestCost      float64
	)

	order := b.order[:n]
	for f := range b.x[idx[0]] {
		copy(order, idx)
		slices.SortStableFunc(order, func(a, c int) int {
			va, vc := b.x[a][f], b.x[c][f]
			switch {
			case va < vc:
				return -1
			case va > vc:
				return 1
			}
			return 0
		})

		if b.x[order[0]][f] == b.x[order[n-1]][f] {
			continue
		}

		clear(b.leftSum)
		clear(b.leftSq)
		for k := 0; k < n-1; k++ {
			for o, v := range b.y[order[k]] {
				b.leftSum[o] += v
				b.leftSq[o] += v * v
			}

			lo, hi := b.x[order[k]][f], b.x[order[k+1]][f]
			if lo == hi {
				continue
			}
			nl, nr := k+1, n-k-1
			if nl < minLeaf || nr < minLeaf {
				continue
			}

			var cost float64
			for o := range b.leftSum {
				rs := b.totalSum[o] - b.leftSum[o]
				rq := b.totalSq[o] - b.leftSq[o]
				cost += b.leftSq[o] - b.leftSum[o]*b.leftSum[o]/float64(nl)
				cost += rq - rs*rs/float64(nr)
			}

			if bestFeature < 0 || cost < bestCost {
				bestFeature = f
				bestCost = cost
				bestThreshold = lo + (hi-lo)/2
				if bestThreshold == hi {
					bestThreshold = lo
				}
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}
