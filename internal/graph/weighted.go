package graph

import (
	"errors"
	"fmt"
)

var (
	ErrIndexOutOfRange = errors.New("node index out of range")
	ErrInvalidState    = errors.New("edge state conflicts with operation")
)

// Edge is an undirected node pair stored with I < J.
type Edge struct {
	I int
	J int
}

// NewEdge orders the endpoints so that equal pairs compare equal.
func NewEdge(i, j int) Edge {
	if i > j {
		i, j = j, i
	}
	return Edge{I: i, J: j}
}

// Node carries a scalar activation for the dynamics layer plus views of its
// adjacency and weight rows. The views are only valid after RefreshNodes.
type Node struct {
	Index     int
	Val       float64
	Neighbors []int
	Weights   []float64
}

// Weighted is an undirected graph over a fixed node set with a symmetric 0/1
// adjacency matrix and a symmetric weight layer. A weight is nonzero only on
// an existing edge; removing an edge zeroes its weight.
type Weighted struct {
	n       int
	adj     []bool
	weights []float64
	edges   int
	nodes   []Node
}

func New(n int) (*Weighted, error) {
	if n <= 0 {
		return nil, fmt.Errorf("node count must be > 0, got %d", n)
	}
	g := &Weighted{
		n:       n,
		adj:     make([]bool, n*n),
		weights: make([]float64, n*n),
		nodes:   make([]Node, n),
	}
	for i := range g.nodes {
		g.nodes[i].Index = i
	}
	return g, nil
}

// FullyConnected returns the complete graph on n nodes with zero weights.
func FullyConnected(n int) (*Weighted, error) {
	g, err := New(n)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			g.link(i, j)
		}
	}
	g.RefreshNodes()
	return g, nil
}

func (g *Weighted) Len() int {
	return g.n
}

func (g *Weighted) EdgeCount() int {
	return g.edges
}

// MaxEdges is the edge count of the complete graph on the same node set.
func (g *Weighted) MaxEdges() int {
	return g.n * (g.n - 1) / 2
}

func (g *Weighted) HasEdge(i, j int) (bool, error) {
	if err := g.checkPair(i, j); err != nil {
		return false, err
	}
	return g.adj[i*g.n+j], nil
}

// Adjacent reports edge presence and treats invalid pairs as absent.
func (g *Weighted) Adjacent(i, j int) bool {
	if g.checkPair(i, j) != nil {
		return false
	}
	return g.adj[i*g.n+j]
}

func (g *Weighted) Weight(i, j int) (float64, error) {
	if err := g.checkPair(i, j); err != nil {
		return 0, err
	}
	return g.weights[i*g.n+j], nil
}

// WeightAt reads the weight layer without bounds checks beyond the slice.
// The diagonal is always zero.
func (g *Weighted) WeightAt(i, j int) float64 {
	return g.weights[i*g.n+j]
}

func (g *Weighted) SetEdge(i, j int, present bool) error {
	if err := g.checkPair(i, j); err != nil {
		return err
	}
	if present {
		g.link(i, j)
		return nil
	}
	g.unlink(i, j)
	return nil
}

func (g *Weighted) SetWeight(i, j int, w float64) error {
	if err := g.checkPair(i, j); err != nil {
		return err
	}
	if !g.adj[i*g.n+j] {
		return fmt.Errorf("%w: set weight on missing edge (%d,%d)", ErrInvalidState, i, j)
	}
	g.weights[i*g.n+j] = w
	g.weights[j*g.n+i] = w
	return nil
}

// Edges lists every existing edge once, in row-major order of (i<j).
func (g *Weighted) Edges() []Edge {
	out := make([]Edge, 0, g.edges)
	for i := 0; i < g.n; i++ {
		for j := i + 1; j < g.n; j++ {
			if g.adj[i*g.n+j] {
				out = append(out, Edge{I: i, J: j})
			}
		}
	}
	return out
}

// Neighbors returns the current neighbor indices of i in ascending order.
func (g *Weighted) Neighbors(i int) ([]int, error) {
	if i < 0 || i >= g.n {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, g.n)
	}
	out := make([]int, 0)
	row := g.adj[i*g.n : (i+1)*g.n]
	for j, ok := range row {
		if ok {
			out = append(out, j)
		}
	}
	return out, nil
}

func (g *Weighted) Degree(i int) int {
	if i < 0 || i >= g.n {
		return 0
	}
	deg := 0
	for _, ok := range g.adj[i*g.n : (i+1)*g.n] {
		if ok {
			deg++
		}
	}
	return deg
}

// Node returns a copy of node i, including its derived views.
func (g *Weighted) Node(i int) (Node, error) {
	if i < 0 || i >= g.n {
		return Node{}, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, g.n)
	}
	node := g.nodes[i]
	node.Neighbors = append([]int(nil), node.Neighbors...)
	node.Weights = append([]float64(nil), node.Weights...)
	return node, nil
}

func (g *Weighted) SetActivation(i int, v float64) error {
	if i < 0 || i >= g.n {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, g.n)
	}
	g.nodes[i].Val = v
	return nil
}

// State returns the activation of every node in index order.
func (g *Weighted) State() []float64 {
	out := make([]float64, g.n)
	for i, node := range g.nodes {
		out[i] = node.Val
	}
	return out
}

// RefreshNodes recomputes each node's neighbor and weight row views. Callers
// run it once after a batch of mutations.
func (g *Weighted) RefreshNodes() {
	for i := range g.nodes {
		neighbors := g.nodes[i].Neighbors[:0]
		weights := g.nodes[i].Weights[:0]
		for j := 0; j < g.n; j++ {
			if g.adj[i*g.n+j] {
				neighbors = append(neighbors, j)
				weights = append(weights, g.weights[i*g.n+j])
			}
		}
		g.nodes[i].Neighbors = neighbors
		g.nodes[i].Weights = weights
	}
}

func (g *Weighted) Clone() *Weighted {
	out := &Weighted{
		n:       g.n,
		adj:     append([]bool(nil), g.adj...),
		weights: append([]float64(nil), g.weights...),
		edges:   g.edges,
		nodes:   make([]Node, g.n),
	}
	for i, node := range g.nodes {
		out.nodes[i] = Node{
			Index:     node.Index,
			Val:       node.Val,
			Neighbors: append([]int(nil), node.Neighbors...),
			Weights:   append([]float64(nil), node.Weights...),
		}
	}
	return out
}

// Equal reports whether both graphs have identical adjacency and weights.
func (g *Weighted) Equal(other *Weighted) bool {
	if other == nil || g.n != other.n || g.edges != other.edges {
		return false
	}
	for k := range g.adj {
		if g.adj[k] != other.adj[k] || g.weights[k] != other.weights[k] {
			return false
		}
	}
	return true
}

func (g *Weighted) link(i, j int) {
	if g.adj[i*g.n+j] {
		return
	}
	g.adj[i*g.n+j] = true
	g.adj[j*g.n+i] = true
	g.edges++
}

func (g *Weighted) unlink(i, j int) {
	if !g.adj[i*g.n+j] {
		return
	}
	g.adj[i*g.n+j] = false
	g.adj[j*g.n+i] = false
	g.weights[i*g.n+j] = 0
	g.weights[j*g.n+i] = 0
	g.edges--
}

func (g *Weighted) checkPair(i, j int) error {
	if i < 0 || i >= g.n || j < 0 || j >= g.n {
		return fmt.Errorf("%w: (%d,%d) not in [0,%d)", ErrIndexOutOfRange, i, j, g.n)
	}
	if i == j {
		return fmt.Errorf("%w: self pair (%d,%d)", ErrIndexOutOfRange, i, j)
	}
	return nil
}
