package hopfield

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
)

var ErrInvalidArgument = errors.New("invalid argument")

// Pattern is one stored binary memory; every entry is 0 or 1.
type Pattern []int

// Patterns is an immutable ordered set of M binary memories over N nodes. It
// is shared by reference between model copies.
type Patterns struct {
	states  []Pattern
	n       int
	bipolar [][]float64 // per node, per pattern, in {-1,+1}
}

func NewPatterns(states []Pattern) (*Patterns, error) {
	if len(states) == 0 {
		return nil, fmt.Errorf("%w: at least one pattern is required", ErrInvalidArgument)
	}
	n := len(states[0])
	if n < 2 {
		return nil, fmt.Errorf("%w: patterns need at least 2 nodes, got %d", ErrInvalidArgument, n)
	}
	copied := make([]Pattern, len(states))
	for k, state := range states {
		if len(state) != n {
			return nil, fmt.Errorf("%w: pattern %d has length %d, want %d", ErrInvalidArgument, k, len(state), n)
		}
		for i, bit := range state {
			if bit != 0 && bit != 1 {
				return nil, fmt.Errorf("%w: pattern %d bit %d is %d, want 0 or 1", ErrInvalidArgument, k, i, bit)
			}
		}
		copied[k] = append(Pattern(nil), state...)
	}

	bipolar := make([][]float64, n)
	for i := range bipolar {
		row := make([]float64, len(copied))
		for k, state := range copied {
			row[k] = float64(2*state[i] - 1)
		}
		bipolar[i] = row
	}
	return &Patterns{states: copied, n: n, bipolar: bipolar}, nil
}

// PatternsFromInts is NewPatterns over plain integer slices, the shape used by
// config files and persisted records.
func PatternsFromInts(states [][]int) (*Patterns, error) {
	converted := make([]Pattern, len(states))
	for k, state := range states {
		converted[k] = Pattern(state)
	}
	return NewPatterns(converted)
}

// Len is the number of stored patterns M.
func (p *Patterns) Len() int {
	return len(p.states)
}

// Nodes is the pattern length N.
func (p *Patterns) Nodes() int {
	return p.n
}

func (p *Patterns) At(k int) Pattern {
	return append(Pattern(nil), p.states[k]...)
}

func (p *Patterns) Ints() [][]int {
	out := make([][]int, len(p.states))
	for k, state := range p.states {
		out[k] = append([]int(nil), state...)
	}
	return out
}

// Bipolar returns pattern k's value at node i mapped to {-1,+1}.
func (p *Patterns) Bipolar(k, i int) float64 {
	return p.bipolar[i][k]
}

// Correlation is the bipolar Hebbian weight of the pair (i,j), averaged over
// all stored patterns.
func (p *Patterns) Correlation(i, j int) float64 {
	if i == j {
		return 0
	}
	a, b := p.bipolar[i], p.bipolar[j]
	sum := 0.0
	for k := range a {
		sum += a[k] * b[k]
	}
	return sum / float64(len(a))
}

// Signature is node i's firing string across patterns, e.g. "0110".
func (p *Patterns) Signature(i int) string {
	var b strings.Builder
	b.Grow(len(p.states))
	for _, state := range p.states {
		b.WriteByte(byte('0' + state[i]))
	}
	return b.String()
}

// CanonicalSignature maps a node's signature and its complement to one
// representative: the lexicographically smaller of the two.
func (p *Patterns) CanonicalSignature(i int) string {
	return CanonicalSignature(p.Signature(i))
}

func CanonicalSignature(sig string) string {
	flipped := FlipSignature(sig)
	if flipped < sig {
		return flipped
	}
	return sig
}

func FlipSignature(sig string) string {
	out := []byte(sig)
	for i, c := range out {
		switch c {
		case '0':
			out[i] = '1'
		case '1':
			out[i] = '0'
		}
	}
	return string(out)
}

// RandomPatterns draws m patterns of length n, each bit 1 with probability p.
func RandomPatterns(rng *rand.Rand, n, m int, p float64) (*Patterns, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if p < 0 || p > 1 {
		return nil, fmt.Errorf("%w: bit probability %v not in [0,1]", ErrInvalidArgument, p)
	}
	states := make([]Pattern, m)
	for k := range states {
		states[k] = randomState(rng, n, p)
	}
	return NewPatterns(states)
}

// RelatedPatterns draws a random seed pattern and derives the other m-1 by
// flipping a fixed fraction of the seed's bits.
func RelatedPatterns(rng *rand.Rand, n, m int, flip float64) (*Patterns, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if flip < 0 || flip > 1 {
		return nil, fmt.Errorf("%w: flip fraction %v not in [0,1]", ErrInvalidArgument, flip)
	}
	if m <= 0 || n <= 0 {
		return nil, fmt.Errorf("%w: n and m must be > 0", ErrInvalidArgument)
	}
	seed := randomState(rng, n, 0.5)
	states := []Pattern{seed}
	count := int(math.Round(flip * float64(n)))
	for k := 1; k < m; k++ {
		next := append(Pattern(nil), seed...)
		for _, idx := range rng.Perm(n)[:count] {
			next[idx] = 1 - next[idx]
		}
		states = append(states, next)
	}
	return NewPatterns(states)
}

// PatternsFromGroupDist builds patterns whose node groups follow dist. dist
// has one entry per orientation class of M-bit strings, so len(dist) must be
// 2^(M-1). Each node draws a class, then a random orientation.
func PatternsFromGroupDist(rng *rand.Rand, dist []float64, n int) (*Patterns, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	m, err := patternCountForDist(len(dist))
	if err != nil {
		return nil, err
	}
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 nodes, got %d", ErrInvalidArgument, n)
	}
	total := 0.0
	for _, d := range dist {
		if d < 0 {
			return nil, fmt.Errorf("%w: negative group weight %v", ErrInvalidArgument, d)
		}
		total += d
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: group distribution sums to zero", ErrInvalidArgument)
	}
	classes := OrientationClasses(m)

	states := make([]Pattern, m)
	for k := range states {
		states[k] = make(Pattern, n)
	}
	for i := 0; i < n; i++ {
		class := classes[sampleIndex(rng, dist, total)]
		if rng.Intn(2) == 1 {
			class = FlipSignature(class)
		}
		for k := 0; k < m; k++ {
			states[k][i] = int(class[k] - '0')
		}
	}
	return NewPatterns(states)
}

// RandomGroupDist returns a normalized random weight per orientation class of
// m-bit strings.
func RandomGroupDist(rng *rand.Rand, m int) ([]float64, error) {
	if m <= 0 {
		return nil, fmt.Errorf("%w: pattern count must be > 0", ErrInvalidArgument)
	}
	dist := make([]float64, 1<<(m-1))
	total := 0.0
	for i := range dist {
		dist[i] = float64(rng.Intn(100))
		total += dist[i]
	}
	for i := range dist {
		if total == 0 {
			dist[i] = 1 / float64(len(dist))
			continue
		}
		dist[i] /= total
	}
	return dist, nil
}

// OrientationClasses lists one representative per {s, flip(s)} pair of m-bit
// strings in counting order; every representative starts with '0'.
func OrientationClasses(m int) []string {
	out := make([]string, 0, 1<<max(0, m-1))
	seen := make(map[string]bool)
	for v := 0; v < 1<<m; v++ {
		s := fmt.Sprintf("%0*b", m, v)
		if seen[s] || seen[FlipSignature(s)] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func patternCountForDist(groups int) (int, error) {
	if groups <= 0 || groups&(groups-1) != 0 {
		return 0, fmt.Errorf("%w: group count %d is not a power of two", ErrInvalidArgument, groups)
	}
	m := 1
	for g := groups; g > 1; g >>= 1 {
		m++
	}
	return m, nil
}

func sampleIndex(rng *rand.Rand, weights []float64, total float64) int {
	r := rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return i
		}
	}
	return len(weights) - 1
}

func randomState(rng *rand.Rand, n int, p float64) Pattern {
	out := make(Pattern, n)
	for i := range out {
		if rng.Float64() < p {
			out[i] = 1
		}
	}
	return out
}
