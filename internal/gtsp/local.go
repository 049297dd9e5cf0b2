package gtsp

import (
	"context"
	"fmt"
	"math"

	"github.com/banshee-data/viewplan/internal/fsutil"
)

// maxImproveRounds caps the local search of LocalEngine.
const maxImproveRounds = 100

// LocalEngine solves GTSP instances in process. It speaks the same file
// protocol as the external engine: it reads the control and problem files
// and writes a tour file with the length comment.
//
// The search builds a nearest-neighbour tour from every node of the
// smallest set, then improves the order of the sets by relocating single
// sets and reversing runs of sets. Every candidate order is priced with the
// best choice of node per set.
type LocalEngine struct {
	FS     fsutil.FileSystem
	Logger Logger
}

// Solve implements Engine.
func (e LocalEngine) Solve(ctx context.Context, paramsPath string) error {
	fsys := e.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	log := e.Logger
	if log == nil {
		log = nopLogger{}
	}

	pf, err := fsys.Open(paramsPath)
	if err != nil {
		return fmt.Errorf("failed to open params: %w", err)
	}
	params, err := ParseParams(pf)
	pf.Close()
	if err != nil {
		return err
	}

	problemFile, err := fsys.Open(params.ProblemFile)
	if err != nil {
		return fmt.Errorf("failed to open problem: %w", err)
	}
	p, err := ReadProblem(problemFile)
	problemFile.Close()
	if err != nil {
		return err
	}

	nodes, length, err := SolveLocal(ctx, p)
	if err != nil {
		return err
	}
	log.Debugf("local engine: %d sets, tour length %d", len(p.Groups), length)

	w, err := fsys.Create(params.TourFile)
	if err != nil {
		return fmt.Errorf("failed to create tour file: %w", err)
	}
	if err := WriteTour(w, "PathPlanning", nodes, length); err != nil {
		w.Close()
		return fmt.Errorf("failed to write tour: %w", err)
	}
	return w.Close()
}

// SolveLocal returns a tour visiting one node of every set of p and its
// weight.
func SolveLocal(ctx context.Context, p *Problem) ([]int, int64, error) {
	if len(p.Groups) == 0 {
		return nil, 0, ErrEmptyProblem
	}
	for k, g := range p.Groups {
		if len(g) == 0 {
			return nil, 0, fmt.Errorf("gtsp: set %d is empty", k+1)
		}
	}

	smallest := 0
	for k, g := range p.Groups {
		if len(g) < len(p.Groups[smallest]) {
			smallest = k
		}
	}

	var order []int
	bestLen := int64(math.MaxInt64)
	for _, start := range p.Groups[smallest] {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		t := nearestNeighbour(p, start)
		if l := tourLength(p, t); l < bestLen {
			order, bestLen = setOrder(p, t), l
		}
	}

	nodes, length := choose(p, order)
	for round := 0; round < maxImproveRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		improved := relocate(p, order, &nodes, &length)
		improved = reverse(p, order, &nodes, &length) || improved
		if !improved {
			break
		}
	}
	return nodes, length, nil
}

func nearestNeighbour(p *Problem, start int) []int {
	visited := make([]bool, len(p.Groups))
	visited[p.Membership[start]] = true
	tour := []int{start}
	cur := start
	for len(tour) < len(p.Groups) {
		next, w := -1, int64(math.MaxInt64)
		for k, g := range p.Groups {
			if visited[k] {
				continue
			}
			for _, n := range g {
				if p.Weights[cur][n] < w {
					next, w = n, p.Weights[cur][n]
				}
			}
		}
		visited[p.Membership[next]] = true
		tour = append(tour, next)
		cur = next
	}
	return tour
}

func setOrder(p *Problem, tour []int) []int {
	order := make([]int, len(tour))
	for i, n := range tour {
		order[i] = p.Membership[n]
	}
	return order
}

func tourLength(p *Problem, tour []int) int64 {
	var l int64
	for i, n := range tour {
		l += p.Weights[tour[(i-1+len(tour))%len(tour)]][n]
	}
	return l
}

// choose picks the cheapest node of every set for a fixed cyclic order of
// sets. It runs a layered shortest path from each node of the smallest set.
func choose(p *Problem, order []int) ([]int, int64) {
	k := len(order)
	if k == 1 {
		t := []int{p.Groups[order[0]][0]}
		return t, tourLength(p, t)
	}

	// Rotate so the layered search starts at the smallest set.
	first := 0
	for i, g := range order {
		if len(p.Groups[g]) < len(p.Groups[order[first]]) {
			first = i
		}
	}
	layers := make([][]int, k)
	for i := range order {
		layers[i] = p.Groups[order[(first+i)%k]]
	}

	var best []int
	bestLen := int64(math.MaxInt64)
	back := make([][]int, k)
	for _, s := range layers[0] {
		prev, dist := []int{s}, []int64{0}
		for l := 1; l < k; l++ {
			next := make([]int64, len(layers[l]))
			from := make([]int, len(layers[l]))
			for b, n := range layers[l] {
				next[b] = math.MaxInt64
				for a, m := range prev {
					if d := dist[a] + p.Weights[m][n]; d < next[b] {
						next[b], from[b] = d, a
					}
				}
			}
			back[l] = from
			prev, dist = layers[l], next
		}

		end, total := -1, int64(math.MaxInt64)
		for b, n := range prev {
			if d := dist[b] + p.Weights[n][s]; d < total {
				end, total = b, d
			}
		}
		if total >= bestLen {
			continue
		}
		bestLen = total
		rotated := make([]int, k)
		rotated[0] = s
		for l, idx := k-1, end; l >= 1; l-- {
			rotated[l] = layers[l][idx]
			idx = back[l][idx]
		}
		// Undo the rotation so nodes follow order.
		best = make([]int, k)
		for i := range rotated {
			best[(first+i)%k] = rotated[i]
		}
	}
	return best, bestLen
}

// relocate moves single sets to the cheapest other position of the order.
func relocate(p *Problem, order []int, nodes *[]int, length *int64) bool {
	n := len(order)
	if n < 3 {
		return false
	}
	improved := false
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			cand := moved(order, i, j)
			if t, l := choose(p, cand); l < *length {
				copy(order, cand)
				*nodes, *length = t, l
				improved = true
				break
			}
		}
	}
	return improved
}

// reverse applies the first improving reversal of a run of sets (2-opt) for
// each starting position. Weights may be asymmetric so every candidate is
// re-priced in full.
func reverse(p *Problem, order []int, nodes *[]int, length *int64) bool {
	n := len(order)
	if n < 3 {
		return false
	}
	improved := false
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			reverseRange(order, i, j)
			if t, l := choose(p, order); l < *length {
				*nodes, *length = t, l
				improved = true
				break
			}
			reverseRange(order, i, j)
		}
	}
	return improved
}

func reverseRange(t []int, i, j int) {
	for ; i < j; i, j = i+1, j-1 {
		t[i], t[j] = t[j], t[i]
	}
}

// moved returns a copy of t with the element at i moved to index j.
func moved(t []int, i, j int) []int {
	out := make([]int, 0, len(t))
	v := t[i]
	for k, x := range t {
		if k == i {
			continue
		}
		out = append(out, x)
	}
	out = append(out[:j], append([]int{v}, out[j:]...)...)
	return out
}
