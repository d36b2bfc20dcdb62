package index

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/kailas-cloud/talentmatch/internal/domain"
)

const kmeansIterations = 10

// strategy decides where entries live and which cells a query visits.
type strategy interface {
	name() domain.IndexStrategy
	// lists is the number of posting lists; 0 means a full shard scan.
	lists() int
	assign(unit []float32) int
	probe(q []float32) []int
}

type exact struct{}

func (exact) name() domain.IndexStrategy { return domain.IndexExact }
func (exact) lists() int                 { return 0 }
func (exact) assign([]float32) int       { return 0 }
func (exact) probe([]float32) []int      { return nil }

// ivf is an inverted file over spherical k-means centroids.
// An untrained ivf (no centroids) keeps everything in a single list.
type ivf struct {
	centroids [][]float32
	nprobe    int
}

func (v *ivf) name() domain.IndexStrategy { return domain.IndexIVF }

func (v *ivf) lists() int { return max(1, len(v.centroids)) }

func (v *ivf) assign(u []float32) int {
	if u == nil || len(v.centroids) == 0 {
		return 0
	}
	best, bestSim := 0, math.Inf(-1)
	for i, c := range v.centroids {
		if s := cosine(u, c); s > bestSim {
			best, bestSim = i, s
		}
	}
	return best
}

func (v *ivf) probe(q []float32) []int {
	n := len(v.centroids)
	if n <= 1 {
		return []int{0}
	}
	order := make([]int, n)
	sims := make([]float64, n)
	for i, c := range v.centroids {
		order[i] = i
		sims[i] = cosine(q, c)
	}
	slices.SortFunc(order, func(a, b int) int {
		if c := cmp.Compare(sims[b], sims[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return order[:min(max(1, v.nprobe), n)]
}

// trainIVF runs deterministic spherical k-means over unit vectors sorted by id.
// Initial centroids are evenly spaced picks; an empty cluster keeps its centroid.
func trainIVF(ctx context.Context, vecs [][]float32, nlist, nprobe, dim int) (*ivf, error) {
	if len(vecs) == 0 {
		return &ivf{nprobe: nprobe}, nil
	}
	if nlist <= 0 {
		nlist = int(math.Round(math.Sqrt(float64(len(vecs)))))
	}
	nlist = min(max(1, nlist), len(vecs))

	centroids := make([][]float32, nlist)
	for i := range centroids {
		centroids[i] = slices.Clone(vecs[i*len(vecs)/nlist])
	}

	tmp := &ivf{centroids: centroids}
	assignments := make([]int, len(vecs))
	for i := range assignments {
		assignments[i] = -1
	}
	for range kmeansIterations {
		if err := ctx.Err(); err != nil {
			return nil, err //nolint:wrapcheck // caller wraps
		}
		changed := false
		for i, vec := range vecs {
			if a := tmp.assign(vec); a != assignments[i] {
				assignments[i] = a
				changed = true
			}
		}
		if !changed {
			break
		}
		sums := make([][]float64, nlist)
		for i, vec := range vecs {
			a := assignments[i]
			if sums[a] == nil {
				sums[a] = make([]float64, dim)
			}
			for d, x := range vec {
				sums[a][d] += float64(x)
			}
		}
		for c, sum := range sums {
			if sum == nil {
				continue
			}
			mean := make([]float32, dim)
			for d, x := range sum {
				mean[d] = float32(x)
			}
			if u := unit(mean); u != nil {
				centroids[c] = u
			}
		}
	}
	return &ivf{centroids: centroids, nprobe: nprobe}, nil
}
