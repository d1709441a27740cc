package facets

import (
	"sort"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// PairStats summarizes how two targets agree across all compared documents
type PairStats struct {
	Left        string
	Right       string
	Documents   int
	Same        int
	Different   int
	OnlyInLeft  int // documents with at least one term only Left reported
	OnlyInRight int
	// AvgTermsDiff is the mean absolute difference in term count over the
	// differing documents
	AvgTermsDiff float64
}

// DocDiff lists the terms one document disagrees on between two targets
type DocDiff struct {
	ID          string
	Left        string
	Right       string
	OnlyInLeft  []string
	OnlyInRight []string
	// Recounted holds terms both targets reported with different counts
	Recounted []string
}

// Size is the number of disagreeing terms
func (d DocDiff) Size() int {
	return len(d.OnlyInLeft) + len(d.OnlyInRight) + len(d.Recounted)
}

var equateEmpty = cmpopts.EquateEmpty()

// Compare computes PairStats for every unordered pair of targets, in target
// order
func Compare(res *Results) []PairStats {
	var pairs []PairStats
	for i := 0; i < len(res.Targets); i++ {
		for j := i + 1; j < len(res.Targets); j++ {
			pairs = append(pairs, comparePair(res, res.Targets[i], res.Targets[j]))
		}
	}
	return pairs
}

func comparePair(res *Results, left, right string) PairStats {
	ps := PairStats{Left: left, Right: right, Documents: len(res.IDs)}
	var termsDiff int

	for _, id := range res.IDs {
		l, r := res.Get(id, left), res.Get(id, right)
		if cmp.Equal(l, r, equateEmpty) {
			ps.Same++
			continue
		}
		ps.Different++

		if len(missing(l, r)) > 0 {
			ps.OnlyInLeft++
		}
		if len(missing(r, l)) > 0 {
			ps.OnlyInRight++
		}
		termsDiff += abs(len(l) - len(r))
	}

	if ps.Different > 0 {
		ps.AvgTermsDiff = float64(termsDiff) / float64(ps.Different)
	}
	return ps
}

// Differences returns the documents left and right disagree on, largest
// disagreement first
func Differences(res *Results, left, right string) []DocDiff {
	var diffs []DocDiff
	for _, id := range res.IDs {
		l, r := res.Get(id, left), res.Get(id, right)
		if cmp.Equal(l, r, equateEmpty) {
			continue
		}

		d := DocDiff{
			ID:          id,
			Left:        left,
			Right:       right,
			OnlyInLeft:  missing(l, r),
			OnlyInRight: missing(r, l),
		}
		for term, n := range l {
			if m, ok := r[term]; ok && m != n {
				d.Recounted = append(d.Recounted, term)
			}
		}
		sort.Strings(d.Recounted)
		diffs = append(diffs, d)
	}

	sort.SliceStable(diffs, func(i, j int) bool {
		return diffs[i].Size() > diffs[j].Size()
	})
	return diffs
}

// missing returns the sorted terms of a that b lacks
func missing(a, b map[string]int64) []string {
	var out []string
	for term := range a {
		if _, ok := b[term]; !ok {
			out = append(out, term)
		}
	}
	sort.Strings(out)
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
