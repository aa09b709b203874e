package knowledge

import "sort"

const rrfK = 60 // reciprocal-rank-fusion constant

// fuseRRF merges two ranked lists, scoring each chunk by the sum of
// 1/(rrfK+rank) over the lists it appears in. Ties keep first-seen order.
func fuseRRF(a, b []Hit, k int) []Hit {
	type agg struct {
		hit   Hit
		score float64
		order int
	}

	m := map[string]*agg{}
	add := func(list []Hit) {
		for _, h := range list {
			x, ok := m[h.ID]
			if !ok {
				x = &agg{hit: h, order: len(m)}
				m[h.ID] = x
			}
			x.score += 1.0 / float64(rrfK+h.Rank)
		}
	}
	add(a)
	add(b)

	items := make([]*agg, 0, len(m))
	for _, v := range m {
		items = append(items, v)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		return items[i].order < items[j].order
	})

	n := min(k, len(items))
	out := make([]Hit, 0, n)
	for i := 0; i < n; i++ {
		h := items[i].hit
		h.Score = items[i].score
		h.Rank = i + 1
		out = append(out, h)
	}
	return out
}
