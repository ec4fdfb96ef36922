package icdmap

import (
	"math"
	"sort"
)

// PartialRatio scores how well the shorter string fits inside the longer one on a
// 0-100 scale. It aligns the shorter string against every matching block of the
// longer one and keeps the best ratio, the same way difflib-based partial ratio
// scorers do.
func PartialRatio(s1, s2 string) int {
	if s1 == s2 {
		return 100
	}
	a, b := []rune(s1), []rune(s2)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	shorter, longer := a, b
	if len(a) > len(b) {
		shorter, longer = b, a
	}

	best := 0.0
	for _, blk := range newSequenceMatcher(shorter, longer).matchingBlocks() {
		start := blk.j - blk.i
		if start < 0 {
			start = 0
		}
		end := start + len(shorter)
		if end > len(longer) {
			end = len(longer)
		}
		r := newSequenceMatcher(shorter, longer[start:end]).ratio()
		if r > 0.995 {
			return 100
		}
		if r > best {
			best = r
		}
	}
	return int(math.RoundToEven(100 * best))
}

type matchBlock struct {
	i, j, size int
}

type sequenceMatcher struct {
	a, b []rune
	b2j  map[rune][]int
}

// autojunkMin is the length of b from which very frequent runes stop seeding matches.
const autojunkMin = 200

func newSequenceMatcher(a, b []rune) *sequenceMatcher {
	b2j := make(map[rune][]int)
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}
	if n := len(b); n >= autojunkMin {
		limit := n/100 + 1
		for r, idx := range b2j {
			if len(idx) > limit {
				delete(b2j, r)
			}
		}
	}
	return &sequenceMatcher{a: a, b: b, b2j: b2j}
}

func (m *sequenceMatcher) findLongestMatch(alo, ahi, blo, bhi int) matchBlock {
	besti, bestj, bestsize := alo, blo, 0
	j2len := map[int]int{}
	for i := alo; i < ahi; i++ {
		next := map[int]int{}
		for _, j := range m.b2j[m.a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}

	// runes dropped from b2j as too frequent can still extend a match
	for besti > alo && bestj > blo && m.a[besti-1] == m.b[bestj-1] {
		besti, bestj, bestsize = besti-1, bestj-1, bestsize+1
	}
	for besti+bestsize < ahi && bestj+bestsize < bhi && m.a[besti+bestsize] == m.b[bestj+bestsize] {
		bestsize++
	}
	return matchBlock{i: besti, j: bestj, size: bestsize}
}

func (m *sequenceMatcher) matchingBlocks() []matchBlock {
	la, lb := len(m.a), len(m.b)
	type span struct{ alo, ahi, blo, bhi int }
	queue := []span{{0, la, 0, lb}}
	var blocks []matchBlock
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		x := m.findLongestMatch(s.alo, s.ahi, s.blo, s.bhi)
		if x.size == 0 {
			continue
		}
		blocks = append(blocks, x)
		if s.alo < x.i && s.blo < x.j {
			queue = append(queue, span{s.alo, x.i, s.blo, x.j})
		}
		if x.i+x.size < s.ahi && x.j+x.size < s.bhi {
			queue = append(queue, span{x.i + x.size, s.ahi, x.j + x.size, s.bhi})
		}
	}
	sort.Slice(blocks, func(p, q int) bool {
		if blocks[p].i != blocks[q].i {
			return blocks[p].i < blocks[q].i
		}
		if blocks[p].j != blocks[q].j {
			return blocks[p].j < blocks[q].j
		}
		return blocks[p].size < blocks[q].size
	})

	collapsed := make([]matchBlock, 0, len(blocks)+1)
	var cur matchBlock
	for _, blk := range blocks {
		if cur.i+cur.size == blk.i && cur.j+cur.size == blk.j {
			cur.size += blk.size
			continue
		}
		if cur.size > 0 {
			collapsed = append(collapsed, cur)
		}
		cur = blk
	}
	if cur.size > 0 {
		collapsed = append(collapsed, cur)
	}
	return append(collapsed, matchBlock{i: la, j: lb})
}

func (m *sequenceMatcher) ratio() float64 {
	total := len(m.a) + len(m.b)
	if total == 0 {
		return 1
	}
	matches := 0
	for _, blk := range m.matchingBlocks() {
		matches += blk.size
	}
	return 2 * float64(matches) / float64(total)
}
