// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package aklz

// matchWindow is the LZ dictionary for one Compress call.
// It remembers, for every three-byte prefix, the positions within the
// last windowSize-1 bytes where that prefix starts.
//
// A distance of exactly windowSize is never offered: for destinations just
// past the first window the decoder resolves that anchor to the destination
// itself rather than to the byte a full window back.
type matchWindow struct {
	src    []byte
	start  int // oldest position still addressable
	end    int // next position to be inserted
	chains map[uint32][]int
}

func newMatchWindow(src []byte) *matchWindow {
	return &matchWindow{src: src, chains: make(map[uint32][]int)}
}

func (w *matchWindow) key(pos int) uint32 {
	return uint32(w.src[pos])<<16 | uint32(w.src[pos+1])<<8 | uint32(w.src[pos+2])
}

// search finds the longest earlier occurrence of the bytes at pos.
// Among equally long candidates the nearest wins.
func (w *matchWindow) search(pos int) (from, n int) {
	limit := min(maxMatch, len(w.src)-pos)
	if limit < minMatch {
		return 0, 0
	}

	k := w.key(pos)
	chain := w.chains[k]
	drop := 0
	for drop < len(chain) && chain[drop] < w.start {
		drop++
	}
	if drop > 0 {
		chain = chain[drop:]
		w.chains[k] = chain
	}

	for i := len(chain) - 1; i >= 0; i-- {
		cand := chain[i]
		l := minMatch // the key already matched
		for l < limit && w.src[cand+l] == w.src[pos+l] {
			l++
		}
		if l > n {
			from, n = cand, l
			if n == limit {
				break
			}
		}
	}
	return from, n
}

// advance records the n bytes just consumed at pos, then slides the window.
func (w *matchWindow) advance(pos, n int) {
	for p := pos; p < pos+n; p++ {
		if p+minMatch <= len(w.src) {
			k := w.key(p)
			w.chains[k] = append(w.chains[k], p)
		}
	}
	w.end = pos + n
	w.start = max(0, w.end-(windowSize-1))
}
