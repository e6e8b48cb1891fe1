// Copyright 2011 Google Inc. All Rights Reserved.
// Use of this source code is governed by the Apache License, Version 2.0.

package zopfli

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// This file is based on the LZ77 stage of the Zopfli compression library.

// LZ77Store is an append-only container of LZ77 symbols: literals and
// (length, distance) back-references, each with the input position it
// encodes. Alongside the symbols it keeps cumulative histograms so that
// the symbol histogram of any range can be computed in O(alphabet)
// instead of O(range).
type LZ77Store struct {
	litlens []uint16 // literal byte value if dist is 0, match length otherwise
	dists   []uint16 // 0 for a literal, distance in [1, 32768] for a match
	pos     []int    // position in data where this symbol begins

	data []byte // the input this store refers to

	llSymbol []uint16 // litlen code per symbol
	dSymbol  []uint16 // distance code per symbol (0 for literals)

	// Cumulative histograms: a snapshot of the counts so far is kept for
	// every numLL-th (resp. numD-th) symbol.
	llCounts []int
	dCounts  []int
}

// NewLZ77Store returns an empty store for symbols referring to data.
func NewLZ77Store(data []byte) *LZ77Store {
	return &LZ77Store{data: data}
}

// Size returns the number of symbols in the store.
func (s *LZ77Store) Size() int {
	return len(s.litlens)
}

// Reset empties the store, keeping its input reference and capacity.
func (s *LZ77Store) Reset() {
	s.litlens = s.litlens[:0]
	s.dists = s.dists[:0]
	s.pos = s.pos[:0]
	s.llSymbol = s.llSymbol[:0]
	s.dSymbol = s.dSymbol[:0]
	s.llCounts = s.llCounts[:0]
	s.dCounts = s.dCounts[:0]
}

// storeLitLenDist appends a literal (dist == 0) or a length/distance pair
// to the store.
func (s *LZ77Store) storeLitLenDist(length, dist uint16, pos int) {
	origsize := len(s.litlens)
	llstart := numLL * (origsize / numLL)
	dstart := numD * (origsize / numD)

	// Everytime the index wraps around, a new cumulative histogram is
	// made: we're keeping one histogram value per LZ77 symbol rather than
	// a full histogram for each symbol.
	if origsize%numLL == 0 {
		for i := 0; i < numLL; i++ {
			if origsize == 0 {
				s.llCounts = append(s.llCounts, 0)
			} else {
				s.llCounts = append(s.llCounts, s.llCounts[origsize-numLL+i])
			}
		}
	}
	if origsize%numD == 0 {
		for i := 0; i < numD; i++ {
			if origsize == 0 {
				s.dCounts = append(s.dCounts, 0)
			} else {
				s.dCounts = append(s.dCounts, s.dCounts[origsize-numD+i])
			}
		}
	}

	s.litlens = append(s.litlens, length)
	s.dists = append(s.dists, dist)
	s.pos = append(s.pos, pos)
	if dist == 0 {
		s.llSymbol = append(s.llSymbol, length)
		s.dSymbol = append(s.dSymbol, 0)
		s.llCounts[llstart+int(length)]++
	} else {
		s.llSymbol = append(s.llSymbol, uint16(lengthSymbol[length]))
		s.dSymbol = append(s.dSymbol, uint16(distSymbol(int(dist))))
		s.llCounts[llstart+lengthSymbol[length]]++
		s.dCounts[dstart+distSymbol(int(dist))]++
	}
}

// CopyTo replaces dst's contents with a copy of s.
func (s *LZ77Store) CopyTo(dst *LZ77Store) {
	dst.data = s.data
	dst.litlens = append(dst.litlens[:0], s.litlens...)
	dst.dists = append(dst.dists[:0], s.dists...)
	dst.pos = append(dst.pos[:0], s.pos...)
	dst.llSymbol = append(dst.llSymbol[:0], s.llSymbol...)
	dst.dSymbol = append(dst.dSymbol[:0], s.dSymbol...)
	dst.llCounts = append(dst.llCounts[:0], s.llCounts...)
	dst.dCounts = append(dst.dCounts[:0], s.dCounts...)
}

// AppendTo appends all of s's symbols to target.
func (s *LZ77Store) AppendTo(target *LZ77Store) {
	for i := 0; i < len(s.litlens); i++ {
		target.storeLitLenDist(s.litlens[i], s.dists[i], s.pos[i])
	}
}

// byteRange returns the number of input bytes the symbols in
// [lstart, lend) encode.
func (s *LZ77Store) byteRange(lstart, lend int) int {
	if lstart == lend {
		return 0
	}
	l := lend - 1
	if s.dists[l] == 0 {
		return s.pos[l] + 1 - s.pos[lstart]
	}
	return s.pos[l] + int(s.litlens[l]) - s.pos[lstart]
}

// histogramAt reconstructs the histogram of symbols [0, lpos] from the
// nearest cumulative snapshot at or after lpos.
func (s *LZ77Store) histogramAt(lpos int, llCounts, dCounts []int) {
	// The real histogram is created by using the histogram for this
	// chunk, minus the count of symbols that came after lpos in it.
	llpos := numLL * (lpos / numLL)
	dpos := numD * (lpos / numD)
	copy(llCounts, s.llCounts[llpos:llpos+numLL])
	for i := lpos + 1; i < llpos+numLL && i < len(s.litlens); i++ {
		llCounts[s.llSymbol[i]]--
	}
	copy(dCounts, s.dCounts[dpos:dpos+numD])
	for i := lpos + 1; i < dpos+numD && i < len(s.litlens); i++ {
		if s.dists[i] != 0 {
			dCounts[s.dSymbol[i]]--
		}
	}
}

// histogram fills llCounts (size numLL) and dCounts (size numD) with the
// symbol counts of the range [lstart, lend).
func (s *LZ77Store) histogram(lstart, lend int, llCounts, dCounts []int) {
	if lstart+numLL*3 > lend {
		for i := range llCounts {
			llCounts[i] = 0
		}
		for i := range dCounts {
			dCounts[i] = 0
		}
		for i := lstart; i < lend; i++ {
			llCounts[s.llSymbol[i]]++
			if s.dists[i] != 0 {
				dCounts[s.dSymbol[i]]++
			}
		}
		return
	}
	// Subtract the cumulative histograms at the end and the start.
	s.histogramAt(lend-1, llCounts, dCounts)
	if lstart > 0 {
		llCounts2 := make([]int, numLL)
		dCounts2 := make([]int, numD)
		s.histogramAt(lstart-1, llCounts2, dCounts2)
		for i := 0; i < numLL; i++ {
			llCounts[i] -= llCounts2[i]
		}
		for i := 0; i < numD; i++ {
			dCounts[i] -= dCounts2[i]
		}
	}
}

// BlockState holds the matcher state for compressing one block: the
// options, the block boundaries, and the longest-match cache.
type BlockState struct {
	options *Options

	// Cache for length/distance pairs found so far, or nil.
	lmc *matchCache

	blockstart int
	blockend   int
}

// NewBlockState returns a block state for [blockstart, blockend), with a
// longest-match cache if addCache is set.
func NewBlockState(options *Options, blockstart, blockend int, addCache bool) *BlockState {
	s := &BlockState{
		options:    options,
		blockstart: blockstart,
		blockend:   blockend,
	}
	if addCache {
		s.lmc = newMatchCache(blockend - blockstart)
	}
	return s
}

// verifyLenDist panics if data[pos-dist..] does not actually repeat at
// data[pos..] for length bytes.
func verifyLenDist(data []byte, dataend, pos int, dist, length uint16) {
	if pos+int(length) > dataend {
		panic("zopfli: match runs past end of block")
	}
	for i := 0; i < int(length); i++ {
		if data[pos-int(dist)+i] != data[pos+i] {
			panic(fmt.Sprintf("zopfli: invalid match: pos %d dist %d length %d", pos, dist, length))
		}
	}
}

// matchLen returns the number of leading bytes a and b have in common.
// 'a' must be the shortest of the two.
func matchLen(a, b []byte) int {
	var checked int

	for len(a) >= 8 {
		if diff := binary.LittleEndian.Uint64(a) ^ binary.LittleEndian.Uint64(b); diff != 0 {
			return checked + (bits.TrailingZeros64(diff) >> 3)
		}
		checked += 8
		a = a[8:]
		b = b[8:]
	}
	b = b[:len(a)]
	for i := range a {
		if a[i] != b[i] {
			return i + checked
		}
	}
	return len(a) + checked
}

// tryGetFromCache looks the match at pos up in the longest-match cache.
// It returns true and fills length, distance (and sublen if non-nil) on a
// hit. On a partial hit it may lower *limit: the cache then already knows
// no longer match exists.
func (s *BlockState) tryGetFromCache(pos int, limit *int, sublen []uint16) (length, distance uint16, ok bool) {
	if s.lmc == nil {
		return 0, 0, false
	}
	lmcpos := pos - s.blockstart

	// Length > 0 and dist 0 is invalid combination, which indicates on
	// purpose that this cache value is not filled in yet.
	cacheAvailable := s.lmc.length[lmcpos] == 0 || s.lmc.dist[lmcpos] != 0
	limitOK := cacheAvailable &&
		(*limit == maxMatch || int(s.lmc.length[lmcpos]) <= *limit ||
			(sublen != nil && s.lmc.maxCachedSublen(lmcpos, int(s.lmc.length[lmcpos])) >= *limit))

	if !limitOK || !cacheAvailable {
		return 0, 0, false
	}

	if sublen == nil || int(s.lmc.length[lmcpos]) <= s.lmc.maxCachedSublen(lmcpos, int(s.lmc.length[lmcpos])) {
		length = s.lmc.length[lmcpos]
		if int(length) > *limit {
			length = uint16(*limit)
		}
		if sublen != nil {
			s.lmc.cacheToSublen(lmcpos, int(length), sublen)
			distance = sublen[length]
		} else {
			distance = s.lmc.dist[lmcpos]
		}
		return length, distance, true
	}
	// Can't use much of the cache, since the "sublens" need to be
	// calculated, but at least we already know when to stop.
	*limit = int(s.lmc.length[lmcpos])
	return 0, 0, false
}

// storeInCache stores the found match in the longest-match cache, if the
// query was an unrestricted one with sublen.
func (s *BlockState) storeInCache(pos, limit int, sublen []uint16, distance, length uint16) {
	if s.lmc == nil || limit != maxMatch || sublen == nil {
		return
	}
	lmcpos := pos - s.blockstart
	if !(s.lmc.length[lmcpos] == 0 || s.lmc.dist[lmcpos] != 0) {
		if length < minMatch {
			s.lmc.dist[lmcpos] = 0
			s.lmc.length[lmcpos] = 0
		} else {
			s.lmc.dist[lmcpos] = distance
			s.lmc.length[lmcpos] = length
		}
		s.lmc.sublenToCache(sublen, lmcpos, int(length))
	}
}

// findLongestMatch finds the longest match (at most limit bytes) for the
// data at pos, looking back at most windowSize bytes. When sublen is
// non-nil, sublen[k] receives for each length k in [3, length] the
// smallest distance at which a match of length k is available.
//
// Returns the best length found, at most limit, and its distance. A
// length below 3 is not a usable match: 0 when fewer than 3 bytes remain,
// 1 with distance 0 when no candidate matched, and 2 (with its distance)
// when the best candidate shares only two bytes.
func (s *BlockState) findLongestMatch(h *hash, in []byte, pos, size, limit int, sublen []uint16) (length, distance uint16) {
	if l, d, ok := s.tryGetFromCache(pos, &limit, sublen); ok {
		return l, d
	}

	if size-pos < minMatch {
		// The rest of the data is shorter than a match.
		return 0, 0
	}
	if pos+limit > size {
		limit = size - pos
	}

	hpos := pos & windowMask
	bestdist := 0
	bestlength := 1
	chainCounter := maxChainHits

	hprev := h.prev
	secondHash := false

	pp := int(h.head[h.val]) // During the whole loop, p == hprev[pp].
	p := int(hprev[pp])

	dist := 0
	if p < pp {
		dist = pp - p
	} else {
		dist = windowSize - p + pp
	}

	for dist < windowSize {
		if dist > 0 {
			// The byte after the best match so far has to match for this
			// candidate to be able to beat it.
			if pos+bestlength >= size || in[pos+bestlength] == in[pos-dist+bestlength] {
				prefix := 0
				if same0 := int(h.same[hpos]); same0 > 2 && in[pos] == in[pos-dist] {
					same1 := int(h.same[(pos-dist)&windowMask])
					same := same0
					if same1 < same {
						same = same1
					}
					if same > limit {
						same = limit
					}
					prefix = same
				}
				currentlength := prefix + matchLen(in[pos+prefix:pos+limit], in[pos-dist+prefix:pos-dist+limit])
				if currentlength > bestlength {
					if sublen != nil {
						for j := bestlength + 1; j <= currentlength; j++ {
							sublen[j] = uint16(dist)
						}
					}
					bestdist = dist
					bestlength = currentlength
					if currentlength >= limit {
						break
					}
				}
			}
		}

		// Switch to the second hash once that will be more efficient:
		// inside a run, only candidates that start a run of at least the
		// current best length are interesting.
		if !secondHash && bestlength >= int(h.same[hpos]) &&
			h.val2 == h.hashval2[p] {
			hprev = h.prev2
			secondHash = true
		}

		pp = p
		p = int(hprev[p])
		if p == pp {
			break // Uninited prev value.
		}
		if p < pp {
			dist += pp - p
		} else {
			dist += windowSize - p + pp
		}

		chainCounter--
		if chainCounter <= 0 {
			break
		}
	}

	s.storeInCache(pos, limit, sublen, uint16(bestdist), uint16(bestlength))

	return uint16(bestlength), uint16(bestdist)
}

// lengthScore rates a match for the greedy pass. Matches at distances
// over 1024 cost an extra distance-code bit, so a one-shorter match at a
// short distance is preferred over them.
func lengthScore(length, distance int) int {
	if distance > 1024 {
		return length - 1
	}
	return length
}

// LZ77Greedy does a single greedy pass with lazy matching over
// [instart, inend), appending the chosen symbols to store. It is the seed
// for the iterative optimizer and the basis for block splitting.
func LZ77Greedy(s *BlockState, in []byte, instart, inend int, store *LZ77Store, h *hash) {
	if instart == inend {
		return
	}

	windowstart := instart - windowSize
	if windowstart < 0 {
		windowstart = 0
	}

	h.reset(windowSize)
	h.warmup(in, windowstart, inend)
	for i := windowstart; i < instart; i++ {
		h.update(in, i, inend)
	}

	var dummySublen [259]uint16

	// Lazy matching.
	var prevLength, prevMatch int
	matchAvailable := false

	for i := instart; i < inend; i++ {
		h.update(in, i, inend)

		leng, dist := s.findLongestMatch(h, in, i, inend, maxMatch, dummySublen[:])
		lengthscore := lengthScore(int(leng), int(dist))

		if matchAvailable {
			matchAvailable = false
			prevlengthscore := lengthScore(prevLength, prevMatch)
			if lengthscore > prevlengthscore+1 {
				store.storeLitLenDist(uint16(in[i-1]), 0, i-1)
				if lengthscore >= minMatch && int(leng) < maxMatch {
					matchAvailable = true
					prevLength = int(leng)
					prevMatch = int(dist)
					continue
				}
			} else {
				// Add previous to output.
				leng = uint16(prevLength)
				dist = uint16(prevMatch)
				verifyLenDist(in, inend, i-1, dist, leng)
				store.storeLitLenDist(leng, dist, i-1)
				for j := 2; j < int(leng); j++ {
					i++
					h.update(in, i, inend)
				}
				continue
			}
		} else if lengthscore >= minMatch && int(leng) < maxMatch {
			matchAvailable = true
			prevLength = int(leng)
			prevMatch = int(dist)
			continue
		}
		// End of lazy matching.

		if lengthscore >= minMatch {
			verifyLenDist(in, inend, i, dist, leng)
			store.storeLitLenDist(leng, dist, i)
		} else {
			leng = 1
			store.storeLitLenDist(uint16(in[i]), 0, i)
		}
		for j := 1; j < int(leng); j++ {
			i++
			h.update(in, i, inend)
		}
	}
}
