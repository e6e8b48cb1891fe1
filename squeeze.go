// Copyright 2011 Google Inc. All Rights Reserved.
// Use of this source code is governed by the Apache License, Version 2.0.

package zopfli

import "fmt"

// This file is based on the "squeeze" stage of the Zopfli compression
// library: an iterative entropy-guided shortest-path LZ77 optimizer. A
// forward dynamic-programming pass finds, under a pluggable cost model,
// the cheapest way to reach every byte of the block; the resulting symbol
// sequence feeds new symbol statistics, which feed the next pass.

// symbolStats holds symbol frequencies and the entropy-derived bit
// lengths the statistical cost model reads.
type symbolStats struct {
	// The literal and length symbols.
	litlens [numLL]int
	// The 32 unique dist symbols, not the 32768 possible dists.
	dists [numD]int

	// Length of each lit/len symbol in bits.
	llSymbols [numLL]float64
	// Length of each dist symbol in bits.
	dSymbols [numD]float64
}

// copyFrom replaces s with a copy of source.
func (s *symbolStats) copyFrom(source *symbolStats) {
	*s = *source
}

// addWeighed sets the frequencies of s to w1*stats1 + w2*stats2.
func (s *symbolStats) addWeighed(stats1 *symbolStats, w1 float64, stats2 *symbolStats, w2 float64) {
	for i := 0; i < numLL; i++ {
		s.litlens[i] = int(float64(stats1.litlens[i])*w1 + float64(stats2.litlens[i])*w2)
	}
	for i := 0; i < numD; i++ {
		s.dists[i] = int(float64(stats1.dists[i])*w1 + float64(stats2.dists[i])*w2)
	}
	s.litlens[256] = 1 // End symbol.
}

func (s *symbolStats) clearFreqs() {
	for i := range s.litlens {
		s.litlens[i] = 0
	}
	for i := range s.dists {
		s.dists[i] = 0
	}
}

// calculate rebuilds the bit-length tables from the frequencies. Symbols
// with zero frequency get a finite positive length, so the optimizer
// never treats an unused symbol as free.
func (s *symbolStats) calculate() {
	calculateEntropy(s.litlens[:], s.llSymbols[:])
	calculateEntropy(s.dists[:], s.dSymbols[:])
}

// getFromStore populates the frequencies from the symbols in store and
// rebuilds the bit-length tables.
func (s *symbolStats) getFromStore(store *LZ77Store) {
	for i := 0; i < store.Size(); i++ {
		if store.dists[i] == 0 {
			s.litlens[store.litlens[i]]++
		} else {
			s.litlens[lengthSymbol[store.litlens[i]]]++
			s.dists[distSymbol(int(store.dists[i]))]++
		}
	}
	s.litlens[256] = 1 // End symbol.
	s.calculate()
}

// ranState is a multiply-with-carry generator used only to perturb
// symbol frequencies. The fixed seed keeps runs reproducible.
type ranState struct {
	mW, mZ uint32
}

func newRanState() *ranState {
	return &ranState{mW: 1, mZ: 2}
}

// ran returns the next pseudo-random number.
func (r *ranState) ran() uint32 {
	r.mZ = 36969*(r.mZ&65535) + (r.mZ >> 16)
	r.mW = 18000*(r.mW&65535) + (r.mW >> 16)
	return (r.mZ << 16) + r.mW // 32-bit result
}

func (r *ranState) randomizeFreqs(freqs []int) {
	n := len(freqs)
	for i := 0; i < n; i++ {
		if (r.ran()>>4)%3 == 0 {
			freqs[i] = freqs[r.ran()%uint32(n)]
		}
	}
}

func (r *ranState) randomizeStatFreqs(stats *symbolStats) {
	r.randomizeFreqs(stats.litlens[:])
	r.randomizeFreqs(stats.dists[:])
	stats.litlens[256] = 1
}

// costModel estimates the bit cost of one LZ77 symbol. litlen is a
// literal byte value if dist is 0, a match length otherwise.
type costModel func(litlen, dist int) float64

// costFixed returns the cost of the symbol under the fixed Huffman tree
// of RFC 1951, including extra bits.
func costFixed(litlen, dist int) float64 {
	if dist == 0 {
		if litlen <= 143 {
			return 8
		}
		return 9
	}
	dbits := distExtraBits(dist)
	lbits := lengthExtraBits[litlen]
	cost := 7
	if lengthSymbol[litlen] > 279 {
		cost = 8
	}
	cost += 5 // Every dist symbol has length 5.
	return float64(cost + dbits + lbits)
}

// costStat returns the cost of the symbol under the entropy-derived bit
// lengths in stats.
func (s *symbolStats) costStat(litlen, dist int) float64 {
	if dist == 0 {
		return s.llSymbols[litlen]
	}
	lsym := lengthSymbol[litlen]
	lbits := lengthSymbolExtraBits(lsym)
	dsym := distSymbol(dist)
	dbits := distSymbolExtraBits(dsym)
	return float64(lbits+dbits) + s.llSymbols[lsym] + s.dSymbols[dsym]
}

// Table of distances that have a different distance symbol in the deflate
// specification. Each value is the first distance that has a new symbol.
// Only different symbols affect the cost model so only these need to be
// checked. See RFC 1951 section 3.2.5.
var dsymbolBoundaries = [30]int{
	1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193, 257, 385,
	513, 769, 1025, 1537, 2049, 3073, 4097, 6145, 8193, 12289, 16385, 24577,
}

// costModelMinCost returns the minimum cost the model can return for any
// valid length and distance symbol. It is a cheap lower bound the forward
// pass uses to skip cost-model calls.
func costModelMinCost(model costModel) float64 {
	bestlength := 0 // length that has lowest cost in the cost model
	bestdist := 0   // distance that has lowest cost in the cost model

	mincost := largeFloat
	for i := 3; i < 259; i++ {
		if c := model(i, 1); c < mincost {
			bestlength = i
			mincost = c
		}
	}

	mincost = largeFloat
	for i := 0; i < 30; i++ {
		if c := model(3, dsymbolBoundaries[i]); c < mincost {
			bestdist = dsymbolBoundaries[i]
			mincost = c
		}
	}

	return model(bestlength, bestdist)
}

// bestLengths performs the forward pass: for every byte of the block it
// finds the cheapest symbol ending there, according to the cost model.
// lengthArray[j] receives the length of that symbol (1 for a literal).
// Returns the model's cost of reaching the end of the block.
func bestLengths(s *BlockState, in []byte, instart, inend int, model costModel, lengthArray []uint16) float64 {
	if instart == inend {
		return 0
	}

	blocksize := inend - instart
	windowstart := instart - windowSize
	if windowstart < 0 {
		windowstart = 0
	}
	var sublen [259]uint16

	mincost := costModelMinCost(model)

	costs := make([]float32, blocksize+1)

	h := newHash(windowSize)
	h.warmup(in, windowstart, inend)
	for i := windowstart; i < instart; i++ {
		h.update(in, i, inend)
	}

	for i := 1; i < blocksize+1; i++ {
		costs[i] = largeFloat
	}
	costs[0] = 0 // Because it's the start.
	lengthArray[0] = 0

	for i := instart; i < inend; i++ {
		j := i - instart // Index in the costs array and lengthArray.
		h.update(in, i, inend)

		// If we're in a long repetition of the same character and have
		// more than maxMatch characters before and after our position.
		if int(h.same[i&windowMask]) > maxMatch*2 &&
			i > instart+maxMatch+1 &&
			i+maxMatch*2+1 < inend &&
			int(h.same[(i-maxMatch)&windowMask]) > maxMatch {
			symbolcost := model(maxMatch, 1)
			// Set the length to reach each one to maxMatch, and the cost
			// to the cost corresponding to that length. Doing this, we
			// skip maxMatch values to avoid calling findLongestMatch.
			for k := 0; k < maxMatch; k++ {
				costs[j+maxMatch] = costs[j] + float32(symbolcost)
				lengthArray[j+maxMatch] = maxMatch
				i++
				j++
				h.update(in, i, inend)
			}
		}

		leng, _ := s.findLongestMatch(h, in, i, inend, maxMatch, sublen[:])

		// Literal.
		if i+1 <= inend {
			newCost := costs[j] + float32(model(int(in[i]), 0))
			if debug && newCost < 0 {
				panic("zopfli: negative cost")
			}
			if newCost < costs[j+1] {
				costs[j+1] = newCost
				lengthArray[j+1] = 1
			}
		}
		// Lengths.
		for k := 3; k <= int(leng) && i+k <= inend; k++ {
			// Calling the cost model is expensive, avoid this if we are
			// already at the minimum possible cost that it can return.
			if float64(costs[j+k]-costs[j]) <= mincost {
				continue
			}

			newCost := costs[j] + float32(model(k, int(sublen[k])))
			if debug && newCost < 0 {
				panic("zopfli: negative cost")
			}
			if newCost < costs[j+k] {
				costs[j+k] = newCost
				lengthArray[j+k] = uint16(k)
			}
		}
	}

	if debug && costs[blocksize] < 0 {
		panic("zopfli: negative block cost")
	}
	return float64(costs[blocksize])
}

// traceBackwards converts lengthArray into the ordered list of symbol
// lengths covering the block: walk back from the end, following each
// best-predecessor link, then reverse.
func traceBackwards(size int, lengthArray []uint16, path []uint16) []uint16 {
	path = path[:0]
	if size == 0 {
		return path
	}
	for index := size; ; {
		l := lengthArray[index]
		if int(l) > index || l > maxMatch || l == 0 {
			panic("zopfli: invalid length array")
		}
		path = append(path, l)
		index -= int(l)
		if index == 0 {
			break
		}
	}

	// Mirror result.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// followPath replays the lengths in path over the input, recovering each
// match's distance from the matcher, and appends the symbols to store.
func followPath(s *BlockState, in []byte, instart, inend int, path []uint16, store *LZ77Store) {
	if instart == inend {
		return
	}

	windowstart := instart - windowSize
	if windowstart < 0 {
		windowstart = 0
	}

	h := newHash(windowSize)
	h.warmup(in, windowstart, inend)
	for i := windowstart; i < instart; i++ {
		h.update(in, i, inend)
	}

	pos := instart
	for _, length := range path {
		if pos >= inend {
			panic("zopfli: path runs past end of block")
		}

		h.update(in, pos, inend)

		// Add to output.
		if length >= minMatch {
			// Get the distance by recalculating longest match. The found
			// length should match the length from the path.
			leng, dist := s.findLongestMatch(h, in, pos, inend, int(length), nil)
			if leng != length && length > 2 && leng > 2 {
				panic(fmt.Sprintf("zopfli: replayed match has length %d, want %d", leng, length))
			}
			verifyLenDist(in, inend, pos, dist, length)
			store.storeLitLenDist(length, dist, pos)
		} else {
			length = 1
			store.storeLitLenDist(uint16(in[pos]), 0, pos)
		}

		if pos+int(length) > inend {
			panic("zopfli: symbol runs past end of block")
		}
		for j := 1; j < int(length); j++ {
			h.update(in, pos+j, inend)
		}

		pos += int(length)
	}
}

// lz77OptimalRun does a single squeeze run: forward pass, backtrace,
// replay into store. Returns the cost of the path according to the model;
// this is not the true block cost.
func lz77OptimalRun(s *BlockState, in []byte, instart, inend int, path []uint16,
	lengthArray []uint16, model costModel, store *LZ77Store) ([]uint16, float64) {
	cost := bestLengths(s, in, instart, inend, model, lengthArray)
	path = traceBackwards(inend-instart, lengthArray, path)
	followPath(s, in, instart, inend, path, store)
	if cost >= largeFloat {
		panic("zopfli: no path through block")
	}
	return path, cost
}

// LZ77Optimal calculates lit/len and dist pairs for the given data using
// numIterations runs of the statistics-driven shortest-path optimizer,
// keeping the best result (by true encoded block size) in store.
func LZ77Optimal(s *BlockState, in []byte, instart, inend int, numIterations int, store *LZ77Store) {
	if instart == inend {
		return
	}

	blocksize := inend - instart
	lengthArray := make([]uint16, blocksize+1)
	var path []uint16
	currentstore := NewLZ77Store(in)
	h := newHash(windowSize)

	stats := new(symbolStats)
	beststats := new(symbolStats)
	laststats := new(symbolStats)

	bestcost := largeFloat
	lastcost := 0.0
	// Try randomizing the costs a bit once the size stabilizes.
	ranState := newRanState()
	lastrandomstep := -1

	// Do regular deflate, then loop multiple shortest path runs, each
	// time using the statistics of the previous run.

	// Initial run.
	LZ77Greedy(s, in, instart, inend, currentstore, h)
	stats.getFromStore(currentstore)

	// Repeat statistics with each time the cost model from the previous
	// stat run.
	for i := 0; i < numIterations; i++ {
		currentstore.Reset()
		path, _ = lz77OptimalRun(s, in, instart, inend, path, lengthArray,
			stats.costStat, currentstore)
		cost := CalculateBlockSize(currentstore, 0, currentstore.Size(), 2)
		if s.options != nil && (s.options.VerboseMore || (s.options.Verbose != nil && cost < bestcost)) {
			verbosef(s.options, "Iteration %d: %d bit\n", i, int(cost))
		}
		if cost < bestcost {
			// Copy to the output store.
			currentstore.CopyTo(store)
			beststats.copyFrom(stats)
			bestcost = cost
		}
		laststats.copyFrom(stats)
		stats.clearFreqs()
		stats.getFromStore(currentstore)
		if lastrandomstep != -1 {
			// This makes it converge slower but better. Do it only once
			// the randomness kicks in so that if the user does few
			// iterations, it gives a better result sooner.
			stats.addWeighed(stats, 1.0, laststats, 0.5)
			stats.calculate()
		}
		if i > 5 && cost == lastcost {
			stats.copyFrom(beststats)
			ranState.randomizeStatFreqs(stats)
			stats.calculate()
			lastrandomstep = i
		}
		lastcost = cost
	}
}

// LZ77OptimalFixed is like LZ77Optimal, but with the cost model of the
// fixed Huffman tree. One run suffices since the tree is known.
func LZ77OptimalFixed(s *BlockState, in []byte, instart, inend int, store *LZ77Store) {
	if instart == inend {
		return
	}
	blocksize := inend - instart
	lengthArray := make([]uint16, blocksize+1)

	s.blockstart = instart
	s.blockend = inend

	// Shortest path for fixed tree. This one should give the shortest
	// possible result for fixed tree, no repeated runs are needed since
	// the tree is known.
	lz77OptimalRun(s, in, instart, inend, nil, lengthArray, costFixed, store)
}
