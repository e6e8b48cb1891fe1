// Copyright 2011 Google Inc. All Rights Reserved.
// Use of this source code is governed by the Apache License, Version 2.0.

package zopfli

import "sort"

// This file is based on the block splitter of the Zopfli compression
// library. Split points are chosen by minimizing the estimated total
// encoded size of the resulting blocks.

// findMinimum finds i in [start, end) that minimizes f(i). For large
// ranges it samples 9 evenly spaced points and recurses around the best
// one, which finds a local minimum at a fraction of the evaluations.
func findMinimum(f func(i int) float64, start, end int) (pos int, smallest float64) {
	if end-start < 1024 {
		best := largeFloat
		result := start
		for i := start; i < end; i++ {
			if v := f(i); v < best {
				best = v
				result = i
			}
		}
		return result, best
	}

	const num = 9 // Good value: 9.
	var p [num]int
	var vp [num]float64
	lastbest := largeFloat
	pos = start

	for {
		if end-start <= num {
			break
		}
		for i := 0; i < num; i++ {
			p[i] = start + (i+1)*((end-start)/(num+1))
			vp[i] = f(p[i])
		}
		besti := 0
		best := vp[0]
		for i := 1; i < num; i++ {
			if vp[i] < best {
				best = vp[i]
				besti = i
			}
		}
		if best > lastbest {
			break
		}

		if besti != 0 {
			start = p[besti-1]
		}
		if besti != num-1 {
			end = p[besti+1]
		}
		pos = p[besti]
		lastbest = best
	}
	return pos, lastbest
}

// estimateCost estimates the encoded size of the range. A dynamic-tree
// block size is used as the estimate: not exact (the final choice may be
// a different block type) but a good enough relative measure.
func estimateCost(lz77 *LZ77Store, lstart, lend int) float64 {
	return CalculateBlockSize(lz77, lstart, lend, 2)
}

// addSorted inserts value into the sorted slice out.
func addSorted(value int, out []int) []int {
	i := sort.SearchInts(out, value)
	out = append(out, 0)
	copy(out[i+1:], out[i:])
	out[i] = value
	return out
}

// findLargestSplittableBlock locates the largest not-yet-done block
// between the current split points. Returns false when nothing remains.
func findLargestSplittableBlock(lz77size int, done map[int]bool, splitpoints []int) (lstart, lend int, found bool) {
	longest := 0
	for i := 0; i <= len(splitpoints); i++ {
		start := 0
		if i > 0 {
			start = splitpoints[i-1]
		}
		end := lz77size - 1
		if i < len(splitpoints) {
			end = splitpoints[i]
		}
		if !done[start] && end-start > longest {
			lstart = start
			lend = end
			found = true
			longest = end - start
		}
	}
	return lstart, lend, found
}

// BlockSplitLZ77 returns block split points as indices into the symbol
// store, at most maxblocks blocks. The estimated cost is minimized
// greedily: the largest remaining block is split at its best point until
// splitting no longer helps.
func BlockSplitLZ77(options *Options, lz77 *LZ77Store, maxblocks int) []int {
	if lz77.Size() < 10 {
		return nil // This code fails on tiny files.
	}

	var splitpoints []int
	done := make(map[int]bool)
	numblocks := 1
	lstart := 0
	lend := lz77.Size()

	for {
		if maxblocks > 0 && numblocks >= maxblocks {
			break
		}

		llpos, splitcost := findMinimum(func(i int) float64 {
			return estimateCost(lz77, lstart, i) + estimateCost(lz77, i, lend)
		}, lstart+1, lend)

		if debug && (llpos <= lstart || llpos >= lend) {
			panic("zopfli: split point out of range")
		}

		origcost := estimateCost(lz77, lstart, lend)

		if splitcost > origcost || llpos == lstart+1 || llpos == lend {
			done[lstart] = true
		} else {
			splitpoints = addSorted(llpos, splitpoints)
			numblocks++
		}

		var found bool
		lstart, lend, found = findLargestSplittableBlock(lz77.Size(), done, splitpoints)
		if !found {
			break // No further split will probably reduce compression.
		}
		if lend-lstart < 10 {
			break
		}
	}

	return splitpoints
}

// BlockSplit returns block split points as byte positions in
// [instart, inend), at most maxblocks blocks. A greedy LZ77 pass is used
// for the cost estimates: unintuitively, this gives better blocks than
// splitting on the optimal parse.
func BlockSplit(options *Options, in []byte, instart, inend int, maxblocks int) []int {
	s := NewBlockState(options, instart, inend, false)
	store := NewLZ77Store(in)
	h := newHash(windowSize)

	LZ77Greedy(s, in, instart, inend, store, h)

	lz77splitpoints := BlockSplitLZ77(options, store, maxblocks)

	// Convert LZ77 positions to positions in the uncompressed input.
	var splitpoints []int
	if len(lz77splitpoints) == 0 {
		return nil
	}
	pos := instart
	for i := 0; i < store.Size(); i++ {
		length := 1
		if store.dists[i] != 0 {
			length = int(store.litlens[i])
		}
		if lz77splitpoints[len(splitpoints)] == i {
			splitpoints = append(splitpoints, pos)
			if len(splitpoints) == len(lz77splitpoints) {
				break
			}
		}
		pos += length
	}
	if len(splitpoints) != len(lz77splitpoints) {
		panic("zopfli: split point conversion mismatch")
	}
	return splitpoints
}
