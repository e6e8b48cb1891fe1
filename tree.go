// Copyright 2011 Google Inc. All Rights Reserved.
// Use of this source code is governed by the Apache License, Version 2.0.

package zopfli

import "math"

// This file is based on the Huffman utilities of the Zopfli compression
// library.

// calculateBitLengths computes length-limited Huffman code lengths for
// the given symbol frequencies. Unused symbols get length 0.
func calculateBitLengths(count []int, maxbits int, bitlengths []int) {
	if err := lengthLimitedCodeLengths(count, maxbits, bitlengths); err != nil {
		panic(err)
	}
}

// lengthsToSymbols converts a set of canonical code lengths into the
// symbols (codes) themselves, per RFC 1951 section 3.2.2.
func lengthsToSymbols(lengths []int, maxbits int, symbols []uint32) {
	blCount := make([]int, maxbits+1)
	nextCode := make([]uint32, maxbits+1)

	for i := range symbols {
		symbols[i] = 0
	}

	// 1) Count the number of codes for each code length.
	for _, l := range lengths {
		if l > maxbits {
			panic("zopfli: code length exceeds limit")
		}
		blCount[l]++
	}
	// 2) Find the numerical value of the smallest code for each code
	// length.
	var code uint32
	blCount[0] = 0
	for b := 1; b <= maxbits; b++ {
		code = (code + uint32(blCount[b-1])) << 1
		nextCode[b] = code
	}
	// 3) Assign numerical values to all codes, consecutively.
	for i, l := range lengths {
		if l != 0 {
			symbols[i] = nextCode[l]
			nextCode[l]++
		}
	}
}

const invLog2 = 1.4426950408889 // 1.0 / log(2.0)

// calculateEntropy computes the theoretical bit length of each symbol
// under the frequency distribution in count. Zero-frequency symbols get
// the cost of a symbol with probability 1/sum, which keeps them finite
// and strictly positive.
func calculateEntropy(count []int, bitlengths []float64) {
	sum := 0
	for _, c := range count {
		sum += c
	}
	var log2sum float64
	if sum == 0 {
		log2sum = math.Log(float64(len(count))) * invLog2
	} else {
		log2sum = math.Log(float64(sum)) * invLog2
	}
	for i, c := range count {
		// When the count of the symbol is 0, but its cost is requested
		// anyway, it means the symbol will appear at least once anyway,
		// so give it the cost as if its count is 1.
		if c == 0 {
			bitlengths[i] = log2sum
		} else {
			bitlengths[i] = log2sum - math.Log(float64(c))*invLog2
		}
		// Depending on compiler and architecture, the above subtraction
		// of two floating point numbers may give a negative result very
		// close to zero instead of zero.
		if bitlengths[i] < 0 && bitlengths[i] > -1e-5 {
			bitlengths[i] = 0
		}
		if debug && bitlengths[i] < 0 {
			panic("zopfli: negative entropy")
		}
	}
}
