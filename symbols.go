// Copyright 2016 Google Inc. All Rights Reserved.
// Use of this source code is governed by the Apache License, Version 2.0.

package zopfli

import "math/bits"

// This file is based on the symbol tables of the Zopfli compression
// library. Lengths are mapped to the 257..285 code space and distances to
// the 0..29 code space of RFC 1951.

// distExtraBits returns the number of extra bits for the given distance.
func distExtraBits(dist int) int {
	if dist < 5 {
		return 0
	}
	return bits.Len32(uint32(dist-1)) - 2
}

// distExtraBitsValue returns the value of the extra bits for the given
// distance.
func distExtraBitsValue(dist int) int {
	if dist < 5 {
		return 0
	}
	l := bits.Len32(uint32(dist-1)) - 1
	return (dist - (1 + (1 << l))) & ((1 << (l - 1)) - 1)
}

// distSymbol returns the distance code in the interval [0, 29].
func distSymbol(dist int) int {
	if dist < 5 {
		return dist - 1
	}
	l := bits.Len32(uint32(dist-1)) - 1
	r := ((dist - 1) >> (l - 1)) & 1
	return l*2 + r
}

var (
	// lengthSymbol[l] is the litlen code for match length l.
	lengthSymbol [maxMatch + 1]int
	// lengthExtraBits[l] is the number of extra bits for match length l.
	lengthExtraBits [maxMatch + 1]int
	// lengthExtraBitsValue[l] is the value of those extra bits.
	lengthExtraBitsValue [maxMatch + 1]int
)

// Base lengths and extra-bit counts for the 29 length codes of RFC 1951
// section 3.2.5.
var lengthBase = [29]int{
	3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31,
	35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258,
}

var lengthBaseExtra = [29]int{
	0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
	3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0,
}

func init() {
	for code := 0; code < 28; code++ {
		end := lengthBase[code+1]
		for l := lengthBase[code]; l < end; l++ {
			lengthSymbol[l] = 257 + code
			lengthExtraBits[l] = lengthBaseExtra[code]
			lengthExtraBitsValue[l] = l - lengthBase[code]
		}
	}
	// Length 258 uses code 285 with no extra bits, not code 284 with 5.
	lengthSymbol[maxMatch] = 285
}

// lengthSymbolExtraBits returns the number of extra bits carried by litlen
// symbol s, for s in [257, 285].
func lengthSymbolExtraBits(s int) int {
	if s == 285 {
		return 0
	}
	return lengthBaseExtra[s-257]
}

// distSymbolExtraBits returns the number of extra bits carried by distance
// symbol s, for s in [0, 29].
func distSymbolExtraBits(s int) int {
	if s < 4 {
		return 0
	}
	return s/2 - 1
}
