// Copyright 2011 Google Inc. All Rights Reserved.
// Use of this source code is governed by the Apache License, Version 2.0.

package zopfli

// This file is based on the DEFLATE bitstream writer of the Zopfli
// compression library.

// bitWriter appends DEFLATE bits to a byte slice, least significant bit
// first within each byte.
type bitWriter struct {
	out []byte
	bp  uint8 // number of bits already used in the last byte
}

func (w *bitWriter) addBit(bit uint32) {
	if w.bp == 0 {
		w.out = append(w.out, 0)
	}
	w.out[len(w.out)-1] |= byte(bit) << w.bp
	w.bp = (w.bp + 1) & 7
}

// addBits writes the length lowest bits of symbol, LSB first.
func (w *bitWriter) addBits(symbol uint32, length int) {
	// TODO(lode): make more efficient (add more bits at once).
	for i := 0; i < length; i++ {
		w.addBit((symbol >> uint(i)) & 1)
	}
}

// addHuffmanBits writes a Huffman code, MSB first.
func (w *bitWriter) addHuffmanBits(symbol uint32, length int) {
	for i := 0; i < length; i++ {
		w.addBit((symbol >> uint(length-i-1)) & 1)
	}
}

// getFixedTree fills in the code lengths of the fixed Huffman tree of
// RFC 1951 section 3.2.6.
func getFixedTree(llLengths, dLengths []int) {
	for i := 0; i < 144; i++ {
		llLengths[i] = 8
	}
	for i := 144; i < 256; i++ {
		llLengths[i] = 9
	}
	for i := 256; i < 280; i++ {
		llLengths[i] = 7
	}
	for i := 280; i < numLL; i++ {
		llLengths[i] = 8
	}
	for i := 0; i < numD; i++ {
		dLengths[i] = 5
	}
}

// patchDistanceCodes ensures there are at least two distance codes, to
// support buggy decoders: zlib 1.2.1 and below have a bug where it fails
// if there are no distance codes (with HDIST of 0), even though it's
// valid according to the deflate spec.
func patchDistanceCodes(dLengths []int) {
	numDistCodes := 0 // Amount of non-zero distance codes
	for i := 0; i < 30; i++ {
		if dLengths[i] != 0 {
			numDistCodes++
		}
		if numDistCodes >= 2 {
			return // Two or more codes is fine.
		}
	}
	if numDistCodes == 0 {
		dLengths[0] = 1
		dLengths[1] = 1
	} else if numDistCodes == 1 {
		if dLengths[0] != 0 {
			dLengths[1] = 1
		} else {
			dLengths[0] = 1
		}
	}
}

// The order in which code length code lengths are encoded, per RFC 1951.
var clclOrder = [19]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

// encodeTree encodes the Huffman tree itself and returns its size in
// bits. The code lengths are run-length encoded with the 16/17/18
// repeat codes enabled per the use flags. When w is nil only the size is
// computed, nothing is written.
func encodeTree(llLengths, dLengths []int, use16, use17, use18 bool, w *bitWriter) int {
	var rle, rleBits []uint32 // Runlength encoded version of lengths and extra bits.
	var clCounts [19]int

	hlit := 29  // 286 - 257
	hdist := 29 // 32 - 1, but gzip does not like hdist > 29
	sizeOnly := w == nil

	// Trim zeros.
	for hlit > 0 && llLengths[257+hlit-1] == 0 {
		hlit--
	}
	for hdist > 0 && dLengths[1+hdist-1] == 0 {
		hdist--
	}
	hlit2 := hlit + 257
	lldTotal := hlit2 + hdist + 1 // Size of lld.

	// lld returns the code length of the i-th symbol of the combined
	// literal/length and distance alphabet.
	lld := func(i int) int {
		if i < hlit2 {
			return llLengths[i]
		}
		return dLengths[i-hlit2]
	}

	for i := 0; i < lldTotal; i++ {
		symbol := lld(i)
		count := 1
		if use16 || (symbol == 0 && (use17 || use18)) {
			for j := i + 1; j < lldTotal && symbol == lld(j); j++ {
				count++
			}
		}
		i += count - 1

		// Repetitions of zeroes.
		if symbol == 0 && count >= 3 {
			if use18 {
				for count >= 11 {
					count2 := count
					if count2 > 138 {
						count2 = 138
					}
					if !sizeOnly {
						rle = append(rle, 18)
						rleBits = append(rleBits, uint32(count2-11))
					}
					clCounts[18]++
					count -= count2
				}
			}
			if use17 {
				for count >= 3 {
					count2 := count
					if count2 > 10 {
						count2 = 10
					}
					if !sizeOnly {
						rle = append(rle, 17)
						rleBits = append(rleBits, uint32(count2-3))
					}
					clCounts[17]++
					count -= count2
				}
			}
		}

		// Repetitions of any symbol.
		if use16 && count >= 4 {
			count-- // Since the first one is hardcoded.
			clCounts[symbol]++
			if !sizeOnly {
				rle = append(rle, uint32(symbol))
				rleBits = append(rleBits, 0)
			}
			for count >= 3 {
				count2 := count
				if count2 > 6 {
					count2 = 6
				}
				if !sizeOnly {
					rle = append(rle, 16)
					rleBits = append(rleBits, uint32(count2-3))
				}
				clCounts[16]++
				count -= count2
			}
		}

		// No or insufficient repetition.
		clCounts[symbol] += count
		for count > 0 {
			if !sizeOnly {
				rle = append(rle, uint32(symbol))
				rleBits = append(rleBits, 0)
			}
			count--
		}
	}

	var clcl [19]int // Code length code lengths.
	calculateBitLengths(clCounts[:], 7, clcl[:])

	var clSymbols [19]uint32
	if !sizeOnly {
		lengthsToSymbols(clcl[:], 7, clSymbols[:])
	}

	hclen := 15
	// Trim zeros.
	for hclen > 0 && clCounts[clclOrder[hclen+4-1]] == 0 {
		hclen--
	}

	if !sizeOnly {
		w.addBits(uint32(hlit), 5)
		w.addBits(uint32(hdist), 5)
		w.addBits(uint32(hclen), 4)

		for i := 0; i < hclen+4; i++ {
			w.addBits(uint32(clcl[clclOrder[i]]), 3)
		}

		for i := 0; i < len(rle); i++ {
			symbol := clSymbols[rle[i]]
			w.addHuffmanBits(symbol, clcl[rle[i]])
			// Extra bits.
			switch rle[i] {
			case 16:
				w.addBits(rleBits[i], 2)
			case 17:
				w.addBits(rleBits[i], 3)
			case 18:
				w.addBits(rleBits[i], 7)
			}
		}
	}

	resultSize := 14 // hlit, hdist, hclen bits
	resultSize += (hclen + 4) * 3 // clcl bits
	for i := 0; i < 19; i++ {
		resultSize += clcl[i] * clCounts[i]
	}
	// Extra bits.
	resultSize += clCounts[16] * 2
	resultSize += clCounts[17] * 3
	resultSize += clCounts[18] * 7

	return resultSize
}

// addDynamicTree writes the tree encoding with the combination of repeat
// codes that encodes it smallest.
func addDynamicTree(llLengths, dLengths []int, w *bitWriter) {
	best := 0
	bestsize := 0
	for i := 0; i < 8; i++ {
		size := encodeTree(llLengths, dLengths, i&1 != 0, i&2 != 0, i&4 != 0, nil)
		if bestsize == 0 || size < bestsize {
			bestsize = size
			best = i
		}
	}
	encodeTree(llLengths, dLengths, best&1 != 0, best&2 != 0, best&4 != 0, w)
}

// calculateTreeSize returns the smallest size in bits the tree encoding
// can take.
func calculateTreeSize(llLengths, dLengths []int) int {
	result := 0
	for i := 0; i < 8; i++ {
		size := encodeTree(llLengths, dLengths, i&1 != 0, i&2 != 0, i&4 != 0, nil)
		if result == 0 || size < result {
			result = size
		}
	}
	return result
}

// addLZ77Data writes all lit/len and dist codes of the symbols in
// [lstart, lend), including their extra bits, but not the end code.
func addLZ77Data(lz77 *LZ77Store, lstart, lend int, expectedDataSize int,
	llSymbols []uint32, llLengths []int, dSymbols []uint32, dLengths []int, w *bitWriter) {
	testlength := 0
	for i := lstart; i < lend; i++ {
		dist := int(lz77.dists[i])
		litlen := int(lz77.litlens[i])
		if dist == 0 {
			if litlen >= 256 || llLengths[litlen] <= 0 {
				panic("zopfli: literal has no code")
			}
			w.addHuffmanBits(llSymbols[litlen], llLengths[litlen])
			testlength++
		} else {
			lls := lengthSymbol[litlen]
			ds := distSymbol(dist)
			if litlen < 3 || llLengths[lls] <= 0 || dLengths[ds] <= 0 {
				panic("zopfli: match has no code")
			}
			w.addHuffmanBits(llSymbols[lls], llLengths[lls])
			w.addBits(uint32(lengthExtraBitsValue[litlen]), lengthExtraBits[litlen])
			w.addHuffmanBits(dSymbols[ds], dLengths[ds])
			w.addBits(uint32(distExtraBitsValue(dist)), distExtraBits(dist))
			testlength += litlen
		}
	}
	if expectedDataSize != 0 && testlength != expectedDataSize {
		panic("zopfli: block data size mismatch")
	}
}

// calculateBlockSymbolSizeSmall counts the encoded size of the symbols in
// the range symbol by symbol.
func calculateBlockSymbolSizeSmall(llLengths, dLengths []int, lz77 *LZ77Store, lstart, lend int) int {
	result := 0
	for i := lstart; i < lend; i++ {
		litlen := int(lz77.litlens[i])
		if lz77.dists[i] == 0 {
			result += llLengths[litlen]
		} else {
			lls := lengthSymbol[litlen]
			ds := distSymbol(int(lz77.dists[i]))
			result += llLengths[lls]
			result += dLengths[ds]
			result += lengthSymbolExtraBits(lls)
			result += distSymbolExtraBits(ds)
		}
	}
	result += llLengths[256] // end symbol
	return result
}

// calculateBlockSymbolSizeGivenCounts counts the encoded size from the
// range's symbol histogram.
func calculateBlockSymbolSizeGivenCounts(llCounts, dCounts []int, llLengths, dLengths []int,
	lz77 *LZ77Store, lstart, lend int) int {
	if lstart+numLL*3 > lend {
		return calculateBlockSymbolSizeSmall(llLengths, dLengths, lz77, lstart, lend)
	}
	result := 0
	for i := 0; i < 256; i++ {
		result += llLengths[i] * llCounts[i]
	}
	for i := 257; i < 286; i++ {
		result += llLengths[i] * llCounts[i]
		result += lengthSymbolExtraBits(i) * llCounts[i]
	}
	for i := 0; i < 30; i++ {
		result += dLengths[i] * dCounts[i]
		result += distSymbolExtraBits(i) * dCounts[i]
	}
	result += llLengths[256] // end symbol
	return result
}

// calculateBlockSymbolSize counts the encoded size of the symbols in
// [lstart, lend), not including the tree.
func calculateBlockSymbolSize(llLengths, dLengths []int, lz77 *LZ77Store, lstart, lend int) int {
	if lstart+numLL*3 > lend {
		return calculateBlockSymbolSizeSmall(llLengths, dLengths, lz77, lstart, lend)
	}
	llCounts := make([]int, numLL)
	dCounts := make([]int, numD)
	lz77.histogram(lstart, lend, llCounts, dCounts)
	return calculateBlockSymbolSizeGivenCounts(llCounts, dCounts, llLengths, dLengths, lz77, lstart, lend)
}

func absDiff(x, y int) int {
	if x > y {
		return x - y
	}
	return y - x
}

// optimizeHuffmanForRle changes the population counts in a way that the
// consequent Huffman tree compression, especially its RLE part, will be
// more likely to compress this data more efficiently.
func optimizeHuffmanForRle(counts []int) {
	length := len(counts)
	// 1) We don't want to touch the trailing zeros. We may break the
	// rules of the format by adding more data in the distance codes.
	for ; length >= 0; length-- {
		if length == 0 {
			return
		}
		if counts[length-1] != 0 {
			// Now counts[0..length - 1] does not have trailing zeros.
			break
		}
	}
	// 2) Let's mark all population counts that already can be encoded
	// with an rle code.
	goodForRle := make([]bool, length)
	// Let's not spoil any of the existing good rle codes. Mark any seq of
	// at least 5 0's as a goodForRle. Mark any seq of at least 7 non-0's
	// as a goodForRle.
	symbol := counts[0]
	stride := 0
	for i := 0; i < length+1; i++ {
		if i == length || counts[i] != symbol {
			if (symbol == 0 && stride >= 5) || (symbol != 0 && stride >= 7) {
				for k := 0; k < stride; k++ {
					goodForRle[i-k-1] = true
				}
			}
			stride = 1
			if i != length {
				symbol = counts[i]
			}
		} else {
			stride++
		}
	}

	// 3) Let's replace those population counts that lead to more rle
	// codes.
	stride = 0
	limit := counts[0]
	sum := 0
	for i := 0; i < length+1; i++ {
		if i == length || goodForRle[i] ||
			absDiff(counts[i], limit) >= 4 { // Heuristic for selecting the stride ranges to collapse.
			if stride >= 4 || (stride >= 3 && sum == 0) {
				// The stride must end, collapse what we have, if we have
				// enough (4).
				count := (sum + stride/2) / stride
				if count < 1 {
					count = 1
				}
				if sum == 0 {
					// Don't make an all zeros stride to be upgraded to ones.
					count = 0
				}
				for k := 0; k < stride; k++ {
					// We don't want to change value at counts[i], that is
					// already belonging to the next stride. Thus - 1.
					counts[i-k-1] = count
				}
			}
			stride = 0
			sum = 0
			if i < length-2 {
				// All interesting strides have a count of at least 4,
				// at least when non-zeros.
				limit = (counts[i] + counts[i+1] + counts[i+2] + counts[i+3] + 2) / 4
			} else if i < length {
				limit = counts[i]
			} else {
				limit = 0
			}
		}
		stride++
		if i != length {
			sum += counts[i]
		}
	}
}

// tryOptimizeHuffmanForRle checks whether tweaking the histograms toward
// RLE-friendly trees gives a smaller total (tree + data) size, and keeps
// whichever code lengths win. Returns the smaller total size.
func tryOptimizeHuffmanForRle(lz77 *LZ77Store, lstart, lend int, llCounts, dCounts []int,
	llLengths, dLengths []int) float64 {
	treesize := calculateTreeSize(llLengths, dLengths)
	datasize := calculateBlockSymbolSizeGivenCounts(llCounts, dCounts, llLengths, dLengths, lz77, lstart, lend)

	llCounts2 := append([]int(nil), llCounts...)
	dCounts2 := append([]int(nil), dCounts...)
	optimizeHuffmanForRle(llCounts2)
	optimizeHuffmanForRle(dCounts2)

	llLengths2 := make([]int, numLL)
	dLengths2 := make([]int, numD)
	calculateBitLengths(llCounts2, 15, llLengths2)
	calculateBitLengths(dCounts2, 15, dLengths2)
	patchDistanceCodes(dLengths2)

	treesize2 := calculateTreeSize(llLengths2, dLengths2)
	datasize2 := calculateBlockSymbolSizeGivenCounts(llCounts, dCounts, llLengths2, dLengths2, lz77, lstart, lend)

	if treesize2+datasize2 < treesize+datasize {
		copy(llLengths, llLengths2)
		copy(dLengths, dLengths2)
		return float64(treesize2 + datasize2)
	}
	return float64(treesize + datasize)
}

// getDynamicLengths calculates the optimal dynamic-tree code lengths for
// the range and returns the total (tree + data) size with them.
func getDynamicLengths(lz77 *LZ77Store, lstart, lend int, llLengths, dLengths []int) float64 {
	llCounts := make([]int, numLL)
	dCounts := make([]int, numD)
	lz77.histogram(lstart, lend, llCounts, dCounts)
	llCounts[256] = 1 // End symbol.
	calculateBitLengths(llCounts, 15, llLengths)
	calculateBitLengths(dCounts, 15, dLengths)
	patchDistanceCodes(dLengths)
	return tryOptimizeHuffmanForRle(lz77, lstart, lend, llCounts, dCounts, llLengths, dLengths)
}

// CalculateBlockSize returns the exact size in bits the symbols in
// [lstart, lend) take when encoded with block type btype (0 stored,
// 1 fixed tree, 2 dynamic tree), including the block header.
func CalculateBlockSize(lz77 *LZ77Store, lstart, lend int, btype int) float64 {
	result := 3.0 // bfinal and btype bits

	if btype == 0 {
		length := lz77.byteRange(lstart, lend)
		rem := length % 65535
		blocks := length / 65535
		if rem != 0 {
			blocks++
		}
		// An uncompressed block must actually be split into multiple
		// blocks if it's larger than 65535 bytes long. Each block header
		// is 5 bytes: 3 bits, padding, LEN and NLEN (potential less
		// padding for first one).
		return float64(blocks*5*8 + length*8)
	}

	llLengths := make([]int, numLL)
	dLengths := make([]int, numD)
	if btype == 1 {
		getFixedTree(llLengths, dLengths)
		result += float64(calculateBlockSymbolSize(llLengths, dLengths, lz77, lstart, lend))
	} else {
		result += getDynamicLengths(lz77, lstart, lend, llLengths, dLengths)
	}
	return result
}

// CalculateBlockSizeAutoType returns the bit size of the range when
// encoded with the best of the three block types. The fixed-tree size is
// only computed when the whole store holds at most 1000 symbols; for
// larger stores the result is the smaller of the stored and dynamic sizes.
func CalculateBlockSizeAutoType(lz77 *LZ77Store, lstart, lend int) float64 {
	uncompressedcost := CalculateBlockSize(lz77, lstart, lend, 0)
	// Don't do the expensive fixed cost calculation for larger blocks
	// that are unlikely to use it.
	fixedcost := uncompressedcost
	if lz77.Size() <= 1000 {
		fixedcost = CalculateBlockSize(lz77, lstart, lend, 1)
	}
	dyncost := CalculateBlockSize(lz77, lstart, lend, 2)
	if uncompressedcost < fixedcost && uncompressedcost < dyncost {
		return uncompressedcost
	}
	if fixedcost < dyncost {
		return fixedcost
	}
	return dyncost
}

// addNonCompressedBlock writes an RFC 1951 stored block, splitting into
// 65535-byte chunks as required by the format.
func addNonCompressedBlock(final bool, in []byte, instart, inend int, w *bitWriter) {
	pos := instart
	for {
		blocksize := 65535
		if pos+blocksize > inend {
			blocksize = inend - pos
		}
		currentfinal := pos+blocksize >= inend

		nlen := ^uint32(blocksize)

		if final && currentfinal {
			w.addBit(1)
		} else {
			w.addBit(0)
		}
		// BTYPE 00
		w.addBit(0)
		w.addBit(0)

		// Any bits of input up to the next byte boundary are ignored.
		w.bp = 0

		w.out = append(w.out,
			byte(blocksize), byte(blocksize>>8),
			byte(nlen), byte(nlen>>8))
		w.out = append(w.out, in[pos:pos+blocksize]...)

		pos += blocksize
		if pos >= inend {
			break
		}
	}
}

// addLZ77Block writes a block of the given type for the symbols in
// [lstart, lend).
func addLZ77Block(options *Options, btype int, final bool, lz77 *LZ77Store, lstart, lend int,
	expectedDataSize int, w *bitWriter) {
	if btype == 0 {
		length := lz77.byteRange(lstart, lend)
		pos := 0
		if lstart != lend {
			pos = lz77.pos[lstart]
		}
		addNonCompressedBlock(final, lz77.data, pos, pos+length, w)
		return
	}

	if final {
		w.addBit(1)
	} else {
		w.addBit(0)
	}
	w.addBit(uint32(btype & 1))
	w.addBit(uint32((btype & 2) >> 1))

	llLengths := make([]int, numLL)
	dLengths := make([]int, numD)
	if btype == 1 {
		// Fixed block.
		getFixedTree(llLengths, dLengths)
	} else {
		// Dynamic block.
		getDynamicLengths(lz77, lstart, lend, llLengths, dLengths)
		detectTreeSize := len(w.out)
		addDynamicTree(llLengths, dLengths, w)
		if options != nil && options.Verbose != nil {
			verbosef(options, "treesize: %d\n", len(w.out)-detectTreeSize)
		}
	}

	llSymbols := make([]uint32, numLL)
	dSymbols := make([]uint32, numD)
	lengthsToSymbols(llLengths, 15, llSymbols)
	lengthsToSymbols(dLengths, 15, dSymbols)

	detectBlockSize := len(w.out)
	addLZ77Data(lz77, lstart, lend, expectedDataSize, llSymbols, llLengths, dSymbols, dLengths, w)
	// End symbol.
	w.addHuffmanBits(llSymbols[256], llLengths[256])

	if options != nil && options.Verbose != nil {
		uncompressedSize := 0
		for i := lstart; i < lend; i++ {
			if lz77.dists[i] == 0 {
				uncompressedSize++
			} else {
				uncompressedSize += int(lz77.litlens[i])
			}
		}
		verbosef(options, "compressed block size: %d (%dk) (unc: %d)\n",
			len(w.out)-detectBlockSize, (len(w.out)-detectBlockSize)/1024, uncompressedSize)
	}
}

// addLZ77BlockAutoType writes the block with whichever type (stored,
// fixed, dynamic) encodes it smallest, re-optimizing the symbols for the
// fixed tree when that looks promising.
func addLZ77BlockAutoType(options *Options, final bool, lz77 *LZ77Store, lstart, lend int,
	expectedDataSize int, w *bitWriter) {
	uncompressedcost := CalculateBlockSize(lz77, lstart, lend, 0)
	fixedcost := CalculateBlockSize(lz77, lstart, lend, 1)
	dyncost := CalculateBlockSize(lz77, lstart, lend, 2)

	// Whether to perform the expensive calculation of creating an optimal
	// block with fixed huffman tree to check if smaller. Only do this for
	// small blocks or blocks which already are pretty good with fixed
	// huffman tree.
	expensivefixed := lz77.Size() < 1000 || fixedcost <= dyncost*1.1

	if lstart == lend {
		// Smallest empty block is represented by fixed block.
		if final {
			w.addBits(1, 1)
		} else {
			w.addBits(0, 1)
		}
		w.addBits(1, 2)  // btype 01
		w.addBits(0, 7)  // end symbol has code 0000000
		return
	}

	fixedstore := NewLZ77Store(lz77.data)
	if expensivefixed {
		// Recalculate the LZ77 with lz77OptimalFixed.
		instart := lz77.pos[lstart]
		inend := instart + lz77.byteRange(lstart, lend)

		s := NewBlockState(options, instart, inend, true)
		LZ77OptimalFixed(s, lz77.data, instart, inend, fixedstore)
		fixedcost = CalculateBlockSize(fixedstore, 0, fixedstore.Size(), 1)
	}

	if uncompressedcost < fixedcost && uncompressedcost < dyncost {
		addLZ77Block(options, 0, final, lz77, lstart, lend, 0, w)
	} else if fixedcost < dyncost {
		if expensivefixed {
			addLZ77Block(options, 1, final, fixedstore, 0, fixedstore.Size(), 0, w)
		} else {
			addLZ77Block(options, 1, final, lz77, lstart, lend, expectedDataSize, w)
		}
	} else {
		addLZ77Block(options, 2, final, lz77, lstart, lend, expectedDataSize, w)
	}
}

// deflatePart deflates the range [instart, inend): it splits it into
// blocks, optimizes each with the iterative squeeze, and writes them with
// the cheapest block type. btype forces a block type: 0 stored, 1 fixed
// tree, 2 best available.
func deflatePart(options *Options, btype int, final bool, in []byte, instart, inend int, w *bitWriter) {
	// If btype=2 is specified, it tries all block types. If a lesser
	// btype is given, then however it forcibly stays at that btype.
	if btype == 0 {
		addNonCompressedBlock(final, in, instart, inend, w)
		return
	}
	if btype == 1 {
		store := NewLZ77Store(in)
		s := NewBlockState(options, instart, inend, true)
		LZ77OptimalFixed(s, in, instart, inend, store)
		addLZ77Block(options, 1, final, store, 0, store.Size(), 0, w)
		return
	}

	var splitpointsUncompressed []int
	if options.BlockSplitting {
		splitpointsUncompressed = BlockSplit(options, in, instart, inend, options.BlockSplittingMax)
	}
	npoints := len(splitpointsUncompressed)

	lz77 := NewLZ77Store(in)
	totalcost := 0.0
	splitpoints := make([]int, npoints)

	for i := 0; i <= npoints; i++ {
		start := instart
		if i > 0 {
			start = splitpointsUncompressed[i-1]
		}
		end := inend
		if i < npoints {
			end = splitpointsUncompressed[i]
		}
		s := NewBlockState(options, start, end, true)
		store := NewLZ77Store(in)
		LZ77Optimal(s, in, start, end, options.NumIterations, store)
		totalcost += CalculateBlockSizeAutoType(store, 0, store.Size())
		store.AppendTo(lz77)
		if i < npoints {
			splitpoints[i] = lz77.Size()
		}
	}

	// Second block splitting attempt.
	if options.BlockSplitting && npoints > 1 {
		splitpoints2 := BlockSplitLZ77(options, lz77, options.BlockSplittingMax)
		totalcost2 := 0.0
		for i := 0; i <= len(splitpoints2); i++ {
			start := 0
			if i > 0 {
				start = splitpoints2[i-1]
			}
			end := lz77.Size()
			if i < len(splitpoints2) {
				end = splitpoints2[i]
			}
			totalcost2 += CalculateBlockSizeAutoType(lz77, start, end)
		}
		if totalcost2 < totalcost {
			splitpoints = splitpoints2
			npoints = len(splitpoints2)
		}
	}

	for i := 0; i <= npoints; i++ {
		start := 0
		if i > 0 {
			start = splitpoints[i-1]
		}
		end := lz77.Size()
		if i < npoints {
			end = splitpoints[i]
		}
		addLZ77BlockAutoType(options, i == npoints && final, lz77, start, end, 0, w)
	}
}

// Deflate appends the DEFLATE encoding of in to out and returns the
// result. btype forces a block type as in deflatePart; final must be set
// for the last call of a stream. Large inputs are processed in master
// blocks of masterBlockSize (1,000,000) bytes to bound memory use.
func Deflate(options *Options, btype int, final bool, in []byte, out []byte) []byte {
	if options == nil {
		options = DefaultOptions()
	}
	w := &bitWriter{out: out}
	// The bit pointer must be derived from what is already in out, so a
	// caller can only append at byte boundaries.
	i := 0
	for {
		masterfinal := i+masterBlockSize >= len(in)
		final2 := final && masterfinal
		size := masterBlockSize
		if masterfinal {
			size = len(in) - i
		}
		deflatePart(options, btype, final2, in, i, i+size, w)
		i += size
		if i >= len(in) {
			break
		}
	}
	if options != nil && options.Verbose != nil {
		insize := len(in)
		outsize := len(w.out) - len(out)
		verbosef(options, "Original Size: %d, Deflate: %d, Compression: %f%% Removed\n",
			insize, outsize, 100.0*float64(insize-outsize)/float64(insize))
	}
	return w.out
}
