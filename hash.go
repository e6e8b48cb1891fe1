// Copyright 2011 Google Inc. All Rights Reserved.
// Use of this source code is governed by the Apache License, Version 2.0.

package zopfli

// This file is based on the rolling hash of the Zopfli compression
// library.

const (
	hashShift = 5
	hashMask  = 32767
)

// hash holds the state of the sliding-window matcher: a chained hash over
// 3-byte sequences, the length of the run of identical bytes at each
// recent position, and a second hash keyed on that run length so long
// runs can be chained separately.
type hash struct {
	head    []int32  // hash value to (most recent) index of its occurrence
	prev    []uint16 // index to index of previous occurrence of the same hash
	hashval []int32  // index to hash value at this index
	val     int32    // current hash value

	// Fields with similar purpose as the above, but for the second hash.
	head2    []int32
	prev2    []uint16
	hashval2 []int32
	val2     int32

	same []uint16 // length of repetition of the same byte after each index
}

func newHash(windowSize int) *hash {
	h := &hash{
		head:     make([]int32, 65536),
		prev:     make([]uint16, windowSize),
		hashval:  make([]int32, windowSize),
		head2:    make([]int32, 65536),
		prev2:    make([]uint16, windowSize),
		hashval2: make([]int32, windowSize),
		same:     make([]uint16, windowSize),
	}
	h.reset(windowSize)
	return h
}

func (h *hash) reset(windowSize int) {
	h.val = 0
	for i := range h.head {
		h.head[i] = -1
	}
	for i := 0; i < windowSize; i++ {
		h.prev[i] = uint16(i) // identity: no previous occurrence
		h.hashval[i] = -1
		h.same[i] = 0
	}
	h.val2 = 0
	for i := range h.head2 {
		h.head2[i] = -1
	}
	for i := 0; i < windowSize; i++ {
		h.prev2[i] = uint16(i)
		h.hashval2[i] = -1
	}
}

// updateValue feeds one byte into the rolling hash.
func (h *hash) updateValue(c byte) {
	h.val = ((h.val << hashShift) ^ int32(c)) & hashMask
}

// update registers position pos in the hash chains. The bytes at pos..end
// must be readable; the rolling hash has already seen bytes up to pos+1.
func (h *hash) update(in []byte, pos, end int) {
	hpos := pos & windowMask

	var b byte
	if pos+minMatch <= end {
		b = in[pos+minMatch-1]
	}
	h.updateValue(b)
	h.hashval[hpos] = h.val
	if hh := h.head[h.val]; hh != -1 && h.hashval[hh] == h.val {
		h.prev[hpos] = uint16(hh)
	} else {
		h.prev[hpos] = uint16(hpos)
	}
	h.head[h.val] = int32(hpos)

	// Update "same".
	amount := 0
	if s := h.same[(pos-1)&windowMask]; s > 1 {
		amount = int(s) - 1
	}
	for pos+amount+1 < end && in[pos] == in[pos+amount+1] && amount < 65535 {
		amount++
	}
	h.same[hpos] = uint16(amount)

	h.val2 = int32(uint16(amount-minMatch)&255) ^ h.val
	h.hashval2[hpos] = h.val2
	if hh := h.head2[h.val2]; hh != -1 && h.hashval2[hh] == h.val2 {
		h.prev2[hpos] = uint16(hh)
	} else {
		h.prev2[hpos] = uint16(hpos)
	}
	h.head2[h.val2] = int32(hpos)
}

// warmup primes the rolling hash with the first two bytes at pos so that
// update can be called for all positions from pos on.
func (h *hash) warmup(in []byte, pos, end int) {
	h.updateValue(in[pos])
	if pos+1 < end {
		h.updateValue(in[pos+1])
	}
}
