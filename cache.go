// Copyright 2011 Google Inc. All Rights Reserved.
// Use of this source code is governed by the Apache License, Version 2.0.

package zopfli

// This file is based on the longest-match cache of the Zopfli compression
// library.

// matchCache remembers the best match found at each position of a block,
// so that repeated squeeze runs over the same range do not redo the chain
// traversal. For each position it stores the best length and distance,
// plus a compact form of the sublen array: up to cacheLength
// (length, dist) pairs marking the positions where the distance changes.
type matchCache struct {
	length []uint16
	dist   []uint16
	sublen []uint8
}

func newMatchCache(blocksize int) *matchCache {
	c := &matchCache{
		length: make([]uint16, blocksize),
		dist:   make([]uint16, blocksize),
		sublen: make([]uint8, cacheLength*3*blocksize),
	}
	// length > 0 and dist == 0 marks a position as not yet cached.
	for i := range c.length {
		c.length[i] = 1
	}
	return c
}

// sublenToCache compresses sublen[3..length] into the cache entry for pos.
func (c *matchCache) sublenToCache(sublen []uint16, pos, length int) {
	if length < 3 {
		return
	}
	cache := c.sublen[cacheLength*pos*3:]
	j := 0
	bestlength := 0
	for i := 3; i <= length; i++ {
		if i == length || sublen[i] != sublen[i+1] {
			cache[j*3] = uint8(i - 3)
			cache[j*3+1] = uint8(sublen[i] & 255)
			cache[j*3+2] = uint8((sublen[i] >> 8) & 255)
			bestlength = i
			j++
			if j >= cacheLength {
				break
			}
		}
	}
	if j < cacheLength {
		cache[(cacheLength-1)*3] = uint8(bestlength - 3)
	}
}

// cacheToSublen expands the cache entry for pos back into sublen[3..length].
func (c *matchCache) cacheToSublen(pos, length int, sublen []uint16) {
	if length < 3 {
		return
	}
	maxlength := c.maxCachedSublen(pos, length)
	prevlength := 0
	cache := c.sublen[cacheLength*pos*3:]
	for j := 0; j < cacheLength; j++ {
		length := int(cache[j*3]) + 3
		dist := uint16(cache[j*3+1]) + 256*uint16(cache[j*3+2])
		for i := prevlength; i <= length; i++ {
			sublen[i] = dist
		}
		if length == maxlength {
			break
		}
		prevlength = length + 1
	}
}

// maxCachedSublen returns the length up to which sublen values are cached
// for pos, or 0 if nothing is cached there.
func (c *matchCache) maxCachedSublen(pos, length int) int {
	cache := c.sublen[cacheLength*pos*3:]
	if cache[1] == 0 && cache[2] == 0 {
		return 0 // No sublen cached.
	}
	return int(cache[(cacheLength-1)*3]) + 3
}
