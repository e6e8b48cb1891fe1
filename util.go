package zopfli

// Constants fixed by the DEFLATE format (RFC 1951) and tuning values for
// the compressor.
const (
	maxMatch = 258
	minMatch = 3

	numLL = 288 // number of literal/length codes
	numD  = 32  // number of distance codes

	windowSize = 32768
	windowMask = windowSize - 1

	// A block structure of huge, non-smallest-possible deflate blocks is
	// used above this size to keep memory use bounded.
	masterBlockSize = 1000000

	// Sentinel larger than any reachable bit cost.
	largeFloat = 1e30

	// Entries in the longest-match cache per position.
	cacheLength = 8

	// Bounds the amount of chain traversals per FindLongestMatch call.
	maxChainHits = 8192

	// debug enables additional runtime checks in the hot paths.
	debug = false
)
