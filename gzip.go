package zopfli

import "hash/crc32"

var gzipHeader = []byte{
	31,  // ID1
	139, // ID2
	8,   // CM
	0,   // FLG
	0,   // MTIME
	0,
	0,
	0,
	2, // XFL, 2 indicates best compression.
	3, // OS follows Unix conventions.
}

// gzipCompress compresses the data according to the gzip specification,
// RFC 1952.
func gzipCompress(opts *Options, in []byte) []byte {
	out := append([]byte(nil), gzipHeader...)
	out = Deflate(opts, 2, true, in, out)
	crc := crc32.Update(0, crc32.IEEETable, in)
	out = appendUint32(out, crc)
	out = appendUint32(out, uint32(len(in)))
	return out
}

func appendUint32(dst []byte, n uint32) []byte {
	return append(dst,
		byte(n),
		byte(n>>8),
		byte(n>>16),
		byte(n>>24),
	)
}
