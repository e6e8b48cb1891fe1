package zopfli

import "hash/adler32"

// zlibCompress compresses the data according to the zlib specification,
// RFC 1950.
func zlibCompress(opts *Options, in []byte) []byte {
	const (
		cmf    = 120 // CM 8, CINFO 7. See zlib spec.
		flevel = 3
		fdict  = 0
	)
	cmfflg := 256*cmf + fdict*32 + flevel*64
	fcheck := 31 - cmfflg%31
	cmfflg += fcheck

	out := []byte{byte(cmfflg >> 8), byte(cmfflg)}
	out = Deflate(opts, 2, true, in, out)

	checksum := adler32.Checksum(in)
	return append(out,
		byte(checksum>>24),
		byte(checksum>>16),
		byte(checksum>>8),
		byte(checksum),
	)
}
