// Command zopfli compresses files to gzip, zlib or raw deflate format,
// spending extra CPU time for a few percent smaller output than regular
// DEFLATE implementations.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/carols10cents/zopfli"
)

var (
	stdout     = flag.Bool("c", false, "write the result on standard output")
	verbose    = flag.Bool("v", false, "verbose mode")
	iterations = flag.Int("i", 15, "perform # iterations (more gives more compression but is slower)")
	gzipFormat = flag.Bool("gzip", true, "output to gzip format")
	zlibFormat = flag.Bool("zlib", false, "output to zlib format instead of gzip")
	deflateFmt = flag.Bool("deflate", false, "output to deflate format instead of gzip")
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("zopfli: ")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: zopfli [OPTION]... [FILE]...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	opts := zopfli.DefaultOptions()
	opts.NumIterations = *iterations
	if *verbose {
		opts.Verbose = os.Stderr
	}

	format := zopfli.FormatGzip
	ext := ".gz"
	switch {
	case *deflateFmt:
		format = zopfli.FormatDeflate
		ext = ".deflate"
	case *zlibFormat:
		format = zopfli.FormatZlib
		ext = ".zlib"
	case *gzipFormat:
	}

	if flag.NArg() == 0 {
		log.Fatal("please provide filename(s) to compress")
	}
	for _, name := range flag.Args() {
		if err := compressFile(opts, format, name, ext); err != nil {
			log.Fatal(err)
		}
	}
}

func compressFile(opts *zopfli.Options, format zopfli.Format, name, ext string) error {
	in, err := os.ReadFile(name)
	if err != nil {
		return err
	}
	out, err := zopfli.Compress(opts, format, in)
	if err != nil {
		return err
	}
	var w io.Writer
	if *stdout {
		w = os.Stdout
	} else {
		f, err := os.Create(name + ext)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if _, err := w.Write(out); err != nil {
		return err
	}
	return nil
}
