package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// sizes reports the size of data raw and after general purpose
// supercompression, the way assets are usually served.
type sizes struct {
	Raw, Gzip, Zstd int
}

func measure(data []byte) (sizes, error) {
	s := sizes{Raw: len(data)}

	var gz bytes.Buffer
	zw, err := gzip.NewWriterLevel(&gz, gzip.BestCompression)
	if err != nil {
		return s, err
	}
	if _, err := zw.Write(data); err != nil {
		return s, err
	}
	if err := zw.Close(); err != nil {
		return s, err
	}
	s.Gzip = gz.Len()

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return s, err
	}
	defer enc.Close()
	s.Zstd = len(enc.EncodeAll(data, nil))
	return s, nil
}

func printSizes(w io.Writer, name string, s sizes) {
	fmt.Fprintf(w, "%s: %s raw, %s gzip, %s zstd\n", name, human(s.Raw), human(s.Gzip), human(s.Zstd))
}

func human(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}
