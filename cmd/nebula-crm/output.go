package main

import (
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/ajitpratap0/nebula-crm/pkg/errors"
)

// openOutput returns the extract sink for path. An empty path writes to
// stdout, which is never closed. A .gz or .zst suffix selects compression.
func openOutput(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{stdout}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output file").
			WithDetail("path", path)
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		return &layeredWriter{WriteCloser: gzip.NewWriter(f), file: f}, nil
	case strings.HasSuffix(path, ".zst"):
		zw, err := zstd.NewWriter(f)
		if err != nil {
			_ = f.Close()
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create zstd writer")
		}
		return &layeredWriter{WriteCloser: zw, file: f}, nil
	default:
		return f, nil
	}
}

// layeredWriter closes the compressor before the file underneath it.
type layeredWriter struct {
	io.WriteCloser
	file *os.File
}

func (w *layeredWriter) Close() error {
	err := w.WriteCloser.Close()
	if ferr := w.file.Close(); err == nil {
		err = ferr
	}
	return err
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
