// SPDX-License-Identifier: MPL-2.0

// Package archive writes the compressed container output: a single zip file
// fed by a stream of (name, content) entries.
//
// The writer is a single producer/consumer pair. Entries are pushed in via
// Add; a dedicated goroutine drains them into the zip stream; Close signals
// the end of the stream and returns only once every byte has been flushed to
// the underlying file. A failed write surfaces from Close as-is and the
// partial container is removed — a half-written zip is worse than none.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/klauspost/compress/flate"
)

// Entry is one file in the container. Open is called by the consumer when
// the entry's turn comes, so at most one source file is held open at a time.
type Entry struct {
	// Name is the slash-separated path inside the container.
	Name string
	// Mode is the file mode recorded on the zip header.
	Mode fs.FileMode
	// Open yields the entry's content.
	Open func() (io.ReadCloser, error)
}

// Writer streams entries into a zip container.
type Writer struct {
	path    string
	entries chan Entry
	done    chan error
}

// NewWriter creates the container file at path and starts the consumer.
// The caller must Close the writer to flush and detect failures.
func NewWriter(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create container file: %w", err)
	}

	w := &Writer{
		path:    path,
		entries: make(chan Entry),
		done:    make(chan error, 1),
	}
	go w.consume(file)
	return w, nil
}

// Add pushes one entry into the stream. It blocks while the consumer is
// busy with earlier entries. Add after Close panics.
func (w *Writer) Add(e Entry) {
	w.entries <- e
}

// Close ends the entry stream and waits for the consumer to flush the
// container. It returns the first write failure, after removing the partial
// container file; the write is not retried since the stream state after a
// partial write is unknown.
func (w *Writer) Close() error {
	close(w.entries)
	err := <-w.done
	if err != nil {
		os.Remove(w.path)
		return fmt.Errorf("container write failed: %w", err)
	}
	return nil
}

// consume drains the entry channel into the zip stream. On the first
// failure it keeps draining so producers never block, then reports the
// failure through done.
func (w *Writer) consume(file *os.File) {
	zw := zip.NewWriter(file)
	// klauspost's flate is a drop-in for compress/flate with materially
	// better throughput at the same ratio.
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	var failure error
	for entry := range w.entries {
		if failure != nil {
			continue
		}
		failure = w.writeEntry(zw, entry)
	}

	if err := zw.Close(); err != nil && failure == nil {
		failure = fmt.Errorf("failed to finalize container: %w", err)
	}
	if err := file.Close(); err != nil && failure == nil {
		failure = fmt.Errorf("failed to flush container: %w", err)
	}
	w.done <- failure
}

func (w *Writer) writeEntry(zw *zip.Writer, entry Entry) error {
	header := &zip.FileHeader{
		Name:     entry.Name,
		Method:   zip.Deflate,
		Modified: time.Now(),
	}
	header.SetMode(entry.Mode)

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create container entry %s: %w", entry.Name, err)
	}
	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failed to open content for %s: %w", entry.Name, err)
	}
	defer src.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to write container entry %s: %w", entry.Name, err)
	}
	return nil
}

// FileEntry builds an Entry backed by a file on disk.
func FileEntry(name, path string, mode fs.FileMode) Entry {
	return Entry{
		Name: name,
		Mode: mode,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// BytesEntry builds an Entry backed by in-memory content.
func BytesEntry(name string, mode fs.FileMode, content []byte) Entry {
	return Entry{
		Name: name,
		Mode: mode,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}
