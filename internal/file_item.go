package internal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// FileItem describes one file in transit between the caller, the filters and
// the backend. It is a value: the With* helpers return modified copies and
// never touch the receiver.
type FileItem struct {
	// Data is the file content. Nil when the item only addresses a file
	// (exists, delete).
	Data io.ReadSeeker

	// Filename is the base name of the file.
	Filename string

	// MediaType overrides the type guessed from the filename extension.
	MediaType string

	// Path holds the folder segments, outermost first.
	Path []string
}

// NewFileItem returns an item with its own copy of path.
func NewFileItem(filename string, path []string, data io.ReadSeeker) FileItem {
	return FileItem{
		Filename: filename,
		Path:     slices.Clone(path),
		Data:     data,
	}
}

// WithFilename returns a copy with a new filename.
func (i FileItem) WithFilename(filename string) FileItem {
	i.Path = slices.Clone(i.Path)
	i.Filename = filename
	return i
}

// WithPath returns a copy with a new path.
func (i FileItem) WithPath(path ...string) FileItem {
	i.Path = slices.Clone(path)
	return i
}

// WithData returns a copy with new content.
func (i FileItem) WithData(data io.ReadSeeker) FileItem {
	i.Path = slices.Clone(i.Path)
	i.Data = data
	return i
}

// WithBytes returns a copy whose content is b.
func (i FileItem) WithBytes(b []byte) FileItem {
	return i.WithData(bytes.NewReader(b))
}

// WithMediaType returns a copy with an explicit media type.
func (i FileItem) WithMediaType(mediaType string) FileItem {
	i.Path = slices.Clone(i.Path)
	i.MediaType = mediaType
	return i
}

// HasData reports whether the item carries content.
func (i FileItem) HasData() bool {
	return i.Data != nil
}

// URLPath is the slash separated relative path including the filename.
func (i FileItem) URLPath() string {
	return strings.Join(append(slices.Clone(i.Path), i.Filename), "/")
}

// FSPath is the relative filesystem path including the filename.
func (i FileItem) FSPath() string {
	return filepath.Join(append(slices.Clone(i.Path), i.Filename)...)
}

// ContentType returns MediaType when set, otherwise a guess from the extension.
// The result is empty when nothing is known.
func (i FileItem) ContentType() string {
	if i.MediaType != "" {
		return i.MediaType
	}
	return MediaTypeFromFilename(i.Filename)
}

// Equal compares the addressing fields and the data identity.
func (i FileItem) Equal(other FileItem) bool {
	return i.Filename == other.Filename &&
		slices.Equal(i.Path, other.Path) &&
		i.Data == other.Data &&
		i.MediaType == other.MediaType
}

func (i FileItem) String() string {
	hasData := "no data"
	if i.HasData() {
		hasData = "with data"
	}
	return fmt.Sprintf("<FileItem filename:%q path:%q %s>", i.Filename, i.Path, hasData)
}

// Open returns a Reader positioned at the start of the content.
// The caller must Close it; Use does that automatically.
func (i FileItem) Open() (*Reader, error) {
	r := &Reader{data: i.Data, Filename: i.Filename}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return r, nil
}

// Use opens the content, passes it to fn and closes it on every exit path.
func (i FileItem) Use(fn func(r *Reader) error) (err error) {
	r, err := i.Open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(r)
}

// Reader is a scoped view over a FileItem's content.
// Closing rewinds the underlying stream so the item can be read again.
type Reader struct {
	data     io.ReadSeeker
	Filename string
	closed   bool
}

// Read implements io.Reader. A nil content reads as empty.
func (r *Reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, os.ErrClosed
	}
	if r.data == nil {
		return 0, io.EOF
	}
	return r.data.Read(p)
}

// Seek implements io.Seeker. A nil content reports -1.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	if r.closed {
		return 0, os.ErrClosed
	}
	if r.data == nil {
		return -1, nil
	}
	return r.data.Seek(offset, whence)
}

// Size returns the content length without moving the read position.
func (r *Reader) Size() (int64, error) {
	if r.closed {
		return 0, os.ErrClosed
	}
	if r.data == nil {
		return 0, nil
	}
	cur, err := r.data.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := r.data.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	_, err = r.data.Seek(cur, io.SeekStart)
	return end, err
}

// Close releases the reader. It is safe to call more than once.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.data == nil {
		return nil
	}
	if _, err := r.data.Seek(0, io.SeekStart); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}
