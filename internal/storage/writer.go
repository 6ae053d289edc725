package storage

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tmontague/datafetch/internal/model"
	"golang.org/x/crypto/blake2b"
)

// File modes for created directories and files.
const (
	dirPerm  os.FileMode = 0o750
	filePerm os.FileMode = 0o644
)

// jsonIndent is the indentation of written JSON payloads.
const jsonIndent = "    "

// Operation names recorded in storage errors.
const (
	opWrite  = "write"
	opRead   = "read"
	opEncode = "encode"
)

// errNilPayload is returned by Encode for a nil payload.
var errNilPayload = errors.New("nil payload")

// Written describes a file produced by Writer.Write.
type Written struct {
	// Path is the resolved destination path.
	Path string

	// Size is the number of bytes written.
	Size int64

	// Digest is the BLAKE2b-256 hex digest of the written bytes.
	Digest string
}

// Writer writes payloads below a root directory.
type Writer struct {
	root string
}

// NewWriter creates a Writer rooted at root.
// An empty root means the current directory.
func NewWriter(root string) *Writer {
	if root == "" {
		root = "."
	}
	return &Writer{root: root}
}

// Resolve returns p joined to the root, or p cleaned if it is absolute.
func (w *Writer) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(w.root, p)
}

// Write encodes payload and writes it to folder/filename.
// Text and CSV payloads are written as is, Excel payloads as raw bytes, and
// JSON payloads as indented JSON.
func (w *Writer) Write(folder, filename string, payload *model.Payload) (*Written, error) {
	dest := w.Resolve(filepath.Join(folder, filename))

	data, err := Encode(payload)
	if err != nil {
		return nil, model.NewError(model.ErrDecode, opEncode, dest, err)
	}

	path, err := w.WriteFile(dest, data)
	if err != nil {
		return nil, err
	}

	return &Written{
		Path:   path,
		Size:   int64(len(data)),
		Digest: Digest(data),
	}, nil
}

// WriteFile atomically replaces the file at path with data and returns the
// resolved path. Missing directories are created even if the write then fails.
func (w *Writer) WriteFile(path string, data []byte) (string, error) {
	dest := w.Resolve(path)

	if err := os.MkdirAll(filepath.Dir(dest), dirPerm); err != nil {
		return "", model.NewError(model.ErrFilesystem, opWrite, dest, err)
	}

	if err := writeAtomic(dest, data); err != nil {
		return "", model.NewError(model.ErrFilesystem, opWrite, dest, err)
	}

	return dest, nil
}

// ReadFile reads the file at path, resolved against the root.
func (w *Writer) ReadFile(path string) ([]byte, error) {
	src := w.Resolve(path)

	data, err := os.ReadFile(src) //nolint:gosec // Paths come from the run configuration
	if err != nil {
		return nil, model.NewError(model.ErrFilesystem, opRead, src, err)
	}
	return data, nil
}

// writeAtomic writes data to a temporary sibling of path and renames it
// over path. The temporary file is removed on failure.
func writeAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()        //nolint:errcheck // already failing
			_ = os.Remove(tmpName) //nolint:errcheck // already failing
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpName, filePerm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Encode returns the on-disk bytes of payload.
func Encode(payload *model.Payload) ([]byte, error) {
	if payload == nil {
		return nil, errNilPayload
	}

	switch kind := payload.Kind; {
	case !kind.Valid():
		return nil, fmt.Errorf("unsupported content kind %s", kind)
	case kind.IsBinary():
		return payload.Bytes, nil
	case kind == model.KindJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", jsonIndent)
		if err := enc.Encode(payload.Value); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return []byte(payload.Text), nil
	}
}

// Digest returns the BLAKE2b-256 hex digest of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
