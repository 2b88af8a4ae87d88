// Package blobstore keeps attachment bytes outside the database.
//
// Paths are slash-separated keys such as attachments/<project>/<uuid>.pdf;
// the database only records the key.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("file not found")
	ErrInvalidPath         = errors.New("invalid storage path")
	ErrExtensionNotAllowed = errors.New("file type not allowed")
	ErrTooLarge            = errors.New("file too large")
)

// PutOptions carries metadata for Put.
type PutOptions struct {
	ContentType string
}

// Store is the blob collaborator used by the attachment and project handlers.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts *PutOptions) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Disk stores blobs below a root directory.
type Disk struct {
	root string
}

// NewDisk creates root if needed.
func NewDisk(root string) (*Disk, error) {
	if root == "" {
		return nil, errors.New("blobstore: empty root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("blobstore: create root: %w", err)
	}
	return &Disk{root: abs}, nil
}

// FullPath maps key to a file below root, refusing keys that escape it.
func (d *Disk) FullPath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(d.root, filepath.FromSlash(clean)), nil
}

func (d *Disk) Put(ctx context.Context, key string, r io.Reader, _ *PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := d.FullPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	// Write to a temp file first so a failed upload never leaves a partial blob.
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), full)
}

func (d *Disk) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := d.FullPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Delete removes key. Deleting a missing key is not an error.
func (d *Disk) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := d.FullPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// AllowedExtensions are the attachment types accepted for upload.
var AllowedExtensions = map[string]bool{
	".jpeg": true, ".jpg": true, ".png": true, ".gif": true,
	".pdf": true, ".doc": true, ".docx": true, ".txt": true, ".zip": true,
}

// CheckExtension returns the lower-cased extension of name if it is allowed.
func CheckExtension(name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !AllowedExtensions[ext] {
		return "", ErrExtensionNotAllowed
	}
	return ext, nil
}

// NewKey returns a unique key for an attachment in project.
func NewKey(projectHex, ext string) string {
	return path.Join("attachments", projectHex, uuid.NewString()+ext)
}

// SanitizeFilename keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with an underscore.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	b := []byte(name)
	for i, c := range b {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_' || c == '.') {
			b[i] = '_'
		}
	}
	if len(b) == 0 || name == "." || name == "/" {
		return "file"
	}
	if len(b) > 100 {
		ext := filepath.Ext(string(b))
		if len(ext) > 0 && len(ext) < 10 {
			b = append(b[:100-len(ext)], ext...)
		} else {
			b = b[:100]
		}
	}
	return string(b)
}
