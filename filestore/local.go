package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/devconnect-io/otpgate"
)

const (
	tempDirName  = "tmp"
	finalDirName = "mentor_proofs"

	// Uploads larger than this are rejected at stage time.
	maxUploadBytes = 16 << 20
)

// ErrUploadTooLarge is returned by Stage when the reader yields more than the
// allowed number of bytes.
var ErrUploadTooLarge = errors.New("upload too large")

// Local stages files under root/tmp/{role}/ and commits them under
// root/mentor_proofs/. Committed paths are returned relative to root so they
// can be stored and served independently of where root is mounted.
type Local struct {
	root string
}

var _ otpgate.FileStager = (*Local)(nil)

// NewLocal creates the storage root and temp area if they do not exist.
func NewLocal(root string) (*Local, error) {
	if root == "" {
		return nil, errors.New("filestore root is required")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Join(abs, tempDirName), 0o755); err != nil {
		return nil, err
	}

	return &Local{root: abs}, nil
}

// Stage copies r into a freshly named temp file and returns its absolute
// path. The original filename contributes only its extension; the stored name
// is a random UUID.
func (l *Local) Stage(ctx context.Context, role otpgate.Role, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r == nil {
		return "", errors.New("no upload provided")
	}

	dir := filepath.Join(l.root, tempDirName, sanitizeComponent(string(role)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := uuid.NewString() + safeExtension(filename)
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}

	written, err := io.Copy(f, io.LimitReader(r, maxUploadBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && written > maxUploadBytes {
		err = ErrUploadTooLarge
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}

	return path, nil
}

// Commit moves a staged file into the final area and returns its path
// relative to the storage root. The temp file must have come from Stage.
func (l *Local) Commit(ctx context.Context, tempPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rel, err := filepath.Rel(filepath.Join(l.root, tempDirName), tempPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %q is outside the staging area", tempPath)
	}

	finalDir := filepath.Join(l.root, finalDirName)
	if err := os.MkdirAll(finalDir, 0o755); err != nil {
		return "", err
	}

	finalPath := filepath.Join(finalDir, filepath.Base(tempPath))
	if err := os.Rename(tempPath, finalPath); err != nil {
		return "", err
	}

	return filepath.ToSlash(filepath.Join(finalDirName, filepath.Base(tempPath))), nil
}

// Discard removes a staged file that will never be committed. Missing files
// are not an error.
func (l *Local) Discard(tempPath string) error {
	rel, err := filepath.Rel(filepath.Join(l.root, tempDirName), tempPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("path %q is outside the staging area", tempPath)
	}

	if err := os.Remove(tempPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func safeExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 16 || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return ext
}

func sanitizeComponent(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "misc"
	}
	return b.String()
}
