package board

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/mesh-intelligence/bullpen/pkg/types"
)

// Artifact identifies the trained model file the predictions came from. The
// file is only read, never parsed.
type Artifact struct {
	Path    string    `json:"path" yaml:"path"`
	Size    int64     `json:"size" yaml:"size"`
	SHA256  string    `json:"sha256" yaml:"sha256"`
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
}

// Fingerprint hashes the file at path. A missing file is a
// *types.NotFoundError.
func Fingerprint(path string) (Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Artifact{}, &types.NotFoundError{Path: path, Err: err}
		}
		return Artifact{}, fmt.Errorf("opening model artifact: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Artifact{}, fmt.Errorf("stat model artifact: %w", err)
	}
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return Artifact{}, fmt.Errorf("hashing model artifact: %w", err)
	}
	return Artifact{
		Path:    path,
		Size:    info.Size(),
		SHA256:  hex.EncodeToString(h.Sum(nil)),
		ModTime: info.ModTime(),
	}, nil
}

// Short returns the first twelve hex digits of the digest.
func (a Artifact) Short() string {
	if len(a.SHA256) < 12 {
		return a.SHA256
	}
	return a.SHA256[:12]
}
