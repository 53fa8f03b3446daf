package viz

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
)

// Cache stores built sites on disk as snappy compressed JSON, so that an
// unchanged dataset doesn't have to be indexed again.
type Cache struct {
	Dir string
}

// Key derives a cache key from the contents of the given files and any extra
// parameters that affect the build. Missing files hash as empty.
func Key(paths []string, params ...any) (string, error) {
	h := sha256.New()
	for _, path := range paths {
		sum, err := fileHash(path)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%s:", sum)
	}
	for _, p := range params {
		fmt.Fprintf(h, "%v:", p)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (c Cache) path(key string) string {
	return filepath.Join(c.Dir, "site_cache_"+key+".sz")
}

// Load gives the site stored under key. The bool result is false if there is
// no such entry.
func (c Cache) Load(key string) (*Site, bool, error) {
	compressed, err := os.ReadFile(c.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	buf, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, false, fmt.Errorf("viz: decoding cache entry %s: %w", key, err)
	}
	var site Site
	if err := json.Unmarshal(buf, &site); err != nil {
		return nil, false, fmt.Errorf("viz: decoding cache entry %s: %w", key, err)
	}
	return &site, true, nil
}

// Store saves site under key, replacing any existing entry.
func (c Cache) Store(key string, site *Site) error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return err
	}
	buf, err := json.Marshal(site)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(c.Dir, "site_cache_*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(snappy.Encode(nil, buf)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.path(key))
}
