package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// bump when Summary changes shape
const cacheSchemaVersion uint16 = 1

// Digest identifies one cached summary.
type Digest [sha256.Size]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// ResultCache keeps msgpack-encoded summaries under dir/results. Safe for
// concurrent use by the workers of one process.
type ResultCache struct {
	mu  sync.RWMutex
	dir string
}

// OpenResultCache opens the user cache directory for app.
func OpenResultCache(app string) (*ResultCache, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return nil, err
	}
	return NewResultCache(filepath.Join(base, app))
}

// NewResultCache opens a cache rooted at dir, creating it if needed.
func NewResultCache(dir string) (*ResultCache, error) {
	if err := os.MkdirAll(filepath.Join(dir, "results"), 0o755); err != nil {
		return nil, err
	}
	return &ResultCache{dir: dir}, nil
}

// CacheKey covers the program text and every option the summary depends on.
func CacheKey(content []byte, opts Options) Digest {
	h := sha256.New()
	put := func(key, value string) {
		io.WriteString(h, key+"="+value+"\x00") //nolint:errcheck
	}
	put("schema", strconv.Itoa(int(cacheSchemaVersion)))
	put("depth", strconv.Itoa(opts.Session.MaxDepth))
	put("maxdiag", strconv.Itoa(opts.Session.MaxDiagnostics))
	put("library", strconv.FormatBool(opts.Library))
	put("lower", strconv.FormatBool(!opts.SkipLowering))
	for _, e := range opts.Entries {
		put("entry", e)
	}
	if opts.Cfg != nil {
		for _, e := range opts.Cfg.Entries() {
			put("cfg", e)
		}
	}
	h.Write(content) //nolint:errcheck
	var d Digest
	h.Sum(d[:0])
	return d
}

func (c *ResultCache) file(key Digest) string {
	return filepath.Join(c.dir, "results", key.String()+".mp")
}

// Put stores s under key. The file is replaced atomically.
func (c *ResultCache) Put(key Digest, s *Summary) error {
	if c == nil {
		return nil
	}
	data, err := msgpack.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	target := c.file(key)
	tmp, err := os.CreateTemp(filepath.Dir(target), "tmp-*")
	if err != nil {
		return err
	}
	_, werr := tmp.Write(data)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tmp.Name(), target)
	}
	if werr != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
	}
	return werr
}

// Get loads the summary for key. A missing file or an old schema is a miss,
// not an error.
func (c *ResultCache) Get(key Digest) (*Summary, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	data, err := os.ReadFile(c.file(key))
	c.mu.RUnlock()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}

	var s Summary
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, false, fmt.Errorf("decode summary: %w", err)
	}
	if s.Schema != cacheSchemaVersion {
		return nil, false, nil
	}
	s.Cached = true
	return &s, true, nil
}
