package driver

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"prism/internal/astio"
	"prism/internal/compiler"
	"prism/internal/diag"
	"prism/internal/source"
)

// Current schema version - increment when CachedUnit changes.
const diskCacheSchemaVersion uint16 = 1

// Digest is the SHA-256 key of a cached unit.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// CacheKey hashes the msgpack form of doc together with the pass options
// and the cache schema. Path is excluded so moved files still hit.
func CacheKey(doc *astio.Document, opts compiler.Options) (Digest, error) {
	clone := *doc
	clone.Path = ""
	var buf bytes.Buffer
	if err := astio.Encode(&buf, &clone, astio.FormatMsgpack); err != nil {
		return Digest{}, err
	}
	var hdr [6]byte
	binary.LittleEndian.PutUint16(hdr[:2], diskCacheSchemaVersion)
	binary.LittleEndian.PutUint32(hdr[2:], uint32(opts))
	h := sha256.New()
	h.Write(hdr[:])
	h.Write(buf.Bytes())
	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}

// DiskCache stores lowered units by the digest of their input.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// CachedUnit is what the cache keeps of a successful lowering.
type CachedUnit struct {
	Schema      uint16
	Output      []byte
	Diagnostics []diag.Diagnostic
	SpecConst   string
	Uniforms    []string
}

// OpenDiskCache initializes and returns a disk cache at the standard location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return NewDiskCache(filepath.Join(base, app))
}

// NewDiskCache returns a cache rooted at dir, creating it if needed.
func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "units", key.String()+".mp")
}

// Put serializes and writes a unit to the disk cache.
func (c *DiskCache) Put(key Digest, unit *CachedUnit) error {
	if c == nil || unit == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	unit.Schema = diskCacheSchemaVersion
	if err := msgpack.NewEncoder(f).Encode(unit); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// atomic replace
	return os.Rename(f.Name(), p)
}

// Get reads a unit from the disk cache. Entries written by another
// schema version are misses.
func (c *DiskCache) Get(key Digest, out *CachedUnit) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()
	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	return out.Schema == diskCacheSchemaVersion, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}

func (r *Result) payload() *CachedUnit {
	var buf bytes.Buffer
	if err := astio.Encode(&buf, r.Output, astio.FormatMsgpack); err != nil {
		return nil
	}
	return &CachedUnit{
		Output:      buf.Bytes(),
		Diagnostics: r.Diagnostics,
		SpecConst:   r.SpecConst,
		Uniforms:    r.Uniforms,
	}
}

// fromCache fills r from the entry stored under key. Diagnostic spans
// refer to the document source, which is registered again so they
// still resolve.
func (r *Result) fromCache(c *DiskCache, key Digest, doc *astio.Document) bool {
	var unit CachedUnit
	ok, err := c.Get(key, &unit)
	if err != nil || !ok {
		return false
	}
	out, err := astio.Decode(bytes.NewReader(unit.Output), astio.FormatMsgpack)
	if err != nil {
		return false
	}
	out.Path = doc.Path
	name := doc.Path
	if name == "" {
		name = "<document>"
	}
	r.Files = source.NewFileSet()
	r.Files.AddVirtual(name, []byte(doc.Source))
	r.Output = out
	r.Diagnostics = unit.Diagnostics
	r.SpecConst = unit.SpecConst
	r.Uniforms = unit.Uniforms
	r.CodegenReady = true
	r.Cached = true
	return true
}
