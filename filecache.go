// Package filecache keeps remote content in local files and refreshes them
// once they are older than a caller supplied max age. The file mtime is the
// only freshness signal, there is no metadata store.
//
// Failures never surface as errors: writes report false and reads report an
// empty string. They are logged to the cache logger instead.
//
// Metrics are only registered with the Registerer given to WithRegisterer.
//
// A Cache does no locking. Concurrent writers of the same path race and the
// final content is undefined, so callers must serialize writes per path.
package filecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"github.com/gwillem/filecache/internal/metrics"
)

// Log is the default logger of new caches
var Log logrus.FieldLogger = logrus.WithField("component", "filecache")

// Cache stores files under a root directory.
type Cache struct {
	root          string
	createParents bool
	fetcher       Fetcher
	log           logrus.FieldLogger
	now           func() time.Time
	metrics       *metrics.Cache
}

// New returns a Cache. Without WithRoot the root is $XDG_CACHE_HOME/<program name>.
// The root itself is created if missing.
func New(opts ...Option) (*Cache, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	root := o.root
	if root == "" {
		name := filepath.Base(os.Args[0])
		if o.usePackageName {
			name = getPackageName(2)
		}
		root = filepath.Join(xdg.CacheHome, name)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("couldn't get absolute path: %w", err)
	}
	if err := os.MkdirAll(absRoot, 0o755); err != nil {
		return nil, fmt.Errorf("couldn't create cache root %q: %w", absRoot, err)
	}

	c := &Cache{
		root:          absRoot,
		createParents: o.createParents,
		fetcher:       o.fetcher,
		log:           o.logger,
		now:           o.now,
		metrics:       metrics.NewCache(o.registerer),
	}
	if c.fetcher == nil {
		c.fetcher = &HTTPFetcher{}
	}
	if c.log == nil {
		c.log = Log
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// Root returns the absolute cache root.
func (c *Cache) Root() string {
	return c.root
}

// Path resolves a cache relative path. Backslashes count as separators and
// the name is NFC normalized. The result is not checked for traversal.
func (c *Cache) Path(rel string) string {
	return filepath.Join(c.root, filepath.FromSlash(normalize(rel)))
}

func normalize(rel string) string {
	return norm.NFC.String(strings.ReplaceAll(rel, `\`, "/"))
}

// IsExpired reports whether path is missing, unreadable or older than maxAge.
// Ages are compared in whole seconds.
func (c *Cache) IsExpired(path string, maxAge time.Duration) bool {
	fi, err := os.Stat(c.Path(path))
	if err != nil || fi.IsDir() {
		return true
	}
	age := c.now().Unix() - fi.ModTime().Unix()
	return age > int64(maxAge/time.Second)
}

// UpdateFile writes content to path unless the file is still fresh.
//
// forceUpdate only skips the freshness check when maxAge is zero; with a
// non-zero maxAge a fresh file is kept even when forced.
func (c *Cache) UpdateFile(path, content string, maxAge time.Duration, forceUpdate bool) bool {
	if !forceUpdate || maxAge != 0 {
		if !c.IsExpired(path, maxAge) {
			return false
		}
	}
	return c.writeFile(path, content)
}

// ReadOrUpdateFile returns the cached content of path, fetching url first when
// the file is expired or forceUpdate is set. Fetched payloads are stored and
// returned in their JSON encoding (see Encode). A failed fetch returns "" and
// leaves the cache untouched.
func (c *Cache) ReadOrUpdateFile(ctx context.Context, path, url string, maxAge time.Duration, forceUpdate bool) string {
	if !forceUpdate && !c.IsExpired(path, maxAge) {
		c.metrics.Hits.Inc()
		return c.ReadFile(path)
	}

	if forceUpdate {
		c.metrics.ForcedRefreshes.Inc()
	} else {
		c.metrics.Misses.Inc()
	}

	log := c.log.WithFields(logrus.Fields{"path": path, "url": url})

	start := time.Now()
	payload, err := c.fetcher.Get(ctx, url)
	c.metrics.FetchTime.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchErrors.Inc()
		log.WithError(err).Warn("fetch failed")
		return ""
	}

	content, err := Encode(payload)
	if err != nil {
		c.metrics.FetchErrors.Inc()
		log.WithError(err).Warn("couldn't encode payload")
		return ""
	}

	if !c.writeFile(path, content) {
		log.Warn("couldn't store fetched content")
	}
	return content
}

// ReadFile returns the content of path, or "" when it can't be opened.
func (c *Cache) ReadFile(path string) string {
	fh, err := os.Open(c.Path(path))
	if err != nil {
		c.log.WithError(err).WithField("path", path).Debug("cache file not readable")
		return ""
	}
	defer fh.Close()

	fi, err := fh.Stat()
	if err != nil {
		return ""
	}

	// Size is taken once, a concurrent truncate or append is not handled
	buf := make([]byte, fi.Size())
	n, err := io.ReadFull(fh, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		c.log.WithError(err).WithField("path", path).Debug("cache file read failed")
	}
	return string(buf[:n])
}

func (c *Cache) writeFile(path, content string) bool {
	log := c.log.WithField("path", path)

	// Path cleans away a trailing slash, a missing file name must still fail
	if rel := normalize(path); rel == "" || strings.HasSuffix(rel, "/") {
		c.metrics.WriteErrors.Inc()
		log.Warn("cache path has no file name")
		return false
	}

	full := c.Path(path)
	dir, name := filepath.Dir(full), filepath.Base(full)

	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		mkdir := os.Mkdir
		if c.createParents {
			mkdir = os.MkdirAll
		}
		if err := mkdir(dir, 0o755); err != nil {
			c.metrics.WriteErrors.Inc()
			log.WithError(err).Warn("couldn't create cache dir")
			return false
		}
	}

	fh, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		c.metrics.WriteErrors.Inc()
		log.WithError(err).Warn("couldn't open cache file")
		return false
	}

	_, writeErr := io.WriteString(fh, content)

	if err := fh.Close(); err != nil {
		log.WithError(err).Warn("couldn't close cache file")
	}

	if writeErr != nil {
		c.metrics.WriteErrors.Inc()
		log.WithError(writeErr).Warn("couldn't write cache file")
		return false
	}
	return true
}
