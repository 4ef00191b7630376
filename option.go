package filecache

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Option is a functional option for configuring a Cache
type Option func(*options)

type options struct {
	usePackageName bool
	createParents  bool
	root           string
	fetcher        Fetcher
	logger         logrus.FieldLogger
	now            func() time.Time
	registerer     prometheus.Registerer
}

func getPackageName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return filepath.Base(os.Args[0])
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return filepath.Base(os.Args[0])
	}
	// Function name format is: "package/path.FuncName" or "package/path.(*Type).Method"
	fullName := fn.Name()
	lastSlash := strings.LastIndex(fullName, "/")
	if lastSlash == -1 {
		lastSlash = 0
	} else {
		lastSlash++
	}
	firstDot := strings.Index(fullName[lastSlash:], ".")
	if firstDot == -1 {
		return filepath.Base(os.Args[0])
	}
	return fullName[lastSlash : lastSlash+firstDot]
}

// UsePackagePath makes the default root $XDG_CACHE_HOME/<caller package>
// instead of $XDG_CACHE_HOME/<program name>. Ignored when WithRoot is set.
func UsePackagePath(o *options) {
	o.usePackageName = true
}

// CreateParents lets writes create every missing directory of a cache path.
// Without it only the last directory level is created.
func CreateParents(o *options) {
	o.createParents = true
}

// WithRoot configures the cache root instead of the XDG default
func WithRoot(dir string) Option {
	return func(o *options) {
		o.root = dir
	}
}

// WithFetcher replaces the default HTTPFetcher
func WithFetcher(f Fetcher) Option {
	return func(o *options) {
		o.fetcher = f
	}
}

// WithLogger replaces the package level Log
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClock overrides time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithRegisterer registers the cache metrics with reg. Without it the
// metrics are kept but not exported.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}
