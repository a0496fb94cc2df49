package mmaplog

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hupe1980/mmaplog/internal/fs"
	"github.com/hupe1980/mmaplog/internal/mmap"
)

// RemapStrategy selects how the mapping is grown when the store needs more room.
type RemapStrategy int

const (
	// RemapAuto grows in place where the platform supports it and falls
	// back to RemapPortable otherwise.
	RemapAuto RemapStrategy = iota
	// RemapInPlace grows the mapping atomically with mremap(2). Linux only.
	// A failed grow leaves the store unchanged.
	RemapInPlace
	// RemapPortable unmaps and maps the file again at the new size. A failed
	// second map leaves the store without a mapping; it reports ErrMapFailed
	// from then on.
	RemapPortable
)

func (r RemapStrategy) String() string {
	switch r {
	case RemapAuto:
		return "auto"
	case RemapInPlace:
		return "in-place"
	case RemapPortable:
		return "portable"
	default:
		return fmt.Sprintf("RemapStrategy(%d)", int(r))
	}
}

func (r RemapStrategy) mmapStrategy() mmap.Strategy {
	switch r {
	case RemapInPlace:
		return mmap.StrategyRemap
	case RemapPortable:
		return mmap.StrategyPortable
	case RemapAuto:
		return mmap.StrategyAuto
	default:
		return mmap.Strategy(-1)
	}
}

// DefaultFileMode is the permission used when Open creates the backing file.
const DefaultFileMode os.FileMode = 0o644

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	fileMode         os.FileMode
	remap            RemapStrategy
	fs               fs.FileSystem
	mapper           mapFunc
}

// Option configures Open and Restore.
type Option func(*options)

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		fileMode:         DefaultFileMode,
		remap:            RemapAuto,
		fs:               fs.Default,
		mapper:           mapRegion,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

// WithLogger sets the logger. Nil disables logging.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithLogLevel installs a text logger on stderr at the given level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector sets the metrics collector. Nil disables metrics.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithFileMode sets the permission bits of a newly created backing file.
// Existing files keep their mode. The process umask still applies.
func WithFileMode(mode os.FileMode) Option {
	return func(o *options) {
		o.fileMode = mode
	}
}

// WithRemapStrategy selects how the mapping grows.
func WithRemapStrategy(s RemapStrategy) Option {
	return func(o *options) {
		o.remap = s
	}
}

// withFileSystem swaps the file system, e.g. for fault injection in tests.
func withFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

// withMapper swaps the function that maps the backing file.
func withMapper(fn mapFunc) Option {
	return func(o *options) {
		o.mapper = fn
	}
}
