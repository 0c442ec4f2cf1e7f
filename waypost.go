/*
Package waypost implements an embeddable HTTP request-routing and dispatch
core designed to be driven by a host runtime.

Lifecycle

A host constructs an instance, registers routes, seals the routing table
and then streams request descriptors in. Sealing is one-way: it freezes the
route tree, derives a read-only fast-path table and rejects every further
mutation.

	w := waypost.New()
	key, rerr := w.AddRoute(waypost.MethodGET, "/users/:id")
	if rerr != nil {
		// ...
	}

	w.SealRoutes()

	w.HandleRequest(1, payload, func(requestKey uint64, routeKey uint16, result []byte) {
		// routeKey == key when /users/42 arrives
	})

Requests run on a process-wide bounded worker pool; the calling thread only
decodes, enqueues and reports synchronous errors. Results reach the host
through the callback as length-prefixed JSON buffers, with a route key of 0
signalling a failure described by the buffer.

Route patterns combine static segments, named parameters with optional
regex constraints, and a terminal catch-all:

	/assets/css/main.css
	/users/:id
	/users/:id([0-9]+)/posts
	/files/*

When several patterns cover one path, a static segment beats a parameter
and a parameter beats the catch-all, at every depth.
*/
package waypost

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v2"
)

// Waypost is the top-level struct of a server instance.
//
// It is highly recommended not to modify the value of any field of the
// `Waypost` after calling the `Waypost.AddRoute`, which will cause
// unpredictable problems.
type Waypost struct {
	// AppName is the name of the hosting application.
	//
	// It is used to distinguish instances in log output.
	//
	// Default value: "waypost"
	AppName string `mapstructure:"app_name"`

	// DebugMode indicates whether the instance is in debug mode. Debug
	// level log output is suppressed outside of it.
	//
	// Default value: false
	DebugMode bool `mapstructure:"debug_mode"`

	// ConfigFile is the path to the configuration file that will be
	// parsed into the fields of this struct before the routing options
	// take effect.
	//
	// The file extension selects the format: ".json", ".toml", ".yaml"
	// (or ".yml") and ".ini" are supported.
	//
	// Default value: value of the WAYPOST_CONFIG_FILE environment
	// variable
	ConfigFile string `mapstructure:"-"`

	// ConfigWatchEnabled indicates whether the `ConfigFile` is watched
	// for changes. Only `DebugMode` and `LoggerEnabled` are re-applied
	// at runtime; routing options are fixed once the instance exists.
	//
	// Default value: false
	ConfigWatchEnabled bool `mapstructure:"config_watch_enabled"`

	// LoggerEnabled indicates whether the logger writes anything at
	// all.
	//
	// Default value: false
	LoggerEnabled bool `mapstructure:"logger_enabled"`

	// LoggerFormat is the template of the log header. It renders into
	// either a JSON object or a plain text prefix; the message is
	// spliced in accordingly.
	//
	// Default value: see `defaultLoggerFormat`
	LoggerFormat string `mapstructure:"logger_format"`

	// LogFile routes log output into the named file with rotation
	// instead of stdout.
	//
	// Default value: ""
	LogFile string `mapstructure:"log_file"`

	// LogFileMaxSize is the maximum size in megabytes of the log file
	// before it gets rotated.
	//
	// Default value: 100
	LogFileMaxSize int `mapstructure:"log_file_max_size"`

	// LogFileMaxBackups is the maximum number of rotated log files to
	// retain.
	//
	// Default value: 3
	LogFileMaxBackups int `mapstructure:"log_file_max_backups"`

	// LogFileMaxAge is the maximum number of days to retain rotated
	// log files.
	//
	// Default value: 28
	LogFileMaxAge int `mapstructure:"log_file_max_age"`

	// LogFileCompress indicates whether rotated log files are
	// compressed.
	//
	// Default value: false
	LogFileCompress bool `mapstructure:"log_file_compress"`

	// MaxPatternLength is the longest route pattern `AddRoute`
	// accepts, in bytes.
	//
	// Default value: 2048
	MaxPatternLength int `mapstructure:"max_pattern_length"`

	// RegexCacheCapacity bounds the cache of compiled parameter
	// constraints. Eviction is approximate.
	//
	// Default value: 128
	RegexCacheCapacity int `mapstructure:"regex_cache_capacity"`

	// MatchCacheBytes sizes the in-memory memo of dynamic-match
	// results. 0 disables the memo. Non-zero values are rounded up by
	// the cache to its own minimum.
	//
	// Default value: 0
	MatchCacheBytes int `mapstructure:"match_cache_bytes"`

	logger   *Logger
	interner *interner
	regexes  *regexCache
	tree     *routeTree
	chain    *Chain
	readonly atomic.Pointer[readOnlyTable]
	sealOnce sync.Once

	watcher *fsnotify.Watcher

	requestPool  *sync.Pool
	responsePool *sync.Pool
}

// defaultLoggerFormat is the log header rendered when no format is
// configured.
const defaultLoggerFormat = `{"app_name":"{{.app_name}}",` +
	`"time":"{{.time_rfc3339}}","level":"{{.level}}",` +
	`"file":"{{.short_file}}","line":{{.line}}}`

// New returns a pointer of a new instance of the `Waypost` in its build
// phase, with the configuration file (if any) already applied.
func New() *Waypost {
	w := &Waypost{
		AppName:            "waypost",
		ConfigFile:         os.Getenv("WAYPOST_CONFIG_FILE"),
		LoggerFormat:       defaultLoggerFormat,
		LogFileMaxSize:     100,
		LogFileMaxBackups:  3,
		LogFileMaxAge:      28,
		MaxPatternLength:   defaultMaxPatternLength,
		RegexCacheCapacity: 128,
	}

	if w.ConfigFile != "" {
		if err := w.loadConfig(); err != nil {
			fmt.Fprintf(
				os.Stderr,
				"waypost: failed to load config file: %v\n",
				err,
			)
		}
	}

	w.logger = newLogger(w)
	w.interner = newInterner()
	w.regexes = newRegexCache(w.RegexCacheCapacity)
	w.tree = newRouteTree(w.interner, w.regexes, w.MaxPatternLength)

	w.chain = newChain()
	w.chain.AddTo(PhaseOnRequest, HeaderParser{})
	w.chain.AddTo(PhaseOnRequest, CookieParser{})
	w.chain.AddTo(PhaseOnRequest, UrlParser{})
	w.chain.AddTo(PhaseBeforeHandle, BodyParser{})

	w.requestPool = &sync.Pool{
		New: func() interface{} {
			return &Request{}
		},
	}
	w.responsePool = &sync.Pool{
		New: func() interface{} {
			return &Response{}
		},
	}

	if w.ConfigFile != "" && w.ConfigWatchEnabled {
		w.watchConfig()
	}

	return w
}

// loadConfig reads the `ConfigFile` and decodes it onto the w.
func (w *Waypost) loadConfig() error {
	b, err := os.ReadFile(w.ConfigFile)
	if err != nil {
		return err
	}

	m, err := decodeConfig(b, filepath.Ext(w.ConfigFile))
	if err != nil {
		return err
	}

	return weaklyDecode(m, w)
}

// decodeConfig parses the b by the file extension ext.
func decodeConfig(b []byte, ext string) (map[string]interface{}, error) {
	m := map[string]interface{}{}

	switch e := strings.ToLower(ext); e {
	case ".json":
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &m); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &m); err != nil {
			return nil, err
		}

		m = normalizeYAMLMap(m)
	case ".ini":
		f, err := ini.Load(b)
		if err != nil {
			return nil, err
		}

		for _, k := range f.Section("").Keys() {
			m[k.Name()] = k.Value()
		}
	default:
		return nil, fmt.Errorf(
			"waypost: unsupported configuration file extension: %s",
			e,
		)
	}

	return m, nil
}

// normalizeYAMLMap rewrites the nested map[interface{}]interface{} values
// yaml.v2 produces into map[string]interface{} ones.
func normalizeYAMLMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if im, ok := v.(map[interface{}]interface{}); ok {
			sm := make(map[string]interface{}, len(im))
			for ik, iv := range im {
				sm[fmt.Sprint(ik)] = iv
			}

			v = normalizeYAMLMap(sm)
		}

		out[k] = v
	}

	return out
}

// weaklyDecode decodes the m onto the v with weak typing, so that INI
// string values land in bool and int fields.
func weaklyDecode(m map[string]interface{}, v interface{}) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           v,
	})
	if err != nil {
		return err
	}

	return d.Decode(m)
}

// watchConfig re-applies the runtime-safe subset of the configuration
// whenever the file changes.
func (w *Waypost) watchConfig() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Errorf("waypost: failed to build config watcher: %v", err)
		return
	}

	if err := watcher.Add(w.ConfigFile); err != nil {
		w.logger.Errorf("waypost: failed to watch config file: %v", err)
		watcher.Close()
		return
	}

	w.watcher = watcher

	go func() {
		for {
			select {
			case e, ok := <-watcher.Events:
				if !ok {
					return
				}

				if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}

				b, err := os.ReadFile(w.ConfigFile)
				if err != nil {
					continue
				}

				m, err := decodeConfig(
					b,
					filepath.Ext(w.ConfigFile),
				)
				if err != nil {
					w.logger.Warnf(
						"waypost: ignoring unreadable config change: %v",
						err,
					)
					continue
				}

				overlay := struct {
					DebugMode     *bool `mapstructure:"debug_mode"`
					LoggerEnabled *bool `mapstructure:"logger_enabled"`
				}{}
				if err := weaklyDecode(m, &overlay); err != nil {
					continue
				}

				if overlay.DebugMode != nil {
					w.DebugMode = *overlay.DebugMode
				}

				if overlay.LoggerEnabled != nil {
					w.LoggerEnabled = *overlay.LoggerEnabled
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
}

// AddRoute registers the pattern for the method and returns the assigned
// route key. Keys are dense, start at 1 and are never reused within one
// instance.
//
// Concurrent calls on one instance violate the host contract; the tree
// serializes them anyway rather than corrupting itself.
func (w *Waypost) AddRoute(method Method, pattern string) (uint16, *RouterError) {
	key, rerr := w.tree.add(method, pattern)
	if rerr != nil {
		w.logger.Debugj(map[string]interface{}{
			"event":   "add_route_rejected",
			"error":   rerr.Tag,
			"pattern": pattern,
		})

		return 0, rerr
	}

	return key, nil
}

// SealRoutes freezes the routing table and derives the read-only fast-path
// table. The first call does the work; every later call is a no-op.
//
// Nothing observable by `HandleRequest` changes after the first seal.
func (w *Waypost) SealRoutes() {
	w.sealOnce.Do(func() {
		w.tree.seal()
		w.readonly.Store(buildReadOnlyTable(w.tree, w.MatchCacheBytes))

		// The serve phase only maps text to ids.
		w.interner.releaseReverse()

		w.logger.Infoj(map[string]interface{}{
			"event":  "routes_sealed",
			"routes": int(w.tree.nextKey) - 1,
		})
	})
}

// IsSealed reports whether the w has been sealed.
func (w *Waypost) IsSealed() bool {
	return w.readonly.Load() != nil
}

// readOnly returns the published read-only table, or nil before seal.
func (w *Waypost) readOnly() *readOnlyTable {
	return w.readonly.Load()
}

// Logger returns the logger of the w.
func (w *Waypost) Logger() *Logger {
	return w.logger
}

// Close releases everything the w owns that is not garbage-collected.
// In-flight requests keep their shared reference to the read-only table
// and complete normally.
func (w *Waypost) Close() error {
	if w.watcher != nil {
		err := w.watcher.Close()
		w.watcher = nil
		return err
	}

	return nil
}
