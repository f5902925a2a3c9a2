package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// moduleLogger ties a cached logger to the knobs Initialize can turn
// later: the level var behind its handler and the slot a format change
// swaps through.
type moduleLogger struct {
	logger   *slog.Logger
	levelVar *slog.LevelVar
	handler  *swapHandler
}

var (
	modules        = make(map[string]*moduleLogger)
	globalConfig   Config
	globalLevelVar = &slog.LevelVar{}
	isInitialized  bool
	mutex          sync.RWMutex
)

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

// Initialize applies configuration to the default logger and to every
// module logger handed out so far. Pointers returned by GetLogger stay
// valid: levels change through the shared LevelVar and a format change
// swaps the handler behind the cached logger in place.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig = config
	isInitialized = true

	globalLevel := slog.LevelInfo
	if parsed := parseLevel(config.Level); parsed != nil {
		globalLevel = *parsed
	}
	globalLevelVar.Set(globalLevel)

	for name, ml := range modules {
		level := globalLevel
		if levelStr, ok := config.Modules[name]; ok {
			if parsed := parseLevel(levelStr); parsed != nil {
				level = *parsed
			}
		}
		ml.levelVar.Set(level)
		ml.handler.swap(moduleHandler(config.Format, name, ml.levelVar))
	}

	slog.SetDefault(slog.New(createHandler(config.Format, globalLevelVar)))
}

// GetLogger returns the logger for the given module, creating it on
// first use. The returned pointer is stable across Initialize calls.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	if ml, ok := modules[module]; ok {
		mutex.RUnlock()
		return ml.logger
	}
	mutex.RUnlock()

	mutex.Lock()
	defer mutex.Unlock()

	// Another goroutine may have won the race.
	if ml, ok := modules[module]; ok {
		return ml.logger
	}

	level := slog.LevelInfo
	format := "text"
	if isInitialized {
		if parsed := parseLevel(globalConfig.Level); parsed != nil {
			level = *parsed
		}
		if levelStr, ok := globalConfig.Modules[module]; ok {
			if parsed := parseLevel(levelStr); parsed != nil {
				level = *parsed
			}
		}
		format = globalConfig.Format
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(level)

	handler := &swapHandler{}
	handler.swap(moduleHandler(format, module, levelVar))

	ml := &moduleLogger{
		logger:   slog.New(handler),
		levelVar: levelVar,
		handler:  handler,
	}
	modules[module] = ml
	return ml.logger
}

// moduleHandler builds the concrete handler behind a module logger,
// with the module name attached to every record.
func moduleHandler(format, module string, level slog.Leveler) slog.Handler {
	return createHandler(format, level).WithAttrs([]slog.Attr{slog.String("module", module)})
}

// createHandler creates a slog handler with the specified format and level.
// Logs to stdout and to the systemd journal when available.
// Level can be slog.Level or *slog.LevelVar for dynamic level changes.
func createHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdoutHandler slog.Handler
	if format == "json" {
		stdoutHandler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdoutHandler = slog.NewTextHandler(os.Stdout, opts)
	}

	var handlers []slog.Handler
	if isStdoutAvailable() {
		handlers = append(handlers, stdoutHandler)
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}

	switch len(handlers) {
	case 0:
		return stdoutHandler // Fallback
	case 1:
		return handlers[0]
	default:
		return NewMultiHandler(handlers...)
	}
}

// isStdoutAvailable checks if stdout is connected to a terminal, pipe, socket, or file.
func isStdoutAvailable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	// Available if terminal, pipe, socket, or regular file (not /dev/null which is ModeDevice)
	return (mode&os.ModeCharDevice) != 0 || (mode&os.ModeNamedPipe) != 0 || (mode&os.ModeSocket) != 0 || mode.IsRegular()
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) *slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		l := slog.LevelDebug
		return &l
	case "info":
		l := slog.LevelInfo
		return &l
	case "warn", "warning":
		l := slog.LevelWarn
		return &l
	case "error":
		l := slog.LevelError
		return &l
	default:
		return nil
	}
}
