package led

import "log/slog"

// noop satisfies Controller on boards without addressable LEDs.
type noop struct {
	logger *slog.Logger
}

func newNoop(logger *slog.Logger) *noop {
	return &noop{logger: logger}
}

// Set records the request and does nothing.
func (n *noop) Set(ledType string, enabled bool, pattern string) error {
	if n.logger != nil {
		n.logger.Debug("No LED hardware, ignoring",
			"led", ledType, "enabled", enabled, "pattern", pattern)
	}
	return nil
}

func (n *noop) Available() []string {
	return []string{}
}

func (n *noop) Patterns() []string {
	return []string{}
}
