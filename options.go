package vimcov

import "log/slog"

// config collects the functional options shared by the parser and the
// merger.
type config struct {
	logger      *slog.Logger
	sourceRoots []string
	appendTo    string
}

func newConfig(opts ...Option) *config {
	c := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option configures a [Profile] parse or a [MergedProfile].
type Option func(*config)

// WithLogger sets the structured logger used for diagnostic messages.
// The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSourceRoots restricts a MergedProfile's coverage record to files
// explicitly listed or discovered as executable under the given root
// directories (see ProfileMerger step 3).
func WithSourceRoots(roots ...string) Option {
	return func(c *config) {
		c.sourceRoots = append(c.sourceRoots, roots...)
	}
}

// WithAppendTo forwards a path to an existing coverage database for an
// external writer to extend. The core never reads or writes it.
func WithAppendTo(path string) Option {
	return func(c *config) {
		c.appendTo = path
	}
}
