package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tmc/vimcov"
	"github.com/tmc/vimcov/covwriter"
)

var cmdWatch = &Command{
	UsageLine: "vimcov watch -dir=<directory> [-o=<file>] [-format=gocover|lcov] [-root=<dir>]",
	Short:     "watch a directory for profile reports and keep a coverage file current",
	Long: `
Watch monitors a directory (recursively) for Vim :profile reports
being written or updated. Each time a *.log or *.profile file changes,
it reparses every report currently in the directory, merges them, and
rewrites the output coverage file.

Changes are debounced: a burst of writes within 500ms of each other
triggers a single re-merge, matching the debounce used by covtree-web's
directory watcher.

Watch runs until the process is interrupted. Errors reported by the
file watcher, and reports that cannot be read or parsed, are logged
and do not stop it.
`,
}

var (
	watchDir    = cmdWatch.Flag.String("dir", "", "directory to watch for profile reports (required)")
	watchOutput = cmdWatch.Flag.String("o", "", "output file (default stdout on each reload)")
	watchFormat = cmdWatch.Flag.String("format", "gocover", `output format: "gocover" or "lcov"`)
	watchRoots  stringList
)

func init() {
	cmdWatch.Flag.Var(&watchRoots, "root", "restrict output to files under this source root (repeatable)")
	cmdWatch.Run = runWatch
}

func runWatch(ctx context.Context, args []string) error {
	if *watchDir == "" {
		return fmt.Errorf("-dir is required")
	}
	if len(args) != 0 {
		return fmt.Errorf("watch takes no positional arguments")
	}

	logger := newLogger()
	w, err := newReportWatcher(*watchDir, logger)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}

// reportWatcher monitors a directory tree for profile report changes
// and rewrites the merged coverage file on each debounced batch,
// mirroring WatchedWebServer's watch/reload split.
type reportWatcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	logger   *slog.Logger
	reloadCh chan struct{}
}

func newReportWatcher(dir string, logger *slog.Logger) (*reportWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	return &reportWatcher{
		watcher:  fw,
		dir:      dir,
		logger:   logger,
		reloadCh: make(chan struct{}, 1),
	}, nil
}

func (w *reportWatcher) Close() error {
	return w.watcher.Close()
}

func (w *reportWatcher) Start(ctx context.Context) error {
	err := filepath.Walk(w.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", w.dir, err)
	}

	w.logger.Info("watching for profile report changes", "dir", w.dir)

	go w.watchLoop(ctx)
	go w.reloadLoop(ctx)

	// Trigger an initial merge so the output reflects whatever reports
	// already exist before the first change arrives.
	select {
	case w.reloadCh <- struct{}{}:
	default:
	}

	return nil
}

func (w *reportWatcher) watchLoop(ctx context.Context) {
	debounce := time.NewTimer(0)
	debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if isProfileReport(event.Name) {
				w.logger.Debug("detected profile report change", "path", event.Name, "op", event.Op.String())
				debounce.Reset(500 * time.Millisecond)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		case <-debounce.C:
			select {
			case w.reloadCh <- struct{}{}:
			default:
			}
		}
	}
}

func (w *reportWatcher) reloadLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.reloadCh:
			if err := w.reload(); err != nil {
				w.logger.Error("reload failed", "error", err)
			}
		}
	}
}

func (w *reportWatcher) reload() error {
	var paths []string
	err := filepath.Walk(w.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && isProfileReport(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", w.dir, err)
	}

	opts := []vimcov.Option{vimcov.WithLogger(w.logger)}
	if len(watchRoots) > 0 {
		opts = append(opts, vimcov.WithSourceRoots(watchRoots...))
	}
	merged := vimcov.NewMergedProfile(opts...)
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			w.logger.Warn("skipping unreadable report", "path", path, "error", err)
			continue
		}
		p, err := vimcov.ParseProfile(f, vimcov.WithLogger(w.logger.With("profile", path)))
		f.Close()
		if err != nil {
			w.logger.Warn("skipping unparsable report", "path", path, "error", err)
			continue
		}
		merged.Add(p)
	}

	out := os.Stdout
	if *watchOutput != "" {
		tmp := *watchOutput + ".tmp"
		f, err := os.Create(tmp)
		if err != nil {
			return fmt.Errorf("creating %s: %w", tmp, err)
		}
		if err := writeRecord(f, merged.CoverageRecord(), *watchFormat); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		if err := os.Rename(tmp, *watchOutput); err != nil {
			return fmt.Errorf("renaming %s: %w", tmp, err)
		}
		w.logger.Info("rewrote coverage file", "path", *watchOutput, "reports", len(paths))
		return nil
	}

	if err := writeRecord(out, merged.CoverageRecord(), *watchFormat); err != nil {
		return err
	}
	w.logger.Info("wrote coverage to stdout", "reports", len(paths))
	return nil
}

func writeRecord(f *os.File, record *vimcov.CoverageRecord, format string) error {
	switch format {
	case "gocover":
		return covwriter.WriteGoCoverProfile(f, record)
	case "lcov":
		return covwriter.WriteLCOV(f, record)
	default:
		return fmt.Errorf("unknown -format %q: want gocover or lcov", format)
	}
}

// isProfileReport mirrors covtree-web's isCoverageFile: a cheap
// name-based filter so unrelated directory churn doesn't trigger a
// re-merge.
func isProfileReport(filename string) bool {
	base := filepath.Base(filename)
	return strings.HasSuffix(base, ".log") || strings.HasSuffix(base, ".profile")
}
