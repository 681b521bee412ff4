package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/twhy/react-component-tagger/pkg/observability"
	"github.com/twhy/react-component-tagger/pkg/plugin"
)

// ErrOutDirRequired is returned when watch has nowhere to write.
var ErrOutDirRequired = errors.New("watch requires --out-dir")

func watchCmd(a *app) *cobra.Command {
	var (
		outDir  string
		mapFile bool
		initial bool
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Re-annotate files into an output directory as they change",
		Long: `Watch a directory tree and mirror annotated copies of changed files
into --out-dir. Events are debounced (watch.debounce in config).

Examples:
  component-tagger watch src --out-dir .tagged --map`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				return ErrOutDirRequired
			}

			return a.runWatch(cmd.Context(), args[0], transformOptions{outDir: outDir, mapFile: mapFile}, initial)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "directory receiving annotated copies")
	cmd.Flags().BoolVar(&mapFile, "map", false, "write a .map file next to each output")
	cmd.Flags().BoolVar(&initial, "initial", true, "annotate every eligible file once at startup")

	return cmd
}

func (a *app) runWatch(ctx context.Context, dir string, opts transformOptions, initial bool) error {
	obsCfg := a.observabilityConfig(observability.ModeWatch)

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	taggerMetrics, err := observability.NewTaggerMetrics(providers.Meter)
	if err != nil {
		return err
	}

	p, err := a.plugin(func(o *plugin.Options) {
		o.Logger = providers.Logger
		o.Tracer = providers.Tracer
		o.Metrics = taggerMetrics
	})
	if err != nil {
		return err
	}

	w, err := newDirWatcher(p, dir, opts, a.cfg.Watch.Debounce, providers.Logger)
	if err != nil {
		return err
	}
	defer w.Close()

	if initial {
		w.syncAll(ctx)
	}

	return w.Run(ctx)
}

// dirWatcher mirrors annotated copies of a directory tree into outDir.
type dirWatcher struct {
	plugin   *plugin.Plugin
	fsw      *fsnotify.Watcher
	root     string
	outDir   string
	opts     transformOptions
	debounce time.Duration
	logger   *slog.Logger
}

func newDirWatcher(
	p *plugin.Plugin, dir string, opts transformOptions, debounce time.Duration, logger *slog.Logger,
) (*dirWatcher, error) {
	root, err := resolveUserPath(dir)
	if err != nil {
		return nil, err
	}

	outDir, err := resolveUserPath(opts.outDir)
	if err != nil {
		return nil, err
	}

	opts.outDir = outDir

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &dirWatcher{
		plugin:   p,
		fsw:      fsw,
		root:     root,
		outDir:   outDir,
		opts:     opts,
		debounce: debounce,
		logger:   logger,
	}

	err = w.addRecursive(root)
	if err != nil {
		fsw.Close()

		return nil, err
	}

	return w, nil
}

// Close stops the underlying watcher.
func (w *dirWatcher) Close() error {
	err := w.fsw.Close()
	if err != nil {
		return fmt.Errorf("close watcher: %w", err)
	}

	return nil
}

func (w *dirWatcher) ignored(path string) bool {
	if path == w.outDir || strings.HasPrefix(path, w.outDir+string(filepath.Separator)) {
		return true
	}

	base := filepath.Base(path)

	return base == dependencyDir || (path != w.root && strings.HasPrefix(base, "."))
}

func (w *dirWatcher) addRecursive(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || !d.IsDir() {
			return nil //nolint:nilerr // unreadable entries are skipped
		}

		if w.ignored(path) {
			return filepath.SkipDir
		}

		return w.fsw.Add(path)
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}

	return nil
}

// syncAll annotates every eligible file once.
func (w *dirWatcher) syncAll(ctx context.Context) {
	files, err := collectFiles([]string{w.root}, func(path string) bool {
		return !w.ignored(path) && w.plugin.Eligible(path)
	})
	if err != nil {
		w.logger.WarnContext(ctx, "initial scan failed", "error", err)

		return
	}

	for _, path := range files {
		w.sync(ctx, path)
	}
}

// Run processes events until ctx is canceled.
func (w *dirWatcher) Run(ctx context.Context) error {
	pending := make(map[string]struct{})

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	w.logger.InfoContext(ctx, "watching", "root", w.root, "out_dir", w.outDir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}

			if w.ignored(event.Name) {
				continue
			}

			if event.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					addErr := w.addRecursive(event.Name)
					if addErr != nil {
						w.logger.WarnContext(ctx, "watch directory failed", "error", addErr)
					}

					continue
				}
			}

			if !w.plugin.Eligible(event.Name) {
				continue
			}

			pending[event.Name] = struct{}{}

			timer.Reset(w.debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}

			w.logger.WarnContext(ctx, "watch error", "error", err)
		case <-timer.C:
			for path := range pending {
				w.sync(ctx, path)
			}

			clear(pending)
		}
	}
}

// sync writes the annotated copy of path, or removes it when path is gone.
func (w *dirWatcher) sync(ctx context.Context, path string) {
	target, err := outputPath(w.outDir, w.root, path)
	if err != nil {
		w.logger.WarnContext(ctx, "skip file", "path", path, "error", err)

		return
	}

	//nolint:gosec // path comes from the watched tree.
	src, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		_ = os.Remove(target)
		_ = os.Remove(target + ".map")

		w.logger.DebugContext(ctx, "removed", "path", target)

		return
	}

	if err != nil {
		w.logger.WarnContext(ctx, "read failed", "path", path, "error", err)

		return
	}

	res := plugin.FileResult{Path: path, Source: src, Output: w.plugin.Transform(ctx, string(src), path)}
	code, mapData := render(res, w.opts, filepath.Base(path))

	err = writeFile(target, code)
	if err == nil && mapData != nil {
		err = writeFile(target+".map", mapData)
	}

	if err != nil {
		w.logger.WarnContext(ctx, "write failed", "path", target, "error", err)

		return
	}

	w.logger.DebugContext(ctx, "synced", "path", target)
}
