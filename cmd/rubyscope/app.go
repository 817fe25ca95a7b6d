package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gobwas/glob"

	"rubyscope/internal/ast"
	"rubyscope/internal/config"
	"rubyscope/internal/interp"
	"rubyscope/internal/observability"
	"rubyscope/internal/parser"
	"rubyscope/internal/stddb"
)

type App struct {
	Config *config.Config
	Parser *parser.Parser

	source stddb.Source
	log    *slog.Logger
}

// Summary aggregates one run for terminal output.
type Summary struct {
	Files      int
	Failed     int
	Classes    int
	Modules    int
	Methods    int
	Autoloaded int
	Unresolved int
	Duration   time.Duration
}

func NewApp(cfg *config.Config, log *slog.Logger) (*App, error) {
	sources := stddb.Multi{stddb.NewCoreSource()}
	if cfg.StdDB.Path != "" {
		ext, err := stddb.OpenSQLite(cfg.StdDB.Path)
		if err != nil {
			return nil, fmt.Errorf("open definition database %s: %w", cfg.StdDB.Path, err)
		}
		// External dataset first so it can override the embedded core.
		sources = stddb.Multi{ext, sources[0]}
	}

	return &App{
		Config: cfg,
		Parser: parser.New(),
		source: sources,
		log:    log,
	}, nil
}

func (a *App) Close() {
	if err := a.source.Close(); err != nil {
		a.log.Warn("closing definition database", "error", err)
	}
}

// Run scans, parses and analyzes the configured paths, then writes any
// configured outputs.
func (a *App) Run() (Summary, error) {
	start := time.Now()

	files, err := a.ScanDirectories(a.Config.Paths, a.Config.Exclude.Dirs, a.Config.Exclude.Files)
	if err != nil {
		return Summary{}, err
	}

	var (
		trees   []*ast.Node
		summary Summary
	)
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			a.log.Warn("failed to read file", "path", path, "error", err)
			summary.Failed++
			continue
		}
		tree, err := a.Parser.ParseSource(path, content)
		if err != nil {
			a.log.Warn("failed to parse file", "path", path, "error", err)
			summary.Failed++
			continue
		}
		trees = append(trees, tree)
	}
	summary.Files = len(trees)

	interpreter := interp.New(interp.Options{Source: a.source, Logger: a.log})
	result, err := interpreter.Run(trees...)
	if err != nil {
		return Summary{}, err
	}
	if err := interpreter.LoaderErr(); err != nil {
		a.log.Warn("definition database degraded during run", "error", err)
	}
	observability.AnalysisDuration.Observe(time.Since(start).Seconds())

	outline := BuildOutline(result)
	summary.Classes, summary.Modules, summary.Methods = outline.Counts()
	summary.Autoloaded = int(observability.CounterValue(observability.ConstantsAutoloaded))
	summary.Unresolved = int(observability.CounterValue(observability.LookupMisses))
	summary.Duration = time.Since(start)

	if a.Config.Output.JSON != "" {
		if err := outline.WriteJSON(a.Config.Output.JSON); err != nil {
			return Summary{}, fmt.Errorf("write json outline: %w", err)
		}
		a.log.Info("wrote outline", "path", a.Config.Output.JSON)
	}

	return summary, nil
}

func (a *App) PrintSummary(s Summary) {
	fmt.Printf("analyzed %d files (%d failed) in %s\n", s.Files, s.Failed, s.Duration.Round(time.Millisecond))
	fmt.Printf("  classes: %d  modules: %d  methods: %d\n", s.Classes, s.Modules, s.Methods)
	fmt.Printf("  autoloaded constants: %d  unresolved references: %d\n", s.Autoloaded, s.Unresolved)
}

// ScanDirectories walks the given roots collecting Ruby files, honoring the
// exclude globs. Directory patterns match the basename; file patterns match
// the path relative to the walked root.
func (a *App) ScanDirectories(paths []string, excludeDirs, excludeFiles []string) ([]string, error) {
	dirGlobs, err := compileGlobs(excludeDirs)
	if err != nil {
		return nil, err
	}
	fileGlobs, err := compileGlobs(excludeFiles)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if d.IsDir() {
				base := filepath.Base(path)
				for _, g := range dirGlobs {
					if g.Match(base) {
						return filepath.SkipDir
					}
				}
				return nil
			}

			if filepath.Ext(path) != ".rb" {
				return nil
			}

			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}
			for _, g := range fileGlobs {
				if g.Match(rel) || g.Match(filepath.Base(path)) {
					return nil
				}
			}

			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}
	}
	return files, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}
