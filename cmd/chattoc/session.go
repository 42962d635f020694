package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hpungsan/chattoc/internal/config"
	"github.com/hpungsan/chattoc/internal/dom"
	"github.com/hpungsan/chattoc/internal/ops"
	"github.com/hpungsan/chattoc/internal/panel"
	"github.com/hpungsan/chattoc/internal/toc"
	"github.com/hpungsan/chattoc/internal/transport"
)

// sessionConfig describes one transcript file opened as a live document.
type sessionConfig struct {
	Path      string
	Page      string
	DB        *sql.DB
	Options   *config.Options
	Keep      int
	StartOpen bool
	Logger    *zap.Logger
}

// session is a transcript file loaded into a live document with an engine
// indexing it. Rebuilds are published on the bus, where the snapshot cache
// records them; togglePanel and optionsUpdate on the bus reach the engine.
type session struct {
	path   string
	page   string
	doc    *dom.Document
	panel  *panel.Live[*dom.Node]
	engine *toc.Engine[*dom.Node]
	bus    *transport.Bus
	log    *zap.Logger
}

// openSession loads cfg.Path and runs the first rebuild. The returned session
// must be closed.
func openSession(ctx context.Context, cfg sessionConfig) (*session, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	root, err := loadHTML(cfg.Path)
	if err != nil {
		return nil, err
	}
	page := cfg.Page
	if page == "" {
		page = filepath.Base(cfg.Path)
	}

	s := &session{
		path:  cfg.Path,
		page:  page,
		doc:   dom.NewDocument(root),
		panel: panel.New[*dom.Node](),
		bus:   transport.NewBus(),
		log:   log,
	}
	if cfg.DB != nil {
		bg := &ops.Background{DB: cfg.DB, Log: log, Keep: cfg.Keep}
		bg.Register(s.bus)
	} else {
		s.bus.Handle(transport.TypeUpdateToc, func(context.Context, transport.Message) (*transport.Response, error) {
			return nil, nil
		})
	}

	s.engine = toc.NewEngine(toc.EngineConfig[*dom.Node]{
		Tree:      s.doc,
		Panel:     s.panel,
		Sender:    s.bus,
		Options:   cfg.Options,
		Page:      page,
		Logger:    log,
		StartOpen: cfg.StartOpen,
	})
	s.bus.Handle(transport.TypeTogglePanel, s.engine.HandleMessage)
	s.bus.Handle(transport.TypeOptionsUpdate, s.engine.HandleMessage)

	if err := s.engine.Init(ctx); err != nil {
		s.engine.Dispose()
		return nil, err
	}
	return s, nil
}

func (s *session) Close() {
	s.engine.Dispose()
}

// reload re-reads the file and morphs the document to match. Untouched
// messages keep their anchors; the engine's watcher debounces the rebuild.
func (s *session) reload() error {
	root, err := loadHTML(s.path)
	if err != nil {
		return err
	}
	batch := s.doc.Sync(root)
	if batch.RootRemoved {
		s.engine.Reattach()
		return s.engine.Rebuild()
	}
	s.log.Debug("transcript reloaded",
		zap.Int("added", batch.Added),
		zap.Int("removed", batch.Removed))
	return nil
}

// reloadOptions re-reads the options file and broadcasts it as optionsUpdate.
func (s *session) reloadOptions(baseDir string) error {
	opts, err := config.Load(baseDir)
	if err != nil {
		return err
	}
	msg, err := transport.OptionsUpdate(opts)
	if err != nil {
		return err
	}
	_, err = s.bus.Send(context.Background(), msg)
	return err
}

// follow watches the transcript file and, when baseDir is set, the options
// file, until ctx is cancelled. Editors often replace files instead of writing
// them in place, so the parent directories are watched and events filtered by name.
func (s *session) follow(ctx context.Context, baseDir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer w.Close()

	target, err := filepath.Abs(s.path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	var optionsPath string
	if baseDir != "" {
		if abs, err := filepath.Abs(baseDir); err == nil {
			optionsPath = filepath.Join(abs, config.FileName)
			if abs != filepath.Dir(target) {
				if err := w.Add(abs); err != nil {
					s.log.Warn("options file will not be watched", zap.String("dir", abs), zap.Error(err))
				}
			}
		}
	}

	s.log.Info("watching transcript", zap.String("path", target), zap.String("page", s.page))
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			switch filepath.Clean(ev.Name) {
			case target:
				if err := s.reload(); err != nil {
					s.log.Warn("reload failed, keeping current document", zap.Error(err))
				}
			case optionsPath:
				if err := s.reloadOptions(baseDir); err != nil {
					s.log.Warn("options reload failed", zap.Error(err))
				} else {
					s.log.Info("options updated")
				}
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("file watcher error", zap.Error(err))
		}
	}
}

func loadHTML(path string) (*dom.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	root, err := dom.ParseHTML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return root, nil
}
