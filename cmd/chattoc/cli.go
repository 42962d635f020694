package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/chattoc/internal/config"
	"github.com/hpungsan/chattoc/internal/errors"
	"github.com/hpungsan/chattoc/internal/mcp"
	"github.com/hpungsan/chattoc/internal/ops"
	"github.com/hpungsan/chattoc/internal/section"
	"github.com/hpungsan/chattoc/internal/transport"
	"github.com/hpungsan/chattoc/internal/tui"
	"github.com/hpungsan/chattoc/internal/web"
)

// appEnv is shared by every command. db and opts are nil when the app only
// serves --help and --version.
type appEnv struct {
	db      *sql.DB
	opts    *config.Options
	baseDir string
	log     *zap.Logger
}

func (env *appEnv) logger() *zap.Logger {
	if env.log == nil {
		return zap.NewNop()
	}
	return env.log
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "chattoc",
		Usage:   "Table of contents for chat transcripts",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "warn", EnvVars: []string{"CHATTOC_LOG_LEVEL"}, Usage: "Log level: debug|info|warn|error|off"},
		},
		Before: func(c *cli.Context) error {
			log, err := newLogger(os.Stderr, c.String("log-level"))
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}
			env.log = log
			return nil
		},
		After: func(*cli.Context) error {
			if env.log != nil {
				_ = env.log.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			indexCmd(env),
			watchCmd(env),
			exportCmd(env),
			fetchCmd(env),
			pagesCmd(env),
			searchCmd(env),
			deleteCmd(env),
			pruneCmd(env),
			serveCmd(env),
			viewCmd(env),
			mcpCmd(env),
			configCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// IndexOutput is the result of the index command.
type IndexOutput struct {
	Page       string            `json:"page"`
	Count      int               `json:"count"`
	Sections   []section.Summary `json:"sections"`
	SnapshotID string            `json:"snapshot_id,omitempty"`
	Annotated  string            `json:"annotated,omitempty"`
}

// indexCmd creates the index command.
func indexCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "index",
		Usage:     "Build the table of contents of a transcript and cache it",
		ArgsUsage: "<file.html>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "page", Aliases: []string{"p"}, Usage: "Page name (defaults to the file name)"},
			&cli.BoolFlag{Name: "no-cache", Usage: "Do not record a snapshot"},
			&cli.StringFlag{Name: "annotate", Aliases: []string{"a"}, Usage: "Write the transcript with anchor ids to this path"},
		},
		Action: func(c *cli.Context) error {
			path, err := fileArg(c)
			if err != nil {
				return outputError(err)
			}

			cfg := sessionConfig{Path: path, Page: c.String("page"), Options: env.opts, Logger: env.logger()}
			if !c.Bool("no-cache") {
				cfg.DB = env.db
			}
			s, err := openSession(c.Context, cfg)
			if err != nil {
				return outputError(err)
			}
			defer s.Close()

			sections := section.Summaries(s.engine.Index())
			if sections == nil {
				sections = []section.Summary{}
			}
			out := IndexOutput{Page: s.page, Count: len(sections), Sections: sections}

			if cfg.DB != nil {
				latest, err := ops.Fetch(c.Context, cfg.DB, ops.FetchInput{Page: s.page})
				if err != nil {
					return outputError(err)
				}
				out.SnapshotID = latest.ID
			}

			if dst := c.String("annotate"); dst != "" {
				var buf bytes.Buffer
				if err := s.doc.WriteHTML(&buf); err != nil {
					return outputError(errors.NewInternal(err))
				}
				if err := os.WriteFile(dst, buf.Bytes(), 0644); err != nil {
					return outputError(errors.NewInternal(err))
				}
				out.Annotated = dst
			}

			return outputJSON(out)
		},
	}
}

// watchCmd creates the watch command.
func watchCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Re-index a transcript whenever it changes",
		ArgsUsage: "<file.html>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "page", Aliases: []string{"p"}, Usage: "Page name (defaults to the file name)"},
			&cli.BoolFlag{Name: "emit", Usage: "Write every updateToc message to stdout as a JSON line"},
			&cli.BoolFlag{Name: "control", Usage: "Read togglePanel/optionsUpdate messages from stdin as JSON lines"},
		},
		Action: func(c *cli.Context) error {
			path, err := fileArg(c)
			if err != nil {
				return outputError(err)
			}
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := openSession(ctx, sessionConfig{
				Path:    path,
				Page:    c.String("page"),
				DB:      env.db,
				Options: env.opts,
				Logger:  env.logger(),
			})
			if err != nil {
				return outputError(err)
			}
			defer s.Close()

			if c.Bool("emit") {
				enc := transport.NewEncoder(os.Stdout)
				s.bus.Handle(transport.TypeUpdateToc, enc.Send)
				_, _ = enc.Send(ctx, transport.UpdateToc(s.page, section.Summaries(s.engine.Index())))
			}
			if c.Bool("control") && stdinHasData() {
				go func() {
					if err := transport.Decode(ctx, os.Stdin, s.bus, s.log); err != nil && ctx.Err() == nil {
						s.log.Warn("control stream stopped", zap.Error(err))
					}
				}()
			}

			return s.follow(ctx, env.baseDir)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a table of contents as text, from a transcript or from the cache",
		ArgsUsage: "[file.html]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "page", Aliases: []string{"p"}, Usage: "Cached page to export (when no file is given)"},
			&cli.StringFlag{Name: "path", Usage: "Write the export to this file under the exports directory"},
			&cli.BoolFlag{Name: "allow-unsafe-paths", Usage: "Allow --path outside the exports directory"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				s, err := openSession(c.Context, sessionConfig{
					Path:    c.Args().First(),
					Page:    c.String("page"),
					Options: env.opts,
					Logger:  env.logger(),
				})
				if err != nil {
					return outputError(err)
				}
				defer s.Close()

				text, err := s.engine.Export()
				if err != nil {
					return outputError(err)
				}
				fmt.Fprintln(os.Stdout, text)
				return nil
			}

			output, err := ops.Export(c.Context, env.db, ops.ExportInput{
				Page:             c.String("page"),
				Path:             c.String("path"),
				ExportsDir:       ops.ExportsDir(env.baseDir),
				AllowUnsafePaths: c.Bool("allow-unsafe-paths"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// fetchCmd creates the fetch command.
func fetchCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a cached snapshot by ID, or the latest snapshot of a page",
		ArgsUsage: "[id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "page", Aliases: []string{"p"}, Usage: "Page name"},
		},
		Action: func(c *cli.Context) error {
			input := ops.FetchInput{}

			// Check for positional ID argument
			if c.NArg() > 0 {
				input.ID = c.Args().First()
			} else {
				input.Page = c.String("page")
			}

			output, err := ops.Fetch(c.Context, env.db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// pagesCmd creates the pages command.
func pagesCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "pages",
		Usage: "List cached pages, most recently indexed first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, env.db, ops.ListInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// searchCmd creates the search command.
func searchCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search section titles across cached pages",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "page", Aliases: []string{"p"}, Usage: "Restrict to one page"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Search(c.Context, env.db, ops.SearchInput{
				Query:  strings.Join(c.Args().Slice(), " "),
				Page:   c.String("page"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "delete",
		Usage: "Delete every cached snapshot of a page",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "page", Aliases: []string{"p"}, Required: true, Usage: "Page name"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Delete(c.Context, env.db, ops.DeleteInput{Page: c.String("page")})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// pruneCmd creates the prune command.
func pruneCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "Drop old snapshots of a page, keeping the newest",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "page", Aliases: []string{"p"}, Required: true, Usage: "Page name"},
			&cli.IntFlag{Name: "keep", Aliases: []string{"k"}, Value: 1, Usage: "Snapshots to keep"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Prune(c.Context, env.db, ops.PruneInput{
				Page: c.String("page"),
				Keep: c.Int("keep"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "serve",
		Usage:     "Serve the live table of contents of a transcript over HTTP",
		ArgsUsage: "<file.html>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "page", Aliases: []string{"p"}, Usage: "Page name (defaults to the file name)"},
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8484, Usage: "Port to listen on"},
			&cli.BoolFlag{Name: "open", Value: true, Usage: "Show the panel at start; --open=false waits for the auto-open threshold"},
			&cli.BoolFlag{Name: "no-follow", Usage: "Do not reload the transcript when it changes"},
		},
		Action: func(c *cli.Context) error {
			path, err := fileArg(c)
			if err != nil {
				return outputError(err)
			}
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			log := env.logger()
			s, err := openSession(ctx, sessionConfig{
				Path:      path,
				Page:      c.String("page"),
				DB:        env.db,
				Options:   env.opts,
				StartOpen: c.Bool("open"),
				Logger:    log,
			})
			if err != nil {
				return outputError(err)
			}
			defer s.Close()

			if !c.Bool("no-follow") {
				go func() {
					if err := s.follow(ctx, env.baseDir); err != nil {
						log.Warn("transcript will not be reloaded", zap.Error(err))
					}
				}()
			}

			srv := web.NewServer(web.Config{
				Engine:   s.engine,
				Document: s.doc,
				Panel:    s.panel,
				DB:       env.db,
				Page:     s.page,
				Version:  Version,
				Logger:   log,
			}, c.String("bind"), c.Int("port"))
			return web.Run(ctx, srv, log)
		},
	}
}

// viewCmd creates the view command.
func viewCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "view",
		Usage:     "Browse a transcript with its table of contents in the terminal",
		ArgsUsage: "<file.html>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "page", Aliases: []string{"p"}, Usage: "Page name (defaults to the file name)"},
			&cli.BoolFlag{Name: "open", Value: true, Usage: "Show the sidebar at start; --open=false waits for the auto-open threshold"},
			&cli.BoolFlag{Name: "no-follow", Usage: "Do not reload the transcript when it changes"},
		},
		Action: func(c *cli.Context) error {
			path, err := fileArg(c)
			if err != nil {
				return outputError(err)
			}
			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()

			// The terminal belongs to the UI; logs would corrupt it.
			s, err := openSession(ctx, sessionConfig{
				Path:      path,
				Page:      c.String("page"),
				DB:        env.db,
				Options:   env.opts,
				StartOpen: c.Bool("open"),
			})
			if err != nil {
				return outputError(err)
			}
			defer s.Close()

			if !c.Bool("no-follow") {
				go func() { _ = s.follow(ctx, env.baseDir) }()
			}

			model := tui.New(tui.Config{
				Engine:   s.engine,
				Document: s.doc,
				Panel:    s.panel,
				Page:     s.page,
			})
			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
			if _, err := p.Run(); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the snapshot cache to MCP clients over stdio",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "exports-dir", Usage: "Directory toc_export may write to (default: <base>/exports)"},
			&cli.BoolFlag{Name: "allow-unsafe-paths", Usage: "Allow toc_export paths outside the exports directory"},
			&cli.StringFlag{Name: "disable-tools", Usage: "Comma-separated tool names to hide"},
			&cli.StringFlag{Name: "disable-types", Usage: "Comma-separated tool types to hide"},
		},
		Action: func(c *cli.Context) error {
			settings, err := mcpSettings(env.baseDir, c.String("exports-dir"), c.Bool("allow-unsafe-paths"),
				c.String("disable-tools"), c.String("disable-types"))
			if err != nil {
				return outputError(err)
			}
			return mcp.Run(env.db, settings, Version)
		},
	}
}

// mcpSettings validates the mcp command flags.
func mcpSettings(baseDir, exportsDir string, allowUnsafe bool, tools, types string) (mcp.Settings, error) {
	settings := mcp.Settings{
		ExportsDir:       exportsDir,
		AllowUnsafePaths: allowUnsafe,
		DisabledTools:    parseList(tools),
		DisabledTypes:    parseList(types),
	}
	if settings.ExportsDir == "" {
		settings.ExportsDir = ops.ExportsDir(baseDir)
	}
	if unknown := mcp.ValidateDisabledTools(settings.DisabledTools); len(unknown) > 0 {
		return settings, errors.NewInvalidRequest(fmt.Sprintf("unknown tools: %s (known: %s)",
			strings.Join(unknown, ", "), strings.Join(mcp.AllToolNames(), ", ")))
	}
	if unknown := mcp.ValidateDisabledTypes(settings.DisabledTypes); len(unknown) > 0 {
		return settings, errors.NewInvalidRequest(fmt.Sprintf("unknown types: %s (known: %s)",
			strings.Join(unknown, ", "), strings.Join(mcp.KnownTypes, ", ")))
	}
	return settings, nil
}

// configCmd creates the config command. Running sessions watch the options
// file and broadcast each save as optionsUpdate.
func configCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show or change the panel options",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "side", Usage: "Panel side: left|right"},
			&cli.IntFlag{Name: "threshold", Usage: "Entries needed to auto-open the panel"},
			&cli.StringFlag{Name: "color", Usage: "Highlight color (CSS)"},
			&cli.BoolFlag{Name: "reset", Usage: "Restore the defaults"},
		},
		Action: func(c *cli.Context) error {
			current, err := config.Load(env.baseDir)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			overlay := &config.Options{}
			if c.IsSet("side") {
				if !config.ValidSide(c.String("side")) {
					return outputError(errors.NewInvalidRequest("side must be left or right"))
				}
				overlay.PanelSide = c.String("side")
			}
			if c.IsSet("threshold") {
				if c.Int("threshold") < 1 {
					return outputError(errors.NewInvalidRequest("threshold must be a positive integer"))
				}
				overlay.AutoOpenThreshold = c.Int("threshold")
			}
			if c.IsSet("color") {
				if !config.ValidColor(c.String("color")) {
					return outputError(errors.NewInvalidRequest(fmt.Sprintf("invalid color %q", c.String("color"))))
				}
				overlay.HighlightColor = c.String("color")
			}

			changed := c.Bool("reset") || *overlay != (config.Options{})
			if !changed {
				return outputJSON(current)
			}

			base := current
			if c.Bool("reset") {
				base = config.DefaultOptions()
			}
			next := config.Merge(base, overlay)
			if err := config.Save(env.baseDir, next); err != nil {
				return outputError(errors.NewInternal(err))
			}
			env.logger().Info("options saved", zap.String("dir", env.baseDir))
			return outputJSON(next)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if tocErr, ok := err.(*errors.TocError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", tocErr.Code, tocErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// fileArg returns the transcript path given as the first argument.
func fileArg(c *cli.Context) (string, error) {
	if c.NArg() == 0 {
		return "", errors.NewInvalidRequest("a transcript file is required")
	}
	return c.Args().First(), nil
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// parseList splits a comma-separated string into trimmed, non-empty items.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			items = append(items, t)
		}
	}
	return items
}
