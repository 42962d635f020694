package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/chattoc/internal/config"
	"github.com/hpungsan/chattoc/internal/db"
	"github.com/hpungsan/chattoc/internal/ops"
	"github.com/hpungsan/chattoc/internal/section"
	"github.com/urfave/cli/v2"
)

type message struct {
	author string
	text   string
}

var sortingChat = []message{
	{"user", "How do I sort a map in Go?"},
	{"assistant", "Collect the keys first. Then sort them."},
	{"user", "Thanks"},
}

// setupEnv creates a temporary base directory with an initialized database.
func setupEnv(t *testing.T) *appEnv {
	t.Helper()
	baseDir := t.TempDir()
	database, err := db.Init(baseDir)
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return &appEnv{db: database, opts: config.DefaultOptions(), baseDir: baseDir}
}

// writeTranscript writes a chat page with one .message div per message.
func writeTranscript(t *testing.T, dir, name string, msgs ...message) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><body>\n<main>\n")
	for _, m := range msgs {
		fmt.Fprintf(&b, "<div class=\"message\" data-author=%q>%s</div>\n", m.author, m.text)
	}
	b.WriteString("</main>\n</body></html>\n")

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("failed to write transcript: %v", err)
	}
	return path
}

// runCLI runs the app with args and returns what it wrote to stdout.
func runCLI(t *testing.T, env *appEnv, args ...string) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan []byte)
	go func() {
		data, _ := io.ReadAll(r)
		done <- data
	}()

	app := newCLIApp(env)
	runErr := app.Run(append([]string{"chattoc", "--log-level=off"}, args...))

	w.Close()
	os.Stdout = oldStdout
	return string(<-done), runErr
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	return v
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty string", input: "", expected: nil},
		{name: "single item", input: "toc_fetch", expected: []string{"toc_fetch"}},
		{name: "items with spaces", input: " toc_fetch , toc_list ", expected: []string{"toc_fetch", "toc_list"}},
		{name: "empty items filtered", input: "toc_fetch,,toc_list,", expected: []string{"toc_fetch", "toc_list"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseList(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("expected %d items, got %d", len(tt.expected), len(result))
			}
			for i, item := range result {
				if item != tt.expected[i] {
					t.Errorf("expected item[%d]=%q, got %q", i, tt.expected[i], item)
				}
			}
		})
	}
}

func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		args     []string
		expected bool
	}{
		{args: []string{"chattoc"}, expected: false},
		{args: []string{"chattoc", "index"}, expected: true},
		{args: []string{"chattoc", "serve", "chat.html"}, expected: true},
		{args: []string{"chattoc", "--log-level=debug", "watch"}, expected: true},
		{args: []string{"chattoc", "--help"}, expected: true},
		{args: []string{"chattoc", "bogus"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			if got := isCLIMode(tt.args); got != tt.expected {
				t.Errorf("isCLIMode(%v) = %v, want %v", tt.args, got, tt.expected)
			}
		})
	}
}

func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		args     []string
		expected bool
	}{
		{args: []string{"chattoc"}, expected: false},
		{args: []string{"chattoc", "--help"}, expected: true},
		{args: []string{"chattoc", "-h"}, expected: true},
		{args: []string{"chattoc", "--version"}, expected: true},
		{args: []string{"chattoc", "-v"}, expected: true},
		{args: []string{"chattoc", "help"}, expected: true},
		{args: []string{"chattoc", "index"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			if got := isHelpOrVersion(tt.args); got != tt.expected {
				t.Errorf("isHelpOrVersion(%v) = %v, want %v", tt.args, got, tt.expected)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "off", ""} {
		if _, err := newLogger(io.Discard, level); err != nil {
			t.Errorf("level %q: unexpected error: %v", level, err)
		}
	}
	if _, err := newLogger(io.Discard, "loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestMCPSettings(t *testing.T) {
	base := t.TempDir()

	settings, err := mcpSettings(base, "", false, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.ExportsDir != ops.ExportsDir(base) {
		t.Errorf("expected default exports dir, got %s", settings.ExportsDir)
	}

	settings, err = mcpSettings(base, "/tmp/out", true, "toc_delete, toc_prune", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.ExportsDir != "/tmp/out" || !settings.AllowUnsafePaths || len(settings.DisabledTools) != 2 {
		t.Errorf("unexpected settings: %+v", settings)
	}

	if _, err := mcpSettings(base, "", false, "toc_nope", ""); err == nil || !strings.Contains(err.Error(), "toc_nope") {
		t.Errorf("expected unknown tool error, got %v", err)
	}
	if _, err := mcpSettings(base, "", false, "", "notes"); err == nil || !strings.Contains(err.Error(), "notes") {
		t.Errorf("expected unknown type error, got %v", err)
	}
}

func TestCLIIndex(t *testing.T) {
	env := setupEnv(t)
	path := writeTranscript(t, t.TempDir(), "sorting.html", sortingChat...)

	out, err := runCLI(t, env, "index", path)
	if err != nil {
		t.Fatalf("index command failed: %v", err)
	}
	output := decode[IndexOutput](t, out)

	if output.Page != "sorting.html" {
		t.Errorf("expected page sorting.html, got %s", output.Page)
	}
	if output.Count != 3 {
		t.Fatalf("expected 3 sections, got %d", output.Count)
	}
	if output.Sections[1].Title != "Collect the keys first." {
		t.Errorf("unexpected title %q", output.Sections[1].Title)
	}
	if output.Sections[1].Badge != section.BadgeAssistant {
		t.Errorf("expected Assistant badge, got %s", output.Sections[1].Badge)
	}
	if output.SnapshotID == "" {
		t.Error("expected a cached snapshot id")
	}

	t.Run("pages lists the indexed page", func(t *testing.T) {
		out, err := runCLI(t, env, "pages")
		if err != nil {
			t.Fatalf("pages command failed: %v", err)
		}
		pages := decode[ops.ListOutput](t, out)
		if len(pages.Items) != 1 || pages.Items[0].SnapshotID != output.SnapshotID {
			t.Errorf("unexpected pages: %+v", pages.Items)
		}
	})

	t.Run("search finds the title", func(t *testing.T) {
		out, err := runCLI(t, env, "search", "sort", "a", "map")
		if err != nil {
			t.Fatalf("search command failed: %v", err)
		}
		result := decode[ops.SearchOutput](t, out)
		if len(result.Items) != 1 {
			t.Fatalf("expected 1 hit, got %d", len(result.Items))
		}
		if result.Items[0].Highlight != "How do I <b>sort a map</b> in Go?" {
			t.Errorf("unexpected highlight %q", result.Items[0].Highlight)
		}
	})
}

func TestCLIIndex_NoCacheWithAnnotate(t *testing.T) {
	env := setupEnv(t)
	dir := t.TempDir()
	path := writeTranscript(t, dir, "sorting.html", sortingChat...)
	annotated := filepath.Join(dir, "annotated.html")

	out, err := runCLI(t, env, "index", "--no-cache", "--annotate", annotated, path)
	if err != nil {
		t.Fatalf("index command failed: %v", err)
	}
	output := decode[IndexOutput](t, out)
	if output.SnapshotID != "" {
		t.Errorf("expected no snapshot, got %s", output.SnapshotID)
	}
	if output.Annotated != annotated {
		t.Errorf("expected annotated path %s, got %s", annotated, output.Annotated)
	}

	data, err := os.ReadFile(annotated)
	if err != nil {
		t.Fatalf("annotated file not written: %v", err)
	}
	if !strings.Contains(string(data), `data-chat-toc-anchor="chat-toc-3"`) {
		t.Errorf("annotated file lacks anchors:\n%s", data)
	}

	out, err = runCLI(t, env, "pages")
	if err != nil {
		t.Fatalf("pages command failed: %v", err)
	}
	if pages := decode[ops.ListOutput](t, out); len(pages.Items) != 0 {
		t.Errorf("expected empty cache, got %d pages", len(pages.Items))
	}
}

func TestCLIExport_FromFile(t *testing.T) {
	env := setupEnv(t)
	path := writeTranscript(t, t.TempDir(), "sorting.html", sortingChat...)

	out, err := runCLI(t, env, "export", path)
	if err != nil {
		t.Fatalf("export command failed: %v", err)
	}
	want := "#1 User How do I sort a map in Go?\n#2 Assistant Collect the keys first.\n#3 User Thanks\n"
	if out != want {
		t.Errorf("unexpected export:\n%s", out)
	}
}

func TestCLIExport_NothingToExport(t *testing.T) {
	env := setupEnv(t)
	path := writeTranscript(t, t.TempDir(), "empty.html")

	_, err := runCLI(t, env, "export", path)
	if err == nil || !strings.Contains(err.Error(), "NOTHING_TO_EXPORT") {
		t.Errorf("expected NOTHING_TO_EXPORT, got %v", err)
	}
}

func TestCLIExport_FromCache(t *testing.T) {
	env := setupEnv(t)
	path := writeTranscript(t, t.TempDir(), "sorting.html", sortingChat...)
	if _, err := runCLI(t, env, "index", path); err != nil {
		t.Fatalf("index command failed: %v", err)
	}

	exportsDir := ops.ExportsDir(env.baseDir)
	if err := os.MkdirAll(exportsDir, 0700); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(exportsDir, "sorting.txt")

	out, err := runCLI(t, env, "export", "--page", "sorting.html", "--path", dst)
	if err != nil {
		t.Fatalf("export command failed: %v", err)
	}
	output := decode[ops.ExportOutput](t, out)
	if output.Count != 3 || output.Path != dst {
		t.Errorf("unexpected output: %+v", output)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("export file not written: %v", err)
	}
	if !strings.HasPrefix(string(data), "#1 User How do I sort a map in Go?\n") {
		t.Errorf("unexpected file content:\n%s", data)
	}

	_, err = runCLI(t, env, "export", "--page", "sorting.html", "--path", filepath.Join(t.TempDir(), "x.txt"))
	if err == nil || !strings.Contains(err.Error(), "INVALID_REQUEST") {
		t.Errorf("expected path outside the exports dir to be refused, got %v", err)
	}
}

func TestCLIFetchPruneDelete(t *testing.T) {
	env := setupEnv(t)
	dir := t.TempDir()
	path := writeTranscript(t, dir, "sorting.html", sortingChat[:2]...)
	if _, err := runCLI(t, env, "index", path); err != nil {
		t.Fatalf("index command failed: %v", err)
	}
	writeTranscript(t, dir, "sorting.html", sortingChat...)
	if _, err := runCLI(t, env, "index", path); err != nil {
		t.Fatalf("index command failed: %v", err)
	}

	out, err := runCLI(t, env, "fetch", "--page", "sorting.html")
	if err != nil {
		t.Fatalf("fetch command failed: %v", err)
	}
	latest := decode[ops.FetchOutput](t, out)
	if latest.Entries != 3 {
		t.Errorf("expected latest snapshot with 3 entries, got %d", latest.Entries)
	}

	out, err = runCLI(t, env, "fetch", latest.ID)
	if err != nil {
		t.Fatalf("fetch by id failed: %v", err)
	}
	if byID := decode[ops.FetchOutput](t, out); byID.ID != latest.ID {
		t.Errorf("expected %s, got %s", latest.ID, byID.ID)
	}

	out, err = runCLI(t, env, "prune", "--page", "sorting.html")
	if err != nil {
		t.Fatalf("prune command failed: %v", err)
	}
	if pruned := decode[ops.PruneOutput](t, out); pruned.Pruned != 1 {
		t.Errorf("expected 1 pruned snapshot, got %d", pruned.Pruned)
	}

	out, err = runCLI(t, env, "delete", "--page", "sorting.html")
	if err != nil {
		t.Fatalf("delete command failed: %v", err)
	}
	if deleted := decode[ops.DeleteOutput](t, out); deleted.Snapshots != 1 {
		t.Errorf("expected 1 deleted snapshot, got %d", deleted.Snapshots)
	}

	_, err = runCLI(t, env, "fetch", "--page", "sorting.html")
	if err == nil || !strings.Contains(err.Error(), "NOT_FOUND") {
		t.Errorf("expected NOT_FOUND after delete, got %v", err)
	}
}

func TestCLIConfig(t *testing.T) {
	env := setupEnv(t)

	out, err := runCLI(t, env, "config")
	if err != nil {
		t.Fatalf("config command failed: %v", err)
	}
	if opts := decode[config.Options](t, out); opts != *config.DefaultOptions() {
		t.Errorf("expected defaults, got %+v", opts)
	}

	out, err = runCLI(t, env, "config", "--side", "left", "--threshold", "5")
	if err != nil {
		t.Fatalf("config command failed: %v", err)
	}
	if opts := decode[config.Options](t, out); opts.PanelSide != config.SideLeft || opts.AutoOpenThreshold != 5 {
		t.Errorf("unexpected options: %+v", opts)
	}
	saved, err := config.Load(env.baseDir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if saved.PanelSide != config.SideLeft || saved.AutoOpenThreshold != 5 || saved.HighlightColor != "#ffec8b" {
		t.Errorf("unexpected saved options: %+v", saved)
	}

	for _, args := range [][]string{
		{"config", "--side", "top"},
		{"config", "--threshold", "0"},
		{"config", "--color", "not a color!"},
	} {
		if _, err := runCLI(t, env, args...); err == nil || !strings.Contains(err.Error(), "INVALID_REQUEST") {
			t.Errorf("%v: expected INVALID_REQUEST, got %v", args, err)
		}
	}

	out, err = runCLI(t, env, "config", "--reset")
	if err != nil {
		t.Fatalf("config --reset failed: %v", err)
	}
	if opts := decode[config.Options](t, out); opts != *config.DefaultOptions() {
		t.Errorf("expected defaults after reset, got %+v", opts)
	}
}

func TestCLIErrorHandling(t *testing.T) {
	env := setupEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "index without file", args: []string{"index"}, want: "a transcript file is required"},
		{name: "index missing file", args: []string{"index", filepath.Join(t.TempDir(), "nope.html")}, want: "nope.html"},
		{name: "fetch without address", args: []string{"fetch"}, want: "INVALID_REQUEST"},
		{name: "search without query", args: []string{"search"}, want: "INVALID_REQUEST"},
		{name: "delete without page", args: []string{"delete"}, want: "page"},
		{name: "export unknown page", args: []string{"export", "--page", "missing.html"}, want: "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, env, tt.args...)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestPanelOpensAtStartByDefault(t *testing.T) {
	app := newCLIApp(&appEnv{})
	for _, name := range []string{"serve", "view"} {
		cmd := app.Command(name)
		if cmd == nil {
			t.Fatalf("command %q not registered", name)
		}
		var open *cli.BoolFlag
		for _, f := range cmd.Flags {
			if bf, ok := f.(*cli.BoolFlag); ok && bf.Name == "open" {
				open = bf
			}
		}
		if open == nil {
			t.Fatalf("%s: no --open flag", name)
		}
		if !open.Value {
			t.Errorf("%s: --open defaults to false, want true", name)
		}
	}
}
