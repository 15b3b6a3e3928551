package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/qrtx/cli/config"
	"github.com/pithecene-io/qrtx/frame"
	"github.com/pithecene-io/qrtx/lode"
	"github.com/pithecene-io/qrtx/session"
	"github.com/pithecene-io/qrtx/types"
)

// newTestApp wires every command with ExitErrHandler suppressed so errors
// are returned instead of calling os.Exit.
func newTestApp(out *bytes.Buffer) *cli.App {
	app := cli.NewApp()
	app.Writer = out
	app.ErrWriter = &bytes.Buffer{}
	app.Commands = []*cli.Command{
		SendCommand(),
		ReceiveCommand(),
		HistoryCommand(),
		VersionCommand("abc123"),
	}
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return exitSuccess
	}
	var ec cli.ExitCoder
	if !errors.As(err, &ec) {
		t.Fatalf("error %v is not a cli.ExitCoder", err)
	}
	return ec.ExitCode()
}

func TestReadOnlyFlags_IncludesTUI(t *testing.T) {
	hasTUI := false
	for _, f := range ReadOnlyFlags() {
		if f.Names()[0] == "tui" {
			hasTUI = true
			break
		}
	}
	if !hasTUI {
		t.Error("ReadOnlyFlags should include --tui flag for explicit error handling")
	}
}

func TestExitCodeConstants(t *testing.T) {
	codes := []int{exitSuccess, exitError, exitCorruptPayload, exitSinkFailure}
	for i, want := range []int{0, 1, 2, 3} {
		if codes[i] != want {
			t.Errorf("exit code %d = %d, want %d", i, codes[i], want)
		}
	}
}

// --- Config precedence ---

// newTestCLIContext builds a *cli.Context with string flags. flagValues are
// marked as explicitly set; defaultFlags are registered with defaults only.
func newTestCLIContext(t *testing.T, flagValues, defaultFlags map[string]string) *cli.Context {
	t.Helper()
	app := cli.NewApp()

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	for name, val := range defaultFlags {
		fs.String(name, val, "")
	}
	for name := range flagValues {
		if fs.Lookup(name) == nil {
			fs.String(name, "", "")
		}
	}
	for name, val := range flagValues {
		if err := fs.Set(name, val); err != nil {
			t.Fatalf("failed to set flag %s: %v", name, err)
		}
	}
	return cli.NewContext(app, fs, nil)
}

func TestResolveString(t *testing.T) {
	c := newTestCLIContext(t, map[string]string{"out": "cli-dir"}, nil)
	if got := resolveString(c, "out", "config-dir"); got != "cli-dir" {
		t.Errorf("expected CLI to win, got %q", got)
	}

	c = newTestCLIContext(t, nil, map[string]string{"out": "."})
	if got := resolveString(c, "out", "config-dir"); got != "config-dir" {
		t.Errorf("expected config fallback, got %q", got)
	}
	if got := resolveString(c, "out", ""); got != "." {
		t.Errorf("expected flag default, got %q", got)
	}
}

func TestResolveInt(t *testing.T) {
	app := cli.NewApp()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int("capacity", frame.DefaultCapacity, "")
	c := cli.NewContext(app, fs, nil)

	if got := resolveInt(c, "capacity", 300); got != 300 {
		t.Errorf("expected config fallback 300, got %d", got)
	}
	if got := resolveInt(c, "capacity", 0); got != frame.DefaultCapacity {
		t.Errorf("expected default, got %d", got)
	}

	_ = fs.Set("capacity", "128")
	if got := resolveInt(c, "capacity", 300); got != 128 {
		t.Errorf("expected CLI 128 to win, got %d", got)
	}
}

func TestResolveBoolAndDuration(t *testing.T) {
	app := cli.NewApp()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Bool("storage-s3-path-style", false, "")
	fs.Duration("autoplay", 500*time.Millisecond, "")
	c := cli.NewContext(app, fs, nil)

	if !resolveBool(c, "storage-s3-path-style", true) {
		t.Error("expected config true to apply")
	}
	if got := resolveDuration(c, "autoplay", time.Second); got != time.Second {
		t.Errorf("expected config 1s, got %v", got)
	}

	_ = fs.Set("storage-s3-path-style", "false")
	_ = fs.Set("autoplay", "250ms")
	if resolveBool(c, "storage-s3-path-style", true) {
		t.Error("expected explicit CLI false to win")
	}
	if got := resolveDuration(c, "autoplay", time.Second); got != 250*time.Millisecond {
		t.Errorf("expected CLI 250ms, got %v", got)
	}
}

func TestConfigVal(t *testing.T) {
	get := func(c *config.Config) string { return c.Receive.Output }
	if got := configVal(nil, get); got != "" {
		t.Errorf("expected empty for nil config, got %q", got)
	}
	cfg := &config.Config{Receive: config.ReceiveConfig{Output: "/inbox"}}
	if got := configVal(cfg, get); got != "/inbox" {
		t.Errorf("expected /inbox, got %q", got)
	}
}

// --- Adapter parsing ---

func newAdapterTestContext(t *testing.T, flags map[string]string) *cli.Context {
	t.Helper()
	app := cli.NewApp()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("adapter", "", "")
	fs.String("adapter-url", "", "")
	fs.String("adapter-channel", "", "")
	fs.Duration("adapter-timeout", 0, "")
	fs.Int("adapter-retries", 3, "")
	for name, val := range flags {
		if err := fs.Set(name, val); err != nil {
			t.Fatalf("failed to set flag %s: %v", name, err)
		}
	}
	return cli.NewContext(app, fs, nil)
}

func TestParseAdapterConfig(t *testing.T) {
	retries := 0
	cfg := &config.Config{Adapter: config.AdapterConfig{
		URL:     "https://config.example.com",
		Channel: "cfg-channel",
		Headers: map[string]string{"X-Api-Key": "secret"},
		Timeout: config.Duration{Duration: 2 * time.Second},
		Retries: &retries,
	}}

	tests := []struct {
		name    string
		flags   map[string]string
		cfg     *config.Config
		typ     string
		wantURL string
		wantErr string
	}{
		{name: "webhook flags", flags: map[string]string{"adapter-url": "https://hooks.example.com"}, typ: "webhook", wantURL: "https://hooks.example.com"},
		{name: "webhook missing url", typ: "webhook", wantErr: "--adapter-url is required"},
		{name: "unknown type", flags: map[string]string{"adapter-url": "x"}, typ: "kafka", wantErr: "unknown --adapter"},
		{name: "config provides url", cfg: cfg, typ: "redis", wantURL: "https://config.example.com"},
		{name: "cli overrides config", flags: map[string]string{"adapter-url": "redis://cli:6379"}, cfg: cfg, typ: "redis", wantURL: "redis://cli:6379"},
		{name: "negative retries", flags: map[string]string{"adapter-url": "x", "adapter-retries": "-1"}, typ: "webhook", wantErr: "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newAdapterTestContext(t, tt.flags)
			ac, err := parseAdapterConfigWithPrecedence(c, tt.cfg, tt.typ)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ac.url != tt.wantURL {
				t.Errorf("url = %q, want %q", ac.url, tt.wantURL)
			}
		})
	}
}

func TestParseAdapterConfig_ConfigValuesApplied(t *testing.T) {
	retries := 0
	cfg := &config.Config{Adapter: config.AdapterConfig{
		URL:     "https://config.example.com",
		Channel: "cfg-channel",
		Headers: map[string]string{"X-Api-Key": "secret"},
		Timeout: config.Duration{Duration: 2 * time.Second},
		Retries: &retries,
	}}

	ac, err := parseAdapterConfigWithPrecedence(newAdapterTestContext(t, nil), cfg, "webhook")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ac.retries != 0 {
		t.Errorf("config retries 0 should override the flag default, got %d", ac.retries)
	}
	if ac.timeout != 2*time.Second {
		t.Errorf("timeout = %v, want 2s", ac.timeout)
	}
	if ac.headers["X-Api-Key"] != "secret" {
		t.Errorf("config header not merged, got %v", ac.headers)
	}
	if ac.channel != "cfg-channel" {
		t.Errorf("channel = %q", ac.channel)
	}
}

func TestParseAdapterConfig_MalformedHeader(t *testing.T) {
	app := cli.NewApp()
	app.Flags = adapterFlags()

	var parseErr error
	app.Action = func(c *cli.Context) error {
		_, parseErr = parseAdapterConfigWithPrecedence(c, nil, "webhook")
		return nil
	}

	_ = app.Run([]string{"test",
		"--adapter-url", "https://example.com",
		"--adapter-header", "no-equals-sign",
	})

	if parseErr == nil {
		t.Fatal("expected error for malformed header")
	}
	if !strings.Contains(parseErr.Error(), "invalid --adapter-header") || !strings.Contains(parseErr.Error(), "key=value") {
		t.Errorf("error should name the flag and the key=value format, got: %v", parseErr)
	}
}

func TestBuildAdapter_NoneConfigured(t *testing.T) {
	a, err := buildAdapter(newAdapterTestContext(t, nil), nil)
	if err != nil || a != nil {
		t.Errorf("buildAdapter() = %v, %v; want nil, nil", a, err)
	}
}

// --- send ---

func TestSendAction_TextFramesRoundTrip(t *testing.T) {
	var out bytes.Buffer
	app := newTestApp(&out)

	if err := app.Run([]string{"qrtx", "send", "--text", "hello over the air", "--capacity", "60"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected several frames, got %d", len(lines))
	}

	r := session.NewReceiver()
	var last session.Outcome
	for _, line := range lines {
		if len(line) > 60 {
			t.Errorf("frame %q exceeds capacity 60", line)
		}
		last = r.Submit(line)
	}
	if last.Kind != types.OutcomeFinished {
		t.Fatalf("last outcome = %v, want finished", last.Kind)
	}
	text, err := last.Container.Text()
	if err != nil || text != "hello over the air" {
		t.Errorf("text = %q, %v", text, err)
	}
}

func TestSendAction_FileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte(strings.Repeat("abc", 100)), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	app := newTestApp(&out)
	if err := app.Run([]string{"qrtx", "send", "--format", "json", "--no-compress", path}); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	var resp SendResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out.String())
	}
	if resp.Name != "notes.txt" || resp.Kind != "file" || resp.Compressed {
		t.Errorf("unexpected response header: %+v", resp)
	}
	if resp.ChunkSize != frame.ChunkSizeForCapacity(frame.DefaultCapacity) {
		t.Errorf("chunk size = %d", resp.ChunkSize)
	}
	if len(resp.Frames) != frame.Count(resp.EncodedSize, resp.ChunkSize) {
		t.Errorf("frames = %d for encoded size %d", len(resp.Frames), resp.EncodedSize)
	}
}

func TestSendAction_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no source", []string{"qrtx", "send"}, "exactly one of"},
		{"two sources", []string{"qrtx", "send", "--text", "a", "file.bin"}, "exactly one of"},
		{"missing file", []string{"qrtx", "send", "/nonexistent/file.bin"}, "read /nonexistent/file.bin"},
		{"capacity too small", []string{"qrtx", "send", "--text", "a", "--capacity", "4"}, "--capacity must be at least"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestApp(&bytes.Buffer{}).Run(tt.args)
			if exitCode(t, err) != exitError {
				t.Fatalf("exit code = %d, want %d (err %v)", exitCode(t, err), exitError, err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should contain %q", err, tt.want)
			}
		})
	}
}

func TestSendAction_ConfigCapacity(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "qrtx.yaml")
	if err := os.WriteFile(cfgPath, []byte("send:\n  capacity: 40\n  compress: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := newTestApp(&out).Run([]string{"qrtx", "send", "--config", cfgPath, "--format", "json", "--text", strings.Repeat("x", 100)}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	var resp SendResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ChunkSize != frame.ChunkSizeForCapacity(40) || resp.Compressed {
		t.Errorf("config not applied: chunk=%d compressed=%v", resp.ChunkSize, resp.Compressed)
	}
}

// --- history and version ---

func TestHistoryAction(t *testing.T) {
	dir := t.TempDir()
	j, err := lode.NewJournalFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	for i, status := range []types.TransferStatus{types.TransferDelivered, types.TransferCorrupt} {
		if err := j.Append(t.Context(), lode.TransferRecord{
			TransferID:  "t-" + string(rune('1'+i)),
			Name:        "file.bin",
			Status:      status,
			CompletedAt: at.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatal(err)
		}
	}

	var out bytes.Buffer
	if err := newTestApp(&out).Run([]string{"qrtx", "history", "--journal", dir, "--format", "json"}); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var rows []HistoryRow
	if err := json.Unmarshal(out.Bytes(), &rows); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out.String())
	}
	if len(rows) != 2 || rows[0].TransferID != "t-2" {
		t.Errorf("expected newest first, got %+v", rows)
	}

	out.Reset()
	if err := newTestApp(&out).Run([]string{"qrtx", "history", "--journal", dir, "--format", "json", "--status", "corrupt_payload"}); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	rows = nil
	if err := json.Unmarshal(out.Bytes(), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Status != "corrupt_payload" {
		t.Errorf("status filter not applied: %+v", rows)
	}
}

func TestHistoryAction_EmptyJournal(t *testing.T) {
	var out bytes.Buffer
	if err := newTestApp(&out).Run([]string{"qrtx", "history", "--journal", t.TempDir(), "--format", "json"}); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if strings.TrimSpace(out.String()) != "[]" {
		t.Errorf("expected empty list, got %q", out.String())
	}
}

func TestHistoryAction_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no journal", []string{"qrtx", "history"}, "--journal is required"},
		{"bad status", []string{"qrtx", "history", "--journal", "x", "--status", "lost"}, "invalid --status"},
		{"bad day", []string{"qrtx", "history", "--journal", "x", "--day", "19/10/2026"}, "invalid --day"},
		{"tui", []string{"qrtx", "history", "--tui"}, "--tui is not supported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestApp(&bytes.Buffer{}).Run(tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestVersionAction(t *testing.T) {
	var out bytes.Buffer
	if err := newTestApp(&out).Run([]string{"qrtx", "version", "--format", "json"}); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	var resp VersionResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Version != types.Version || resp.Commit != "abc123" {
		t.Errorf("unexpected version response: %+v", resp)
	}
}
