package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dshills/scribe/internal/check"
	"github.com/dshills/scribe/internal/checking"
	"github.com/dshills/scribe/internal/config"
	"github.com/dshills/scribe/internal/coordinator"
	"github.com/dshills/scribe/internal/history"
	"github.com/dshills/scribe/internal/providers"
	"github.com/dshills/scribe/internal/server"
)

const tehReply = `{"issues":[{"goal":"SPELLING_GRAMMAR","description":"Misspelled word","suggestions":["The"],"severity":"error","originalText":"Teh","startOffset":0,"endOffset":3}],"overallScore":78,"goalScores":{"SPELLING_GRAMMAR":70},"counts":{"sentences":1,"words":3,"issues":1}}`

// resetFlags resets all package-level flag variables to their zero values.
func resetFlags() {
	flagLogLevel = ""
	flagLLM = false
	flagProvider = ""
	flagModel = ""
	flagProfile = ""
	flagProfileName = ""
	flagLanguage = ""
	flagServer = ""
	flagToken = ""
	flagTimeout = ""
	flagFormat = ""
	flagOut = ""
	flagMinScore = 0
	flagPromptFile = ""
	flagNoHistory = false
	flagNoRedact = false
	flagAddr = ""
	flagHistoryFormat = ""
	flagHistoryLimit = 50
	flagHistoryOffset = 0
	flagPruneKeep = 1000
	flagModelsProvider = ""
	flagCapsJSON = false
}

// isolate points config, history, and cache at a temporary directory and
// clears the environment the config layer reads.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	for _, k := range []string{
		"LLM_PROVIDER", "SCRIBE_MODEL", "SCRIBE_FORMAT", "SCRIBE_HISTORY_PATH", "SCRIBE_ADDR",
		"SCRIBE_CHECK_TIMEOUT", "SCRIBE_MAX_CHUNK_SIZE", "ACROLINX_BASE_URL", "ACROLINX_API_TOKEN",
		"ACROLINX_CLIENT_SIGNATURE", "ACROLINX_CLIENT_VERSION", "OPENAI_API_KEY", "OPENAI_BASE_URL",
		"AICORE_SERVICE_KEY", "AICORE_RESOURCE_GROUP", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY",
		"OLLAMA_HOST", "SCRIBE_OLLAMA_API_KEY",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("SCRIBE_LOG_LEVEL", "error")
	resetFlags()
	return dir
}

// execute runs the root command with args and returns the exit code and
// captured output.
func execute(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	resetFlags()
	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		resetFlags()
	})
	code := Run()
	return code, stdout.String(), stderr.String()
}

func intPtr(n int) *int { return &n }

// --- buildOverrides tests ---

func TestBuildOverrides_NoFlags(t *testing.T) {
	resetFlags()
	if m := buildOverrides(); len(m) != 0 {
		t.Errorf("buildOverrides() with no flags = %v, want empty map", m)
	}
}

func TestBuildOverrides_AllFlags(t *testing.T) {
	resetFlags()
	defer resetFlags()
	flagProvider = "openai"
	flagModel = "gpt-4o"
	flagFormat = "json"
	flagLanguage = "de"
	flagProfile = "p-1"
	flagTimeout = "90s"

	m := buildOverrides()

	expected := map[string]string{
		"provider": "openai",
		"model":    "gpt-4o",
		"format":   "json",
		"language": "de",
		"profile":  "p-1",
		"timeout":  "90s",
	}
	if len(m) != len(expected) {
		t.Fatalf("buildOverrides() returned %d entries, want %d", len(m), len(expected))
	}
	for k, v := range expected {
		if m[k] != v {
			t.Errorf("buildOverrides()[%q] = %q, want %q", k, m[k], v)
		}
	}
}

// --- buildRequest tests ---

func TestBuildRequest_Stdin(t *testing.T) {
	resetFlags()
	cfg := config.Default()
	cfg.Check.ProfileID = "p-1"

	req, err := buildRequest(strings.NewReader("Teh cat sat."), "", cfg)
	require.NoError(t, err)
	if req.Content != "Teh cat sat." || req.ContentType != check.ContentText {
		t.Errorf("request = %+v", req)
	}
	if req.ProfileID != "p-1" || req.LanguageID != "en" {
		t.Errorf("profile/language = %q/%q, want p-1/en", req.ProfileID, req.LanguageID)
	}
	if req.Provider != check.ProviderNative {
		t.Errorf("Provider = %q, want native", req.Provider)
	}
}

func TestBuildRequest_Files(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	md := filepath.Join(dir, "notes.md")
	html := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(md, []byte("# Title"), 0o644))
	require.NoError(t, os.WriteFile(html, []byte("<p>Hi</p>"), 0o644))

	req, err := buildRequest(nil, md, config.Default())
	require.NoError(t, err)
	if req.ContentType != check.ContentText || req.FileName != "notes.md" || req.Content != "# Title" {
		t.Errorf("markdown request = %+v", req)
	}

	req, err = buildRequest(nil, html, config.Default())
	require.NoError(t, err)
	if req.ContentType != check.ContentFile {
		t.Errorf("ContentType = %q, want file", req.ContentType)
	}
	if req.Content != base64.StdEncoding.EncodeToString([]byte("<p>Hi</p>")) {
		t.Errorf("Content = %q, want base64", req.Content)
	}
	if got := reportContent(req); got != "Hi" {
		t.Errorf("reportContent = %q, want %q", got, "Hi")
	}
}

func TestBuildRequest_Errors(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	exe := filepath.Join(dir, "tool.exe")
	require.NoError(t, os.WriteFile(exe, []byte("x"), 0o644))

	tests := []struct {
		name  string
		stdin string
		path  string
		want  string
	}{
		{"unsupported", "", exe, "unsupported file type"},
		{"empty", "", "", "no content"},
		{"missing", "", filepath.Join(dir, "nope.txt"), "reading input"},
		{"too large", strings.Repeat("a", check.MaxFileSize+1), "", "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildRequest(strings.NewReader(tt.stdin), tt.path, config.Default())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("buildRequest error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestBuildRequest_LLMFlags(t *testing.T) {
	for _, set := range []func(){
		func() { flagLLM = true },
		func() { flagProvider = "anthropic" },
	} {
		resetFlags()
		set()
		req, err := buildRequest(strings.NewReader("text"), "", config.Default())
		require.NoError(t, err)
		if !req.IsLLM() {
			t.Errorf("request should target the LLM (llm=%v provider=%q)", flagLLM, flagProvider)
		}
	}
	resetFlags()
}

// --- exit codes ---

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"timeout", fmt.Errorf("wrapped: %w", coordinator.ErrCheckTimeout), ExitTimeout},
		{"deadline", context.DeadlineExceeded, ExitTimeout},
		{"checking auth", &checking.APIError{Code: "AUTH_ERROR", Status: 401}, ExitAuthError},
		{"provider auth", &providers.APIError{StatusCode: 403}, ExitAuthError},
		{"provider config", &providers.ConfigError{Provider: "openai", Message: "OPENAI_API_KEY is not set"}, ExitAuthError},
		{"other", errors.New("boom"), ExitRuntimeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestExitCodes(t *testing.T) {
	codes := []int{ExitSuccess, ExitBelowMin, ExitUsageError, ExitAuthError, ExitRuntimeError, ExitTimeout}
	for i, c := range codes {
		if c != i {
			t.Errorf("exit code %d = %d", i, c)
		}
	}
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := &progressPrinter{w: &buf}
	p.update(coordinator.State{Status: coordinator.StatusSubmitting})
	p.update(coordinator.State{Status: coordinator.StatusProcessing, CheckID: "chk-1"})
	p.update(coordinator.State{Status: coordinator.StatusProcessing, CheckID: "chk-1"})
	p.update(coordinator.State{Status: coordinator.StatusProcessing, CheckID: "chk-1", Progress: 40})
	p.update(coordinator.State{Status: coordinator.StatusCompleted})

	want := "Submitting check...\nProcessing chk-1\nProcessing chk-1 (40%)\n"
	if buf.String() != want {
		t.Errorf("progress output = %q, want %q", buf.String(), want)
	}
}

// --- commands ---

func TestVersionCmd_Execute(t *testing.T) {
	isolate(t)
	code, out, _ := execute(t, "", "version")
	if code != ExitSuccess {
		t.Errorf("exit code = %d", code)
	}
	if out != "scribe version "+version+"\n" {
		t.Errorf("version output = %q", out)
	}
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	want := []string{"check", "serve", "history", "models", "capabilities", "config", "cache", "mcp", "version"}
	have := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestConfigInit_CreatesFile(t *testing.T) {
	dir := isolate(t)
	code, out, _ := execute(t, "", "config", "init")
	if code != ExitSuccess {
		t.Fatalf("exit code = %d", code)
	}
	path := filepath.Join(dir, "config", "scribe", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Errorf("output %q should name %s", out, path)
	}

	_, _, errOut := execute(t, "", "config", "init")
	if !strings.Contains(errOut, "already exists") {
		t.Errorf("second init stderr = %q", errOut)
	}
}

func TestConfigSet_UpdatesFile(t *testing.T) {
	isolate(t)
	code, out, _ := execute(t, "", "config", "set", "checking.token", "secret-token-1234")
	if code != ExitSuccess {
		t.Fatalf("exit code = %d", code)
	}
	if strings.Contains(out, "secret-token") {
		t.Errorf("secret echoed: %q", out)
	}
	if !strings.Contains(out, "****1234") {
		t.Errorf("output = %q, want masked token", out)
	}

	cfg, err := config.LoadFile()
	require.NoError(t, err)
	if cfg.Checking.Token != "secret-token-1234" {
		t.Errorf("Checking.Token = %q", cfg.Checking.Token)
	}
}

func TestConfigSet_Invalid(t *testing.T) {
	tests := [][]string{
		{"config", "set", "no.such.key", "x"},
		{"config", "set", "format", "xml"},
		{"config", "set", "check.timeout", "soon"},
		{"config", "set", "format"},
	}
	for _, args := range tests {
		isolate(t)
		if code, _, _ := execute(t, "", args...); code != ExitUsageError {
			t.Errorf("%v: exit code = %d, want %d", args, code, ExitUsageError)
		}
	}
}

func TestConfigShow_MasksSecrets(t *testing.T) {
	isolate(t)
	t.Setenv("ACROLINX_API_TOKEN", "abcdefghijkl")
	code, out, _ := execute(t, "", "config", "show")
	if code != ExitSuccess {
		t.Fatalf("exit code = %d", code)
	}
	if strings.Contains(out, "abcdefghijkl") {
		t.Error("config show should mask the token")
	}
	if !strings.Contains(out, "token: '****ijkl'") && !strings.Contains(out, "token: \"****ijkl\"") && !strings.Contains(out, "token: ****ijkl") {
		t.Errorf("config show output missing masked token:\n%s", out)
	}
}

func TestMask(t *testing.T) {
	tests := map[string]string{"": "", "short": "****", "0123456789": "****6789"}
	for in, want := range tests {
		if got := mask(in); got != want {
			t.Errorf("mask(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCacheCommands(t *testing.T) {
	dir := isolate(t)
	code, out, _ := execute(t, "", "cache", "show")
	if code != ExitSuccess || !strings.Contains(out, "disabled") {
		t.Errorf("cache show = %d %q", code, out)
	}

	cacheDir := filepath.Join(dir, "llm-cache")
	require.NoError(t, os.MkdirAll(cacheDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "abc.json"), []byte(`{}`), 0o644))
	execute(t, "", "config", "set", "cache.dir", cacheDir)

	code, out, _ = execute(t, "", "cache", "prune")
	if code != ExitSuccess || !strings.Contains(out, "Pruned") {
		t.Errorf("cache prune = %d %q", code, out)
	}

	code, out, _ = execute(t, "", "cache", "clear")
	if code != ExitSuccess || !strings.Contains(out, "Cache cleared") {
		t.Errorf("cache clear = %d %q", code, out)
	}
}

func seedHistory(t *testing.T, path string) {
	t.Helper()
	store, err := history.Open(path)
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()
	now := time.Now()
	for i, r := range []check.Record{
		{ID: "rec-old", Timestamp: now.Add(-time.Hour), Content: "Old text.", ProfileName: "Tech Docs", Status: check.StatusCompleted, Score: intPtr(60)},
		{ID: "rec-new", Timestamp: now, Content: "Teh cat sat.", FileName: "cat.txt", ProfileName: "Tech Docs", Status: check.StatusCompleted, Score: intPtr(90)},
	} {
		require.NoError(t, store.Save(ctx, r), "record %d", i)
	}
}

func TestHistoryCommands(t *testing.T) {
	dir := isolate(t)
	dbPath := filepath.Join(dir, "history.db")
	t.Setenv("SCRIBE_HISTORY_PATH", dbPath)
	seedHistory(t, dbPath)

	code, out, _ := execute(t, "", "history", "list")
	if code != ExitSuccess {
		t.Fatalf("list exit code = %d", code)
	}
	if strings.Index(out, "rec-new") > strings.Index(out, "rec-old") {
		t.Errorf("list should be newest first:\n%s", out)
	}

	_, out, _ = execute(t, "", "history", "list", "--format", "json", "--limit", "1")
	var records []check.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	if len(records) != 1 || records[0].ID != "rec-new" {
		t.Errorf("json list = %+v", records)
	}

	_, out, _ = execute(t, "", "history", "show", "rec-new")
	if !strings.Contains(out, "cat.txt") || !strings.Contains(out, "90/100") {
		t.Errorf("show output:\n%s", out)
	}

	code, _, errOut := execute(t, "", "history", "show", "missing")
	if code != ExitRuntimeError || !strings.Contains(errOut, "no check with id missing") {
		t.Errorf("show missing = %d %q", code, errOut)
	}

	_, out, _ = execute(t, "", "history", "stats")
	if !strings.Contains(out, "Total checks:  2") || !strings.Contains(out, "Average score: 75") {
		t.Errorf("stats output:\n%s", out)
	}

	_, out, _ = execute(t, "", "history", "prune", "--keep", "1")
	if !strings.Contains(out, "Pruned 1 check.") {
		t.Errorf("prune output = %q", out)
	}

	_, out, _ = execute(t, "", "history", "delete", "rec-new")
	if !strings.Contains(out, "Deleted rec-new") {
		t.Errorf("delete output = %q", out)
	}
	_, out, _ = execute(t, "", "history", "list")
	if !strings.Contains(out, "No checks recorded") {
		t.Errorf("list after delete:\n%s", out)
	}
}

// fakeOpenAI answers chat completions with reply.
func fakeOpenAI(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckCmd_LLMEndToEnd(t *testing.T) {
	dir := isolate(t)
	dbPath := filepath.Join(dir, "history.db")
	llm := fakeOpenAI(t, tehReply)
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "k")
	t.Setenv("OPENAI_BASE_URL", llm.URL)
	t.Setenv("SCRIBE_HISTORY_PATH", dbPath)

	outPath := filepath.Join(dir, "result.json")
	code, _, errOut := execute(t, "Teh cat sat.", "check", "--llm", "--format", "json", "--out", outPath, "-")
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr:\n%s", code, errOut)
	}

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var res check.Result
	require.NoError(t, json.Unmarshal(data, &res))
	if res.Score != 78 {
		t.Errorf("Score = %d, want 78", res.Score)
	}
	if len(res.Issues) != 1 || res.Issues[0].DisplaySurface != "Teh" {
		t.Errorf("Issues = %+v", res.Issues)
	}
	if !strings.HasPrefix(res.ID, check.LLMCheckPrefix) {
		t.Errorf("ID = %q, want llm prefix", res.ID)
	}

	store, err := history.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()
	records, err := store.History(context.Background(), 10, 0)
	require.NoError(t, err)
	if len(records) != 1 {
		t.Fatalf("history records = %d, want 1", len(records))
	}
	if records[0].Status != check.StatusCompleted || records[0].Score == nil || *records[0].Score != 78 {
		t.Errorf("record = %+v", records[0])
	}
}

func TestCheckCmd_MinScore(t *testing.T) {
	dir := isolate(t)
	llm := fakeOpenAI(t, tehReply)
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "k")
	t.Setenv("OPENAI_BASE_URL", llm.URL)

	code, _, errOut := execute(t, "Teh cat sat.", "check", "--llm", "--no-history", "--min-score", "80",
		"--out", filepath.Join(dir, "out.txt"))
	if code != ExitBelowMin {
		t.Errorf("exit code = %d, want %d", code, ExitBelowMin)
	}
	if !strings.Contains(errOut, "below the minimum of 80") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestCheckCmd_MissingLLMCredentials(t *testing.T) {
	isolate(t)
	t.Setenv("LLM_PROVIDER", "openai")
	code, _, errOut := execute(t, "text", "check", "--llm", "--no-history")
	if code != ExitAuthError {
		t.Errorf("exit code = %d, want %d", code, ExitAuthError)
	}
	if !strings.Contains(errOut, "OPENAI_API_KEY") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestCheckCmd_UsageErrors(t *testing.T) {
	isolate(t)
	if code, _, _ := execute(t, "", "check", "a.txt", "b.txt"); code != ExitUsageError {
		t.Errorf("two args: exit code = %d", code)
	}
	isolate(t)
	if code, _, _ := execute(t, "text", "check", "--timeout", "soon"); code != ExitUsageError {
		t.Errorf("bad timeout: exit code = %d", code)
	}
}

type remoteBackend struct{}

func (remoteBackend) Submit(context.Context, check.Request) (check.Submission, error) {
	return check.Submission{CheckID: "chk-9"}, nil
}

func (remoteBackend) Poll(context.Context, string) (check.PollResult, error) {
	return check.PollResult{
		Status: check.PollCompleted,
		Result: &check.Result{ID: "chk-9", Score: 95, Status: "completed", Goals: []check.GoalResult{}, Issues: []check.Issue{}},
	}, nil
}

func (remoteBackend) CheckLLM(context.Context, check.Request) (*check.Result, error) {
	return nil, errors.New("not used")
}

func TestCheckCmd_ThroughServer(t *testing.T) {
	dir := isolate(t)
	api := httptest.NewServer(server.New(server.Config{Backend: remoteBackend{}}).Handler())
	t.Cleanup(api.Close)
	t.Setenv("SCRIBE_CHECK_TIMEOUT", "10s")

	outPath := filepath.Join(dir, "report.md")
	code, _, errOut := execute(t, "All good here.", "check", "--server", api.URL, "--token", "t",
		"--no-history", "--format", "markdown", "--out", outPath)
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr:\n%s", code, errOut)
	}
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	if !strings.Contains(string(data), "**Score:** 95/100") {
		t.Errorf("report:\n%s", data)
	}
	if !strings.Contains(errOut, "Processing chk-9") {
		t.Errorf("progress should be reported, stderr = %q", errOut)
	}
}

func TestCheckCmd_ServerRejectsMissingToken(t *testing.T) {
	isolate(t)
	api := httptest.NewServer(server.New(server.Config{Backend: remoteBackend{}}).Handler())
	t.Cleanup(api.Close)

	code, _, _ := execute(t, "text", "check", "--server", api.URL, "--no-history")
	if code != ExitAuthError {
		t.Errorf("exit code = %d, want %d", code, ExitAuthError)
	}
}
