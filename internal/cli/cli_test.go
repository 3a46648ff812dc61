package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/Rowpipe/internal/telemetry"
)

// execute запускает rowpipe с аргументами в пустой временной директории.
func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := NewRootCmd("test", telemetry.DiscardLogger())
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))

	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// recordingServer записывает запросы и отвечает по пути.
type recordingServer struct {
	mu       sync.Mutex
	requests []recordedRequest
}

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

func (s *recordingServer) handler(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	data, _ := io.ReadAll(r.Body)
	if len(data) > 0 {
		json.Unmarshal(data, &body)
	}

	s.mu.Lock()
	s.requests = append(s.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Body: body})
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/users" && body["email"] == "bad@example.com":
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"email rejected"}`))
	case r.URL.Path == "/users":
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 42}`))
	default:
		w.Write([]byte(`{}`))
	}
}

const usersSequence = `
requests:
  - name: Create user
    endpoint: %s/users
    payload:
      email: $email
      age: $age
    extractFromResponse:
      - field: userId
        jsonPath: id
  - name: Activate
    method: PATCH
    endpoint: %s/users/$userId/activate
    condition: "$age >= 18"
`

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	chdirForTest(t, dir)
	t.Setenv("ROWPIPE_API__KEY", "secret")

	srv := &recordingServer{}
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()

	csvPath := writeTemp(t, dir, "users.csv", "email,age\na@example.com,30\nbad@example.com,40\nkid@example.com,12\n")
	cfgPath := writeTemp(t, dir, "requests.yaml", strings.ReplaceAll(usersSequence, "%s", ts.URL))
	logPath := filepath.Join(dir, "errors.jsonl")

	stdout, stderr, err := execute(t, "", "run", "--csv", csvPath, "--config", cfgPath, "--error-log", logPath)
	if err != nil {
		t.Fatalf("run failed: %v\nstderr: %s", err, stderr)
	}

	// Строка 1: создание + активация, строка 2: ошибка, строка 3: активация пропущена
	if len(srv.requests) != 4 {
		t.Fatalf("expected 4 requests, got %+v", srv.requests)
	}
	if srv.requests[0].Auth != "Bearer secret" {
		t.Errorf("expected api key header, got %q", srv.requests[0].Auth)
	}
	if age, ok := srv.requests[0].Body["age"].(float64); !ok || age != 30 {
		t.Errorf("age should be sent as a number, got %#v", srv.requests[0].Body["age"])
	}
	if srv.requests[1].Method != http.MethodPatch || srv.requests[1].Path != "/users/42/activate" {
		t.Errorf("unexpected activation request: %+v", srv.requests[1])
	}

	for _, want := range []string{"Row 1 ✓", "Row 2 ✗", "(422)", "email rejected", "Row 3 ✓", "1 skipped"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}
	if !strings.Contains(stdout, "PROCESSED") {
		t.Errorf("expected summary table:\n%s", stdout)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failure log not written: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], `"row":2`) || !strings.Contains(lines[0], `"status":"422"`) {
		t.Errorf("unexpected failure log: %s", data)
	}
}

func TestRunCommand_JSONSummary(t *testing.T) {
	dir := t.TempDir()
	chdirForTest(t, dir)

	srv := &recordingServer{}
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()

	csvPath := writeTemp(t, dir, "users.csv", "email,age\na@example.com,30\n")
	cfgPath := writeTemp(t, dir, "requests.yaml", strings.ReplaceAll(usersSequence, "%s", ts.URL))

	stdout, stderr, err := execute(t, "", "--json", "run", "--csv", csvPath, "--config", cfgPath, "--error-log", "")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var summary struct {
		Processed int `json:"processed"`
		Succeeded int `json:"succeeded"`
		Failed    int `json:"failed"`
	}
	if err := json.Unmarshal([]byte(stdout), &summary); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, stdout)
	}
	if summary.Processed != 1 || summary.Succeeded != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	// Прогресс уходит в stderr
	if !strings.Contains(stderr, "Row 1 ✓") {
		t.Errorf("progress should go to stderr in JSON mode:\n%s", stderr)
	}
}

func TestRunCommand_DryRun(t *testing.T) {
	dir := t.TempDir()
	chdirForTest(t, dir)

	csvPath := writeTemp(t, dir, "users.csv", "email,age\na@example.com,30\n")
	cfgPath := writeTemp(t, dir, "requests.yaml", strings.ReplaceAll(usersSequence, "%s", "https://api.invalid"))

	stdout, _, err := execute(t, "", "run", "--csv", csvPath, "--config", cfgPath, "--dry-run")
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}

	if !strings.Contains(stdout, "POST https://api.invalid/users") {
		t.Errorf("expected printed request:\n%s", stdout)
	}
	// Ответ пустой: userId извлечён как null и подставлен пустой строкой
	if !strings.Contains(stdout, "PATCH https://api.invalid/users//activate") {
		t.Errorf("expected null extraction in dry run:\n%s", stdout)
	}
	if _, err := os.Stat(filepath.Join(dir, "rowpipe-errors.jsonl")); !os.IsNotExist(err) {
		t.Error("dry run must not open the failure log")
	}
}

func TestRunCommand_ScheduledMissingCSVStops(t *testing.T) {
	dir := t.TempDir()
	chdirForTest(t, dir)

	cfgPath := writeTemp(t, dir, "requests.yaml", strings.ReplaceAll(usersSequence, "%s", "https://api.invalid"))
	missing := filepath.Join(dir, "absent.csv")

	done := make(chan error, 1)
	go func() {
		_, _, err := execute(t, "", "run", "--csv", missing, "--config", cfgPath, "--dry-run", "--every", "1h")
		done <- err
	}()

	// Первый запуск по интервалу идёт сразу, а отсутствующий файл не
	// повторяется каждый час
	select {
	case err := <-done:
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected missing file error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled run kept waiting on a missing CSV")
	}
}

func TestRunCommand_SecondaryRequired(t *testing.T) {
	dir := t.TempDir()
	chdirForTest(t, dir)

	csvPath := writeTemp(t, dir, "orders.csv", "customer\nc-1\n")
	cfgPath := writeTemp(t, dir, "orders.json", `{"requests":[{"name":"Items","endpoint":"https://api.invalid/items","loopOverSecondary":true}]}`)

	_, _, err := execute(t, "", "run", "--csv", csvPath, "--config", cfgPath)
	if err == nil || !strings.Contains(err.Error(), "secondary") {
		t.Errorf("expected secondary table error, got %v", err)
	}
}

func TestRunCommand_Interactive(t *testing.T) {
	dir := t.TempDir()
	chdirForTest(t, dir)

	srv := &recordingServer{}
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()

	csvPath := writeTemp(t, dir, "rows.csv", "id\n1\n2\n3\n")
	cfgPath := writeTemp(t, dir, "ping.json", `{"method":"GET","endpoint":"`+ts.URL+`/ping/$id"}`)

	// Строка 1: отправить; продолжить; строка 2: отклонить запрос; остановиться
	stdout, stderr, err := execute(t, "y\ny\nn\nn\n", "run", "--csv", csvPath, "--config", cfgPath, "--interactive", "--error-log", "")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(srv.requests) != 1 || srv.requests[0].Path != "/ping/1" {
		t.Errorf("expected only /ping/1, got %+v", srv.requests)
	}
	if !strings.Contains(stderr, "Continue with row 2?") {
		t.Errorf("expected continue prompt:\n%s", stderr)
	}
	if !strings.Contains(stdout, "1 declined") || strings.Contains(stdout, "Row 3") {
		t.Errorf("unexpected progress:\n%s", stdout)
	}
	if !strings.Contains(stderr, "halted") {
		t.Errorf("expected halt message:\n%s", stderr)
	}
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	chdirForTest(t, dir)

	csvPath := writeTemp(t, dir, "orders.csv", "customer,total\nc-1,10\n")
	secPath := writeTemp(t, dir, "items.csv", "sku,qty\nA,1\n")
	outPath := filepath.Join(dir, "orders.yaml")

	if _, _, err := execute(t, "", "init", "--csv", csvPath, "--secondary", secPath, "--out", outPath); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	// Сгенерированный файл проходит validate
	stdout, _, err := execute(t, "", "validate", outPath)
	if err != nil {
		t.Fatalf("generated sequence is invalid: %v", err)
	}
	if !strings.Contains(stdout, "Create record") || !strings.Contains(stdout, "Create items") {
		t.Errorf("unexpected step table:\n%s", stdout)
	}

	// Без --force файл не перезаписывается
	if _, _, err := execute(t, "", "init", "--csv", csvPath, "--out", outPath); err == nil {
		t.Error("expected error for existing file")
	}
}

func TestValidateCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	chdirForTest(t, dir)

	cfgPath := writeTemp(t, dir, "seq.yaml", strings.ReplaceAll(usersSequence, "%s", "https://api.invalid"))

	stdout, _, err := execute(t, "", "--json", "validate", cfgPath)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	var views []stepView
	if err := json.Unmarshal([]byte(stdout), &views); err != nil {
		t.Fatalf("bad JSON: %v\n%s", err, stdout)
	}
	if len(views) != 2 || views[0].Method != "POST" || views[1].Method != "PATCH" {
		t.Errorf("unexpected steps: %+v", views)
	}
	if views[1].Condition == "" || len(views[0].Extract) != 1 {
		t.Errorf("condition and extraction should be listed: %+v", views)
	}
}

func TestValidateCommand_Invalid(t *testing.T) {
	dir := t.TempDir()
	chdirForTest(t, dir)

	cfgPath := writeTemp(t, dir, "bad.json", `{"requests": []}`)
	if _, _, err := execute(t, "", "validate", cfgPath); err == nil {
		t.Error("expected validation error")
	}
}

func TestValidateCommand_UnknownOperatorWarns(t *testing.T) {
	dir := t.TempDir()
	chdirForTest(t, dir)

	cfgPath := writeTemp(t, dir, "seq.yaml", `requests:
  - name: Tag VIP
    endpoint: https://api.invalid/tags
    condition: "$tags contains vip"
`)

	stdout, stderr, err := execute(t, "", "validate", cfgPath)
	if err != nil {
		t.Fatalf("unknown operator must not fail validation: %v", err)
	}
	if !strings.Contains(stderr, "Warning: contains: unknown operator") {
		t.Errorf("expected operator warning:\n%s", stderr)
	}
	if !strings.Contains(stdout, "$tags contains vip") {
		t.Errorf("condition should be listed:\n%s", stdout)
	}
}
