package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/shaiso/Rowpipe/internal/domain"
	"github.com/shaiso/Rowpipe/internal/steps"
	"github.com/shaiso/Rowpipe/internal/telemetry"
)

// funcDoer отвечает функцией и записывает все запросы.
type funcDoer struct {
	mu       sync.Mutex
	requests []*steps.Request
	respond  func(req *steps.Request) (any, error)
}

func (d *funcDoer) Do(_ context.Context, req *steps.Request) (*steps.Response, error) {
	d.mu.Lock()
	d.requests = append(d.requests, req)
	d.mu.Unlock()

	if d.respond == nil {
		return &steps.Response{StatusCode: http.StatusOK}, nil
	}
	body, err := d.respond(req)
	if err != nil {
		return nil, err
	}
	return &steps.Response{StatusCode: http.StatusOK, Body: body}, nil
}

func (d *funcDoer) urls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	urls := make([]string, len(d.requests))
	for i, r := range d.requests {
		urls[i] = r.URL
	}
	return urls
}

func testRow(index int, kv ...string) *domain.Row {
	var cols, cells []string
	for i := 0; i+1 < len(kv); i += 2 {
		cols = append(cols, kv[i])
		cells = append(cells, kv[i+1])
	}
	return domain.NewRow(index, cols, cells)
}

func newTestOrchestrator(t *testing.T, seq *domain.Sequence, doer steps.Doer, cfg Config) *Orchestrator {
	t.Helper()
	logger := telemetry.DiscardLogger()
	cfg.Sequence = seq
	cfg.Runner = steps.NewExecutor(steps.ExecutorConfig{Doer: doer, ArrayFields: seq.ArrayFields, Headers: seq.Headers, Logger: logger})
	cfg.Logger = logger
	o, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func mustCondition(t *testing.T, expr string) *domain.Condition {
	t.Helper()
	cond, err := domain.ParseCondition(expr)
	if err != nil {
		t.Fatal(err)
	}
	return cond
}

func TestNew_RequiresSequence(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNoSequence) {
		t.Errorf("expected ErrNoSequence, got %v", err)
	}
	if _, err := New(Config{Sequence: &domain.Sequence{}}); !errors.Is(err, ErrNoSequence) {
		t.Errorf("expected ErrNoSequence for empty sequence, got %v", err)
	}
}

func TestProcessRow_ConditionSkip(t *testing.T) {
	seq := &domain.Sequence{Requests: []domain.RequestStep{{
		Name:      "Discount",
		Endpoint:  "https://api.example.com/discount",
		Payload:   map[string]any{"price": "$price"},
		Condition: mustCondition(t, "$price > 20"),
	}}}
	doer := &funcDoer{}
	o := newTestOrchestrator(t, seq, doer, Config{})

	expensive := o.ProcessRow(context.Background(), testRow(1, "price", "25"))
	if !expensive.Succeeded() || expensive.Steps[0].Status != domain.StepStatusExecuted {
		t.Errorf("price 25: expected executed step, got %+v", expensive)
	}
	if len(doer.requests) != 1 {
		t.Fatalf("expected 1 call, got %d", len(doer.requests))
	}

	cheap := o.ProcessRow(context.Background(), testRow(2, "price", "15"))
	if !cheap.Succeeded() {
		t.Errorf("price 15: skipped row should still succeed, got %s", cheap.Status)
	}
	if cheap.Steps[0].Status != domain.StepStatusSkipped {
		t.Errorf("price 15: expected skipped step, got %s", cheap.Steps[0].Status)
	}
	if len(doer.requests) != 1 {
		t.Errorf("skipped step must not call the executor, got %d calls", len(doer.requests))
	}
}

func TestProcessRow_ExtractFeedsNextStep(t *testing.T) {
	seq := &domain.Sequence{Requests: []domain.RequestStep{
		{
			Name:     "Create",
			Endpoint: "https://api.example.com/accounts",
			Payload:  map[string]any{"id": "$accountId"},
			Extract:  domain.ExtractSpecs{{Field: "acctId", JSONPath: "id"}},
		},
		{
			Name:     "Activate",
			Method:   "PATCH",
			Endpoint: "https://api.example.com/acct/$acctId",
		},
	}}
	doer := &funcDoer{respond: func(req *steps.Request) (any, error) {
		if strings.HasSuffix(req.URL, "/accounts") {
			return map[string]any{"id": float64(42)}, nil
		}
		return map[string]any{}, nil
	}}
	o := newTestOrchestrator(t, seq, doer, Config{})

	outcome := o.ProcessRow(context.Background(), testRow(1, "accountId", "A-1"))

	if !outcome.Succeeded() {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if !reflect.DeepEqual(outcome.Extracted, map[string]any{"acctId": float64(42)}) {
		t.Errorf("unexpected extracted values: %#v", outcome.Extracted)
	}
	urls := doer.urls()
	if urls[1] != "https://api.example.com/acct/42" {
		t.Errorf("expected .../acct/42, got %s", urls[1])
	}
}

func TestProcessRow_OrderingProperty(t *testing.T) {
	// Шаг не видит собственные извлечённые значения, следующий видит
	seq := &domain.Sequence{Requests: []domain.RequestStep{
		{
			Name:     "First",
			Endpoint: "https://api.example.com/first/$token",
			Extract:  domain.ExtractSpecs{{Field: "token", JSONPath: "token"}},
		},
		{
			Name:     "Second",
			Endpoint: "https://api.example.com/second/$token",
		},
	}}
	doer := &funcDoer{respond: func(*steps.Request) (any, error) {
		return map[string]any{"token": "t-1"}, nil
	}}
	o := newTestOrchestrator(t, seq, doer, Config{})

	outcome := o.ProcessRow(context.Background(), testRow(1, "name", "x"))

	urls := doer.urls()
	if urls[0] != "https://api.example.com/first/$token" {
		t.Errorf("step must not see its own extraction: %s", urls[0])
	}
	if urls[1] != "https://api.example.com/second/t-1" {
		t.Errorf("next step must see extraction: %s", urls[1])
	}
	if len(outcome.Warnings) != 1 {
		t.Errorf("expected one unresolved warning, got %v", outcome.Warnings)
	}
}

func TestProcessRow_ExtractedValuesFreshPerRow(t *testing.T) {
	seq := &domain.Sequence{Requests: []domain.RequestStep{
		{
			Name:      "Maybe extract",
			Endpoint:  "https://api.example.com/a",
			Condition: mustCondition(t, "$kind == 'new'"),
			Extract:   domain.ExtractSpecs{{Field: "ref", JSONPath: "ref"}},
		},
		{Name: "Use", Endpoint: "https://api.example.com/b/$ref"},
	}}
	doer := &funcDoer{respond: func(*steps.Request) (any, error) {
		return map[string]any{"ref": "r-1"}, nil
	}}
	o := newTestOrchestrator(t, seq, doer, Config{})

	o.ProcessRow(context.Background(), testRow(1, "kind", "new"))
	o.ProcessRow(context.Background(), testRow(2, "kind", "old"))

	urls := doer.urls()
	if urls[len(urls)-1] != "https://api.example.com/b/$ref" {
		t.Errorf("values from row 1 leaked into row 2: %s", urls[len(urls)-1])
	}
}

func TestProcessRow_LoopFailureStopsRow(t *testing.T) {
	seq := &domain.Sequence{Requests: []domain.RequestStep{
		{
			Name:     "Create order",
			Endpoint: "https://api.example.com/orders",
			Extract:  domain.ExtractSpecs{{Field: "orderId", JSONPath: "id"}},
		},
		{
			Name:              "Add items",
			Endpoint:          "https://api.example.com/orders/$orderId/items/$sku",
			LoopOverSecondary: true,
			Extract:           domain.ExtractSpecs{{Field: "itemId", JSONPath: "id"}},
		},
		{Name: "Confirm", Endpoint: "https://api.example.com/orders/$orderId/confirm"},
	}}

	doer := &funcDoer{respond: func(req *steps.Request) (any, error) {
		switch {
		case strings.HasSuffix(req.URL, "/orders"):
			return map[string]any{"id": "o-1"}, nil
		case strings.HasSuffix(req.URL, "/items/B"):
			return nil, &steps.HTTPError{StatusCode: 409, Status: "Conflict", Body: "duplicate item"}
		default:
			return map[string]any{"id": "i-1"}, nil
		}
	}}

	secondary := []*domain.Row{testRow(1, "sku", "A"), testRow(2, "sku", "B")}
	o := newTestOrchestrator(t, seq, doer, Config{Secondary: secondary})

	outcome := o.ProcessRow(context.Background(), testRow(1, "customer", "c-1"))

	if outcome.Status != domain.RowStatusFailed {
		t.Fatalf("expected FAILED, got %s", outcome.Status)
	}
	if outcome.FailedStep != "Add items" || outcome.StatusCode != 409 || outcome.Error != "duplicate item" {
		t.Errorf("unexpected failure details: %+v", outcome)
	}
	if len(doer.requests) != 3 {
		t.Errorf("expected 3 calls (create + 2 items), got %v", doer.urls())
	}
	for _, url := range doer.urls() {
		if strings.HasSuffix(url, "/confirm") {
			t.Error("steps after the failed one must not run")
		}
	}
	// Значения упавшего шага отбрасываются
	if !reflect.DeepEqual(outcome.Extracted, map[string]any{"orderId": "o-1"}) {
		t.Errorf("expected only completed steps' values, got %#v", outcome.Extracted)
	}
	if len(outcome.Steps) != 2 || outcome.Steps[1].Status != domain.StepStatusFailed || outcome.Steps[1].Calls != 2 {
		t.Errorf("unexpected step results: %+v", outcome.Steps)
	}
}

func TestProcessRow_MissingConditionField(t *testing.T) {
	seq := &domain.Sequence{Requests: []domain.RequestStep{{
		Name:      "Guarded",
		Endpoint:  "https://api.example.com/x",
		Condition: mustCondition(t, "$ghost > 20"),
	}}}
	doer := &funcDoer{}
	o := newTestOrchestrator(t, seq, doer, Config{})

	outcome := o.ProcessRow(context.Background(), testRow(1, "price", "30"))

	if !outcome.Succeeded() || outcome.Steps[0].Status != domain.StepStatusSkipped {
		t.Errorf("missing operand should make the comparison false, got %+v", outcome)
	}
	if len(outcome.Warnings) == 0 {
		t.Error("expected a warning about the missing operand")
	}
}

func TestProcessRow_TransportErrorMessage(t *testing.T) {
	seq := &domain.Sequence{Requests: []domain.RequestStep{{Name: "Ping", Endpoint: "https://api.example.com/ping"}}}
	doer := &funcDoer{respond: func(*steps.Request) (any, error) {
		return nil, errors.New("connection refused")
	}}
	o := newTestOrchestrator(t, seq, doer, Config{})

	outcome := o.ProcessRow(context.Background(), testRow(1))

	if outcome.Succeeded() || outcome.StatusCode != 0 {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
	if !strings.Contains(outcome.Error, "connection refused") {
		t.Errorf("expected raw error message, got %q", outcome.Error)
	}
}
