package inspect

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/b97tsk/commander"
)

type envelope struct {
	Status    string          `json:"status"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
}

func doGet(t *testing.T, h http.Handler, path string, wantStatus int) envelope {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != wantStatus {
		t.Fatalf("GET %s: status=%d, want %d, body=%s", path, w.Code, wantStatus, w.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("GET %s: invalid JSON: %v", path, err)
	}
	if env.RequestID == "" {
		t.Fatalf("GET %s: request_id is empty", path)
	}
	return env
}

// newSource returns an executor with one task blocked in a named wait.
func newSource(t *testing.T) *commander.Executor {
	t.Helper()

	x := commander.NewExecutor(commander.NewTestIntegration(), nil)
	t.Cleanup(x.Shutdown)

	commander.Add(x, x.NewAgent("render", &commander.RunConfig{Stats: true}), func(a *commander.Agent) struct{} {
		a.NamedWait("frame", func() { a.Ticks(100) })
		return struct{}{}
	})
	x.Tick(1)

	return x
}

func TestHealth(t *testing.T) {
	h := NewHandler(newSource(t), nil)

	env := doGet(t, h, "/healthz", http.StatusOK)

	var data struct {
		Status string `json:"status"`
		Tick   uint64 `json:"tick"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Status != "ok" || data.Status != "healthy" || data.Tick != 1 {
		t.Fatalf("unexpected health: %s / %+v", env.Status, data)
	}
}

func TestTasks(t *testing.T) {
	x := newSource(t)
	h := NewHandler(x, nil)

	t.Run("List", func(t *testing.T) {
		env := doGet(t, h, "/tasks", http.StatusOK)

		var list TaskList
		if err := json.Unmarshal(env.Data, &list); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if list.Tick != 1 || len(list.Tasks) != 1 {
			t.Fatalf("unexpected list: %+v", list)
		}

		task := list.Tasks[0]
		if task.Name != "render" || task.ID.Seq != 1 || task.ID.Executor != x.ID() {
			t.Fatalf("unexpected task: %+v", task)
		}
		if len(task.Waits) != 1 || task.Waits[0] != "frame" {
			t.Fatalf("waits = %v", task.Waits)
		}
		if task.Line != "#1 render (waiting: frame) run 0 / clock 0" {
			t.Fatalf("line = %q", task.Line)
		}
	})
	t.Run("Get", func(t *testing.T) {
		env := doGet(t, h, "/tasks/1", http.StatusOK)

		var task TaskEntry
		if err := json.Unmarshal(env.Data, &task); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if task.Name != "render" {
			t.Fatalf("name = %q", task.Name)
		}
	})
	t.Run("NotFound", func(t *testing.T) {
		env := doGet(t, h, "/tasks/7", http.StatusNotFound)
		if env.Status != "error" || env.Error == "" {
			t.Fatalf("unexpected envelope: %+v", env)
		}
	})
	t.Run("BadSeq", func(t *testing.T) {
		doGet(t, h, "/tasks/abc", http.StatusBadRequest)
	})
}

type panicSource struct{}

func (panicSource) TickIndex() uint64                     { panic("boom") }
func (panicSource) SummarizeAll() []commander.TaskSummary { panic("boom") }
func (panicSource) Summarize(uint64) (commander.TaskSummary, bool) {
	panic("boom")
}

func TestRecoverer(t *testing.T) {
	h := NewHandler(panicSource{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func TestWithMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("commander_tick_index 1\n"))
	})
	h := NewHandler(newSource(t), nil, WithMetrics(metrics))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "commander_tick_index 1\n" {
		t.Fatalf("GET /metrics: status=%d body=%q", w.Code, w.Body.String())
	}
}
