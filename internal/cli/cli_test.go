package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/b97tsk/commander/internal/config"
	"github.com/b97tsk/commander/internal/logging"
	"github.com/b97tsk/commander/internal/scenario"
)

func testdataPath(name string) string {
	return filepath.Join("..", "scenario", "testdata", name)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRunCmd(t *testing.T) {
	t.Run("Text", func(t *testing.T) {
		out, err := execute(t, "run", testdataPath("pipeline.yaml"))
		if err != nil {
			t.Fatalf("run: %v", err)
		}

		want := `tick 1: producer: put "a" into jobs
tick 1: consumer: took "a" from jobs
tick 2: producer: put "b" into jobs
tick 2: consumer: took "b" from jobs
tick 2: consumer: finished
tick 2: producer: done
tick 2: consumer: done
after 2 ticks:
  #1 producer: done
  #2 consumer: done
`
		if out != want {
			t.Fatalf("got:\n%s\nwant:\n%s", out, want)
		}
	})
	t.Run("JSON", func(t *testing.T) {
		out, err := execute(t, "run", "--json", "--ticks", "1", testdataPath("pipeline.yaml"))
		if err != nil {
			t.Fatalf("run: %v", err)
		}

		var rep scenario.Report
		if err := json.Unmarshal([]byte(out), &rep); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, out)
		}
		if rep.Ticks != 1 || len(rep.Tasks) != 2 || rep.Tasks[1].Status != "ongoing" {
			t.Fatalf("unexpected report: %+v", rep)
		}
	})
	t.Run("MissingFile", func(t *testing.T) {
		if _, err := execute(t, "run", testdataPath("missing.yaml")); err == nil {
			t.Fatal("missing scenario accepted")
		}
	})
	t.Run("BadLogFormat", func(t *testing.T) {
		_, err := execute(t, "--log-format", "xml", "run", testdataPath("pipeline.yaml"))
		if err == nil || !strings.Contains(err.Error(), "log format") {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.TickInterval = time.Millisecond

	a := &app{cfg: cfg, logger: logging.Discard()}

	sc, err := scenario.Parse([]byte("tasks: [{name: idler, steps: [{ticks: 1000000}]}]"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, ln, sc) }()

	url := "http://" + ln.Addr().String() + "/tasks"

	var list struct {
		Data struct {
			Tick  uint64 `json:"tick"`
			Tasks []struct {
				Name string `json:"name"`
			} `json:"tasks"`
		} `json:"data"`
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			err = json.NewDecoder(resp.Body).Decode(&list)
			resp.Body.Close()
		}
		if err == nil && list.Data.Tick > 0 && len(list.Data.Tasks) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("inspector never listed the task: %v %+v", err, list)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if list.Data.Tasks[0].Name != "idler" {
		t.Fatalf("tasks = %+v", list.Data.Tasks)
	}

	resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read /metrics: %v", err)
	}
	if !strings.Contains(string(body), "commander_tick_index") {
		t.Fatalf("/metrics lacks the tick gauge:\n%s", body)
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}
