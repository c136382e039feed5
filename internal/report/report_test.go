package report

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/hazardwatch/internal/alert"
	"github.com/ppiankov/hazardwatch/internal/audit"
	"github.com/ppiankov/hazardwatch/internal/fuzzy"
	"github.com/ppiankov/hazardwatch/internal/history"
	"github.com/ppiankov/hazardwatch/internal/model"
	"github.com/ppiankov/hazardwatch/internal/monitor"
	"github.com/ppiankov/hazardwatch/internal/policy"
)

func makeStep(t *testing.T, i int, values map[string]string) monitor.Step {
	t.Helper()
	engine, err := policy.NewEngine(nil)
	if err != nil {
		t.Fatal(err)
	}
	ev, err := model.ParseEvidence(engine.Schema(), values)
	if err != nil {
		t.Fatal(err)
	}
	a, err := engine.Assess(ev)
	if err != nil {
		t.Fatal(err)
	}
	return monitor.Step{
		Index:       i,
		At:          time.Date(2026, 5, 4, 10, 0, i, 0, time.UTC),
		Evidence:    ev,
		Raw:         a.Raw,
		Probability: a.Probability,
		Decision:    a.Decision,
		Alarm:       a.Alarm,
	}
}

var (
	calm = map[string]string{
		"Activity": "Calm", "Proximity": "Safe", "Environment": "Normal",
		"Age": "Teen", "Weather": "Sunny", "Supervision": "Yes",
	}
	ledge = map[string]string{
		"Activity": "Jumping", "Proximity": "NearHazard", "Environment": "Slippery",
		"Age": "Young", "Weather": "Rainy", "Supervision": "No",
	}
)

func TestConsole(t *testing.T) {
	var b strings.Builder
	c := NewConsole(&b, true)
	c.Report(makeStep(t, 0, calm))
	c.Report(makeStep(t, 1, ledge))

	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2:\n%s", len(lines), b.String())
	}
	for _, want := range []string{"#1", "p=0.5000", "Caution", "Activity=Calm", "Critical=0.000"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("line 1 missing %q: %s", want, lines[0])
		}
	}
	if strings.Contains(lines[0], "ALARM") {
		t.Errorf("calm step should not alarm: %s", lines[0])
	}
	for _, want := range []string{"#2", "Critical", "ALARM", "Supervision=No"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("line 2 missing %q: %s", want, lines[1])
		}
	}
	if strings.Contains(b.String(), "\x1b[") {
		t.Error("non-terminal output should not carry ANSI escapes")
	}
}

func TestJSON(t *testing.T) {
	var b strings.Builder
	j := NewJSON(&b, nil)
	j.Report(makeStep(t, 0, calm))
	j.Report(makeStep(t, 1, ledge))

	sc := bufio.NewScanner(strings.NewReader(b.String()))
	var got []StepJSON
	for sc.Scan() {
		var s StepJSON
		if err := json.Unmarshal(sc.Bytes(), &s); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		got = append(got, s)
	}
	if len(got) != 2 {
		t.Fatalf("records = %d", len(got))
	}
	if got[0].Label != fuzzy.Caution || got[0].Probability != 0.5 {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Label != fuzzy.Critical || !got[1].Alarm || got[1].Evidence["Activity"] != "Jumping" {
		t.Errorf("second = %+v", got[1])
	}
	if got[1].Memberships[fuzzy.Critical] <= 0 {
		t.Errorf("memberships = %v", got[1].Memberships)
	}
}

func TestHistoryLimit(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Report(makeStep(t, i, calm))
	}
	pts := h.Points()
	if len(pts) != 3 || h.Len() != 3 {
		t.Fatalf("points = %d", len(pts))
	}
	if pts[0].Step != 2 || pts[2].Step != 4 {
		t.Errorf("kept %v, want steps 2..4", pts)
	}
	pts[0].Step = 99
	if h.Points()[0].Step == 99 {
		t.Error("Points must return a copy")
	}
}

func TestPlot(t *testing.T) {
	points := []Point{
		{Step: 0, Probability: 0.5, Label: fuzzy.Caution},
		{Step: 1, Probability: 0.93, Label: fuzzy.Critical, Alarm: true},
		{Step: 2, Probability: 0.0, Label: fuzzy.Safe},
	}
	out := Plot(points, PlotOptions{Width: 10, Height: 11, Threshold: 0.7, Sets: fuzzy.DefaultSets()})
	lines := strings.Split(out, "\n")

	// 11 chart rows, axis, caption, trailing newline.
	if len(lines) != 14 {
		t.Fatalf("lines = %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "1.00 |") || !strings.Contains(lines[0], "Critical") {
		t.Errorf("top row = %q", lines[0])
	}
	if !strings.HasPrefix(lines[10], "0.00 |") {
		t.Errorf("bottom row = %q", lines[10])
	}
	// Row bands top-down: 1.0-0.8 Critical (0.8 ties High, severity wins),
	// 0.7-0.6 High, 0.5-0.3 Caution, 0.2-0.0 Safe.
	markers := map[int]string{0: " Critical", 3: " High", 5: " Caution", 8: " Safe"}
	for i := 0; i < 11; i++ {
		want, ok := markers[i]
		switch {
		case ok && !strings.HasSuffix(lines[i], want):
			t.Errorf("row %d = %q, want suffix %q", i, lines[i], want)
		case !ok && !strings.HasSuffix(lines[i], "|"):
			t.Errorf("row %d = %q, want no band marker", i, lines[i])
		}
	}
	if lines[1][7] != '!' {
		t.Errorf("alarm sample not on 0.90 row: %q", lines[1])
	}
	if lines[5][6] != '*' {
		t.Errorf("0.5 sample not on middle row: %q", lines[5])
	}
	if !strings.Contains(lines[3], "---") {
		t.Errorf("threshold line missing at 0.70: %q", lines[3])
	}
	if !strings.Contains(out, "steps 1-3 (3 samples)") {
		t.Errorf("caption missing:\n%s", out)
	}
}

func TestPlotBucketsLongSeries(t *testing.T) {
	var points []Point
	for i := 0; i < 100; i++ {
		points = append(points, Point{Step: i, Probability: 0.5})
	}
	points[42] = Point{Step: 42, Probability: 0.95, Alarm: true}

	out := Plot(points, PlotOptions{Width: 20, Height: 5})
	first := strings.Split(out, "\n")[0]
	if want := "1.00 |"; !strings.HasPrefix(first, want) {
		t.Fatalf("first row = %q", first)
	}
	if got := len(first) - len("1.00 |") - 1; got != 20 {
		t.Errorf("columns = %d, want 20", got)
	}
	if !strings.Contains(first, "!") {
		t.Errorf("bucketed max lost: %q", first)
	}
}

func TestPlotEmpty(t *testing.T) {
	if got := Plot(nil, DefaultPlotOptions()); got != "(no data)\n" {
		t.Errorf("got %q", got)
	}
}

func TestChanDropsWhenFull(t *testing.T) {
	c := NewChan(2)
	for i := 0; i < 5; i++ {
		c.Report(makeStep(t, i, calm))
	}
	if c.Dropped() != 3 {
		t.Errorf("dropped = %d, want 3", c.Dropped())
	}
	if s := <-c.C(); s.Index != 0 {
		t.Errorf("first buffered = %d", s.Index)
	}
}

func TestMulti(t *testing.T) {
	var order []string
	m := Multi{
		monitor.ReporterFunc(func(monitor.Step) { order = append(order, "a") }),
		nil,
		monitor.ReporterFunc(func(monitor.Step) { order = append(order, "b") }),
	}
	m.Report(makeStep(t, 0, calm))
	if diff := cmp.Diff([]string{"a", "b"}, order); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
}

func TestAuditReporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, err := audit.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	r := NewAudit(l, "run-1", "sha256:cfg", nil)
	r.Report(makeStep(t, 0, calm))
	r.Report(makeStep(t, 1, ledge))
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	res := audit.Verify(path)
	if !res.Valid || res.Lines != 2 {
		t.Fatalf("verify = %+v", res)
	}
	replay, err := audit.Replay(path, audit.ReplayFilter{RunID: "run-1"})
	if err != nil {
		t.Fatal(err)
	}
	e := replay.Entries[1]
	if e.Label != "Critical" || !e.Alarm || e.ConfigHash != "sha256:cfg" {
		t.Errorf("entry = %+v", e)
	}
	if e.Evidence[0].Variable != "Activity" || e.Evidence[5].Variable != "Weather" {
		t.Errorf("evidence not sorted: %+v", e.Evidence)
	}
}

func TestStoreReporter(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "h.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	run, err := store.CreateRun("scenario", "")
	if err != nil {
		t.Fatal(err)
	}

	r := NewStore(store, run.ID, nil)
	r.Report(makeStep(t, 0, calm))
	r.Report(makeStep(t, 1, ledge))

	steps, err := store.Steps(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 2 {
		t.Fatalf("steps = %d", len(steps))
	}
	if steps[1].Label != "Critical" || steps[1].Evidence["Weather"] != "Rainy" || !steps[1].Alarm {
		t.Errorf("stored = %+v", steps[1])
	}
	if steps[0].Memberships["Caution"] <= 0 || steps[0].Memberships["Safe"] != 0 {
		t.Errorf("memberships = %v", steps[0].Memberships)
	}
}

func TestAlertReporter(t *testing.T) {
	var mu sync.Mutex
	var received []alert.AlertEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var ev alert.AlertEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		mu.Lock()
		received = append(received, ev)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := alert.NewDispatcher([]alert.AlertConfig{{URL: srv.URL, Format: "generic", Events: []string{"Critical"}}}, nil)
	a := NewAlert(d, fuzzy.NewDefault(), "run-7", "sha256:x")
	a.Report(makeStep(t, 0, calm))
	a.Report(makeStep(t, 1, ledge))
	a.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("received %d events, want 1", len(received))
	}
	ev := received[0]
	if ev.Label != "Critical" || ev.Severity != 3 || ev.RunID != "run-7" || ev.Step != 1 {
		t.Errorf("event = %+v", ev)
	}
}

func TestAlertReporterNilDispatcher(t *testing.T) {
	a := NewAlert(nil, nil, "", "")
	a.Report(makeStep(t, 0, ledge))
	a.Wait()
}
