package tui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ppiankov/hazardwatch/internal/model"
	"github.com/ppiankov/hazardwatch/internal/monitor"
	"github.com/ppiankov/hazardwatch/internal/policy"
	"github.com/ppiankov/hazardwatch/internal/source"
)

func testStep(t *testing.T, i int, values map[string]string) monitor.Step {
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
	return monitor.Step{Index: i, Evidence: ev, Raw: a.Raw, Probability: a.Probability, Decision: a.Decision, Alarm: a.Alarm}
}

var ledge = map[string]string{
	"Activity": "Jumping", "Proximity": "NearHazard", "Environment": "Slippery",
	"Age": "Young", "Weather": "Rainy", "Supervision": "No",
}

func TestModelShowsLatestStep(t *testing.T) {
	m := NewModel(Options{Source: "scenario", Threshold: 0.7, Output: io.Discard})
	if !strings.Contains(m.View(), "waiting for the first observation") {
		t.Fatalf("initial view:\n%s", m.View())
	}

	next, _ := m.Update(StepMsg(testStep(t, 0, ledge)))
	m = next.(Model)
	view := m.View()
	for _, want := range []string{"step 1", "Critical", "ALARM", "probability 0.92", "Activity=Jumping", "alarms 1", "trend"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModelQuitKeys(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyEsc},
	} {
		m := NewModel(Options{Output: io.Discard})
		next, cmd := m.Update(key)
		if cmd == nil {
			t.Fatalf("%s: expected quit command", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: expected tea.QuitMsg", key)
		}
		if !next.(Model).Quitted() {
			t.Errorf("%s: Quitted() = false", key)
		}
	}
}

func TestModelDone(t *testing.T) {
	m := NewModel(Options{Output: io.Discard})
	next, cmd := m.Update(DoneMsg{Summary: monitor.Summary{Steps: 4, MaxProbability: 0.9}})
	if cmd != nil {
		t.Error("should keep running until q without ExitOnDone")
	}
	if !strings.Contains(next.(Model).View(), "finished after 4 steps") {
		t.Errorf("view:\n%s", next.(Model).View())
	}

	m = NewModel(Options{ExitOnDone: true, Output: io.Discard})
	_, cmd = m.Update(DoneMsg{Err: errors.New("sensor offline")})
	if cmd == nil {
		t.Fatal("ExitOnDone should quit")
	}
}

func TestModelHistoryWindow(t *testing.T) {
	m := NewModel(Options{History: 3, Output: io.Discard})
	for i := 0; i < 5; i++ {
		next, _ := m.Update(StepMsg(testStep(t, i, ledge)))
		m = next.(Model)
	}
	if len(m.probs) != 3 || m.steps != 5 {
		t.Errorf("probs = %d steps = %d", len(m.probs), m.steps)
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 0.5, 1, 2}); got != "▁▄██" {
		t.Errorf("Sparkline = %q", got)
	}
}

func TestRunExitsWhenLoopEnds(t *testing.T) {
	engine, err := policy.NewEngine(nil)
	if err != nil {
		t.Fatal(err)
	}
	src, err := source.NewRandom(engine.Schema(), nil)
	if err != nil {
		t.Fatal(err)
	}
	start := func(ctx context.Context, rep monitor.Reporter) (*monitor.Handle, error) {
		l, err := monitor.New(monitor.Config{Steps: 3}, src, engine, rep)
		if err != nil {
			return nil, err
		}
		return l.Start(ctx), nil
	}

	done := make(chan struct{})
	var sum monitor.Summary
	go func() {
		defer close(done)
		sum, err = Run(context.Background(), Options{ExitOnDone: true, Output: io.Discard}, start,
			tea.WithInput(nil), tea.WithOutput(io.Discard))
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("tui did not exit after the loop finished")
	}
	if err != nil {
		t.Fatal(err)
	}
	if sum.Steps != 3 {
		t.Errorf("steps = %d, want 3", sum.Steps)
	}
}
