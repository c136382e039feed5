package cli

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/hazardwatch/internal/audit"
	"github.com/ppiankov/hazardwatch/internal/history"
	"github.com/ppiankov/hazardwatch/internal/policy"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

// isolate points --config at a file that does not exist so defaults apply.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	return filepath.Join(dir, "config.yaml")
}

func TestParsePairs(t *testing.T) {
	raw, err := parsePairs([]string{"Activity=Jumping", " weather = rainy"})
	if err != nil {
		t.Fatal(err)
	}
	if raw["activity"] != "Jumping" || raw["weather"] != " rainy" {
		t.Errorf("raw = %v", raw)
	}
	for _, bad := range [][]string{{"Activity"}, {"=Calm"}, {"Activity=Calm", "activity=Running"}} {
		if _, err := parsePairs(bad); err == nil {
			t.Errorf("parsePairs(%v) expected error", bad)
		}
	}
}

func TestAssessCommand(t *testing.T) {
	cfg := isolate(t)
	assessFormat = "text"
	out, err := execute(t, "--config", cfg, "assess",
		"activity=jumping", "proximity=nearhazard", "environment=slippery",
		"age=young", "weather=rainy", "supervision=no")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Raw score:   1.7000", "Probability: 0.9276", "Critical", "ALARM"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAssessCommandJSON(t *testing.T) {
	cfg := isolate(t)
	out, err := execute(t, "--config", cfg, "assess", "-f", "json",
		"Activity=Calm", "Proximity=Safe", "Environment=Normal",
		"Age=Teen", "Weather=Sunny", "Supervision=Yes")
	assessFormat = "text"
	if err != nil {
		t.Fatal(err)
	}
	var got assessmentJSON
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("%v:\n%s", err, out)
	}
	if got.Probability != 0.5 || got.Label != "Caution" || got.Alarm {
		t.Errorf("got %+v", got)
	}
}

func TestAssessCommandIncomplete(t *testing.T) {
	cfg := isolate(t)
	_, err := execute(t, "--config", cfg, "assess", "Activity=Calm")
	if err == nil || !strings.Contains(err.Error(), "hazardwatch schema") {
		t.Errorf("expected missing variable error with schema hint, got %v", err)
	}
}

func TestClassifyRejectsMalformedProbability(t *testing.T) {
	cfg := isolate(t)
	for _, arg := range []string{"0.3abc", "abc", "NaN", ""} {
		if _, err := execute(t, "--config", cfg, "classify", arg); err == nil {
			t.Errorf("classify %q: expected error", arg)
		}
	}
}

func TestClassifyCommand(t *testing.T) {
	cfg := isolate(t)
	classifyFormat = "text"
	out, err := execute(t, "--config", cfg, "classify", "0.05")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Label:       Safe") {
		t.Errorf("output:\n%s", out)
	}
	if _, err := execute(t, "--config", cfg, "classify", "high"); err == nil {
		t.Error("expected error for non-numeric probability")
	}
}

func TestInitConfig(t *testing.T) {
	cfg := isolate(t)
	initForce = false
	if _, err := execute(t, "--config", cfg, "init-config"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(cfg)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if string(data) != policy.DefaultConfigYAML() {
		t.Error("written config differs from default YAML")
	}

	if err := os.WriteFile(cfg, []byte("steepness: 2\n"), 0600); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "--config", cfg, "init-config")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "already exists") {
		t.Errorf("output:\n%s", out)
	}
	data, _ = os.ReadFile(cfg)
	if string(data) != "steepness: 2\n" {
		t.Error("existing config overwritten without --force")
	}
}

func TestInitConfigDefaultPath(t *testing.T) {
	isolate(t)
	initForce = false
	if _, err := execute(t, "--config", "", "init-config"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(policy.DefaultPath()); err != nil {
		t.Errorf("default config not created: %v", err)
	}
}

func TestSchemaCommand(t *testing.T) {
	cfg := isolate(t)
	schemaFormat = "json"
	out, err := execute(t, "--config", cfg, "schema", "-f", "json")
	schemaFormat = "text"
	if err != nil {
		t.Fatal(err)
	}
	var doc schemaJSON
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Variables) != 6 || doc.Variables[0].Weights["Jumping"] != 0.6 || len(doc.FuzzySets) != 4 {
		t.Errorf("schema = %+v", doc)
	}
	if math.Abs(doc.MaxRaw-1.7) > 1e-9 || math.Abs(doc.MaxProbability-0.9275735) > 1e-6 {
		t.Errorf("worst case = %v, %v", doc.MaxRaw, doc.MaxProbability)
	}

	out, err = execute(t, "--config", cfg, "schema")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Worst case: raw 1.70, p=0.9276") {
		t.Errorf("output:\n%s", out)
	}
}

func TestRunCommandScenario(t *testing.T) {
	cfg := isolate(t)
	dir := t.TempDir()
	scenarioPath := filepath.Join(dir, "walk.yaml")
	content := `
name: walk
cases:
  - evidence: {Activity: Calm, Proximity: Safe, Environment: Normal, Age: Teen, Weather: Sunny, Supervision: "Yes"}
  - evidence: {Activity: Jumping, Proximity: NearHazard, Environment: Slippery, Age: Young, Weather: Rainy, Supervision: "No"}
`
	if err := os.WriteFile(scenarioPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	auditPath := filepath.Join(dir, "audit.jsonl")
	dbPath := filepath.Join(dir, "history.db")

	out, err := execute(t, "--config", cfg, "run",
		"--source", "scenario", "--scenario", scenarioPath,
		"--steps", "4", "--interval", "0s", "--plot",
		"--audit-log", auditPath, "--history-db", dbPath)
	runSource, runScenario, runAuditLog, runHistoryDB, runPlot = "random", "", "", "", false
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(out, "Critical"); got < 2 {
		t.Errorf("expected two Critical steps:\n%s", out)
	}
	if !strings.Contains(out, "steps 1-4 (4 samples)") {
		t.Errorf("plot missing:\n%s", out)
	}

	if res := audit.Verify(auditPath); !res.Valid || res.Lines != 4 {
		t.Errorf("audit = %+v", res)
	}

	store, err := history.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	run, err := store.LatestRun()
	if err != nil {
		t.Fatal(err)
	}
	counts, err := store.LabelCounts(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if counts["Caution"] != 2 || counts["Critical"] != 2 {
		t.Errorf("counts = %v", counts)
	}

	historyDB = dbPath
	out, err = execute(t, "history", "plot", "--db", dbPath)
	historyDB = ""
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, run.ID) || !strings.Contains(out, "!") {
		t.Errorf("history plot:\n%s", out)
	}
}

func TestRunCommandJSON(t *testing.T) {
	cfg := isolate(t)
	out, err := execute(t, "--config", cfg, "run", "--source", "random", "--seed", "9",
		"--steps", "3", "--interval", "0s", "--format", "json")
	runSource, runSeed, runFormat = "random", 0, "text"
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d:\n%s", len(lines), out)
	}
	for _, line := range lines {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Errorf("invalid JSON line %q: %v", line, err)
		}
	}
}

func TestRunCommandUnknownSource(t *testing.T) {
	cfg := isolate(t)
	_, err := execute(t, "--config", cfg, "run", "--source", "telepathy", "--steps", "1")
	runSource = "random"
	if err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestWatchRejectsManual(t *testing.T) {
	cfg := isolate(t)
	_, err := execute(t, "--config", cfg, "watch", "--source", "manual")
	watchSource = "random"
	if err == nil || !strings.Contains(err.Error(), "manual") {
		t.Errorf("err = %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"name": "hazardwatch"`) {
		t.Errorf("output:\n%s", out)
	}
}

func TestDiffCommand(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	if err := os.WriteFile(a, []byte(policy.DefaultConfigYAML()), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("alarm_threshold: 0.6\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "diff", a, b)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "0.7 → 0.6  (stricter)") {
		t.Errorf("output:\n%s", out)
	}
}

func TestSimulateCommand(t *testing.T) {
	cfg := isolate(t)
	dir := t.TempDir()
	auditPath := filepath.Join(dir, "audit.jsonl")
	if _, err := execute(t, "--config", cfg, "run", "--source", "random", "--seed", "3",
		"--steps", "5", "--interval", "0s", "--audit-log", auditPath); err != nil {
		t.Fatal(err)
	}
	runSource, runSeed, runAuditLog = "random", 0, ""

	out, err := execute(t, "--config", cfg, "simulate", "--audit-log", auditPath)
	simAuditLog = ""
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "against 5 recorded steps") || !strings.Contains(out, "No changes detected.") {
		t.Errorf("output:\n%s", out)
	}
}

func TestCheckCommand(t *testing.T) {
	cfg := isolate(t)
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(good, []byte(`name: good
cases:
  - evidence: {Activity: Calm, Proximity: Safe, Environment: Normal, Age: Teen, Weather: Sunny, Supervision: "Yes"}
    expect: Caution
`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte(`name: bad
cases:
  - evidence: {Activity: Calm, Proximity: Safe, Environment: Normal, Age: Teen, Weather: Sunny, Supervision: "Yes"}
    expect: Critical
`), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--config", cfg, "check", good)
	if err != nil {
		t.Fatalf("check good: %v\n%s", err, out)
	}
	if !strings.Contains(out, "1 of 1 cases passed.") {
		t.Errorf("output:\n%s", out)
	}

	out, err = execute(t, "--config", cfg, "check", filepath.Join(dir, "*.yaml"))
	if err == nil || err.Error() != "1 of 2 scenarios failed" {
		t.Errorf("err = %v\n%s", err, out)
	}
}

func TestCheckCommandNoFiles(t *testing.T) {
	cfg := isolate(t)
	if _, err := execute(t, "--config", cfg, "check"); err == nil {
		t.Error("expected error without scenario files")
	}
	_, err := execute(t, "--config", cfg, "check", filepath.Join(t.TempDir(), "*.yaml"))
	if err == nil || !strings.Contains(err.Error(), "no scenario files match") {
		t.Errorf("err = %v", err)
	}
}

func TestAuditCommands(t *testing.T) {
	cfg := isolate(t)
	auditPath := filepath.Join(t.TempDir(), "audit.jsonl")
	if _, err := execute(t, "--config", cfg, "run", "--source", "random", "--seed", "7",
		"--steps", "4", "--interval", "0s", "--audit-log", auditPath); err != nil {
		t.Fatal(err)
	}
	runSource, runSeed, runAuditLog = "random", 0, ""

	out, err := execute(t, "audit", "verify", auditPath)
	if err != nil || !strings.Contains(out, "OK: 4 entries verified") {
		t.Errorf("verify: err=%v\n%s", err, out)
	}

	out, err = execute(t, "audit", "tail", "-n", "2", auditPath)
	tailLines = 10
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(out, `"step"`); got != 2 {
		t.Errorf("tail printed %d entries:\n%s", got, out)
	}

	out, err = execute(t, "audit", "replay", "-f", "json", auditPath)
	replayFormat = "text"
	if err != nil {
		t.Fatal(err)
	}
	var res audit.ReplayResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if res.Summary.Total != 4 {
		t.Errorf("summary = %+v", res.Summary)
	}

	if err := os.WriteFile(auditPath, []byte("{\"ts\":\"x\",\"prev_hash\":\"bogus\"}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "audit", "verify", auditPath); err == nil {
		t.Error("expected verify to fail on a broken chain")
	}
}

func TestUnknownFormat(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	if err := os.WriteFile(a, []byte(policy.DefaultConfigYAML()), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := execute(t, "diff", a, a, "-f", "xml")
	diffFormat = "text"
	if err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Errorf("err = %v", err)
	}
}
