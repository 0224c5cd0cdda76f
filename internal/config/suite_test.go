package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leleuj/ratpack/internal/config"
)

func writeSuite(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "suite.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadSuite(t *testing.T) {
	path := writeSuite(t, strings.Join([]string{
		"series:",
		"  - name: checkout",
		"    target: http://checkout.local:5050",
		"    endpoint: perf",
		"    requests: 400",
		"    rounds: 5",
		"    cooldown: 2s",
		"    warmup_rounds: 1",
		"  - name: search",
		"  - name: browse",
		"    cooldown: 3",
	}, "\n"))

	suite, err := config.LoadSuite(path)
	if err != nil {
		t.Fatalf("LoadSuite() error = %v", err)
	}
	if len(suite.Series) != 3 {
		t.Fatalf("len(Series) = %d, want 3", len(suite.Series))
	}

	full := suite.Series[0]
	if full.Name != "checkout" {
		t.Errorf("Name = %q, want checkout", full.Name)
	}
	if full.Target != "http://checkout.local:5050" {
		t.Errorf("Target = %q, want http://checkout.local:5050", full.Target)
	}
	if full.Endpoint != "perf" {
		t.Errorf("Endpoint = %q, want perf", full.Endpoint)
	}
	if full.Requests != 400 {
		t.Errorf("Requests = %d, want 400", full.Requests)
	}
	if full.Rounds != 5 {
		t.Errorf("Rounds = %d, want 5", full.Rounds)
	}
	if full.Cooldown == nil || *full.Cooldown != 2*time.Second {
		t.Errorf("Cooldown = %v, want 2s", full.Cooldown)
	}
	if full.Warmup == nil || *full.Warmup != 1 {
		t.Errorf("Warmup = %v, want 1", full.Warmup)
	}

	minimal := suite.Series[1]
	if minimal.Cooldown != nil {
		t.Errorf("unset Cooldown = %v, want nil", minimal.Cooldown)
	}
	if minimal.Warmup != nil {
		t.Errorf("unset Warmup = %v, want nil", minimal.Warmup)
	}

	// Bare integer cooldown reads as seconds.
	browse := suite.Series[2]
	if browse.Cooldown == nil || *browse.Cooldown != 3*time.Second {
		t.Errorf("Cooldown = %v, want 3s", browse.Cooldown)
	}
}

func TestLoadSuiteEmpty(t *testing.T) {
	path := writeSuite(t, "series: []\n")

	_, err := config.LoadSuite(path)
	if err == nil {
		t.Fatal("LoadSuite() error = nil, want error for empty suite")
	}
	if !strings.Contains(err.Error(), "no series") {
		t.Errorf("LoadSuite() error = %q, want mention of no series", err.Error())
	}
}

func TestLoadSuiteMissingFile(t *testing.T) {
	_, err := config.LoadSuite(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("LoadSuite() error = nil, want error for missing file")
	}
}

func TestPlansWithoutSuite(t *testing.T) {
	cfg := config.Config{
		TargetURL: "http://localhost:5050/",
		Endpoint:  "/perf",
		Name:      "checkout",
		Requests:  100,
		Rounds:    3,
		Cooldown:  time.Second,
	}

	plans, err := cfg.Plans()
	if err != nil {
		t.Fatalf("Plans() error = %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("len(plans) = %d, want 1", len(plans))
	}

	p := plans[0]
	if p.Name != "checkout" {
		t.Errorf("Name = %q, want checkout", p.Name)
	}
	if p.URL != "http://localhost:5050/perf" {
		t.Errorf("URL = %q, want http://localhost:5050/perf", p.URL)
	}
	if p.Target != "http://localhost:5050/" {
		t.Errorf("Target = %q, want the configured base", p.Target)
	}
	if p.Requests != 100 || p.Rounds != 3 || p.Cooldown != time.Second {
		t.Errorf("plan = %+v, want config values carried over", p)
	}
}

func TestPlansFromSuite(t *testing.T) {
	path := writeSuite(t, strings.Join([]string{
		"series:",
		"  - name: checkout",
		"    endpoint: checkout/perf",
		"    requests: 400",
		"    cooldown: 0s",
		"  - endpoint: search/perf",
		"    rounds: 7",
	}, "\n"))

	cfg := config.Config{
		TargetURL:    "http://localhost:5050",
		Requests:     100,
		Rounds:       3,
		Cooldown:     time.Second,
		WarmupRounds: 2,
		SuiteFile:    path,
	}

	plans, err := cfg.Plans()
	if err != nil {
		t.Fatalf("Plans() error = %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("len(plans) = %d, want 2", len(plans))
	}

	first := plans[0]
	if first.Name != "checkout" {
		t.Errorf("Name = %q, want checkout", first.Name)
	}
	if first.URL != "http://localhost:5050/checkout/perf" {
		t.Errorf("URL = %q, want joined suite endpoint", first.URL)
	}
	if first.Requests != 400 {
		t.Errorf("Requests = %d, want 400 (suite value)", first.Requests)
	}
	if first.Rounds != 3 {
		t.Errorf("Rounds = %d, want 3 (inherited)", first.Rounds)
	}
	if first.Cooldown != 0 {
		t.Errorf("Cooldown = %s, want explicit 0s to survive the merge", first.Cooldown)
	}
	if first.Warmup != 2 {
		t.Errorf("Warmup = %d, want 2 (inherited)", first.Warmup)
	}

	second := plans[1]
	if second.Name != "series-2" {
		t.Errorf("Name = %q, want generated series-2", second.Name)
	}
	if second.Rounds != 7 {
		t.Errorf("Rounds = %d, want 7 (suite value)", second.Rounds)
	}
	if second.Requests != 100 {
		t.Errorf("Requests = %d, want 100 (inherited)", second.Requests)
	}
	if second.Cooldown != time.Second {
		t.Errorf("Cooldown = %s, want 1s (inherited)", second.Cooldown)
	}
}

func TestPlansSuiteMissingTarget(t *testing.T) {
	path := writeSuite(t, "series:\n  - name: orphan\n")

	cfg := config.Config{Requests: 10, Rounds: 1, SuiteFile: path}

	_, err := cfg.Plans()
	if err == nil {
		t.Fatal("Plans() error = nil, want error for entry without target")
	}
	if !strings.Contains(err.Error(), "no target") {
		t.Errorf("Plans() error = %q, want mention of no target", err.Error())
	}
}

func TestPlansSuiteRejectsBadEntry(t *testing.T) {
	path := writeSuite(t, strings.Join([]string{
		"series:",
		"  - name: broken",
		"    target: http://localhost:5050",
		"    rounds: -1",
	}, "\n"))

	cfg := config.Config{Requests: 10, Rounds: 3, SuiteFile: path}

	_, err := cfg.Plans()
	if err == nil {
		t.Fatal("Plans() error = nil, want error for negative rounds")
	}
	if !strings.Contains(err.Error(), "rounds must be >= 1") {
		t.Errorf("Plans() error = %q, want rounds complaint", err.Error())
	}
}

func TestJoinURL(t *testing.T) {
	cases := []struct {
		target   string
		endpoint string
		want     string
	}{
		{"http://localhost:5050", "perf", "http://localhost:5050/perf"},
		{"http://localhost:5050/", "perf", "http://localhost:5050/perf"},
		{"http://localhost:5050", "/perf", "http://localhost:5050/perf"},
		{"http://localhost:5050/", "/a/b", "http://localhost:5050/a/b"},
		{"http://localhost:5050/", "", "http://localhost:5050"},
		{" http://localhost:5050 ", " perf ", "http://localhost:5050/perf"},
	}

	for _, tc := range cases {
		if got := config.JoinURL(tc.target, tc.endpoint); got != tc.want {
			t.Errorf("JoinURL(%q, %q) = %q, want %q", tc.target, tc.endpoint, got, tc.want)
		}
	}
}
