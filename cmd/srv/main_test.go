package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	base       string
	configPath string
	outputDir  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	for _, k := range []string{"CATALOG_DIR", "OUTPUT_DIR", "BLOB_DRIVER", "LEDGER_PATH", "DATE_STYLE", "HONEYCOMB_API_KEY"} {
		t.Setenv(k, "")
	}

	base := t.TempDir()
	catalogDir := filepath.Join(base, "ota")
	if err := os.MkdirAll(catalogDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeTestFile(t, filepath.Join(catalogDir, "nabu.json"), `{
  "codename": "nabu",
  "name": "Xiaomi Pad 5",
  "systems": [{"name": "AviumUI", "versions": [{"version": "avium-16", "label": "Avium 16",
    "releases": [{"date": "2024-01-02", "changes": ["Fixed&nbsp;bug<br>", "Added feature"]}]}]}]
}`)
	writeTestFile(t, filepath.Join(catalogDir, "empty.yaml"), `codename: empty
name: Empty
systems:
  - name: AviumUI
    versions:
      - version: avium-16
        label: Avium 16
`)

	env := &cliTestEnv{
		base:       base,
		configPath: filepath.Join(base, "otalog.toml"),
		outputDir:  filepath.Join(base, "dist"),
	}
	writeTestFile(t, env.configPath, `catalog_dir = "`+filepath.ToSlash(catalogDir)+`"
output_dir = "`+filepath.ToSlash(env.outputDir)+`"
ledger_path = "`+filepath.ToSlash(filepath.Join(base, "ledger.db"))+`"
`)
	return env
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", e.configPath, "--log-level", "warn"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerateCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "generate")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	artifact := filepath.Join(env.outputDir, "plain", "device", "nabu", "AviumUI", "avium-16", "index.txt")
	data, err := os.ReadFile(artifact)
	if err != nil {
		t.Fatalf("artifact not written: %v", err)
	}
	if string(data) != "==================\n2024-01-02\n==================\nFixed bug\nAdded feature" {
		t.Errorf("artifact = %q", data)
	}
	if _, err := os.Stat(filepath.Join(env.outputDir, "plain", "device", "empty")); !os.IsNotExist(err) {
		t.Error("device without releases should produce no artifact")
	}
	if !strings.Contains(out, "1 written, 0 unchanged, 1 empty") {
		t.Errorf("summary:\n%s", out)
	}

	out, err = env.run(t, "generate")
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if !strings.Contains(out, "0 written, 1 unchanged, 1 empty") {
		t.Errorf("second run should skip unchanged artifacts:\n%s", out)
	}

	out, err = env.run(t, "generate", "--check")
	if err != nil {
		t.Fatalf("check after generate: %v", err)
	}
	if !strings.Contains(out, "up to date") {
		t.Errorf("check output:\n%s", out)
	}

	writeTestFile(t, artifact, "tampered")
	out, err = env.run(t, "generate", "--check")
	if !errors.Is(err, errDrift) {
		t.Fatalf("expected drift error, got %v", err)
	}
	if !strings.Contains(out, "-tampered") || !strings.Contains(out, "+Added feature") {
		t.Errorf("drift output:\n%s", out)
	}
}

func TestGenerateCommand_FreshOutputWithLedger(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "generate"); err != nil {
		t.Fatalf("generate: %v", err)
	}

	fresh := filepath.Join(env.base, "dist-clean")
	out, err := env.run(t, "generate", "--output", fresh)
	if err != nil {
		t.Fatalf("generate into fresh output: %v", err)
	}
	if !strings.Contains(out, "1 written, 0 unchanged, 1 empty, 0 removed") {
		t.Errorf("summary:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(fresh, "plain", "device", "nabu", "AviumUI", "avium-16", "index.txt")); err != nil {
		t.Errorf("artifact missing from fresh output: %v", err)
	}
}

func TestGenerateCommand_MetricsFile(t *testing.T) {
	env := setupCLITestEnv(t)
	metrics := filepath.Join(env.base, "otalog.prom")

	if _, err := env.run(t, "generate", "--metrics-file", metrics); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `otalog_generated_artifacts_total{outcome="empty"} 1`) {
		t.Errorf("metrics file:\n%s", data)
	}
}

func TestGenerateCommand_BadConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	writeTestFile(t, env.configPath, `date_style = "fancy"`)
	if _, err := env.run(t, "generate"); err == nil {
		t.Error("expected config error")
	}
}

func TestOTACommand(t *testing.T) {
	env := setupCLITestEnv(t)
	zipPath := filepath.Join(env.base, "AviumUI-16-nabu-20250101-GMS.zip")
	propPath := filepath.Join(env.base, "build.prop")
	writeTestFile(t, zipPath, "abc")
	writeTestFile(t, propPath, "ro.system.build.date.utc=1735689600\n")

	out, err := env.run(t, "ota", propPath, zipPath, "--root", env.base)
	if err != nil {
		t.Fatalf("ota preview: %v", err)
	}
	if !strings.Contains(out, "use --write") || !strings.Contains(out, `"id": "a9993e364706816aba3e25717850c26c9cd0d89d"`) {
		t.Errorf("preview output:\n%s", out)
	}
	manifest := filepath.Join(env.base, "public", "AviumUI", "avium-16", "nabu", "ota.json")
	if _, err := os.Stat(manifest); !os.IsNotExist(err) {
		t.Fatal("preview should not write")
	}

	if _, err := env.run(t, "ota", zipPath, propPath, "--root", env.base, "--write"); err != nil {
		t.Fatalf("ota write: %v", err)
	}
	if _, err := os.Stat(manifest); err != nil {
		t.Errorf("manifest not written: %v", err)
	}
}

func TestOTACommand_SkipsServerConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	writeTestFile(t, env.configPath, `date_style = "fancy"`)
	_, err := env.run(t, "ota", "a.zip", "b.zip")
	if err == nil || strings.Contains(err.Error(), "date style") {
		t.Errorf("ota should fail on its arguments, not the config: %v", err)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "--log-level", "loud", "generate"); err == nil {
		t.Error("expected invalid log level error")
	}
}
