package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/techdivision/import-app-simple/internal/config"
	"github.com/techdivision/import-app-simple/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	homeDir := filepath.Join(testsupport.BaseDir(cfg), "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("IMPORT_PID_FILE", "")

	configPath := filepath.Join(homeDir, "import-app.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "[paths]\npid_file = %q\nlog_dir = %q\ndatabase = %q\n\n", cfg.Paths.PidFile, cfg.Paths.LogDir, cfg.Paths.Database)
	fmt.Fprintf(&b, "[import]\nsingle_transaction = %t\n\n", cfg.Import.SingleTransaction)
	fmt.Fprintf(&b, "[logging]\nformat = %q\nlevel = %q\n\n", "json", "error")
	fmt.Fprintf(&b, "[preflight]\nmin_free_mib = 1\n\n")
	for _, m := range cfg.Modules {
		fmt.Fprintf(&b, "[[modules]]\nname = %q\ntype = %q\n", m.Name, m.Type)
		if statements, _ := m.StringsParam("statements"); len(statements) > 0 {
			quoted := make([]string, len(statements))
			for i, s := range statements {
				quoted[i] = fmt.Sprintf("%q", s)
			}
			fmt.Fprintf(&b, "[modules.params]\nstatements = [%s]\n", strings.Join(quoted, ", "))
		}
		b.WriteString("\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
