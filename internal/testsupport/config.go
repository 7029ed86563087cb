package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/techdivision/import-app-simple/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.PidFile = filepath.Join(base, "run", "importer.pid")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.Database = filepath.Join(base, "import.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure test directories: %v", err)
	}
	return builder.cfg
}

// WithSingleTransaction enables single-transaction mode on the test config.
func WithSingleTransaction() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Import.SingleTransaction = true
	}
}

// WithModules replaces the configured module list.
func WithModules(modules ...config.Module) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Modules = append([]config.Module(nil), modules...)
	}
}

// WithErrorLog enables the dedicated error log inside the test log directory.
func WithErrorLog(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Logging.ErrorLog = filepath.Join(b.cfg.Paths.LogDir, name)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
