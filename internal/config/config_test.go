package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

const validJSON = `{
  "apiKey": "NRAK-FILE",
  "region": "US",
  "dashboards": [
    {"guid": "MXxWSVp8REFTSEJPQVJEfDEx", "refreshRate": 30000},
    {"guid": "MXxWSVp8REFTSEJPQVJEfDIy", "refreshRate": 60000}
  ]
}`

// clearEnv blanks every variable Load reads; empty values count as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		EnvAPIKey, EnvRegion, EnvBackupDir, EnvConfigFile, EnvHTTPTimeout,
		EnvHTTPMaxBodySize, EnvConcurrency, EnvRequestsPerSecond,
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func wantConfigError(t *testing.T, err error, contains string) {
	t.Helper()
	if err == nil {
		t.Fatalf("Load() expected error containing %q, got nil", contains)
	}
	var cfgErr *Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Load() error = %T %v, want *config.Error", err, err)
	}
	if !strings.Contains(err.Error(), contains) {
		t.Errorf("Load() error = %q, want it to contain %q", err, contains)
	}
}

func TestParseRegion(t *testing.T) {
	tests := []struct {
		input   string
		want    Region
		wantErr bool
	}{
		{input: "US", want: RegionUS},
		{input: "EU", want: RegionEU},
		{input: "us", wantErr: true},
		{input: "Eu", wantErr: true},
		{input: "", wantErr: true},
		{input: "APAC", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRegion(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRegion(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRegion(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRegionEndpoint(t *testing.T) {
	if got := RegionUS.Endpoint(); got != "https://api.newrelic.com/graphql" {
		t.Errorf("US endpoint = %s", got)
	}
	if got := RegionEU.Endpoint(); got != "https://api.eu.newrelic.com/graphql" {
		t.Errorf("EU endpoint = %s", got)
	}
}

func TestLoad(t *testing.T) {
	t.Run("uses defaults for optional settings", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		chdir(t, dir)
		writeConfig(t, dir, "config.json", validJSON)

		got, err := Load(nil)
		if err != nil {
			t.Fatalf("Load() unexpected error: %v", err)
		}

		want := Settings{
			APIKey:        "NRAK-FILE",
			Region:        RegionUS,
			ConfigFile:    filepath.Join(dir, "config.json"),
			BackupDir:     dir,
			BackupEnabled: true,
			Dashboards: []UpdateRequest{
				{GUID: "MXxWSVp8REFTSEJPQVJEfDEx", RefreshRate: 30000},
				{GUID: "MXxWSVp8REFTSEJPQVJEfDIy", RefreshRate: 60000},
			},
			HTTPTimeout:       30 * time.Second,
			HTTPMaxBodySize:   10 * 1024 * 1024,
			Concurrency:       1,
			RequestsPerSecond: 5,
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Load() = %+v, want %+v", got, want)
		}
	})

	t.Run("returns error when config file is missing", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(&Overrides{ConfigFile: filepath.Join(t.TempDir(), "nope.json")})
		wantConfigError(t, err, "not found")
	})

	t.Run("returns error for malformed JSON", func(t *testing.T) {
		clearEnv(t)
		path := writeConfig(t, t.TempDir(), "config.json", `{"apiKey": `)
		_, err := Load(&Overrides{ConfigFile: path})
		wantConfigError(t, err, "failed to parse config file")
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		clearEnv(t)
		path := writeConfig(t, t.TempDir(), "config.json", `{"apiKey":"k","region":"US","dashboards":[{"guid":"g","refreshrate":1000}]}`)
		_, err := Load(&Overrides{ConfigFile: path})
		wantConfigError(t, err, "refreshrate")
	})

	t.Run("rejects negative refresh rate", func(t *testing.T) {
		clearEnv(t)
		path := writeConfig(t, t.TempDir(), "config.json", `{"apiKey":"k","region":"US","dashboards":[{"guid":"g","refreshRate":-5}]}`)
		_, err := Load(&Overrides{ConfigFile: path})
		wantConfigError(t, err, "dashboards[0]: refreshRate must be a positive")
	})

	t.Run("rejects missing refresh rate and guid", func(t *testing.T) {
		clearEnv(t)
		path := writeConfig(t, t.TempDir(), "config.json", `{"apiKey":"k","region":"US","dashboards":[{"guid":"g"},{"refreshRate":1000}]}`)
		_, err := Load(&Overrides{ConfigFile: path})
		wantConfigError(t, err, "dashboards[0]: refreshRate")
		wantConfigError(t, err, "dashboards[1]: guid is required")
	})

	t.Run("rejects lowercase region", func(t *testing.T) {
		clearEnv(t)
		path := writeConfig(t, t.TempDir(), "config.json", `{"apiKey":"k","region":"us","dashboards":[{"guid":"g","refreshRate":1000}]}`)
		_, err := Load(&Overrides{ConfigFile: path})
		wantConfigError(t, err, `invalid region "us"`)
	})

	t.Run("rejects empty dashboard list", func(t *testing.T) {
		clearEnv(t)
		path := writeConfig(t, t.TempDir(), "config.json", `{"apiKey":"k","region":"EU","dashboards":[]}`)
		_, err := Load(&Overrides{ConfigFile: path})
		wantConfigError(t, err, "at least one dashboard")
	})

	t.Run("requires an API key", func(t *testing.T) {
		clearEnv(t)
		path := writeConfig(t, t.TempDir(), "config.json", `{"region":"EU","dashboards":[{"guid":"g","refreshRate":1000}]}`)
		_, err := Load(&Overrides{ConfigFile: path})
		wantConfigError(t, err, "apiKey is required")
	})

	t.Run("environment supplies missing API key and region", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvAPIKey, "NRAK-ENV")
		t.Setenv(EnvRegion, "EU")
		path := writeConfig(t, t.TempDir(), "config.json", `{"dashboards":[{"guid":"g","refreshRate":1000}]}`)

		got, err := Load(&Overrides{ConfigFile: path})
		if err != nil {
			t.Fatalf("Load() unexpected error: %v", err)
		}
		if got.APIKey != "NRAK-ENV" || got.Region != RegionEU {
			t.Errorf("Load() APIKey=%q Region=%q, want NRAK-ENV/EU", got.APIKey, got.Region)
		}
	})

	t.Run("environment overrides config file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvAPIKey, "NRAK-ENV")
		t.Setenv(EnvRegion, "EU")
		t.Setenv(EnvHTTPTimeout, "10")
		path := writeConfig(t, t.TempDir(), "config.json", validJSON)

		got, err := Load(&Overrides{ConfigFile: path})
		if err != nil {
			t.Fatalf("Load() unexpected error: %v", err)
		}
		if got.APIKey != "NRAK-ENV" {
			t.Errorf("APIKey = %q, want NRAK-ENV", got.APIKey)
		}
		if got.Region != RegionEU {
			t.Errorf("Region = %q, want EU", got.Region)
		}
		if got.HTTPTimeout != 10*time.Second {
			t.Errorf("HTTPTimeout = %v, want 10s", got.HTTPTimeout)
		}
	})

	t.Run("CLI overrides environment", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		t.Setenv(EnvBackupDir, filepath.Join(dir, "from-env"))
		t.Setenv(EnvConcurrency, "2")
		path := writeConfig(t, dir, "config.json", validJSON)

		backupDir := filepath.Join(dir, "from-cli")
		concurrency := 4
		timeout := 5
		got, err := Load(&Overrides{
			ConfigFile:  path,
			BackupDir:   &backupDir,
			Concurrency: &concurrency,
			HTTPTimeout: &timeout,
			NoBackup:    true,
			Debug:       true,
		})
		if err != nil {
			t.Fatalf("Load() unexpected error: %v", err)
		}
		if got.BackupDir != backupDir {
			t.Errorf("BackupDir = %q, want %q", got.BackupDir, backupDir)
		}
		if got.Concurrency != 4 {
			t.Errorf("Concurrency = %d, want 4", got.Concurrency)
		}
		if got.HTTPTimeout != 5*time.Second {
			t.Errorf("HTTPTimeout = %v, want 5s", got.HTTPTimeout)
		}
		if got.BackupEnabled {
			t.Error("BackupEnabled = true, want false with NoBackup")
		}
		if !got.Debug {
			t.Error("Debug = false, want true")
		}
	})

	t.Run("config file path from environment", func(t *testing.T) {
		clearEnv(t)
		path := writeConfig(t, t.TempDir(), "other.json", validJSON)
		t.Setenv(EnvConfigFile, path)

		got, err := Load(nil)
		if err != nil {
			t.Fatalf("Load() unexpected error: %v", err)
		}
		if got.ConfigFile != path {
			t.Errorf("ConfigFile = %q, want %q", got.ConfigFile, path)
		}
	})

	t.Run("relative paths resolve against working directory", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		chdir(t, dir)
		if err := os.Mkdir(filepath.Join(dir, "conf"), 0o755); err != nil {
			t.Fatal(err)
		}
		writeConfig(t, dir, filepath.Join("conf", "settings.json"),
			`{"apiKey":"k","region":"US","backupDir":"backups/nr","dashboards":[{"guid":"g","refreshRate":1000}]}`)

		got, err := Load(&Overrides{ConfigFile: filepath.Join("conf", "settings.json")})
		if err != nil {
			t.Fatalf("Load() unexpected error: %v", err)
		}
		if got.ConfigFile != filepath.Join(dir, "conf", "settings.json") {
			t.Errorf("ConfigFile = %q", got.ConfigFile)
		}
		if got.BackupDir != filepath.Join(dir, "backups", "nr") {
			t.Errorf("BackupDir = %q, want %q", got.BackupDir, filepath.Join(dir, "backups", "nr"))
		}
	})

	t.Run("expands environment placeholders in backup dir", func(t *testing.T) {
		clearEnv(t)
		root := t.TempDir()
		t.Setenv("NR_BACKUP_ROOT", root)
		path := writeConfig(t, t.TempDir(), "config.json",
			`{"apiKey":"k","region":"US","backupDir":"{NR_BACKUP_ROOT}/dashboards","dashboards":[{"guid":"g","refreshRate":1000}]}`)

		got, err := Load(&Overrides{ConfigFile: path})
		if err != nil {
			t.Fatalf("Load() unexpected error: %v", err)
		}
		if got.BackupDir != filepath.Join(root, "dashboards") {
			t.Errorf("BackupDir = %q, want %q", got.BackupDir, filepath.Join(root, "dashboards"))
		}
	})

	t.Run("rejects zero concurrency", func(t *testing.T) {
		clearEnv(t)
		path := writeConfig(t, t.TempDir(), "config.json", validJSON)
		zero := 0
		_, err := Load(&Overrides{ConfigFile: path, Concurrency: &zero})
		wantConfigError(t, err, "concurrency must be at least 1")
	})

	t.Run("ignores invalid integer env values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvHTTPTimeout, "soon")
		path := writeConfig(t, t.TempDir(), "config.json", validJSON)

		got, err := Load(&Overrides{ConfigFile: path})
		if err != nil {
			t.Fatalf("Load() unexpected error: %v", err)
		}
		if got.HTTPTimeout != 30*time.Second {
			t.Errorf("HTTPTimeout = %v, want default 30s", got.HTTPTimeout)
		}
	})
}

func TestLoad_FileFormats(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	jsonPath := writeConfig(t, dir, "config.json", `{
  "apiKey": "k", "region": "EU", "httpTimeout": 12,
  "dashboards": [{"guid": "A", "refreshRate": 5000}, {"guid": "B", "refreshRate": 10000}]
}`)
	yamlPath := writeConfig(t, dir, "config.yaml", `
apiKey: k
region: EU
httpTimeout: 12
dashboards:
  - guid: A
    refreshRate: 5000
  - guid: B
    refreshRate: 10000
`)
	tomlPath := writeConfig(t, dir, "config.toml", `
apiKey = "k"
region = "EU"
httpTimeout = 12

[[dashboards]]
guid = "A"
refreshRate = 5000

[[dashboards]]
guid = "B"
refreshRate = 10000
`)

	want, err := Load(&Overrides{ConfigFile: jsonPath})
	if err != nil {
		t.Fatalf("Load(json) unexpected error: %v", err)
	}

	for _, path := range []string{yamlPath, tomlPath} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			got, err := Load(&Overrides{ConfigFile: path})
			if err != nil {
				t.Fatalf("Load(%s) unexpected error: %v", path, err)
			}
			got.ConfigFile = want.ConfigFile
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Load(%s) = %+v, want %+v", path, got, want)
			}
		})
	}

	t.Run("unknown TOML keys rejected", func(t *testing.T) {
		path := writeConfig(t, dir, "bad.toml", "apiKey = \"k\"\nregion = \"US\"\nrefresh = 1\n")
		_, err := Load(&Overrides{ConfigFile: path})
		wantConfigError(t, err, "unknown keys")
	})

	t.Run("unknown YAML keys rejected", func(t *testing.T) {
		path := writeConfig(t, dir, "bad.yml", "apiKey: k\nregion: US\nrefresh: 1\n")
		_, err := Load(&Overrides{ConfigFile: path})
		wantConfigError(t, err, "refresh")
	})
}

func TestExpandEnvPlaceholders(t *testing.T) {
	t.Setenv("NR_TEST_DIR", "/srv/backups")
	t.Setenv("NR_EMPTY", "")

	tests := []struct {
		input string
		want  string
	}{
		{input: "{NR_TEST_DIR}/x", want: "/srv/backups/x"},
		{input: "{NR_EMPTY}/x", want: "{NR_EMPTY}/x"},
		{input: "{lower}/x", want: "{lower}/x"},
		{input: "plain/path", want: "plain/path"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := expandEnvPlaceholders(tt.input); got != tt.want {
				t.Errorf("expandEnvPlaceholders(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
