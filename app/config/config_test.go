package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("YB_KEY_DIR", t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if cfg.Store != def.Store || cfg.Server != def.Server || cfg.Mirror.Enabled {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
	if got := cfg.Store.DBPath(); got != filepath.Join("data", "yellowbell.db") {
		t.Errorf("DBPath = %s", got)
	}
}

func TestLoadFormats(t *testing.T) {
	t.Setenv("YB_KEY_DIR", t.TempDir())

	tests := []struct {
		name    string
		content string
	}{
		{"config.json", `{"business":{"name":"Yellowbell Cubao"},"store":{"data_dir":"/srv/pos","db_file":"pos.db"},"server":{"port":9090}}`},
		{"config.toml", "[business]\nname = \"Yellowbell Cubao\"\n\n[store]\ndata_dir = \"/srv/pos\"\ndb_file = \"pos.db\"\n\n[server]\nport = 9090\n"},
		{"config.yaml", "business:\n  name: Yellowbell Cubao\nstore:\n  data_dir: /srv/pos\n  db_file: pos.db\nserver:\n  port: 9090\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, tt.name, tt.content))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.Business.Name != "Yellowbell Cubao" || cfg.Server.Port != 9090 {
				t.Errorf("business %q port %d", cfg.Business.Name, cfg.Server.Port)
			}
			if cfg.Store.DBPath() != filepath.Join("/srv/pos", "pos.db") {
				t.Errorf("DBPath = %s", cfg.Store.DBPath())
			}
			// Fields the file leaves out keep their defaults
			if cfg.Mirror.QueueSize != 64 || cfg.Logging.KeepDays != 30 {
				t.Errorf("queue %d keep %d, want defaults", cfg.Mirror.QueueSize, cfg.Logging.KeepDays)
			}
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("YB_KEY_DIR", t.TempDir())
	t.Setenv("YB_DATA_DIR", "/var/lib/yellowbell")
	t.Setenv("YB_PORT", "7000")
	t.Setenv("YB_MIRROR_ENABLED", "true")
	t.Setenv("DATABASE_URL", "postgres://pos@db/mirror")
	t.Setenv("YB_NATS_URL", "nats://127.0.0.1:4222")

	cfg, err := Load(writeFile(t, "config.json", `{"server":{"port":9090}}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.DataDir != "/var/lib/yellowbell" || cfg.Server.Port != 7000 {
		t.Errorf("data dir %s port %d", cfg.Store.DataDir, cfg.Server.Port)
	}
	if !cfg.Mirror.Enabled || cfg.Mirror.Postgres.URL != "postgres://pos@db/mirror" {
		t.Errorf("mirror = %+v", cfg.Mirror)
	}
	if cfg.Events.NATSURL != "nats://127.0.0.1:4222" {
		t.Errorf("nats url = %s", cfg.Events.NATSURL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		errMsg string
	}{
		{"defaults", func(*AppConfig) {}, ""},
		{"no db file", func(c *AppConfig) { c.Store.DBFile = "" }, "db_file"},
		{"bad port", func(c *AppConfig) { c.Server.Port = 70000 }, "port"},
		{"unknown target", func(c *AppConfig) { c.Mirror.Enabled = true; c.Mirror.Target = "ftp" }, "unknown mirror target"},
		{"sheets without id", func(c *AppConfig) { c.Mirror.Enabled = true; c.Mirror.Target = MirrorTargetSheets }, "spreadsheet_id"},
		{"disabled target ignored", func(c *AppConfig) { c.Mirror.Target = "ftp" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate error = %v, want mention of %q", err, tt.errMsg)
			}
		})
	}
}

func TestSaveEncryptsSecrets(t *testing.T) {
	t.Setenv("YB_KEY_DIR", t.TempDir())
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg := Default()
	cfg.Mirror.Postgres.Password = "hunter2"
	cfg.Mirror.Sheets.CredentialsJSON = `{"type":"service_account"}`
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// The caller's copy stays in plain text
	if cfg.Mirror.Postgres.Password != "hunter2" {
		t.Errorf("Save modified the caller's config")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(raw), "hunter2") || strings.Contains(string(raw), "service_account") {
		t.Error("secrets written in plain text")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Mirror.Postgres.Password != "hunter2" || loaded.Mirror.Sheets.CredentialsJSON != `{"type":"service_account"}` {
		t.Errorf("secrets did not round trip: %+v", loaded.Mirror)
	}
}
