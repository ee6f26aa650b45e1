package configuration

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	p := writeConfigFile(t, "config.yml", `
storage: memory
auth:
  secret: s3cret
`)

	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Env != "dev" {
		t.Fatalf("env: got %q, want dev", c.Env)
	}
	if c.Server.AppAddr != ":8080" || c.Server.SocketAddr != ":8081" {
		t.Fatalf("addrs: got %q / %q", c.Server.AppAddr, c.Server.SocketAddr)
	}
	if c.Server.SocketRoute != "/ws" {
		t.Fatalf("socket route: got %q", c.Server.SocketRoute)
	}
	if c.Mongo.Database != "audiobridge" || c.Mongo.MessagesCollection != "messages" {
		t.Fatalf("mongo defaults: got %q / %q", c.Mongo.Database, c.Mongo.MessagesCollection)
	}
}

func TestLoadLaterFilesOverrideEarlier(t *testing.T) {
	base := writeConfigFile(t, "base.yml", `
storage: memory
auth:
  secret: base-secret
server:
  app_addr: ":9000"
`)
	override := writeConfigFile(t, "override.yml", `
server:
  app_addr: ":9100"
`)

	c, err := Load(base + "," + override)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.AppAddr != ":9100" {
		t.Fatalf("app_addr: got %q, want :9100", c.Server.AppAddr)
	}
	if c.Auth.Secret != "base-secret" {
		t.Fatalf("secret: got %q, want base-secret", c.Auth.Secret)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	p := writeConfigFile(t, "config.yml", "storage: memory\n")
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for missing auth.secret")
	}
}

func TestLoadRequiresMongoURIForMongoStorage(t *testing.T) {
	p := writeConfigFile(t, "config.yml", `
auth:
  secret: s3cret
`)
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for mongo storage without uri")
	}
}

func TestLoadEmptyPath(t *testing.T) {
	if _, err := Load("  "); err == nil {
		t.Fatal("expected error for empty path list")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
