package web

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("VESSEL_WEB_ADDR", "")
	t.Setenv("VESSEL_STATIC_DIR", "")
	t.Setenv("LOG_LEVEL", "")

	cfg := LoadConfig()
	if cfg.Addr != ":8080" {
		t.Errorf("Expected addr :8080, got %s", cfg.Addr)
	}
	if cfg.StaticDir != "static" {
		t.Errorf("Expected static dir static, got %s", cfg.StaticDir)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected log level info, got %s", cfg.LogLevel)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("VESSEL_WEB_ADDR", "127.0.0.1:9090")
	t.Setenv("VESSEL_STATIC_DIR", "/srv/vessel")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := LoadConfig()
	if cfg.Addr != "127.0.0.1:9090" || cfg.StaticDir != "/srv/vessel" || cfg.LogLevel != "debug" {
		t.Errorf("Unexpected config: %+v", cfg)
	}
}
