package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func mapEnv(env map[string]string) func(key, value string) string {
	return func(key, value string) string {
		if v, ok := env[key]; ok {
			return v
		}
		return value
	}
}

func TestDefaults(t *testing.T) {
	s := Defaults()
	if s.Width != 1280 || s.Height != 720 {
		t.Errorf("size = %dx%d", s.Width, s.Height)
	}
	if !s.Vsync || !s.Compute || s.Validation || s.Fullscreen {
		t.Errorf("flags = %+v", s)
	}
	if s.GPU != -1 {
		t.Errorf("GPU = %d", s.GPU)
	}
	if s.StatsInterval != time.Second {
		t.Errorf("StatsInterval = %s", s.StatsInterval)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	s := Defaults()
	err := s.applyEnv(mapEnv(map[string]string{
		"VKPBR_WIDTH":          "800",
		"VKPBR_HEIGHT":         "600",
		"VKPBR_VSYNC":          "false",
		"VKPBR_GPU":            "1",
		"VKPBR_LOG_LEVEL":      "debug",
		"VKPBR_MESH":           "models/sphere.obj",
		"VKPBR_STATS_INTERVAL": "250ms",
	}))
	if err != nil {
		t.Fatal(err)
	}

	want := Defaults()
	want.Width, want.Height = 800, 600
	want.Vsync = false
	want.GPU = 1
	want.LogLevel = "debug"
	want.Mesh = "models/sphere.obj"
	want.StatsInterval = 250 * time.Millisecond
	if s != want {
		t.Errorf("settings = %+v\nwant %+v", s, want)
	}
}

func TestApplyEnvErrors(t *testing.T) {
	tests := map[string]string{
		"VKPBR_WIDTH":          "wide",
		"VKPBR_COMPUTE":        "maybe",
		"VKPBR_STATS_INTERVAL": "soon",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			s := Defaults()
			if err := s.applyEnv(mapEnv(map[string]string{key: value})); err == nil {
				t.Errorf("%s=%s accepted", key, value)
			}
		})
	}
}

func TestParseFlags(t *testing.T) {
	s := Defaults()
	s.Width = 800

	err := s.parseFlags([]string{"-height", "400", "-vkdbg", "-compute=false", "-log", "warn"})
	if err != nil {
		t.Fatal(err)
	}
	if s.Width != 800 || s.Height != 400 {
		t.Errorf("size = %dx%d", s.Width, s.Height)
	}
	if !s.Validation || s.Compute {
		t.Errorf("validation %v compute %v", s.Validation, s.Compute)
	}
	if s.LogLevel != "warn" {
		t.Errorf("LogLevel = %q", s.LogLevel)
	}

	if err := s.parseFlags([]string{"-nope"}); err == nil {
		t.Error("unknown flag accepted")
	}
}

func TestMeshFlag(t *testing.T) {
	s := Defaults()
	if err := s.parseFlags([]string{"-mesh", "models/sphere.obj"}); err != nil {
		t.Fatal(err)
	}
	if s.Mesh != "models/sphere.obj" {
		t.Errorf("Mesh = %q", s.Mesh)
	}

	usage := s.flagSet().Lookup("mesh").Usage
	if !strings.Contains(usage, "not drawn") {
		t.Errorf("mesh usage %q does not say the mesh is only uploaded", usage)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Settings)
		valid bool
	}{
		{"defaults", func(*Settings) {}, true},
		{"zero width", func(s *Settings) { s.Width = 0 }, false},
		{"negative height", func(s *Settings) { s.Height = -5 }, false},
		{"unknown level", func(s *Settings) { s.LogLevel = "chatty" }, false},
		{"negative interval", func(s *Settings) { s.StatsInterval = -time.Second }, false},
		{"stats disabled", func(s *Settings) { s.StatsInterval = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.edit(&s)
			err := s.Validate()
			if (err == nil) != tt.valid {
				t.Errorf("Validate() = %v, want valid %v", err, tt.valid)
			}
		})
	}
}

func TestLevel(t *testing.T) {
	s := Defaults()
	s.LogLevel = "debug"
	level, err := s.Level()
	if err != nil || level != logrus.DebugLevel {
		t.Errorf("Level() = %v, %v", level, err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	err := os.WriteFile(envFile, []byte("VKPBR_WIDTH=1024\nVKPBR_HEIGHT=768\nVKPBR_TITLE=from-file\n"), 0o600)
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("VKPBR_HEIGHT", "700")
	t.Cleanup(func() {
		os.Unsetenv("VKPBR_WIDTH")
		os.Unsetenv("VKPBR_TITLE")
	})

	s, err := Load(envFile, []string{"-title", "from-flag"})
	if err != nil {
		t.Fatalf("Load: %+v", err)
	}

	if s.Width != 1024 {
		t.Errorf("Width = %d, want value from .env", s.Width)
	}
	if s.Height != 700 {
		t.Errorf("Height = %d, want environment over .env", s.Height)
	}
	if s.Title != "from-flag" {
		t.Errorf("Title = %q, want flag over .env", s.Title)
	}
}

func TestLoadMissingEnvFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.env"), nil)
	if err != nil {
		t.Fatalf("Load: %+v", err)
	}
	if s.Title != "vkpbr" {
		t.Errorf("Title = %q", s.Title)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	if _, err := Load("", []string{"-width", "0"}); err == nil {
		t.Error("zero width accepted")
	}
}
