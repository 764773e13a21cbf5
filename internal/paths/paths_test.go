package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/abs/path", "/abs/path"},
		{"relative", "relative"},
		{"~", home},
		{"~/browser", filepath.Join(home, "browser")},
	}
	for _, tt := range tests {
		got, err := ExpandTilde(tt.in)
		if err != nil {
			t.Fatalf("ExpandTilde(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ExpandTilde(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConfigPathPrefersLocal(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", t.TempDir())

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	got, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	if got != "" {
		t.Fatalf("expected no config, got %q", got)
	}

	if err := os.WriteFile(filepath.Join(dir, "scrapemcp.toml"), []byte(""), 0600); err != nil {
		t.Fatal(err)
	}
	got, err = ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	if filepath.Base(got) != "scrapemcp.toml" {
		t.Errorf("ConfigPath = %q, want local scrapemcp.toml", got)
	}
}
