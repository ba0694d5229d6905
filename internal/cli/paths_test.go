package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chris-a-talbot/sparg-viz/pkg/config"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	if want := filepath.Join(home, ".cache", appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCacheDirXDG(t *testing.T) {
	custom := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", custom)

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join(custom, appName); dir != want {
		t.Errorf("cacheDir() with XDG_CACHE_HOME = %q, want %q", dir, want)
	}
}

func TestFileCacheDirFromConfig(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	custom := filepath.Join(t.TempDir(), "results")

	c := quietCLI()
	cfg := config.Default()
	cfg.Cache.Dir = custom
	c.config = &cfg

	dir, err := c.fileCacheDir()
	if err != nil {
		t.Fatalf("fileCacheDir() error: %v", err)
	}
	if dir != custom {
		t.Errorf("fileCacheDir() = %q, want %q", dir, custom)
	}
}
