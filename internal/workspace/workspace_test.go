package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAllocate_CreatesDirectory(t *testing.T) {
	out := t.TempDir()

	ws, err := Allocate("My_Book", out)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	info, err := os.Stat(ws.Dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("workspace directory missing: %v", err)
	}
	if ws.Dir != filepath.Join(out, "My_Book") {
		t.Errorf("Dir = %q", ws.Dir)
	}
}

func TestAllocate_AvoidsCollisions(t *testing.T) {
	out := t.TempDir()

	first, err := Allocate("Title", out)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Allocate("Title", out)
	if err != nil {
		t.Fatal(err)
	}

	if first.Dir == second.Dir {
		t.Fatalf("both allocations returned %q", first.Dir)
	}
	if second.Dir != filepath.Join(out, "Title(1)") {
		t.Errorf("second.Dir = %q", second.Dir)
	}
}

func TestRelease_RemovesEverything(t *testing.T) {
	out := t.TempDir()

	ws, err := Allocate("Book", out)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ws.Dir, "000.jpg"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	ws.Release(nil)

	if _, err := os.Stat(ws.Dir); !os.IsNotExist(err) {
		t.Errorf("workspace still exists after Release")
	}
}

func TestRelease_NilSafe(t *testing.T) {
	var ws *Workspace
	ws.Release(nil) // must not panic
}
