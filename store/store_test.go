package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/cflat/interp"
)

func openTestStore(t *testing.T) *ProgramStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "programs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openTestStore(t)

	if err := s.Put("boot", "int a = 1;"); err != nil {
		t.Fatalf("put: %v", err)
	}

	source, err := s.Get("boot")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if source != "int a = 1;" {
		t.Errorf("source = %q", source)
	}
}

func TestPutReplaces(t *testing.T) {
	s := openTestStore(t)

	if err := s.Put("boot", "int a = 1;"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put("boot", "int a = 2;"); err != nil {
		t.Fatalf("replace: %v", err)
	}

	source, err := s.Get("boot")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if source != "int a = 2;" {
		t.Errorf("source = %q, want replacement", source)
	}

	names, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 1 {
		t.Errorf("names = %v, want one entry", names)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.Get("nope"); !errors.Is(err, ErrProgramNotFound) {
		t.Errorf("err = %v, want ErrProgramNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)

	if err := s.Put("boot", "int a = 1;"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Delete("boot"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get("boot"); !errors.Is(err, ErrProgramNotFound) {
		t.Errorf("deleted program still readable")
	}
	if err := s.Delete("boot"); !errors.Is(err, ErrProgramNotFound) {
		t.Errorf("double delete err = %v, want ErrProgramNotFound", err)
	}
}

func TestListOrder(t *testing.T) {
	s := openTestStore(t)

	for _, name := range []string{"third", "first", "second"} {
		if err := s.Put(name, "int a = 1;"); err != nil {
			t.Fatalf("put %q: %v", name, err)
		}
	}

	names, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"third", "first", "second"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q (insertion order)", i, names[i], want[i])
		}
	}
}

func TestSaveAllLoadAll(t *testing.T) {
	s := openTestStore(t)

	env := interp.NewEnvironment()
	if !env.Load("boot", "int a = 1;") {
		t.Fatalf("load: %s", env.ErrorMessage())
	}
	if !env.Load("logic", "int b = 1 + 41;") {
		t.Fatalf("load: %s", env.ErrorMessage())
	}

	if err := s.SaveAll(env); err != nil {
		t.Fatalf("save all: %v", err)
	}

	restored := interp.NewEnvironment()
	if err := s.LoadAll(restored); err != nil {
		t.Fatalf("load all: %v", err)
	}

	v := restored.GetVariable("b")
	if v == nil {
		t.Fatalf("restored environment lost variable 'b'")
	}
	if got := interp.ValueAs[int32](v); got != 42 {
		t.Errorf("b = %d, want 42", got)
	}
}

func TestLoadAllStopsOnBrokenProgram(t *testing.T) {
	s := openTestStore(t)

	if err := s.Put("broken", "y = 1;"); err != nil {
		t.Fatalf("put: %v", err)
	}

	env := interp.NewEnvironment()
	if err := s.LoadAll(env); err == nil {
		t.Errorf("replay of a broken program succeeded")
	}
}
