package kv

import (
	"errors"
	"testing"
)

// TestSQLiteStoreRoundTrip verifies values survive a close and reopen of the state database.
func TestSQLiteStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Set("client_jwt", []byte("token-1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, err := s.Get("client_jwt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "token-1" {
		t.Errorf("value = %q, want %q", got, "token-1")
	}
}

// TestSQLiteStoreOverwriteAndDelete verifies Set replaces existing values and
// Delete makes the key report ErrNotFound.
func TestSQLiteStoreOverwriteAndDelete(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	_ = s.Set("k", []byte("a"))
	_ = s.Set("k", []byte("b"))
	got, err := s.Get("k")
	if err != nil || string(got) != "b" {
		t.Errorf("Get(k) = %q, %v; want b", got, err)
	}

	if err := s.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete error = %v, want ErrNotFound", err)
	}
}

// TestMemoryStoreFailures verifies simulated storage failures surface from every operation.
func TestMemoryStoreFailures(t *testing.T) {
	m := NewMemoryStore()
	boom := errors.New("quota exceeded")
	m.SetFailures(nil, boom)

	if err := m.Set("k", []byte("v")); !errors.Is(err, boom) {
		t.Errorf("Set error = %v, want %v", err, boom)
	}

	m.SetFailures(boom, nil)
	if _, err := m.Get("k"); !errors.Is(err, boom) {
		t.Errorf("Get error = %v, want %v", err, boom)
	}
}

// TestMemoryStoreCopiesValues verifies callers cannot mutate stored bytes through
// the slices passed to Set or returned from Get.
func TestMemoryStoreCopiesValues(t *testing.T) {
	m := NewMemoryStore()
	in := []byte("abc")
	_ = m.Set("k", in)
	in[0] = 'x'

	out, _ := m.Get("k")
	if string(out) != "abc" {
		t.Errorf("stored value = %q, want abc", out)
	}
	out[0] = 'y'
	again, _ := m.Get("k")
	if string(again) != "abc" {
		t.Errorf("stored value after caller mutation = %q, want abc", again)
	}
}
