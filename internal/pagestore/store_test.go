package pagestore

import (
	"fmt"
	"testing"
	"time"

	"devbridge/cli/internal/db"
	"devbridge/cli/internal/statestore"
)

func newBlobs(t *testing.T) *statestore.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:pg_mem_%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.OpenSQLiteDSN(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	blobs, err := statestore.NewStore(gdb)
	if err != nil {
		t.Fatalf("state store: %v", err)
	}
	return blobs
}

func seedStore(t *testing.T, names ...string) (*Store, []Dataset) {
	t.Helper()
	store, err := NewStore(newBlobs(t))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	var datasets []Dataset
	for _, n := range names {
		ds, err := store.Add(Dataset{Name: n, Fields: map[string]string{"name": n}})
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		datasets = append(datasets, ds)
	}
	return store, datasets
}

func TestNext_SequentialCyclesInOrder(t *testing.T) {
	store, datasets := seedStore(t, "a", "b", "c")
	var got []string
	for i := 0; i < 5; i++ {
		ds, ok, err := store.Next()
		if err != nil || !ok {
			t.Fatalf("Next: %v ok=%v", err, ok)
		}
		got = append(got, ds.Name)
	}
	want := []string{"a", "b", "c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rotation %v, want %v", got, want)
		}
	}
	_ = datasets
}

func TestNext_EmptyStore(t *testing.T) {
	store, _ := seedStore(t)
	_, ok, err := store.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ok {
		t.Fatal("expected no dataset")
	}
}

func TestNext_RotationSurvivesReload(t *testing.T) {
	blobs := newBlobs(t)
	store, err := NewStore(blobs)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	for _, n := range []string{"a", "b"} {
		if _, err := store.Add(Dataset{Name: n}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if ds, _, _ := store.Next(); ds.Name != "a" {
		t.Fatalf("expected a first, got %s", ds.Name)
	}

	reloaded, err := NewStore(blobs)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if ds, _, _ := reloaded.Next(); ds.Name != "b" {
		t.Fatalf("cursor not persisted, got %s", ds.Name)
	}
}

func TestRemove_ResetsCursorWhenOutOfRange(t *testing.T) {
	store, datasets := seedStore(t, "a", "b")
	if _, _, err := store.Next(); err != nil { // cursor now at b
		t.Fatalf("Next: %v", err)
	}
	if err := store.Remove(datasets[1].ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	ds, ok, err := store.Next()
	if err != nil || !ok {
		t.Fatalf("Next after remove: %v ok=%v", err, ok)
	}
	if ds.Name != "a" {
		t.Fatalf("expected a, got %s", ds.Name)
	}
}

func TestSetMode_RejectsUnknown(t *testing.T) {
	store, _ := seedStore(t, "a")
	if err := store.SetMode("weird"); err == nil {
		t.Fatal("expected error")
	}
	if err := store.SetMode(RotationRandom); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if store.Mode() != RotationRandom {
		t.Fatal("mode not applied")
	}
}

func TestNewPersona_DeterministicBySeed(t *testing.T) {
	p1 := NewPersona(42)
	p2 := NewPersona(42)
	if p1 != p2 {
		t.Fatalf("same seed produced different personas: %+v vs %+v", p1, p2)
	}
	p3 := NewPersona(43)
	if p1 == p3 {
		t.Fatal("different seeds should produce different personas")
	}
}

func TestPersonaDataset_FieldMapping(t *testing.T) {
	p := NewPersona(7)
	ds := p.Dataset("")
	if ds.Name == "" {
		t.Fatal("dataset name should default to the persona name")
	}
	if ds.Fields["email"] != p.Email || ds.Fields["firstName"] != p.FirstName {
		t.Fatalf("field mapping broken: %+v", ds.Fields)
	}
}
