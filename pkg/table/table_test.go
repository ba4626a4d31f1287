package table

import (
	"testing"

	"github.com/kristofer/smogvm/pkg/object"
	"github.com/kristofer/smogvm/pkg/value"
)

func mkString(s string) *object.String {
	return object.NewString(s, HashString(s))
}

func TestSetGetDelete(t *testing.T) {
	tbl := New()
	key := mkString("answer")

	if isNew := tbl.Set(key, value.Number(42)); !isNew {
		t.Fatalf("expected first Set to report a new key")
	}
	if isNew := tbl.Set(key, value.Number(43)); isNew {
		t.Fatalf("expected second Set on same key to report not-new")
	}

	got, ok := tbl.Get(key)
	if !ok || got.AsNumber() != 43 {
		t.Fatalf("Get = %v, %v; want 43, true", got, ok)
	}

	if !tbl.Delete(key) {
		t.Fatalf("expected Delete to report key was present")
	}
	if _, ok := tbl.Get(key); ok {
		t.Fatalf("expected Get after Delete to miss")
	}
}

func TestFindStringByContent(t *testing.T) {
	tbl := New()
	key := mkString("hello")
	tbl.Set(key, value.Bool(true))

	found := tbl.FindString("hello", HashString("hello"))
	if found != key {
		t.Fatalf("FindString returned a different handle than the one stored")
	}

	if found := tbl.FindString("goodbye", HashString("goodbye")); found != nil {
		t.Fatalf("FindString found a key that was never inserted")
	}
}

func TestTombstoneDoesNotBreakProbing(t *testing.T) {
	tbl := New()
	keys := make([]*object.String, 0, 20)
	for i := 0; i < 20; i++ {
		k := mkString(string(rune('a' + i)))
		keys = append(keys, k)
		tbl.Set(k, value.Number(float64(i)))
	}

	// Delete every other key, then verify all surviving keys are still
	// reachable despite the tombstones left behind.
	for i := 0; i < len(keys); i += 2 {
		tbl.Delete(keys[i])
	}
	for i := 1; i < len(keys); i += 2 {
		got, ok := tbl.Get(keys[i])
		if !ok || got.AsNumber() != float64(i) {
			t.Fatalf("key %d lost after interleaved deletes: got %v, %v", i, got, ok)
		}
	}
}

func TestGrowRehashesAllLiveEntries(t *testing.T) {
	tbl := New()
	const n = 200
	keys := make([]*object.String, n)
	for i := 0; i < n; i++ {
		k := mkString(string(rune('A' + i%26)) + string(rune('a'+(i/26)%26)))
		keys[i] = k
		tbl.Set(k, value.Number(float64(i)))
	}
	for i, k := range keys {
		got, ok := tbl.Get(k)
		if !ok || got.AsNumber() != float64(i) {
			t.Fatalf("entry %d missing or wrong after growth: %v %v", i, got, ok)
		}
	}
}

func TestCountReflectsLiveEntriesOnly(t *testing.T) {
	tbl := New()
	a, b, c := mkString("a"), mkString("b"), mkString("c")
	tbl.Set(a, value.Number(1))
	tbl.Set(b, value.Number(2))
	tbl.Set(c, value.Number(3))
	tbl.Delete(b)

	if got, want := tbl.Count(), 2; got != want {
		t.Fatalf("Count() = %d, want %d (tombstones must not count as live)", got, want)
	}
}

func TestHashStringIsDeterministic(t *testing.T) {
	if HashString("abc") != HashString("abc") {
		t.Fatalf("HashString is not pure")
	}
	if HashString("abc") == HashString("abd") {
		t.Fatalf("HashString collided on trivially different input (suspicious, not impossible)")
	}
}
