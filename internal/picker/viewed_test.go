package picker

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/vertotem/Mastodon-Random-Picker/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "tootpick.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestLoadViewed_EmptyWhenUnstored(t *testing.T) {
	st := openTestStore(t)
	v, err := LoadViewed(context.Background(), st, "42")
	if err != nil {
		t.Fatalf("LoadViewed: %v", err)
	}
	if v.Len() != 0 {
		t.Errorf("len = %d, want 0", v.Len())
	}
}

func TestLoadViewed_RequiresAccount(t *testing.T) {
	st := openTestStore(t)
	if _, err := LoadViewed(context.Background(), st, ""); err == nil {
		t.Fatal("expected error for empty account id")
	}
}

func TestViewedMarkPersistsImmediately(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	v, err := LoadViewed(ctx, st, "42")
	if err != nil {
		t.Fatalf("LoadViewed: %v", err)
	}
	if err := v.Mark(ctx, "101"); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if err := v.Mark(ctx, "103"); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	// A fresh load sees the mutation without any explicit save step.
	reloaded, err := LoadViewed(ctx, st, "42")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Len() != 2 || !reloaded.Has("101") || !reloaded.Has("103") {
		t.Errorf("reloaded = %v", reloaded.IDs())
	}
}

func TestViewedNamespacedPerAccount(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	a, _ := LoadViewed(ctx, st, "42")
	b, _ := LoadViewed(ctx, st, "43")
	if err := a.Mark(ctx, "101"); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	if b.Has("101") || b.Len() != 0 {
		t.Error("viewed sets must be isolated per account")
	}
	reloaded, _ := LoadViewed(ctx, st, "43")
	if reloaded.Len() != 0 {
		t.Error("other account's set leaked into storage")
	}
}

func TestViewedClear(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	v, _ := LoadViewed(ctx, st, "42")
	_ = v.MarkAll(ctx, []string{"1", "2", "3"})

	if err := v.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if v.Len() != 0 {
		t.Errorf("len after clear = %d", v.Len())
	}

	reloaded, _ := LoadViewed(ctx, st, "42")
	if reloaded.Len() != 0 {
		t.Error("clear did not reach storage")
	}

	keys, err := st.Keys(ctx, SeenKeyPrefix)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("store entry survived clear: %v", keys)
	}
}

func TestViewedIDsSorted(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	v, _ := LoadViewed(ctx, st, "42")
	_ = v.MarkAll(ctx, []string{"30", "1", "20"})

	ids := v.IDs()
	if len(ids) != 3 || ids[0] != "1" || ids[1] != "20" || ids[2] != "30" {
		t.Errorf("ids = %v, want sorted", ids)
	}
}
