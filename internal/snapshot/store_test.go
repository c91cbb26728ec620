package snapshot_test

import (
	"context"
	"errors"
	"testing"

	"github.com/andresucko/vistalista/internal/list"
	"github.com/andresucko/vistalista/internal/repository"
	"github.com/andresucko/vistalista/internal/snapshot"
	"github.com/andresucko/vistalista/internal/testutil"
)

func setup(t *testing.T) (*snapshot.Store, *testutil.SavedListStore, *list.Manager, *testutil.ItemStore) {
	t.Helper()
	listStore := testutil.NewSavedListStore()
	itemStore := testutil.NewItemStore()
	store := snapshot.NewStore(listStore, testutil.NewTestLogger())
	m := list.NewManager(itemStore, testutil.NewTestLogger())
	m.LoadItems(context.Background(), "user-1")
	return store, listStore, m, itemStore
}

func TestStore_SaveSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("blank name is a no-op", func(t *testing.T) {
		t.Parallel()
		store, listStore, m, _ := setup(t)

		for _, name := range []string{"", "   "} {
			saved, err := store.SaveSnapshot(ctx, name, m.Entries(), "user-1")
			if err != nil {
				t.Fatalf("SaveSnapshot(%q) error = %v", name, err)
			}
			if saved != nil {
				t.Errorf("SaveSnapshot(%q) = %v, want nil", name, saved)
			}
		}

		lists, err := listStore.GetByUser(ctx, "user-1")
		if err != nil {
			t.Fatalf("GetByUser() error = %v", err)
		}
		if len(lists) != 0 {
			t.Errorf("got %d saved lists, want 0", len(lists))
		}
	})

	t.Run("saved items are a deep copy of the list at save time", func(t *testing.T) {
		t.Parallel()
		store, listStore, m, _ := setup(t)
		if err := m.AddItems(ctx, "milk, eggs"); err != nil {
			t.Fatalf("AddItems() error = %v", err)
		}
		milk := m.Entries()[0].ID
		if err := m.UpdatePrice(ctx, milk, "1.25"); err != nil {
			t.Fatalf("UpdatePrice() error = %v", err)
		}
		if err := m.ToggleCompleted(ctx, milk); err != nil {
			t.Fatalf("ToggleCompleted() error = %v", err)
		}

		saved, err := store.SaveSnapshot(ctx, "groceries", m.Entries(), "user-1")
		if err != nil {
			t.Fatalf("SaveSnapshot() error = %v", err)
		}

		// Mutate the active list after saving; the snapshot must not move.
		if err := m.UpdatePrice(ctx, milk, "99"); err != nil {
			t.Fatalf("UpdatePrice() error = %v", err)
		}
		if err := m.ResetAll(ctx); err != nil {
			t.Fatalf("ResetAll() error = %v", err)
		}

		items, err := listStore.GetItems(ctx, saved.ID)
		if err != nil {
			t.Fatalf("GetItems() error = %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("got %d snapshot items, want 2", len(items))
		}
		if items[0].Name != "milk" || items[0].Price != 1.25 || !items[0].Completed {
			t.Errorf("milk snapshot = %+v, want price 1.25 completed", items[0])
		}
		if items[1].Name != "eggs" || items[1].Price != 0 || items[1].Completed {
			t.Errorf("eggs snapshot = %+v, want price 0 pending", items[1])
		}
	})

	t.Run("item copy failure after the record is a reported error", func(t *testing.T) {
		t.Parallel()
		store, listStore, m, _ := setup(t)
		if err := m.AddItems(ctx, "milk"); err != nil {
			t.Fatalf("AddItems() error = %v", err)
		}

		listStore.CreateItemsErr = errors.New("insert rejected")
		if _, err := store.SaveSnapshot(ctx, "groceries", m.Entries(), "user-1"); err == nil {
			t.Fatal("SaveSnapshot() expected error, got nil")
		}

		// The orphaned empty list record is accepted fallout, not hidden.
		lists, err := listStore.GetByUser(ctx, "user-1")
		if err != nil {
			t.Fatalf("GetByUser() error = %v", err)
		}
		if len(lists) != 1 {
			t.Errorf("got %d saved lists, want the orphaned 1", len(lists))
		}
	})
}

func TestStore_ListSnapshots(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the user's lists newest first", func(t *testing.T) {
		t.Parallel()
		store, _, m, _ := setup(t)

		for _, name := range []string{"first", "second", "third"} {
			if _, err := store.SaveSnapshot(ctx, name, m.Entries(), "user-1"); err != nil {
				t.Fatalf("SaveSnapshot(%q) error = %v", name, err)
			}
		}

		lists, err := store.ListSnapshots(ctx, "user-1")
		if err != nil {
			t.Fatalf("ListSnapshots() error = %v", err)
		}
		if len(lists) != 3 {
			t.Fatalf("got %d lists, want 3", len(lists))
		}
		if lists[0].Name != "third" || lists[2].Name != "first" {
			t.Errorf("order = [%s %s %s], want newest first", lists[0].Name, lists[1].Name, lists[2].Name)
		}
	})
}

func TestStore_LoadSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("adds fresh items with reset prices and preserved flags", func(t *testing.T) {
		t.Parallel()
		store, _, m, _ := setup(t)
		if err := m.AddItems(ctx, "milk, eggs"); err != nil {
			t.Fatalf("AddItems() error = %v", err)
		}
		milk := m.Entries()[0]
		if err := m.UpdatePrice(ctx, milk.ID, "1.25"); err != nil {
			t.Fatalf("UpdatePrice() error = %v", err)
		}
		if err := m.ToggleCompleted(ctx, milk.ID); err != nil {
			t.Fatalf("ToggleCompleted() error = %v", err)
		}

		saved, err := store.SaveSnapshot(ctx, "groceries", m.Entries(), "user-1")
		if err != nil {
			t.Fatalf("SaveSnapshot() error = %v", err)
		}

		if err := store.LoadSnapshot(ctx, saved.ID, "user-1", m); err != nil {
			t.Fatalf("LoadSnapshot() error = %v", err)
		}

		// The load adds to the active list, it does not replace it.
		entries := m.Entries()
		if len(entries) != 4 {
			t.Fatalf("got %d entries, want 4", len(entries))
		}
		loadedMilk := entries[2]
		if loadedMilk.Name != "milk" || !loadedMilk.Completed {
			t.Errorf("loaded milk = %+v, want completed", loadedMilk)
		}
		if loadedMilk.Price != "0" {
			t.Errorf("loaded milk price = %q, want reset to %q", loadedMilk.Price, "0")
		}
		if loadedMilk.ID == milk.ID {
			t.Error("loaded item aliases the original instead of being a new item")
		}
	})

	t.Run("unknown snapshot id reports not found", func(t *testing.T) {
		t.Parallel()
		store, _, m, _ := setup(t)

		err := store.LoadSnapshot(ctx, "list-404", "user-1", m)
		if !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("LoadSnapshot() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("insert failure leaves the active list unchanged", func(t *testing.T) {
		t.Parallel()
		store, _, m, itemStore := setup(t)
		if err := m.AddItems(ctx, "milk"); err != nil {
			t.Fatalf("AddItems() error = %v", err)
		}
		saved, err := store.SaveSnapshot(ctx, "groceries", m.Entries(), "user-1")
		if err != nil {
			t.Fatalf("SaveSnapshot() error = %v", err)
		}

		itemStore.CreateErr = errors.New("insert rejected")
		if err := store.LoadSnapshot(ctx, saved.ID, "user-1", m); err == nil {
			t.Fatal("LoadSnapshot() expected error, got nil")
		}
		if got := len(m.Entries()); got != 1 {
			t.Errorf("got %d entries, want 1", got)
		}
	})
}
