package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/artpar/reshape/adapters/memory"
	"github.com/artpar/reshape/domain/bridge"
	"github.com/artpar/reshape/ports"
)

var _ ports.BridgeStore = (*memory.BridgeStore)(nil)

func TestBridgeStore_CRUD(t *testing.T) {
	store := memory.NewBridgeStore()
	ctx := context.Background()

	b := bridge.Bridge{
		ID:          "br-1",
		Name:        "users-v2",
		PathPattern: "/api/users",
		Version:     "2.0.0",
		Enabled:     true,
	}
	if err := store.Create(ctx, b); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.Get(ctx, "br-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "users-v2" || got.CreatedAt.IsZero() {
		t.Errorf("got %+v", got)
	}

	dup := b
	dup.ID = "br-2"
	if err := store.Create(ctx, dup); !errors.Is(err, memory.ErrDuplicate) {
		t.Errorf("duplicate name err = %v", err)
	}

	b.Priority = 3
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := store.Delete(ctx, "br-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "br-1"); !errors.Is(err, memory.ErrNotFound) {
		t.Errorf("get after delete err = %v", err)
	}
}

func TestBridgeStore_ListOrdering(t *testing.T) {
	store := memory.NewBridgeStore()
	ctx := context.Background()

	for _, b := range []bridge.Bridge{
		{ID: "a", Name: "v3", Version: "3.0.0", Enabled: true},
		{ID: "b", Name: "v2-low", Version: "2.0.0", Priority: 1, Enabled: true},
		{ID: "c", Name: "v2-high", Version: "2.0.0", Priority: 9, Enabled: true},
		{ID: "d", Name: "off", Version: "1.0.0", Enabled: false},
	} {
		if err := store.Create(ctx, b); err != nil {
			t.Fatalf("create %s: %v", b.ID, err)
		}
	}

	enabled, err := store.ListEnabled(ctx)
	if err != nil {
		t.Fatalf("list enabled: %v", err)
	}
	want := []string{"c", "b", "a"}
	if len(enabled) != len(want) {
		t.Fatalf("enabled = %d, want %d", len(enabled), len(want))
	}
	for i, id := range want {
		if enabled[i].ID != id {
			t.Errorf("enabled[%d] = %s, want %s", i, enabled[i].ID, id)
		}
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 4 || all[0].ID != "d" {
		t.Errorf("all order = %v", ids(all))
	}
}

func ids(bs []bridge.Bridge) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.ID
	}
	return out
}
