package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"YellowbellPOS/app/database"
	"YellowbellPOS/app/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// recordingSink keeps every event it receives
type recordingSink struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recordingSink) Publish(_ context.Context, evt models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingSink) types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EventType, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.Type)
	}
	return out
}

func (r *recordingSink) count(kind models.EventType) int {
	n := 0
	for _, t := range r.types() {
		if t == kind {
			n++
		}
	}
	return n
}

func (r *recordingSink) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// stepClock advances one second on every read so cook events have a stable order
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(time.Second)
	return t
}

func openTestStore(t *testing.T) *database.Store {
	t.Helper()
	store, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// newTestBackend returns a backend over a fresh store, optionally seeded with the default catalog
func newTestBackend(t *testing.T, seeded bool) (*Backend, *recordingSink) {
	t.Helper()
	store := openTestStore(t)
	if seeded {
		if err := store.SeedCatalog(); err != nil {
			t.Fatalf("seed catalog: %v", err)
		}
	}
	sink := &recordingSink{}
	backend := NewBackend(store, sink)
	clock := &stepClock{now: time.Now().UTC()}
	backend.SetClock(clock.Now)
	return backend, sink
}

func stockOf(t *testing.T, b *Backend, itemID string) int {
	t.Helper()
	item, err := b.Inventory.GetItem(itemID)
	if err != nil {
		t.Fatalf("get item %s: %v", itemID, err)
	}
	return item.Stock
}

// stockSnapshot returns every item's stock keyed by id
func stockSnapshot(t *testing.T, b *Backend) map[string]int {
	t.Helper()
	items, err := b.Inventory.GetItems()
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	out := make(map[string]int, len(items))
	for _, item := range items {
		out[item.ID] = item.Stock
	}
	return out
}

func assertStock(t *testing.T, want, got map[string]int) {
	t.Helper()
	for id, qty := range want {
		if got[id] != qty {
			t.Errorf("stock %s = %d, want %d", id, got[id], qty)
		}
	}
	if len(want) != len(got) {
		t.Errorf("item count = %d, want %d", len(got), len(want))
	}
}

// assertNoNegativeStock checks the ledger never goes below zero
func assertNoNegativeStock(t *testing.T, b *Backend) {
	t.Helper()
	for id, qty := range stockSnapshot(t, b) {
		if qty < 0 {
			t.Errorf("stock %s is negative: %d", id, qty)
		}
	}
}

func kitchenItemNamed(t *testing.T, b *Backend, name string) *models.KitchenItem {
	t.Helper()
	var item *models.KitchenItem
	err := b.Store.View(func(db *gorm.DB) error {
		var err error
		item, err = kitchenItemByName(db, name)
		return err
	})
	if err != nil {
		t.Fatalf("kitchen item %s: %v", name, err)
	}
	return item
}

func placeOrder(t *testing.T, b *Backend, customer string, lines ...CartLine) *models.CustomerOrder {
	t.Helper()
	order, err := b.Orders.PlaceOrder(PlaceOrderRequest{CustomerName: customer, Items: lines})
	if err != nil {
		t.Fatalf("place order for %s: %v", customer, err)
	}
	return order
}

func mustOrder(t *testing.T, b *Backend, id string) *models.CustomerOrder {
	t.Helper()
	order, err := b.Orders.GetCustomerOrder(id)
	if err != nil {
		t.Fatalf("get order %s: %v", id, err)
	}
	return order
}

func addTestItem(t *testing.T, b *Backend, id, name string, category models.Category, stock int, price int64) {
	t.Helper()
	item := &models.InventoryItem{
		ID:       id,
		Name:     name,
		Category: category,
		Stock:    stock,
		Price:    decimal.NewFromInt(price),
	}
	if err := b.Inventory.AddItem(item); err != nil {
		t.Fatalf("add item %s: %v", id, err)
	}
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}
