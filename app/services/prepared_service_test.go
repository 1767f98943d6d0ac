package services

import (
	"strings"
	"testing"

	"YellowbellPOS/app/database"
	"YellowbellPOS/app/models"

	"github.com/shopspring/decimal"
)

func confirmLunch(t *testing.T, b *Backend) *models.PreparedOrder {
	t.Helper()
	batch, err := b.Prepared.ConfirmPrepared([]CartLine{{ItemID: "1", Quantity: 3}, {ItemID: "9", Quantity: 2}}, "lunch")
	if err != nil {
		t.Fatalf("ConfirmPrepared: %v", err)
	}
	return batch
}

func TestConfirmPreparedTakesStock(t *testing.T) {
	b, sink := newTestBackend(t, true)

	batch := confirmLunch(t, b)

	if !strings.HasPrefix(batch.OrderNumber, "PR-") || !strings.HasSuffix(batch.OrderNumber, "-001") {
		t.Errorf("batch number = %s", batch.OrderNumber)
	}
	if batch.Status != models.PreparedStatusPrepared || batch.RemainingUnits() != 5 {
		t.Errorf("batch = %s with %d remaining", batch.Status, batch.RemainingUnits())
	}
	if !batch.Total.Equal(decimal.NewFromInt(3*360 + 2*150)) {
		t.Errorf("total = %s", batch.Total)
	}

	want := map[string]int{
		"1":                 17,
		"9":                 23,
		database.PaperBoxID: 98,
		"utensil-spoon":     195,
		"utensil-fork":      195,
	}
	got := stockSnapshot(t, b)
	for id, qty := range want {
		if got[id] != qty {
			t.Errorf("stock %s = %d, want %d", id, got[id], qty)
		}
	}

	// Prepared stock never reaches the kitchen rollups
	items, err := b.Kitchen.GetKitchenItems()
	if err != nil {
		t.Fatalf("GetKitchenItems: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("kitchen items = %d, want 0", len(items))
	}
	if n := sink.count(models.EventPreparedConfirmed); n != 1 {
		t.Errorf("prepared_confirmed events = %d, want 1", n)
	}
}

func TestConfirmPreparedMergesOpenBatch(t *testing.T) {
	b, _ := newTestBackend(t, true)
	first := confirmLunch(t, b)

	merged, err := b.Prepared.ConfirmPrepared([]CartLine{{ItemID: "1", Quantity: 2}, {ItemID: "8", Quantity: 4}}, "lunch")
	if err != nil {
		t.Fatalf("ConfirmPrepared: %v", err)
	}
	if merged.ID != first.ID || merged.OrderNumber != first.OrderNumber {
		t.Fatalf("merge created %s, want %s", merged.OrderNumber, first.OrderNumber)
	}
	if len(merged.Items) != 3 {
		t.Fatalf("lines = %d, want 3", len(merged.Items))
	}
	chicken := merged.Items[0]
	if chicken.ItemID != "1" || chicken.Quantity != 5 || chicken.RemainingQuantity != 5 {
		t.Errorf("chicken line = %+v, want 5/5", chicken)
	}

	dinner, err := b.Prepared.ConfirmPrepared([]CartLine{{ItemID: "1", Quantity: 1}}, "dinner")
	if err != nil {
		t.Fatalf("ConfirmPrepared: %v", err)
	}
	if dinner.ID == first.ID || !strings.HasSuffix(dinner.OrderNumber, "-002") {
		t.Errorf("dinner batch = %s, want a new batch", dinner.OrderNumber)
	}

	batches, err := b.Prepared.GetPreparedOrders()
	if err != nil {
		t.Fatalf("GetPreparedOrders: %v", err)
	}
	if len(batches) != 2 {
		t.Errorf("batches = %d, want 2", len(batches))
	}
	if got := stockOf(t, b, "1"); got != 14 {
		t.Errorf("chicken stock = %d, want 14", got)
	}
}

func TestConfirmPreparedIsAllOrNothing(t *testing.T) {
	b, _ := newTestBackend(t, true)
	before := stockSnapshot(t, b)

	_, err := b.Prepared.ConfirmPrepared([]CartLine{{ItemID: "1", Quantity: 2}, {ItemID: "7", Quantity: 9}}, "")
	wantErr(t, err, ErrInsufficientStock)
	assertStock(t, before, stockSnapshot(t, b))

	batches, err := b.Prepared.GetPreparedOrders()
	if err != nil {
		t.Fatalf("GetPreparedOrders: %v", err)
	}
	if len(batches) != 0 {
		t.Errorf("batches = %d, want 0", len(batches))
	}
}

func TestConvertPreparedConservesUnits(t *testing.T) {
	b, sink := newTestBackend(t, true)
	batch := confirmLunch(t, b)
	stockBefore := stockSnapshot(t, b)

	sale, err := b.Prepared.ConvertToOrder(batch.ID, []int{2, 0}, "")
	if err != nil {
		t.Fatalf("ConvertToOrder: %v", err)
	}
	if sale.CustomerName != WalkInCustomer || !sale.IsPreparedOrder || sale.PreparedOrderID != batch.ID {
		t.Errorf("sale = %+v", sale)
	}
	if sale.Status != models.SalesStatusCompleted || !sale.Total.Equal(decimal.NewFromInt(720)) {
		t.Errorf("sale status %s total %s", sale.Status, sale.Total)
	}
	if len(sale.Items) != 1 || sale.Items[0].Quantity != 2 {
		t.Errorf("sale lines = %+v", sale.Items)
	}

	second, err := b.Prepared.ConvertToOrder(batch.ID, []int{1, 1}, "Tess")
	if err != nil {
		t.Fatalf("ConvertToOrder: %v", err)
	}
	if second.CustomerName != "Tess" || second.OrderNumber == sale.OrderNumber {
		t.Errorf("second sale = %s for %s", second.OrderNumber, second.CustomerName)
	}

	// Conversion only moves prepared units, never the ledger
	assertStock(t, stockBefore, stockSnapshot(t, b))

	current, err := b.Prepared.GetPreparedOrder(batch.ID)
	if err != nil {
		t.Fatalf("GetPreparedOrder: %v", err)
	}
	sold := map[string]int{}
	for _, s := range []*models.SalesOrder{sale, second} {
		for _, line := range s.Items {
			sold[line.ItemID] += line.Quantity
		}
	}
	for _, line := range current.Items {
		if line.RemainingQuantity < 0 || line.RemainingQuantity+sold[line.ItemID] != line.Quantity {
			t.Errorf("%s: remaining %d + sold %d != prepared %d",
				line.Name, line.RemainingQuantity, sold[line.ItemID], line.Quantity)
		}
	}
	if current.Status != models.PreparedStatusPrepared {
		t.Errorf("status = %s, want prepared", current.Status)
	}

	if _, err := b.Prepared.ConvertToOrder(batch.ID, []int{0, 1}, "Tess"); err != nil {
		t.Fatalf("ConvertToOrder: %v", err)
	}
	current, err = b.Prepared.GetPreparedOrder(batch.ID)
	if err != nil {
		t.Fatalf("GetPreparedOrder: %v", err)
	}
	if current.Status != models.PreparedStatusConverted || current.RemainingUnits() != 0 {
		t.Errorf("batch = %s with %d remaining, want converted", current.Status, current.RemainingUnits())
	}
	if n := sink.count(models.EventPreparedConverted); n != 3 {
		t.Errorf("prepared_converted events = %d, want 3", n)
	}

	orders, err := b.Orders.GetCustomerOrders()
	if err != nil {
		t.Fatalf("GetCustomerOrders: %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("customer orders = %d, prepared sales skip the kitchen", len(orders))
	}
}

func TestConvertPreparedRejectsBadQuantities(t *testing.T) {
	b, _ := newTestBackend(t, true)
	batch := confirmLunch(t, b)

	tests := []struct {
		name string
		qty  []int
		want error
	}{
		{"over remaining", []int{2, 3}, ErrExceedsRemaining},
		{"negative", []int{-1, 1}, ErrInvalidQuantity},
		{"all zero", []int{0, 0}, ErrInvalidQuantity},
		{"too few", []int{1}, ErrInvalidQuantity},
		{"too many", []int{1, 1, 1}, ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Prepared.ConvertToOrder(batch.ID, tt.qty, "Tess")
			wantErr(t, err, tt.want)
		})
	}

	_, err := b.Prepared.ConvertToOrder("missing", []int{1}, "Tess")
	wantErr(t, err, ErrNotFound)

	current, err := b.Prepared.GetPreparedOrder(batch.ID)
	if err != nil {
		t.Fatalf("GetPreparedOrder: %v", err)
	}
	if current.Items[0].RemainingQuantity != 3 || current.Items[1].RemainingQuantity != 2 {
		t.Errorf("remaining = %d/%d after rejected conversions, want 3/2",
			current.Items[0].RemainingQuantity, current.Items[1].RemainingQuantity)
	}
	sales, err := b.Orders.GetSalesOrders()
	if err != nil {
		t.Fatalf("GetSalesOrders: %v", err)
	}
	if len(sales) != 0 {
		t.Errorf("sales = %d, want 0", len(sales))
	}
}

func TestDeletePreparedSaleReturnsUnitsToBatch(t *testing.T) {
	b, _ := newTestBackend(t, true)
	batch := confirmLunch(t, b)
	stockBefore := stockSnapshot(t, b)

	sale, err := b.Prepared.ConvertToOrder(batch.ID, []int{3, 2}, "Tess")
	if err != nil {
		t.Fatalf("ConvertToOrder: %v", err)
	}
	converted, err := b.Prepared.GetPreparedOrder(batch.ID)
	if err != nil {
		t.Fatalf("GetPreparedOrder: %v", err)
	}
	if converted.Status != models.PreparedStatusConverted {
		t.Fatalf("status = %s, want converted", converted.Status)
	}

	if err := b.Orders.DeleteOrder(sale.ID); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}

	restored, err := b.Prepared.GetPreparedOrder(batch.ID)
	if err != nil {
		t.Fatalf("GetPreparedOrder: %v", err)
	}
	if restored.Status != models.PreparedStatusPrepared || restored.RemainingUnits() != 5 {
		t.Errorf("batch = %s with %d remaining, want prepared with 5", restored.Status, restored.RemainingUnits())
	}
	// The units are back on the shelf, not in the ledger
	assertStock(t, stockBefore, stockSnapshot(t, b))
}

func TestDeletePreparedRestoresRemainingUnits(t *testing.T) {
	b, sink := newTestBackend(t, true)
	batch := confirmLunch(t, b)

	if _, err := b.Prepared.ConvertToOrder(batch.ID, []int{1, 1}, "Tess"); err != nil {
		t.Fatalf("ConvertToOrder: %v", err)
	}
	if err := b.Prepared.DeletePrepared(batch.ID); err != nil {
		t.Fatalf("DeletePrepared: %v", err)
	}

	want := map[string]int{
		"1":                 19,
		"9":                 24,
		database.PaperBoxID: 99,
		"utensil-spoon":     198,
		"utensil-fork":      198,
	}
	got := stockSnapshot(t, b)
	for id, qty := range want {
		if got[id] != qty {
			t.Errorf("stock %s = %d, want %d", id, got[id], qty)
		}
	}

	_, err := b.Prepared.GetPreparedOrder(batch.ID)
	wantErr(t, err, ErrNotFound)
	wantErr(t, b.Prepared.DeletePrepared(batch.ID), ErrNotFound)
	if n := sink.count(models.EventPreparedDeleted); n != 1 {
		t.Errorf("prepared_deleted events = %d, want 1", n)
	}
}

func TestDeleteFullyConvertedBatchRestoresNothing(t *testing.T) {
	b, _ := newTestBackend(t, true)
	batch := confirmLunch(t, b)
	if _, err := b.Prepared.ConvertToOrder(batch.ID, []int{3, 2}, ""); err != nil {
		t.Fatalf("ConvertToOrder: %v", err)
	}
	before := stockSnapshot(t, b)

	if err := b.Prepared.DeletePrepared(batch.ID); err != nil {
		t.Fatalf("DeletePrepared: %v", err)
	}
	assertStock(t, before, stockSnapshot(t, b))
}

func TestDeletePreparedReturnsPackagingTakenAtConfirm(t *testing.T) {
	b, _ := newTestBackend(t, true)
	before := stockSnapshot(t, b)

	batch, err := b.Prepared.ConfirmPrepared([]CartLine{{ItemID: "1", Quantity: 3}}, "lunch")
	if err != nil {
		t.Fatalf("ConfirmPrepared: %v", err)
	}

	// The catalog changes while the batch waits on the shelf
	addTestItem(t, b, "utensil-knife", "Knife", models.CategoryUtensil, 50, 0)
	if err := b.Inventory.SetPackagingRule(&models.PackagingRule{ItemID: "1", ContainerID: database.BigContainerID}); err != nil {
		t.Fatalf("SetPackagingRule: %v", err)
	}

	if err := b.Prepared.DeletePrepared(batch.ID); err != nil {
		t.Fatalf("DeletePrepared: %v", err)
	}

	got := stockSnapshot(t, b)
	if got["utensil-knife"] != 50 {
		t.Errorf("stock utensil-knife = %d, want 50", got["utensil-knife"])
	}
	delete(got, "utensil-knife")
	assertStock(t, before, got)
}

func TestConfirmPreparedKeepsDifferentPackagingApart(t *testing.T) {
	b, _ := newTestBackend(t, true)
	before := stockSnapshot(t, b)

	if _, err := b.Prepared.ConfirmPrepared([]CartLine{{ItemID: "1", Quantity: 3}}, "lunch"); err != nil {
		t.Fatalf("ConfirmPrepared: %v", err)
	}
	if err := b.Inventory.SetPackagingRule(&models.PackagingRule{ItemID: "1", ContainerID: database.BigContainerID}); err != nil {
		t.Fatalf("SetPackagingRule: %v", err)
	}
	batch, err := b.Prepared.ConfirmPrepared([]CartLine{{ItemID: "1", Quantity: 2}}, "lunch")
	if err != nil {
		t.Fatalf("ConfirmPrepared: %v", err)
	}

	if len(batch.Items) != 2 {
		t.Fatalf("lines = %d, want 2", len(batch.Items))
	}
	if batch.Items[0].Quantity != 3 || batch.Items[1].Quantity != 2 {
		t.Errorf("quantities = %d and %d, want 3 and 2", batch.Items[0].Quantity, batch.Items[1].Quantity)
	}
	if got := stockOf(t, b, database.BigContainerID); got != 28 {
		t.Errorf("big containers = %d, want 28", got)
	}

	if err := b.Prepared.DeletePrepared(batch.ID); err != nil {
		t.Fatalf("DeletePrepared: %v", err)
	}
	assertStock(t, before, stockSnapshot(t, b))
}

func TestDeletingSaleOfDeletedBatchRestoresStock(t *testing.T) {
	b, _ := newTestBackend(t, true)
	before := stockSnapshot(t, b)

	batch, err := b.Prepared.ConfirmPrepared([]CartLine{{ItemID: "1", Quantity: 3}}, "lunch")
	if err != nil {
		t.Fatalf("ConfirmPrepared: %v", err)
	}
	sale, err := b.Prepared.ConvertToOrder(batch.ID, []int{2}, "")
	if err != nil {
		t.Fatalf("ConvertToOrder: %v", err)
	}
	if err := b.Prepared.DeletePrepared(batch.ID); err != nil {
		t.Fatalf("DeletePrepared: %v", err)
	}
	if got := stockOf(t, b, "1"); got != 18 {
		t.Fatalf("stock after batch delete = %d, want 18", got)
	}

	if err := b.Orders.DeleteOrder(sale.ID); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}
	assertStock(t, before, stockSnapshot(t, b))
}
