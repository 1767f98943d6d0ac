package services

import (
	"strings"
	"testing"
	"time"

	"YellowbellPOS/app/database"
	"YellowbellPOS/app/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestPlaceOrderForJuan(t *testing.T) {
	b, _ := newTestBackend(t, false)
	addTestItem(t, b, "1", "Roast Chicken", models.CategoryChicken, 10, 360)

	order := placeOrder(t, b, "Juan", CartLine{ItemID: "1", Quantity: 2})

	if got := stockOf(t, b, "1"); got != 8 {
		t.Errorf("stock = %d, want 8", got)
	}
	if order.Status != models.OrderStatusIncomplete {
		t.Errorf("status = %s, want incomplete", order.Status)
	}
	if len(order.OrderedItems) != 1 || order.OrderedItems[0].Name != "Roast Chicken" || order.OrderedItems[0].Quantity != 2 {
		t.Errorf("ordered items = %+v", order.OrderedItems)
	}
	if len(order.CookedItems) != 0 {
		t.Errorf("cooked items = %+v, want none", order.CookedItems)
	}

	items, err := b.Kitchen.GetKitchenItems()
	if err != nil {
		t.Fatalf("GetKitchenItems: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("kitchen items = %d, want 1", len(items))
	}
	got := items[0]
	if got.Name != "Roast Chicken" || got.TotalOrdered != 2 || got.TotalCooked != 0 || got.Pending != 2 {
		t.Errorf("kitchen item = {%s %d %d %d}, want {Roast Chicken 2 0 2}",
			got.Name, got.TotalOrdered, got.TotalCooked, got.Pending)
	}
	if got.Status != models.KitchenStatusToCook {
		t.Errorf("kitchen status = %s, want to-cook", got.Status)
	}
}

func TestPlaceOrderRecordsSale(t *testing.T) {
	b, sink := newTestBackend(t, true)

	order, err := b.Orders.PlaceOrder(PlaceOrderRequest{
		CustomerName:    "  Maria  ",
		Items:           []CartLine{{ItemID: "1", Quantity: 2}, {ItemID: "8", Quantity: 3}},
		DeliveryPhone:   "0917 555 0101",
		DeliveryAddress: "12 Mabini St",
		PaymentMethod:   "gcash",
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if order.CustomerName != "Maria" {
		t.Errorf("customer = %q, want trimmed name", order.CustomerName)
	}

	day := time.Now().Local().Format("20060102")
	if want := "YB-" + day + "-001"; order.OrderNumber != want {
		t.Errorf("order number = %s, want %s", order.OrderNumber, want)
	}
	second := placeOrder(t, b, "Paolo", CartLine{ItemID: "8", Quantity: 1})
	if want := "YB-" + day + "-002"; second.OrderNumber != want {
		t.Errorf("second order number = %s, want %s", second.OrderNumber, want)
	}

	sales, err := b.Orders.GetSalesOrders()
	if err != nil {
		t.Fatalf("GetSalesOrders: %v", err)
	}
	var sale *models.SalesOrder
	for i := range sales {
		if sales[i].ID == order.ID {
			sale = &sales[i]
		}
	}
	if sale == nil {
		t.Fatal("no sales order shares the customer order id")
	}
	if !sale.Total.Equal(decimal.NewFromInt(795)) {
		t.Errorf("total = %s, want 795", sale.Total)
	}
	if sale.Status != models.SalesStatusOpen || sale.PaymentStatus != models.PaymentStatusPaid {
		t.Errorf("sale status %s / %s, want open / paid", sale.Status, sale.PaymentStatus)
	}
	if sale.OrderNumber != order.OrderNumber || sale.PaymentMethod != "gcash" {
		t.Errorf("sale = %+v", sale)
	}

	if n := sink.count(models.EventOrderPlaced); n != 2 {
		t.Errorf("order_placed events = %d, want 2", n)
	}

	today, err := b.Orders.GetTodayOrders()
	if err != nil {
		t.Fatalf("GetTodayOrders: %v", err)
	}
	if len(today) != 2 {
		t.Errorf("today's orders = %d, want 2", len(today))
	}
}

func TestPlaceOrderConsumesContainersAndUtensils(t *testing.T) {
	b, _ := newTestBackend(t, true)

	placeOrder(t, b, "Lito",
		CartLine{ItemID: "1", Quantity: 1}, // chicken: utensils, no container
		CartLine{ItemID: "6", Quantity: 2}, // sisig sharing: small container, no utensils
		CartLine{ItemID: "9", Quantity: 2}, // chicken meal: paper box and utensils
		CartLine{ItemID: "8", Quantity: 4}, // rice: nothing extra
	)

	want := map[string]int{
		"1":                       19,
		"6":                       8,
		"9":                       23,
		"8":                       46,
		database.SmallContainerID: 98,
		database.PaperBoxID:       98,
		database.BigContainerID:   30,
		"utensil-spoon":           197,
		"utensil-fork":            197,
	}
	got := stockSnapshot(t, b)
	for id, qty := range want {
		if got[id] != qty {
			t.Errorf("stock %s = %d, want %d", id, got[id], qty)
		}
	}
}

func TestPlaceOrderIsAllOrNothing(t *testing.T) {
	b, sink := newTestBackend(t, true)
	before := stockSnapshot(t, b)

	// Item 7 has 5 in stock; the chicken line before it must not be taken either
	_, err := b.Orders.PlaceOrder(PlaceOrderRequest{
		CustomerName: "Nena",
		Items:        []CartLine{{ItemID: "1", Quantity: 2}, {ItemID: "7", Quantity: 6}},
	})
	wantErr(t, err, ErrInsufficientStock)

	assertStock(t, before, stockSnapshot(t, b))
	orders, err := b.Orders.GetCustomerOrders()
	if err != nil {
		t.Fatalf("GetCustomerOrders: %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("orders = %d, want 0", len(orders))
	}
	items, err := b.Kitchen.GetKitchenItems()
	if err != nil {
		t.Fatalf("GetKitchenItems: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("kitchen items = %d, want 0", len(items))
	}
	if len(sink.types()) != 0 {
		t.Errorf("failed order published %v", sink.types())
	}
}

func TestPlaceOrderSharedContainerShortage(t *testing.T) {
	b, _ := newTestBackend(t, true)
	if err := b.Inventory.AdjustStock(database.SmallContainerID, -97, "count"); err != nil {
		t.Fatalf("AdjustStock: %v", err)
	}
	before := stockSnapshot(t, b)

	_, err := b.Orders.PlaceOrder(PlaceOrderRequest{
		CustomerName: "Rey",
		Items:        []CartLine{{ItemID: "4", Quantity: 2}, {ItemID: "6", Quantity: 2}},
	})
	wantErr(t, err, ErrInsufficientStock)
	assertStock(t, before, stockSnapshot(t, b))
}

func TestPlaceOrderValidation(t *testing.T) {
	b, _ := newTestBackend(t, true)

	tests := []struct {
		name string
		req  PlaceOrderRequest
		want error
	}{
		{"empty cart", PlaceOrderRequest{CustomerName: "A"}, ErrInvalidQuantity},
		{"zero quantity", PlaceOrderRequest{CustomerName: "A", Items: []CartLine{{ItemID: "1", Quantity: 0}}}, ErrInvalidQuantity},
		{"unknown item", PlaceOrderRequest{CustomerName: "A", Items: []CartLine{{ItemID: "nope", Quantity: 1}}}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Orders.PlaceOrder(tt.req)
			wantErr(t, err, tt.want)
		})
	}

	if _, err := b.Orders.PlaceOrder(PlaceOrderRequest{CustomerName: "   ", Items: []CartLine{{ItemID: "1", Quantity: 1}}}); err == nil {
		t.Error("blank customer name accepted")
	}
}

func TestPlaceThenDeleteIsNetZero(t *testing.T) {
	b, sink := newTestBackend(t, true)
	before := stockSnapshot(t, b)

	order := placeOrder(t, b, "Lito",
		CartLine{ItemID: "1", Quantity: 2},
		CartLine{ItemID: "4", Quantity: 1},
		CartLine{ItemID: "6", Quantity: 2},
		CartLine{ItemID: "9", Quantity: 1},
		CartLine{ItemID: "8", Quantity: 3},
		CartLine{ItemID: "1", Quantity: 1},
	)
	if err := b.Orders.MarkItemAsCooked(kitchenItemNamed(t, b, "Roast Chicken").ID, 2); err != nil {
		t.Fatalf("MarkItemAsCooked: %v", err)
	}

	if err := b.Orders.DeleteOrder(order.ID); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}

	assertStock(t, before, stockSnapshot(t, b))

	items, err := b.Kitchen.GetKitchenItems()
	if err != nil {
		t.Fatalf("GetKitchenItems: %v", err)
	}
	for _, item := range items {
		if item.TotalOrdered != 0 || item.TotalCooked != 0 || item.Pending != 0 {
			t.Errorf("kitchen item %s = %d/%d/%d after delete, want zeros",
				item.Name, item.TotalOrdered, item.TotalCooked, item.Pending)
		}
	}

	_, err = b.Orders.GetCustomerOrder(order.ID)
	wantErr(t, err, ErrNotFound)
	sales, err := b.Orders.GetSalesOrders()
	if err != nil {
		t.Fatalf("GetSalesOrders: %v", err)
	}
	if len(sales) != 0 {
		t.Errorf("sales orders = %d after delete, want 0", len(sales))
	}

	var cookEvents int64
	if err := b.Store.View(func(db *gorm.DB) error {
		return db.Model(&models.CookEvent{}).Where("order_id = ?", order.ID).Count(&cookEvents).Error
	}); err != nil {
		t.Fatalf("count cook events: %v", err)
	}
	if cookEvents != 0 {
		t.Errorf("cook events left = %d, want 0", cookEvents)
	}

	if n := sink.count(models.EventOrderDeleted); n != 1 {
		t.Errorf("order_deleted events = %d, want 1", n)
	}
	wantErr(t, b.Orders.DeleteOrder(order.ID), ErrNotFound)
}

func TestDeleteOneOfTwoOrdersKeepsTheOther(t *testing.T) {
	b, _ := newTestBackend(t, true)

	first := placeOrder(t, b, "Ana", CartLine{ItemID: "1", Quantity: 2})
	placeOrder(t, b, "Ben", CartLine{ItemID: "1", Quantity: 3})

	if err := b.Orders.DeleteOrder(first.ID); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}

	item := kitchenItemNamed(t, b, "Roast Chicken")
	if item.TotalOrdered != 3 || item.TotalCooked != 0 || item.Pending != 3 {
		t.Errorf("kitchen item = %d/%d/%d, want 3/0/3", item.TotalOrdered, item.TotalCooked, item.Pending)
	}
	if got := stockOf(t, b, "1"); got != 17 {
		t.Errorf("stock = %d, want 17", got)
	}
}

func TestDeliveryTransitions(t *testing.T) {
	b, sink := newTestBackend(t, true)
	order := placeOrder(t, b, "Carmen", CartLine{ItemID: "1", Quantity: 1}, CartLine{ItemID: "8", Quantity: 1})

	wantErr(t, b.Orders.MarkOrderAsDelivered(order.ID), ErrInvalidTransition)
	wantErr(t, b.Orders.MarkOrderAsUndelivered(order.ID), ErrInvalidTransition)
	wantErr(t, b.Orders.MarkOrderAsDelivered("missing"), ErrNotFound)

	if err := b.Kitchen.MarkGroupCooked("Roast Chicken", 1); err != nil {
		t.Fatalf("cook chicken: %v", err)
	}
	if err := b.Kitchen.MarkGroupCooked("Plain Rice", 1); err != nil {
		t.Fatalf("cook rice: %v", err)
	}
	if got := mustOrder(t, b, order.ID).Status; got != models.OrderStatusComplete {
		t.Fatalf("status = %s, want complete", got)
	}

	if err := b.Orders.MarkOrderAsDelivered(order.ID); err != nil {
		t.Fatalf("MarkOrderAsDelivered: %v", err)
	}
	if got := mustOrder(t, b, order.ID).Status; got != models.OrderStatusDelivered {
		t.Errorf("status = %s, want delivered", got)
	}
	if got := salesStatus(t, b, order.ID); got != models.SalesStatusDelivered {
		t.Errorf("sales status = %s, want delivered", got)
	}
	if got := kitchenItemNamed(t, b, "Roast Chicken").Status; got != models.KitchenStatusServed {
		t.Errorf("kitchen status = %s, want served", got)
	}
	wantErr(t, b.Orders.MarkOrderAsDelivered(order.ID), ErrInvalidTransition)

	if err := b.Orders.MarkOrderAsUndelivered(order.ID); err != nil {
		t.Fatalf("MarkOrderAsUndelivered: %v", err)
	}
	if got := mustOrder(t, b, order.ID).Status; got != models.OrderStatusComplete {
		t.Errorf("status = %s, want complete", got)
	}
	if got := salesStatus(t, b, order.ID); got != models.SalesStatusOpen {
		t.Errorf("sales status = %s, want open", got)
	}
	if got := kitchenItemNamed(t, b, "Roast Chicken").Status; got != models.KitchenStatusCooked {
		t.Errorf("kitchen status = %s, want cooked", got)
	}

	if sink.count(models.EventOrderDelivered) != 1 || sink.count(models.EventOrderUndelivered) != 1 {
		t.Errorf("events = %v", sink.types())
	}
}

func TestDeliveredOrderIsNotReopenedByCooking(t *testing.T) {
	b, _ := newTestBackend(t, true)
	delivered := placeOrder(t, b, "Ana", CartLine{ItemID: "1", Quantity: 1})
	if err := b.Kitchen.MarkGroupCooked("Roast Chicken", 1); err != nil {
		t.Fatalf("cook: %v", err)
	}
	if err := b.Orders.MarkOrderAsDelivered(delivered.ID); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	open := placeOrder(t, b, "Ben", CartLine{ItemID: "1", Quantity: 1})
	if err := b.Kitchen.MarkGroupCooked("Roast Chicken", 1); err != nil {
		t.Fatalf("cook: %v", err)
	}
	if got := mustOrder(t, b, open.ID).Status; got != models.OrderStatusComplete {
		t.Errorf("open order status = %s, want complete", got)
	}
	if got := mustOrder(t, b, delivered.ID); got.Status != models.OrderStatusDelivered || got.CookedQuantity("Roast Chicken") != 1 {
		t.Errorf("delivered order = %s with %d cooked", got.Status, got.CookedQuantity("Roast Chicken"))
	}
}

func TestOrderNotifications(t *testing.T) {
	b, _ := newTestBackend(t, true)
	order := placeOrder(t, b, "Ana", CartLine{ItemID: "8", Quantity: 1})
	if err := b.Orders.DeleteOrder(order.ID); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}

	notifications, err := b.Notifications.GetNotifications(10, false)
	if err != nil {
		t.Fatalf("GetNotifications: %v", err)
	}
	var placed, deleted bool
	for _, n := range notifications {
		if n.Type != models.NotificationOrder {
			continue
		}
		placed = placed || strings.HasSuffix(n.Title, "placed")
		deleted = deleted || strings.HasSuffix(n.Title, "deleted")
	}
	if !placed || !deleted {
		t.Errorf("order notifications placed=%v deleted=%v", placed, deleted)
	}
}

func TestDeliverySlip(t *testing.T) {
	b, _ := newTestBackend(t, true)
	order, err := b.Orders.PlaceOrder(PlaceOrderRequest{
		CustomerName:    "Dolor",
		Items:           []CartLine{{ItemID: "1", Quantity: 1}},
		DeliveryPhone:   "0917 000 1111",
		DeliveryAddress: "7 Rizal Ave",
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	slip, err := b.Orders.DeliverySlip(order.ID, 128)
	if err != nil {
		t.Fatalf("DeliverySlip: %v", err)
	}
	if slip.OrderNumber != order.OrderNumber {
		t.Errorf("slip order = %s, want %s", slip.OrderNumber, order.OrderNumber)
	}
	for _, want := range []string{"Dolor", "0917 000 1111", "7 Rizal Ave", "Roast Chicken"} {
		if !strings.Contains(slip.Text, want) {
			t.Errorf("slip text missing %q:\n%s", want, slip.Text)
		}
	}
	if len(slip.QRCode) < 8 || string(slip.QRCode[1:4]) != "PNG" {
		t.Error("QR code is not a PNG")
	}

	_, err = b.Orders.DeliverySlip("missing", 128)
	wantErr(t, err, ErrNotFound)
}

func salesStatus(t *testing.T, b *Backend, id string) models.SalesStatus {
	t.Helper()
	var sale *models.SalesOrder
	err := b.Store.View(func(db *gorm.DB) error {
		var err error
		sale, err = salesOrderByID(db, id)
		return err
	})
	if err != nil {
		t.Fatalf("sales order %s: %v", id, err)
	}
	return sale.Status
}
