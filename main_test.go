package main

import (
	"bytes"
	"strings"
	"testing"

	"YellowbellPOS/app/models"
	"YellowbellPOS/app/services"

	"github.com/shopspring/decimal"
)

func TestParseCartLines(t *testing.T) {
	lines, err := parseCartLines([]string{"1=2", " 8 = 3 "})
	if err != nil {
		t.Fatalf("parseCartLines: %v", err)
	}
	want := []services.CartLine{{ItemID: "1", Quantity: 2}, {ItemID: "8", Quantity: 3}}
	if len(lines) != len(want) {
		t.Fatalf("lines = %+v", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %+v, want %+v", i, lines[i], want[i])
		}
	}

	for _, bad := range []string{"1", "=2", "1=two"} {
		if _, err := parseCartLines([]string{bad}); err == nil {
			t.Errorf("parseCartLines(%q) succeeded", bad)
		}
	}
}

func TestParseQuantities(t *testing.T) {
	got, err := parseQuantities("2, 0,1")
	if err != nil {
		t.Fatalf("parseQuantities: %v", err)
	}
	if len(got) != 3 || got[0] != 2 || got[1] != 0 || got[2] != 1 {
		t.Errorf("quantities = %v", got)
	}
	if _, err := parseQuantities("2,,1"); err == nil {
		t.Error("empty quantity accepted")
	}
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	out := renderTable(&buf,
		[]string{"ID", "Name", "Stock"},
		[][]string{{"1", "Roast Chicken", "20"}, {"8"}},
		[]columnAlignment{alignLeft, alignLeft, alignRight},
	)

	for _, want := range []string{"ID", "NAME", "STOCK", "Roast Chicken", "20"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if renderTable(&buf, nil, nil, nil) != "" {
		t.Error("table without headers rendered output")
	}
}

func TestBuildStockRows(t *testing.T) {
	rows := buildStockRows([]models.InventoryItem{{
		ID:       "4",
		Name:     "Liempo 1/2kg",
		Category: models.CategoryLiempo,
		Stock:    3,
		Status:   models.StockStatusLowStock,
		Price:    decimal.NewFromInt(300),
	}})
	want := []string{"4", "Liempo 1/2kg", "liempo", "3", "low-stock", "300.00"}
	if strings.Join(rows[0], "|") != strings.Join(want, "|") {
		t.Errorf("row = %v, want %v", rows[0], want)
	}
}

func TestBuildBoardRowsLabelsFirstRowOnly(t *testing.T) {
	groups := []services.KitchenGroup{{
		KitchenItem: models.KitchenItem{Name: "Roast Chicken", TotalOrdered: 4, TotalCooked: 1, Status: models.KitchenStatusToCook},
		Rows: []services.KitchenRow{
			{CustomerName: "Ana", OrderNumber: "YB-1", Ordered: 2, Cooked: 1, Pending: 1},
			{CustomerName: "Ben", OrderNumber: "YB-2", Ordered: 2, Pending: 2},
		},
	}}
	rows := buildBoardRows(groups)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0][0] != "Roast Chicken (1/4)" || rows[1][0] != "" {
		t.Errorf("labels = %q, %q", rows[0][0], rows[1][0])
	}
	if rows[1][1] != "Ben" || rows[1][5] != "2" {
		t.Errorf("second row = %v", rows[1])
	}
}
