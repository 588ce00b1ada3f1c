package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeDedupKey_Deterministic(t *testing.T) {
	qty := decimal.RequireFromString("3.5")
	a := ComputeDedupKey("XK-1", "SP100", qty, "K01", "O", "LOT_A")
	b := ComputeDedupKey("XK-1", "SP100", qty, "K01", "O", "LOT_A")
	if a != b {
		t.Fatalf("identical content must yield the identical key: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected a 64-char hex digest, got %d chars", len(a))
	}
	// Surrounding whitespace does not change identity.
	c := ComputeDedupKey(" XK-1 ", "SP100", qty, "K01", "O", " LOT_A ")
	if a != c {
		t.Fatalf("whitespace-trimmed content must keep the key stable")
	}
}

func TestComputeDedupKey_DistinguishesContent(t *testing.T) {
	qty := decimal.RequireFromString("3.5")
	base := ComputeDedupKey("XK-1", "SP100", qty, "K01", "O", "LOT_A")
	variants := []string{
		ComputeDedupKey("XK-2", "SP100", qty, "K01", "O", "LOT_A"),
		ComputeDedupKey("XK-1", "SP101", qty, "K01", "O", "LOT_A"),
		ComputeDedupKey("XK-1", "SP100", decimal.RequireFromString("3.6"), "K01", "O", "LOT_A"),
		ComputeDedupKey("XK-1", "SP100", qty, "K02", "O", "LOT_A"),
		ComputeDedupKey("XK-1", "SP100", qty, "K01", "I", "LOT_A"),
		ComputeDedupKey("XK-1", "SP100", qty, "K01", "O", "LOT_B"),
	}
	for i, v := range variants {
		if v == base {
			t.Fatalf("variant %d should produce a different key", i)
		}
	}
}

func TestDedupStockTransfers_FirstSightingWins(t *testing.T) {
	qty := decimal.RequireFromString("2")
	first := StockTransfer{ID: 1, DocCode: "XK-1", ItemCode: "SP100", Quantity: qty, StockCode: "K01", IoType: "O"}
	repeat := StockTransfer{ID: 7, DocCode: "XK-1", ItemCode: "SP100", Quantity: qty, StockCode: "K01", IoType: "O"}
	other := StockTransfer{ID: 3, DocCode: "XK-1", ItemCode: "SP200", Quantity: qty, StockCode: "K01", IoType: "O"}

	out := DedupStockTransfers([]StockTransfer{first, repeat, other})
	if len(out) != 2 {
		t.Fatalf("expected 2 distinct rows, got %d", len(out))
	}
	if out[0].ID != 1 {
		t.Fatalf("first sighting must win, got row ID %d", out[0].ID)
	}
	if out[1].ID != 3 {
		t.Fatalf("distinct row must survive, got row ID %d", out[1].ID)
	}
}

func TestDedupStockTransfers_UsesStoredKeyWhenPresent(t *testing.T) {
	qty := decimal.RequireFromString("2")
	a := StockTransfer{ID: 1, DocCode: "XK-1", ItemCode: "SP100", Quantity: qty, DedupKey: "precomputed"}
	b := StockTransfer{ID: 2, DocCode: "XK-1", ItemCode: "SP999", Quantity: qty, DedupKey: "precomputed"}
	out := DedupStockTransfers([]StockTransfer{a, b})
	if len(out) != 1 || out[0].ID != 1 {
		t.Fatalf("rows sharing a stored key must collapse to the first, got %+v", out)
	}
}
