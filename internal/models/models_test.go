package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTransactionActionsCarryTag(t *testing.T) {
	url := "https://cdn.example/p.jpg"
	tests := []struct {
		action TransactionAction
		want   string
	}{
		{IncomingGoods{NoNota: "N-1"}, `"action":"process-incoming-goods"`},
		{UpdateStatus{Type: LedgerPayable, ID: "7", NewStatus: StatusLunas, BuktiURL: &url}, `"action":"update-status"`},
		{PurchaseOrder{Outlet: "X"}, `"action":"create_purchase_order"`},
		{UpdateFullTransaction{TransactionID: "3"}, `"action":"update-full-transaction"`},
		{ReceivableFromCart{DeliveryDate: "2025-01-02"}, `"action":"create_receivable_from_cart"`},
	}
	for _, tt := range tests {
		data, err := json.Marshal(tt.action)
		if err != nil {
			t.Fatalf("%s: marshal: %v", tt.action.Action(), err)
		}
		if !strings.Contains(string(data), tt.want) {
			t.Errorf("%s: %s missing %s", tt.action.Action(), data, tt.want)
		}
	}
}

func TestUpdateStatusBody(t *testing.T) {
	data, err := json.Marshal(UpdateStatus{Type: LedgerReceivable, ID: "12", NewStatus: StatusBelumLunas})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"action":"update-status","type":"piutang","id":12,"newStatus":"Belum Lunas","buktiUrl":null}`
	if string(data) != want {
		t.Errorf("got %s\nwant %s", data, want)
	}
}

func TestIDMarshal(t *testing.T) {
	tests := []struct {
		id   ID
		want string
	}{
		{"42", `42`},
		{"P-1", `"P-1"`},
		{"", `""`},
		{"1.5", `"1.5"`},
	}
	for _, tt := range tests {
		data, _ := json.Marshal(tt.id)
		if string(data) != tt.want {
			t.Errorf("ID(%q) = %s, want %s", tt.id, data, tt.want)
		}
	}
}

func TestDecimalsAreBareNumbers(t *testing.T) {
	data, _ := json.Marshal(CartItem{ID: "5", Qty: decimal.RequireFromString("2.5")})
	if string(data) != `{"id":5,"qty":2.5}` {
		t.Errorf("got %s", data)
	}
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{json.Number("1"), "1"},
		{float64(1), "1"},
		{1, "1"},
		{int64(99), "99"},
		{"abc", "abc"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := NormalizeID(tt.in); got != tt.want {
			t.Errorf("NormalizeID(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecodeSnapshot(t *testing.T) {
	body := `{"products":[{"id":1,"nama":"Beras","sisa_stok":10}],"vendors":[],"extra":[1]}`
	snap, err := DecodeSnapshot([]byte(body))
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("got %d collections, want 2", len(snap))
	}
	p := snap[Products][0]
	if id, _ := p.ID(); id != "1" {
		t.Errorf("id = %q", id)
	}
	if !p.Decimal("sisa_stok").Equal(decimal.NewFromInt(10)) {
		t.Errorf("sisa_stok = %v", p["sisa_stok"])
	}
	if names := snap.Names(); len(names) != 2 || names[0] != Products || names[1] != Vendors {
		t.Errorf("Names() = %v", names)
	}

	wrapped := `{"data":{"receivables":[{"id":"r1"}]}}`
	snap, err = DecodeSnapshot([]byte(wrapped))
	if err != nil {
		t.Fatalf("DecodeSnapshot envelope: %v", err)
	}
	if len(snap[Receivables]) != 1 {
		t.Errorf("envelope not unwrapped: %v", snap)
	}
}

func TestDedupeByID(t *testing.T) {
	records, err := DecodeRecords([]byte(`[
		{"id":1,"nama":"Beras lama"},
		{"id":2,"nama":"Gula"},
		{"id":"1","nama":"Beras baru"},
		{"nama":"tanpa id"}
	]`))
	if err != nil {
		t.Fatal(err)
	}
	got := DedupeByID(records)
	var names []string
	for _, r := range got {
		names = append(names, r.String("nama"))
	}
	if strings.Join(names, ",") != "Gula,Beras baru,tanpa id" {
		t.Errorf("names = %v", names)
	}

	unique := records[:2]
	if out := DedupeByID(unique); len(out) != 2 {
		t.Errorf("unique records changed: %v", out)
	}
}

func TestRecordClone(t *testing.T) {
	r := Record{"id": "1", "tags": []any{"a"}, "meta": map[string]any{"k": "v"}}
	c := r.Clone()
	c["tags"].([]any)[0] = "b"
	c["meta"].(map[string]any)["k"] = "w"
	if r["tags"].([]any)[0] != "a" || r["meta"].(map[string]any)["k"] != "v" {
		t.Error("Clone shares nested values with the original")
	}
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{"2025-01-31", "2025-01-31T10:00:00Z", "2025-01-31T10:00:00.123456", "2025-01-31 10:00:00+00"} {
		got, ok := ParseTime(s)
		if !ok {
			t.Errorf("ParseTime(%q) failed", s)
			continue
		}
		if got.Year() != 2025 || got.Month() != time.January {
			t.Errorf("ParseTime(%q) = %v", s, got)
		}
	}
	if _, ok := ParseTime("not a date"); ok {
		t.Error("garbage parsed")
	}
}

func TestParseAliases(t *testing.T) {
	if c, _ := ParseCollection("piutang"); c != Receivables {
		t.Errorf("piutang -> %s", c)
	}
	if c, _ := ParseCollection("inventaris"); c != Products {
		t.Errorf("inventaris -> %s", c)
	}
	if _, err := ParseCollection("orders"); err == nil {
		t.Error("unknown collection accepted")
	}
	if l, _ := ParseLedgerType("payables"); l != LedgerPayable {
		t.Errorf("payables -> %s", l)
	}
	if _, err := ParseLedgerType("vendors"); err == nil {
		t.Error("vendors accepted as ledger")
	}
	if !IsLunas("lunas") || IsLunas("") || IsLunas(StatusBelumLunas) {
		t.Error("IsLunas")
	}
}
