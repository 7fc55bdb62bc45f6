package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The remote functions expect bare JSON numbers for quantities and prices.
	decimal.MarshalJSONWithoutQuotes = true
}

// CollectionName names a server collection mirrored locally
type CollectionName string

const (
	Products    CollectionName = "products"
	Receivables CollectionName = "receivables"
	Payables    CollectionName = "payables"
	Vendors     CollectionName = "vendors"
)

// Collections is the fixed set of mirrored collections, in display order.
var Collections = []CollectionName{Products, Receivables, Payables, Vendors}

// Valid reports whether c is one of the mirrored collections
func (c CollectionName) Valid() bool {
	for _, k := range Collections {
		if c == k {
			return true
		}
	}
	return false
}

// ParseCollection accepts a collection name or one of the panel's
// Indonesian aliases (inventaris, piutang, hutang, vendor).
func ParseCollection(s string) (CollectionName, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "products", "product", "inventaris", "produk":
		return Products, nil
	case "receivables", "receivable", "piutang":
		return Receivables, nil
	case "payables", "payable", "hutang":
		return Payables, nil
	case "vendors", "vendor":
		return Vendors, nil
	}
	return "", fmt.Errorf("unknown collection %q", s)
}

// LedgerType is the transaction type the remote functions use for
// receivables ("piutang") and payables ("hutang").
type LedgerType string

const (
	LedgerReceivable LedgerType = "piutang"
	LedgerPayable    LedgerType = "hutang"
)

// Collection returns the mirrored collection holding this ledger
func (t LedgerType) Collection() CollectionName {
	if t == LedgerReceivable {
		return Receivables
	}
	return Payables
}

// ParseLedgerType accepts piutang/hutang or the collection names.
func ParseLedgerType(s string) (LedgerType, error) {
	c, err := ParseCollection(s)
	if err != nil {
		return "", err
	}
	switch c {
	case Receivables:
		return LedgerReceivable, nil
	case Payables:
		return LedgerPayable, nil
	}
	return "", fmt.Errorf("%q is not a ledger", s)
}

// Payment status values
const (
	StatusLunas      = "Lunas"
	StatusBelumLunas = "Belum Lunas"
)

// IsLunas reports whether a ledger status means paid. An empty status
// counts as unpaid.
func IsLunas(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), StatusLunas)
}

// SessionKind identifies one of the draft transaction sessions
type SessionKind string

const (
	SessionNota   SessionKind = "nota"
	SessionPO     SessionKind = "po"
	SessionReturn SessionKind = "return"
)

// SessionKinds lists every session kind
var SessionKinds = []SessionKind{SessionNota, SessionPO, SessionReturn}

// ParseSessionKind parses a session kind name
func ParseSessionKind(s string) (SessionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nota", "barang-masuk":
		return SessionNota, nil
	case "po", "purchase-order":
		return SessionPO, nil
	case "return", "retur":
		return SessionReturn, nil
	}
	return "", fmt.Errorf("unknown session kind %q", s)
}

// ID is an opaque record identifier. The server uses integers for most
// tables; IDs that look numeric are sent as bare JSON numbers.
type ID string

// MarshalJSON encodes numeric ids as numbers and everything else as strings
func (id ID) MarshalJSON() ([]byte, error) {
	if id != "" {
		if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
			return []byte(id), nil
		}
	}
	return json.Marshal(string(id))
}

// NormalizeID renders an id value (string, json.Number, float or int) in
// canonical string form so ids from different sources compare equal.
func NormalizeID(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case ID:
		return string(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	}
	return fmt.Sprint(v)
}

// Record is a single domain record with arbitrary fields. Numbers decoded
// from the wire are kept as json.Number.
type Record map[string]any

// ID returns the record's normalized id and whether one is present
func (r Record) ID() (string, bool) {
	v, ok := r["id"]
	if !ok || v == nil {
		return "", false
	}
	id := NormalizeID(v)
	return id, id != ""
}

// String returns a field as a string; non-string values are formatted.
func (r Record) String(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return NormalizeID(v)
}

// Decimal returns a numeric field. Missing or unparseable values are zero.
func (r Record) Decimal(field string) decimal.Decimal {
	return ToDecimal(r[field])
}

// Time parses a date/timestamp field. ok is false when the field is
// missing or not a recognizable date.
func (r Record) Time(field string) (time.Time, bool) {
	return ParseTime(r.String(field))
}

// Clone returns a deep copy of the record
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return cloneValue(map[string]any(r)).(map[string]any)
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case Record:
		return Record(cloneValue(map[string]any(x)).(map[string]any))
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = cloneValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, vv := range x {
			out[i] = cloneValue(vv)
		}
		return out
	}
	return v
}

// CloneRecords deep-copies a record slice. A nil input yields an empty
// non-nil slice.
func CloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// DedupeByID drops earlier records that share an id with a later one, so
// the last copy wins at its own position. Ids compare after NormalizeID;
// records without an id are kept.
func DedupeByID(records []Record) []Record {
	last := make(map[string]int, len(records))
	for i, r := range records {
		if id, ok := r.ID(); ok {
			last[id] = i
		}
	}
	if len(last) == len(records) {
		return records
	}
	out := make([]Record, 0, len(last))
	for i, r := range records {
		if id, ok := r.ID(); ok && last[id] != i {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ToDecimal converts a loosely typed JSON value to a decimal
func ToDecimal(v any) decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return x
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(strings.ReplaceAll(x, ",", ".")))
		if err != nil {
			return decimal.Zero
		}
		return d
	case float64:
		return decimal.NewFromFloat(x)
	case float32:
		return decimal.NewFromFloat32(x)
	case int:
		return decimal.NewFromInt(int64(x))
	case int64:
		return decimal.NewFromInt(x)
	case int32:
		return decimal.NewFromInt32(x)
	}
	return decimal.Zero
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTime parses the date formats the API emits (RFC 3339 timestamps,
// Postgres timestamps, plain dates). Zoneless values are local time.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Snapshot is a full point-in-time copy of one or more collections
type Snapshot map[CollectionName][]Record

// Names returns the collections present in the snapshot in canonical order.
func (s Snapshot) Names() []CollectionName {
	var names []CollectionName
	for _, c := range Collections {
		if _, ok := s[c]; ok {
			names = append(names, c)
		}
	}
	return names
}

// DecodeRecords decodes a JSON array of records, keeping numbers exact.
func DecodeRecords(data []byte) ([]Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []Record{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var records []Record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// DecodeRecord decodes a single JSON object, keeping numbers exact.
func DecodeRecord(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var r Record
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return r, nil
}

// DecodeSnapshot decodes the get-admin-data response. Both the bare object
// and a {"data": {...}} envelope are accepted; unknown keys are ignored.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if inner, ok := raw["data"]; ok && !hasCollection(raw) {
		if err := json.Unmarshal(inner, &raw); err != nil {
			return nil, fmt.Errorf("decode snapshot data: %w", err)
		}
	}

	snap := Snapshot{}
	for _, c := range Collections {
		msg, ok := raw[string(c)]
		if !ok {
			continue
		}
		records, err := DecodeRecords(msg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c, err)
		}
		snap[c] = records
	}
	return snap, nil
}

func hasCollection(raw map[string]json.RawMessage) bool {
	for _, c := range Collections {
		if _, ok := raw[string(c)]; ok {
			return true
		}
	}
	return false
}

// SortedKeys returns a record's field names in sorted order
func (r Record) SortedKeys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
