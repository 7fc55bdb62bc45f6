package state

import (
	"fmt"
	"strings"
	"time"

	"github.com/bandungraya/gudang/internal/models"
	"github.com/shopspring/decimal"
)

// SessionItem is one line of a draft transaction. Price is the purchase
// price for nota sessions and the selling price for PO and return sessions.
type SessionItem struct {
	ProductID string          `json:"product_id"`
	Nama      string          `json:"nama,omitempty"`
	Unit      string          `json:"unit,omitempty"`
	Qty       decimal.Decimal `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
	// StockSnapshot is the remaining stock the caller saw when picking the
	// product. Only PO sessions use it.
	StockSnapshot *decimal.Decimal `json:"stock_snapshot,omitempty"`
}

// Session is a single-active, multi-item draft transaction
type Session struct {
	Kind      models.SessionKind `json:"kind"`
	Info      map[string]string  `json:"info"`
	Items     []SessionItem      `json:"items"`
	StartedAt time.Time          `json:"started_at"`

	// stock captured from the products collection at session start
	stock map[string]decimal.Decimal
}

// Total sums the line totals
func (s *Session) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range s.Items {
		sum = sum.Add(it.Total)
	}
	return sum
}

func (s *Session) clone() *Session {
	c := &Session{
		Kind:      s.Kind,
		Info:      make(map[string]string, len(s.Info)),
		Items:     make([]SessionItem, len(s.Items)),
		StartedAt: s.StartedAt,
	}
	for k, v := range s.Info {
		c.Info[k] = v
	}
	for i, it := range s.Items {
		c.Items[i] = it.clone()
	}
	return c
}

func (it SessionItem) clone() SessionItem {
	if it.StockSnapshot != nil {
		v := *it.StockSnapshot
		it.StockSnapshot = &v
	}
	return it
}

// SessionEvent is the payload of session-started and session-cleared
type SessionEvent struct {
	Kind    models.SessionKind
	Session *Session
}

// ItemEvent is the payload of item-added and item-removed
type ItemEvent struct {
	Kind   models.SessionKind
	Index  int
	Item   SessionItem
	Merged bool
}

// Session info keys
const (
	InfoVendor            = "vendor"
	InfoNoNota            = "noNota"
	InfoTanggalNota       = "tanggalNota"
	InfoTanggalJatuhTempo = "tanggalJatuhTempo"
	InfoOutlet            = "outlet"
	InfoTanggalKirim      = "tanggalKirim"
	InfoTanggal           = "tanggal"
	InfoCatatan           = "catatan"
)

// StartSession opens a draft of the given kind. It fails with
// ErrSessionConflict while a session of that kind is active, leaving the
// existing one untouched. PO sessions capture the current product stock.
func (s *Store) StartSession(kind models.SessionKind, info map[string]string) error {
	if err := validateInfo(kind, info); err != nil {
		return err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if cur, ok := s.sessions[kind]; ok {
		n := len(cur.Items)
		s.mu.Unlock()
		return fmt.Errorf("%w: %s session has %d item(s) pending", ErrSessionConflict, kind, n)
	}

	sess := &Session{
		Kind:      kind,
		Info:      make(map[string]string, len(info)),
		Items:     []SessionItem{},
		StartedAt: s.now(),
	}
	for k, v := range info {
		sess.Info[k] = strings.TrimSpace(v)
	}
	if kind == models.SessionPO {
		sess.stock = make(map[string]decimal.Decimal, len(s.data[models.Products]))
		for _, p := range s.data[models.Products] {
			if id, ok := p.ID(); ok {
				if _, has := p["sisa_stok"]; has {
					sess.stock[id] = p.Decimal("sisa_stok")
				}
			}
		}
	}
	s.sessions[kind] = sess
	view := sess.clone()
	s.mu.Unlock()

	s.emit(EventSessionStarted, SessionEvent{Kind: kind, Session: view})
	return nil
}

func validateInfo(kind models.SessionKind, info map[string]string) error {
	switch kind {
	case models.SessionNota:
		if len(strings.TrimSpace(info[InfoVendor])) < 2 {
			return fmt.Errorf("%w: vendor must be at least 2 characters", ErrInvalidInput)
		}
		if len(strings.TrimSpace(info[InfoNoNota])) < 3 {
			return fmt.Errorf("%w: nota number must be at least 3 characters", ErrInvalidInput)
		}
	case models.SessionPO, models.SessionReturn:
	default:
		return fmt.Errorf("%w: unknown session kind %q", ErrInvalidInput, kind)
	}
	return nil
}

// AddSessionItem adds a line to the active session of kind. A line for a
// product already in the session is merged by summing quantities. PO
// sessions reject a total above the product's stock snapshot.
func (s *Store) AddSessionItem(kind models.SessionKind, item SessionItem) (merged bool, err error) {
	item.ProductID = strings.TrimSpace(item.ProductID)
	if item.ProductID == "" {
		return false, fmt.Errorf("%w: product id is required", ErrInvalidInput)
	}
	if !item.Qty.IsPositive() {
		return false, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}
	if item.Price.IsNegative() {
		return false, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	sess, ok := s.sessions[kind]
	if !ok {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrNoActiveSession, kind)
	}

	idx := -1
	for i, it := range sess.Items {
		if it.ProductID == item.ProductID {
			idx = i
			break
		}
	}

	total := item.Qty
	if idx >= 0 {
		total = sess.Items[idx].Qty.Add(item.Qty)
	}

	if kind == models.SessionPO {
		// unknown stock has no ceiling
		if ceiling, known := sess.stockCeiling(idx, item); known {
			if total.GreaterThan(ceiling) {
				s.mu.Unlock()
				return false, fmt.Errorf("%w: product %s has %s left, requested %s", ErrInsufficientStock, item.ProductID, ceiling, total)
			}
			item.StockSnapshot = &ceiling
		}
	}

	merged = idx >= 0
	var line SessionItem
	if merged {
		cur := &sess.Items[idx]
		cur.Qty = total
		if !item.Price.IsZero() {
			cur.Price = item.Price
		}
		if cur.StockSnapshot == nil && item.StockSnapshot != nil {
			cur.StockSnapshot = item.StockSnapshot
		}
		cur.Total = cur.Qty.Mul(cur.Price)
		line = cur.clone()
	} else {
		item.Total = item.Qty.Mul(item.Price)
		sess.Items = append(sess.Items, item)
		idx = len(sess.Items) - 1
		line = item.clone()
	}
	s.mu.Unlock()

	s.emit(EventItemAdded, ItemEvent{Kind: kind, Index: idx, Item: line, Merged: merged})
	return merged, nil
}

// stockCeiling resolves the PO stock limit for a product: the stock
// captured at session start, then the snapshot recorded on the existing
// line, then the snapshot supplied with the item.
func (s *Session) stockCeiling(idx int, item SessionItem) (decimal.Decimal, bool) {
	if v, ok := s.stock[item.ProductID]; ok {
		return v, true
	}
	if idx >= 0 && s.Items[idx].StockSnapshot != nil {
		return *s.Items[idx].StockSnapshot, true
	}
	if item.StockSnapshot != nil {
		return *item.StockSnapshot, true
	}
	return decimal.Zero, false
}

// RemoveSessionItem removes the line at index
func (s *Store) RemoveSessionItem(kind models.SessionKind, index int) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	sess, ok := s.sessions[kind]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNoActiveSession, kind)
	}
	if index < 0 || index >= len(sess.Items) {
		n := len(sess.Items)
		s.mu.Unlock()
		return fmt.Errorf("%w: %d (session has %d item(s))", ErrIndexOutOfRange, index, n)
	}
	removed := sess.Items[index]
	sess.Items = append(sess.Items[:index:index], sess.Items[index+1:]...)
	s.mu.Unlock()

	s.emit(EventItemRemoved, ItemEvent{Kind: kind, Index: index, Item: removed.clone()})
	return nil
}

// ClearSession ends the session of kind, discarding its items.
func (s *Store) ClearSession(kind models.SessionKind) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	delete(s.sessions, kind)
	s.mu.Unlock()

	s.emit(EventSessionCleared, SessionEvent{Kind: kind})
}

// Session returns a copy of the active session of kind
func (s *Store) Session(kind models.SessionKind) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[kind]
	if !ok {
		return nil, false
	}
	return sess.clone(), true
}
