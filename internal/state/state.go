// Package state holds the in-memory working data set and the draft
// transaction sessions, and notifies subscribers of every change.
//
// Listeners run synchronously, in registration order, after the change is
// applied. A listener may read from the store but must not call a mutating
// method synchronously; use Events to consume changes from another goroutine.
package state

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bandungraya/gudang/internal/models"
	"github.com/shopspring/decimal"
)

// Contract violations. These indicate a caller bug or stale view and are
// never retried.
var (
	ErrSessionConflict   = errors.New("session already active")
	ErrNoActiveSession   = errors.New("no active session")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrInvalidInput      = errors.New("invalid input")
)

// Event names
const (
	EventDataUpdated       = "data-updated"
	EventRecordUpdated     = "record-updated"
	EventSessionStarted    = "session-started"
	EventItemAdded         = "item-added"
	EventItemRemoved       = "item-removed"
	EventSessionCleared    = "session-cleared"
	EventConnectionChanged = "connection-changed"
	EventLoadingChanged    = "loading-changed"
	EventDateRangeUpdated  = "date-range-updated"
)

// Event is a single notification
type Event struct {
	Name    string
	Payload any
}

// Listener receives events
type Listener func(Event)

// DataUpdated is the payload of data-updated
type DataUpdated struct {
	Name    models.CollectionName
	Records []models.Record
}

// RecordUpdated is the payload of record-updated
type RecordUpdated struct {
	Collection models.CollectionName
	ID         string
	Fields     map[string]any
}

// ConnectionChanged is the payload of connection-changed
type ConnectionChanged struct {
	Online bool
}

// LoadingChanged is the payload of loading-changed
type LoadingChanged struct {
	Loading bool
	Message string
}

// DateRange bounds the dashboard summary. A zero Start or End disables
// the filter.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Active reports whether both ends are set
func (r DateRange) Active() bool {
	return !r.Start.IsZero() && !r.End.IsZero()
}

type subscriber struct {
	id int
	fn Listener
}

// Store is the reactive state store
type Store struct {
	// opMu serializes mutations with their emission so listeners observe
	// events in the order operations were invoked.
	opMu sync.Mutex

	mu        sync.RWMutex
	data      map[models.CollectionName][]models.Record
	sessions  map[models.SessionKind]*Session
	online    bool
	loading   bool
	dateRange DateRange

	lmu       sync.Mutex
	listeners []subscriber
	nextID    int

	now func() time.Time
}

// New returns an empty store that considers itself online.
func New() *Store {
	s := &Store{
		data:     make(map[models.CollectionName][]models.Record, len(models.Collections)),
		sessions: make(map[models.SessionKind]*Session),
		online:   true,
		now:      time.Now,
	}
	for _, c := range models.Collections {
		s.data[c] = []models.Record{}
	}
	return s
}

// Subscribe registers l for every emission and returns a function that
// removes it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.lmu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscriber{id: id, fn: l})
	s.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lmu.Lock()
			defer s.lmu.Unlock()
			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Events adapts Subscribe to a channel. Events are dropped when the buffer
// is full. The returned function unsubscribes and closes the channel.
func (s *Store) Events(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	var mu sync.Mutex
	closed := false

	unsub := s.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- e:
		default:
			slog.Debug("state: event dropped, subscriber buffer full", "event", e.Name)
		}
	})

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			unsub()
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
		})
	}
}

// emit delivers e to every listener registered at the time of the call.
// A panicking listener does not stop delivery to the rest.
func (s *Store) emit(name string, payload any) {
	s.lmu.Lock()
	subs := make([]subscriber, len(s.listeners))
	copy(subs, s.listeners)
	s.lmu.Unlock()

	e := Event{Name: name, Payload: payload}
	for _, sub := range subs {
		deliver(sub.fn, e)
	}
}

func deliver(fn Listener, e Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("state: listener panicked", "event", e.Name, "panic", r)
		}
	}()
	fn(e)
}

// SetCollection replaces a collection and emits data-updated. Of records
// sharing an id the last one is kept, as in the local cache. Names outside
// the mirrored set are ignored.
func (s *Store) SetCollection(name models.CollectionName, records []models.Record) {
	if !name.Valid() {
		slog.Debug("state: ignoring unknown collection", "name", name)
		return
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()

	stored := models.CloneRecords(models.DedupeByID(records))
	s.mu.Lock()
	s.data[name] = stored
	s.mu.Unlock()

	s.emit(EventDataUpdated, DataUpdated{Name: name, Records: models.CloneRecords(stored)})
}

// SetSnapshot replaces every collection present in snap, emitting one
// data-updated per collection.
func (s *Store) SetSnapshot(snap models.Snapshot) {
	for _, name := range snap.Names() {
		s.SetCollection(name, snap[name])
	}
}

// GetCollection returns a copy of a collection. Unknown names yield an
// empty slice.
func (s *Store) GetCollection(name models.CollectionName) []models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneRecords(s.data[name])
}

// Find returns a copy of the record with the given id
func (s *Store) Find(name models.CollectionName, id string) (models.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.data[name] {
		if rid, _ := r.ID(); rid == id {
			return r.Clone(), true
		}
	}
	return nil, false
}

// PatchRecordField sets one field of the record with the given id. It
// returns false, without emitting, when no such record exists.
func (s *Store) PatchRecordField(name models.CollectionName, id string, field string, value any) bool {
	return s.patch(name, id, map[string]any{field: value})
}

func (s *Store) patch(name models.CollectionName, id string, fields map[string]any) bool {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	var found bool
	for _, r := range s.data[name] {
		if rid, _ := r.ID(); rid == id {
			for k, v := range fields {
				r[k] = v
			}
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return false
	}

	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	s.emit(EventRecordUpdated, RecordUpdated{Collection: name, ID: id, Fields: copied})
	return true
}

// UpdateItemStatus sets the payment status of a receivable or payable
func (s *Store) UpdateItemStatus(ledger models.LedgerType, id, status string) bool {
	return s.PatchRecordField(ledger.Collection(), id, "status", status)
}

// UpdateProofURL sets or, with nil, clears the transfer proof of a
// receivable or payable
func (s *Store) UpdateProofURL(ledger models.LedgerType, id string, url *string) bool {
	var v any
	if url != nil {
		v = *url
	}
	return s.PatchRecordField(ledger.Collection(), id, "bukti_transfer", v)
}

// UpdateProductStock resets a product's opening and remaining stock
func (s *Store) UpdateProductStock(id string, qty decimal.Decimal) (bool, error) {
	if qty.IsNegative() {
		return false, ErrInvalidInput
	}
	n := json.Number(qty.String())
	return s.patch(models.Products, id, map[string]any{
		"stok_awal":   n,
		"sisa_stok":   n,
		"lastUpdated": s.now().UTC().Format(time.RFC3339),
	}), nil
}

// SetOnline records connectivity and emits connection-changed when it flips.
func (s *Store) SetOnline(online bool) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	changed := s.online != online
	s.online = online
	s.mu.Unlock()
	if changed {
		s.emit(EventConnectionChanged, ConnectionChanged{Online: online})
	}
}

// Online reports the last known connectivity
func (s *Store) Online() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online
}

// SetLoading records whether a load is in progress and emits loading-changed
func (s *Store) SetLoading(loading bool, message string) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
	s.emit(EventLoadingChanged, LoadingChanged{Loading: loading, Message: message})
}

// Loading reports whether a load is in progress
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// SetDateRange sets the dashboard date range and emits date-range-updated
func (s *Store) SetDateRange(start, end time.Time) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	r := DateRange{Start: start, End: end}
	s.mu.Lock()
	s.dateRange = r
	s.mu.Unlock()
	s.emit(EventDateRangeUpdated, r)
}

// DateRange returns the active dashboard date range
func (s *Store) DateRange() DateRange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dateRange
}
