// Package cart is the client-held shopping cart. A Store is an explicit,
// injectable object: every mutation persists through a Storage and notifies
// subscribers with a freshly computed Snapshot.
package cart

import (
	"slices"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Line is one product in the cart.
type Line struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Selected  bool            `json:"selected"`
}

// Subtotal returns UnitPrice × Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Item describes a product being added to the cart.
type Item struct {
	ProductID int64
	Name      string
	Image     string
	UnitPrice decimal.Decimal
}

// Snapshot is an immutable view of the cart.
type Snapshot struct {
	Lines []Line
	// Subtotal covers selected lines only.
	Subtotal decimal.Decimal
	// Count is the total quantity across all lines.
	Count int
}

// Selected returns the selected lines of the snapshot.
func (s Snapshot) Selected() []Line {
	var out []Line
	for _, l := range s.Lines {
		if l.Selected {
			out = append(out, l)
		}
	}
	return out
}

// Storage persists cart lines between sessions.
type Storage interface {
	Load() ([]Line, error)
	Save(lines []Line) error
}

// Store holds the cart lines.
type Store struct {
	mu      sync.Mutex
	lines   []Line
	storage Storage
	lg      *zap.Logger

	nextSub int
	subs    map[int]func(Snapshot)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report persistence failures.
func WithLogger(lg *zap.Logger) Option {
	return func(s *Store) { s.lg = lg }
}

// New creates a Store and restores any persisted lines. Lines that could not
// have been produced by the Store (non-positive quantity, duplicate product)
// are repaired on load.
func New(storage Storage, opts ...Option) (*Store, error) {
	s := &Store{
		storage: storage,
		lg:      zap.NewNop(),
		subs:    map[int]func(Snapshot){},
	}
	for _, o := range opts {
		o(s)
	}
	if storage == nil {
		s.storage = &MemoryStorage{}
	}

	lines, err := s.storage.Load()
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		if l.Quantity < 1 {
			continue
		}
		if i := s.index(l.ProductID); i >= 0 {
			s.lines[i].Quantity += l.Quantity
			continue
		}
		s.lines = append(s.lines, l)
	}
	return s, nil
}

// Add merges qty units of item into the cart. A product never occupies more
// than one line; new lines start selected. qty below 1 is treated as 1.
func (s *Store) Add(item Item, qty int) {
	if qty < 1 {
		qty = 1
	}
	s.mutate(func() {
		if i := s.index(item.ProductID); i >= 0 {
			s.lines[i].Quantity += qty
			return
		}
		s.lines = append(s.lines, Line{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			UnitPrice: item.UnitPrice,
			Quantity:  qty,
			Selected:  true,
		})
	})
}

// UpdateQuantity sets the quantity of a line, clamping values below 1 to 1.
func (s *Store) UpdateQuantity(productID int64, qty int) {
	if qty < 1 {
		qty = 1
	}
	s.mutate(func() {
		if i := s.index(productID); i >= 0 {
			s.lines[i].Quantity = qty
		}
	})
}

// Decrement lowers the quantity of a line by one and removes the line when it
// reaches zero.
func (s *Store) Decrement(productID int64) {
	s.mutate(func() {
		i := s.index(productID)
		if i < 0 {
			return
		}
		if s.lines[i].Quantity <= 1 {
			s.lines = slices.Delete(s.lines, i, i+1)
			return
		}
		s.lines[i].Quantity--
	})
}

// Remove deletes a line unconditionally.
func (s *Store) Remove(productID int64) {
	s.mutate(func() {
		if i := s.index(productID); i >= 0 {
			s.lines = slices.Delete(s.lines, i, i+1)
		}
	})
}

// ToggleSelect flips the selection of a line. Unselected lines stay in the
// cart but are excluded from the subtotal and from checkout.
func (s *Store) ToggleSelect(productID int64) {
	s.mutate(func() {
		if i := s.index(productID); i >= 0 {
			s.lines[i].Selected = !s.lines[i].Selected
		}
	})
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mutate(func() {
		s.lines = nil
	})
}

// Snapshot returns the current cart state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Lines returns a copy of all lines.
func (s *Store) Lines() []Line {
	return s.Snapshot().Lines
}

// Selected returns a copy of the selected lines.
func (s *Store) Selected() []Line {
	return s.Snapshot().Selected()
}

// Subtotal returns Σ UnitPrice × Quantity over selected lines.
func (s *Store) Subtotal() decimal.Decimal {
	return s.Snapshot().Subtotal
}

// Count returns the total quantity across all lines.
func (s *Store) Count() int {
	return s.Snapshot().Count
}

// Subscribe registers fn to receive a snapshot after every mutation and
// returns a function that removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	fn()
	snap := s.snapshot()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	if err := s.storage.Save(snap.Lines); err != nil {
		s.lg.Warn("Persist cart", zap.Error(err))
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
}

func (s *Store) snapshot() Snapshot {
	snap := Snapshot{
		Lines:    slices.Clone(s.lines),
		Subtotal: decimal.Zero,
	}
	for _, l := range s.lines {
		snap.Count += l.Quantity
		if l.Selected {
			snap.Subtotal = snap.Subtotal.Add(l.Subtotal())
		}
	}
	return snap
}

func (s *Store) index(productID int64) int {
	return slices.IndexFunc(s.lines, func(l Line) bool {
		return l.ProductID == productID
	})
}
