package service

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"

	"github.com/iliyamo/event-seat-booking/internal/ledger"
	"github.com/iliyamo/event-seat-booking/internal/model"
)

// AllSections is the section filter value that matches every seat.
const AllSections = "All Sections"

// SeatFilter narrows List. An empty Section or AllSections keeps every seat.
type SeatFilter struct {
	Section string
}

func (f SeatFilter) match(s model.Seat) bool {
	if f.Section == "" || f.Section == AllSections {
		return true
	}
	return s.Section == f.Section
}

// Inventory is the seat grid. Listing may be served from the display cache;
// claims and releases always read the ledger itself.
type Inventory struct {
	seats SeatStore
	cache CacheInvalidator
}

// NewInventory constructs an Inventory. cache may be nil.
func NewInventory(seats SeatStore, cache CacheInvalidator) *Inventory {
	if seats == nil {
		panic("nil seat store passed to NewInventory")
	}
	if cache == nil {
		cache = nopInvalidator{}
	}
	return &Inventory{seats: seats, cache: cache}
}

// List returns the seats matching f, ordered by section, row label and
// descending column, the way the grid is drawn.
func (inv *Inventory) List(ctx context.Context, f SeatFilter) ([]model.Seat, error) {
	return inv.list(ledger.WithCachedRead(ctx), f)
}

// ListFresh is List without the display cache.
func (inv *Inventory) ListFresh(ctx context.Context, f SeatFilter) ([]model.Seat, error) {
	return inv.list(ledger.WithFreshRead(ctx), f)
}

func (inv *Inventory) list(ctx context.Context, f SeatFilter) ([]model.Seat, error) {
	all, err := inv.seats.All(ctx)
	if err != nil {
		return nil, storeErr("list seats", err)
	}
	out := make([]model.Seat, 0, len(all))
	for _, s := range all {
		if f.match(s) {
			out = append(out, s)
		}
	}
	sortGrid(out)
	return out, nil
}

func sortGrid(seats []model.Seat) {
	sort.SliceStable(seats, func(i, j int) bool {
		a, b := seats[i], seats[j]
		if a.Section != b.Section {
			return a.Section < b.Section
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Col > b.Col
	})
}

// Sections returns the distinct non-empty sections in sorted order.
func (inv *Inventory) Sections(ctx context.Context) ([]string, error) {
	all, err := inv.seats.All(ledger.WithCachedRead(ctx))
	if err != nil {
		return nil, storeErr("list sections", err)
	}
	seen := make(map[string]bool)
	var out []string
	for _, s := range all {
		if s.Section == "" || seen[s.Section] {
			continue
		}
		seen[s.Section] = true
		out = append(out, s.Section)
	}
	sort.Strings(out)
	return out, nil
}

// Claim reserves seatID for holder. It reads the seat fresh, refuses with
// ErrSeatTaken when it is held, writes the three reservation cells in one
// batch and reads the seat back: if another writer's values are there the
// claim is lost and ErrSeatTaken is returned as well.
func (inv *Inventory) Claim(ctx context.Context, seatID, holder, contact string) (bool, error) {
	holder = strings.TrimSpace(holder)
	contact = strings.TrimSpace(contact)
	if holder == "" || contact == "" {
		return false, ErrInvalidHolder
	}
	seat, err := inv.seats.GetFresh(ctx, seatID)
	if err != nil {
		return false, storeErr("claim "+seatID, err)
	}
	if !seat.IsAvailable() {
		return false, ErrSeatTaken
	}
	if err := inv.seats.Reserve(ctx, seat.Ref, holder, contact); err != nil {
		return false, storeErr("claim "+seatID, err)
	}
	after, err := inv.seats.GetFresh(ctx, seatID)
	if err != nil {
		// the write itself succeeded
		log.Printf("booking: verify claim of %s failed: %v", seatID, err)
		return true, nil
	}
	if after.ReservedBy != holder || after.ReservedContact != contact {
		log.Printf("booking: seat %s lost to a concurrent claim", seatID)
		return false, ErrSeatTaken
	}
	return true, nil
}

// ReleaseAll clears every seat whose ReservedBy equals holder and returns
// the freed seat ids. A second call with no claims in between frees nothing.
func (inv *Inventory) ReleaseAll(ctx context.Context, holder string) ([]string, error) {
	holder = strings.TrimSpace(holder)
	if holder == "" {
		return nil, nil
	}
	all, err := inv.seats.All(ledger.WithFreshRead(ctx))
	if err != nil {
		return nil, storeErr("release seats", err)
	}
	var (
		ids  []string
		refs []int
	)
	for _, s := range all {
		if s.ReservedBy == holder {
			ids = append(ids, s.SeatID)
			refs = append(refs, s.Ref)
		}
	}
	if len(refs) == 0 {
		return nil, nil
	}
	if err := inv.seats.Clear(ctx, refs); err != nil {
		return nil, storeErr("release seats", err)
	}
	return ids, nil
}

// Snapshot reads every seat fresh and indexes it by id.
func (inv *Inventory) Snapshot(ctx context.Context) (map[string]model.Seat, error) {
	all, err := inv.seats.All(ledger.WithFreshRead(ctx))
	if err != nil {
		return nil, storeErr("read seats", err)
	}
	out := make(map[string]model.Seat, len(all))
	for _, s := range all {
		out[s.SeatID] = s
	}
	return out, nil
}

// Invalidate drops the display cache of the Seats table.
func (inv *Inventory) Invalidate(ctx context.Context) {
	inv.cache.Invalidate(ctx, ledger.TableSeats)
}

// isBenign reports claim failures that only drop the seat from the
// selection.
func isBenign(err error) bool {
	return errors.Is(err, ErrSeatTaken) || errors.Is(err, ErrSeatNotFound)
}
