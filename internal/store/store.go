package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"islands/internal/terrain"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")

// Snapshot is a generated elevation grid together with the parameters that
// produced it.
type Snapshot struct {
	ID         uuid.UUID
	Seed       int64
	Generation uint64
	Width      int
	Height     int
	Values     []float64
	CreatedAt  time.Time
}

// Info describes a snapshot without its elevation values.
type Info struct {
	ID         uuid.UUID `json:"id"`
	Seed       int64     `json:"seed"`
	Generation uint64    `json:"generation"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Store persists snapshots. Implementations are safe for concurrent use.
type Store interface {
	// Save stores snap, assigning an ID when it has none. When a retention
	// cap is configured the oldest snapshots are evicted.
	Save(snap *Snapshot) error
	Load(id uuid.UUID) (*Snapshot, bool, error)
	// List returns snapshot descriptions, oldest first.
	List() ([]Info, error)
	Delete(id uuid.UUID) error
	Close() error
}

// NewSnapshot captures grid under a fresh ID.
func NewSnapshot(grid *terrain.ElevationGrid, seed int64, generation uint64) *Snapshot {
	return &Snapshot{
		ID:         uuid.New(),
		Seed:       seed,
		Generation: generation,
		Width:      grid.Width(),
		Height:     grid.Height(),
		Values:     grid.Values(),
		CreatedAt:  time.Now().UTC(),
	}
}

func (s *Snapshot) Info() Info {
	return Info{
		ID:         s.ID,
		Seed:       s.Seed,
		Generation: s.Generation,
		Width:      s.Width,
		Height:     s.Height,
		CreatedAt:  s.CreatedAt,
	}
}

// Grid rebuilds the elevation grid held by the snapshot.
func (s *Snapshot) Grid() (*terrain.ElevationGrid, error) {
	grid, err := terrain.NewElevationGrid(s.Width, s.Height, s.Values)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s.ID, err)
	}
	return grid, nil
}

func (s *Snapshot) validate() error {
	if s == nil {
		return errors.New("store: snapshot is nil")
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("store: invalid snapshot dimensions %dx%d", s.Width, s.Height)
	}
	if len(s.Values) != s.Width*s.Height {
		return fmt.Errorf("store: snapshot holds %d values, want %d", len(s.Values), s.Width*s.Height)
	}
	return nil
}

func (s *Snapshot) clone() *Snapshot {
	c := *s
	c.Values = append([]float64(nil), s.Values...)
	return &c
}

// Open returns a disk store at path, or a memory store when path is empty.
func Open(path string, retain int) (Store, error) {
	if path == "" {
		return NewMemory(retain), nil
	}
	return OpenDisk(path, retain)
}

// evictions returns the IDs at the head of order that exceed retain.
func evictions(order []uuid.UUID, retain int) []uuid.UUID {
	if retain <= 0 || len(order) <= retain {
		return nil
	}
	return append([]uuid.UUID(nil), order[:len(order)-retain]...)
}

func removeID(order []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for i, v := range order {
		if v == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
