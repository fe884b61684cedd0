package schedule

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryDirectory is an in-process Directory for tests and local runs.
type MemoryDirectory struct {
	mu         sync.RWMutex
	providers  map[uuid.UUID]Provider
	exceptions []ExceptionDay
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{providers: make(map[uuid.UUID]Provider)}
}

func (d *MemoryDirectory) PutProvider(p Provider) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.providers[p.ID] = p
}

func (d *MemoryDirectory) AddException(e ExceptionDay) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e.Date = DateOf(e.Date)
	d.exceptions = append(d.exceptions, e)
}

func (d *MemoryDirectory) GetProvider(_ context.Context, id uuid.UUID) (*Provider, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.providers[id]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return &p, nil
}

func (d *MemoryDirectory) ListBookableProviders(_ context.Context) ([]Provider, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Provider
	for _, p := range d.providers {
		if p.Bookable() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out, nil
}

func (d *MemoryDirectory) ExceptionsOn(_ context.Context, date time.Time) (ExceptionRegistry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	day := DateOf(date)
	var out ExceptionRegistry
	for _, e := range d.exceptions {
		if e.Date.Equal(day) {
			out = append(out, e)
		}
	}
	return out, nil
}
