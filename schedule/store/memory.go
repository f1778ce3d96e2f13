// Package store provides in-memory implementations of the schedule
// persistence interfaces, for tests and local development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/farmdesk/crop-engine/schedule"
)

// =============================================================================
// MEMORY WINDOW STORE
// =============================================================================

type rangeKey struct {
	start int64
	end   int64
}

// Memory implements schedule.WindowStore, schedule.Catalog, and
// schedule.FarmerDirectory. Windows are handed out as deep clones so the
// store behaves like a document database: mutations only land via Save.
type Memory struct {
	mu      sync.RWMutex
	windows map[schedule.WindowID]*schedule.Window
	byRange map[rangeKey]schedule.WindowID

	groupsByName map[string]schedule.GroupRef
	groupNames   map[schedule.GroupRef]string
	varieties    map[varietyKey]schedule.VarietyRef
	varietyNames map[schedule.VarietyRef]schedule.CatalogVariety

	farmerNames map[schedule.FarmerRef]string
}

type varietyKey struct {
	group schedule.GroupRef
	name  string
}

func NewMemory() *Memory {
	return &Memory{
		windows:      make(map[schedule.WindowID]*schedule.Window),
		byRange:      make(map[rangeKey]schedule.WindowID),
		groupsByName: make(map[string]schedule.GroupRef),
		groupNames:   make(map[schedule.GroupRef]string),
		varieties:    make(map[varietyKey]schedule.VarietyRef),
		varietyNames: make(map[schedule.VarietyRef]schedule.CatalogVariety),
		farmerNames:  make(map[schedule.FarmerRef]string),
	}
}

func keyFor(start, end time.Time) rangeKey {
	return rangeKey{start: start.UnixMilli(), end: end.UnixMilli()}
}

func (m *Memory) Get(_ context.Context, id schedule.WindowID) (*schedule.Window, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.windows[id]
	if !ok {
		return nil, nil
	}
	return w.Clone(), nil
}

func (m *Memory) FindByRange(_ context.Context, start, end time.Time) (*schedule.Window, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byRange[keyFor(start, end)]
	if !ok {
		return nil, nil
	}
	return m.windows[id].Clone(), nil
}

func (m *Memory) CreateIfAbsent(_ context.Context, w *schedule.Window) (*schedule.Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := keyFor(w.StartDate, w.EndDate)
	if id, ok := m.byRange[key]; ok {
		return m.windows[id].Clone(), nil
	}

	stored := w.Clone()
	stored.Version = 1
	m.windows[stored.ID] = stored
	m.byRange[key] = stored.ID

	out := stored.Clone()
	w.Version = out.Version
	return out, nil
}

func (m *Memory) Save(_ context.Context, w *schedule.Window) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.windows[w.ID]
	if !ok {
		return schedule.ErrWindowNotFound
	}
	if current.Version != w.Version {
		return schedule.ErrConcurrentModification
	}

	stored := w.Clone()
	stored.Version = current.Version + 1
	m.windows[w.ID] = stored
	w.Version = stored.Version
	return nil
}

func (m *Memory) ListEndingOnOrAfter(_ context.Context, t time.Time) ([]*schedule.Window, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*schedule.Window
	for _, w := range m.windows {
		if !w.EndDate.Before(t) {
			out = append(out, w.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

// =============================================================================
// MEMORY CATALOG
// =============================================================================

func (m *Memory) ResolveOrCreateGroup(_ context.Context, name string) (schedule.GroupRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ref, ok := m.groupsByName[name]; ok {
		return ref, nil
	}
	ref := schedule.GroupRef(uuid.NewString())
	m.groupsByName[name] = ref
	m.groupNames[ref] = name
	return ref, nil
}

func (m *Memory) ResolveOrCreateVariety(_ context.Context, group schedule.GroupRef, name string) (schedule.VarietyRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := varietyKey{group: group, name: name}
	if ref, ok := m.varieties[key]; ok {
		return ref, nil
	}
	ref := schedule.VarietyRef(uuid.NewString())
	m.varieties[key] = ref
	m.varietyNames[ref] = schedule.CatalogVariety{Ref: ref, GroupRef: group, Name: name}
	return ref, nil
}

func (m *Memory) LookupGroupName(_ context.Context, ref schedule.GroupRef) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.groupNames[ref], nil
}

func (m *Memory) ListGroups(_ context.Context) ([]schedule.CatalogGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]schedule.CatalogGroup, 0, len(m.groupNames))
	for ref, name := range m.groupNames {
		out = append(out, schedule.CatalogGroup{Ref: ref, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) ListVarietiesOfGroup(_ context.Context, ref schedule.GroupRef) ([]schedule.CatalogVariety, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []schedule.CatalogVariety
	for _, v := range m.varietyNames {
		if v.GroupRef == ref {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// =============================================================================
// MEMORY FARMER DIRECTORY
// =============================================================================

// PutFarmer registers a farmer display name for lookup.
func (m *Memory) PutFarmer(ref schedule.FarmerRef, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.farmerNames[ref] = name
}

func (m *Memory) LookupFarmerName(_ context.Context, ref schedule.FarmerRef) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.farmerNames[ref], nil
}
