package builder

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CloudSync is the remote state service seen from the builder. Push
// overwrites the remote blob wholesale; Pull returns nil when the remote
// has no state yet.
type CloudSync interface {
	Push(ctx context.Context, state UserState) error
	Pull(ctx context.Context) (*UserState, error)
}

// Persister stores the full builder snapshot locally on every mutation.
type Persister interface {
	Save(snap Snapshot) error
	Load() (*Snapshot, error)
}

// Store is the single source of truth for the builder's in-memory model.
// All mutations pass through its command methods; reads return deep-copied
// snapshots. Commands never block on the network — remote sync runs as a
// detached best-effort task whose failures are logged, not surfaced.
type Store struct {
	mu    sync.Mutex
	state Snapshot

	cloud     CloudSync
	persister Persister
	logger    zerolog.Logger
	onSync    func(err error)
	syncWG    sync.WaitGroup
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithCloudSync wires the remote state service. Without it, sync and
// hydrate are no-ops.
func WithCloudSync(c CloudSync) Option {
	return func(s *Store) { s.cloud = c }
}

// WithPersister wires local durable storage.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithLogger sets the store logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithSyncCallback registers an observer for sync outcomes (nil err on
// success). Used by callers that want telemetry without capturing logs.
func WithSyncCallback(fn func(err error)) Option {
	return func(s *Store) { s.onSync = fn }
}

// WithSeed replaces the default seed library.
func WithSeed(seed []ComponentPrimitive) Option {
	return func(s *Store) {
		s.state.Components = make([]ComponentPrimitive, len(seed))
		for i, p := range seed {
			s.state.Components[i] = p.clone()
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a builder store. If a persister is configured and holds
// a previous snapshot, that snapshot wins over the seed library.
func NewStore(opts ...Option) *Store {
	s := &Store{
		state: Snapshot{
			Components:     SeedLibrary(),
			ActiveCategory: CategoryAll,
			Theme:          DefaultTheme(),
		},
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	if s.persister != nil {
		if snap, err := s.persister.Load(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to load local state, starting fresh")
		} else if snap != nil {
			s.state = *snap
			if s.state.ActiveCategory == "" {
				s.state.ActiveCategory = CategoryAll
			}
		}
	}
	return s
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := s.state
	snap.Components = make([]ComponentPrimitive, len(s.state.Components))
	for i, p := range s.state.Components {
		snap.Components[i] = p.clone()
	}
	snap.CanvasItems = cloneItems(s.state.CanvasItems)
	snap.Templates = make([]SavedTemplate, len(s.state.Templates))
	for i, t := range s.state.Templates {
		snap.Templates[i] = t.clone()
	}
	if s.state.LastExtracted != nil {
		le := s.state.LastExtracted.clone()
		snap.LastExtracted = &le
	}
	return snap
}

// AddComponent prepends a primitive to the library, stamping its
// extraction time, and records it as the last extracted entry.
func (s *Store) AddComponent(p ComponentPrimitive) {
	s.mu.Lock()
	entry := p.clone()
	entry.ExtractedAt = s.now().UnixMilli()
	s.state.Components = append([]ComponentPrimitive{entry}, s.state.Components...)
	le := entry.clone()
	s.state.LastExtracted = &le
	s.persistLocked()
	s.mu.Unlock()

	s.scheduleSync()
}

// RemoveComponent deletes a library entry by id. Unknown ids are a no-op.
func (s *Store) RemoveComponent(id string) {
	s.mu.Lock()
	found := false
	kept := s.state.Components[:0]
	for _, c := range s.state.Components {
		if c.ID == id {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		s.mu.Unlock()
		return
	}
	s.state.Components = kept
	if s.state.LastExtracted != nil && s.state.LastExtracted.ID == id {
		s.state.LastExtracted = nil
	}
	s.persistLocked()
	s.mu.Unlock()

	s.scheduleSync()
}

// AddToCanvas appends a fresh instance of the primitive to the canvas.
// The instance is a snapshot copy with its own identity; placing the same
// primitive twice yields two independent instances. Canvas placement is
// session-local and does not sync.
func (s *Store) AddToCanvas(p ComponentPrimitive) CanvasItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := CanvasItem{
		ComponentPrimitive: p.clone(),
		InstanceID:         uuid.New().String(),
	}
	s.state.CanvasItems = append(s.state.CanvasItems, item)
	s.persistLocked()
	return item.clone()
}

// RemoveFromCanvas deletes an instance. Unknown instance ids are a no-op.
func (s *Store) RemoveFromCanvas(instanceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.state.CanvasItems[:0]
	found := false
	for _, it := range s.state.CanvasItems {
		if it.InstanceID == instanceID {
			found = true
			continue
		}
		kept = append(kept, it)
	}
	if !found {
		return
	}
	s.state.CanvasItems = kept
	s.persistLocked()
}

// ReorderCanvas replaces the canvas sequence with the supplied order. The
// new order must be an exact permutation of the current instance-id set;
// anything that drops or duplicates instances is rejected and the canvas
// is left untouched.
func (s *Store) ReorderCanvas(items []CanvasItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(items) != len(s.state.CanvasItems) {
		return fmt.Errorf("reorder: got %d items, canvas has %d", len(items), len(s.state.CanvasItems))
	}
	current := make(map[string]bool, len(s.state.CanvasItems))
	for _, it := range s.state.CanvasItems {
		current[it.InstanceID] = true
	}
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if !current[it.InstanceID] {
			return fmt.Errorf("reorder: unknown instance %s", it.InstanceID)
		}
		if seen[it.InstanceID] {
			return fmt.Errorf("reorder: duplicate instance %s", it.InstanceID)
		}
		seen[it.InstanceID] = true
	}

	s.state.CanvasItems = cloneItems(items)
	s.persistLocked()
	return nil
}

// UpdateCanvasItemName sets the user override name on an instance.
// Unknown instance ids are a no-op.
func (s *Store) UpdateCanvasItemName(instanceID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.CanvasItems {
		if s.state.CanvasItems[i].InstanceID == instanceID {
			s.state.CanvasItems[i].CustomName = name
			s.persistLocked()
			return
		}
	}
}

// ClearCanvas empties the canvas sequence.
func (s *Store) ClearCanvas() {
	s.mu.Lock()
	s.state.CanvasItems = nil
	s.persistLocked()
	s.mu.Unlock()

	s.scheduleSync()
}

// SaveTemplate snapshots the current canvas into a named template,
// prepended to the archive. The items are deep-copied — later canvas
// mutations never reach back into a saved template.
func (s *Store) SaveTemplate(name string) SavedTemplate {
	s.mu.Lock()
	tpl := SavedTemplate{
		ID:      uuid.New().String(),
		Name:    name,
		Items:   cloneItems(s.state.CanvasItems),
		SavedAt: s.now().UnixMilli(),
	}
	s.state.Templates = append([]SavedTemplate{tpl}, s.state.Templates...)
	out := tpl.clone()
	s.persistLocked()
	s.mu.Unlock()

	s.scheduleSync()
	return out
}

// UpdateTheme merges the given fields into the theme; unset fields are
// retained.
func (s *Store) UpdateTheme(update ThemeUpdate) {
	s.mu.Lock()
	if update.PrimaryColor != nil {
		s.state.Theme.PrimaryColor = *update.PrimaryColor
	}
	if update.BorderRadius != nil {
		s.state.Theme.BorderRadius = *update.BorderRadius
	}
	if update.FontFamily != nil {
		s.state.Theme.FontFamily = *update.FontFamily
	}
	s.persistLocked()
	s.mu.Unlock()

	s.scheduleSync()
}

// SetSearchQuery sets the transient library search filter. Not synced.
func (s *Store) SetSearchQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SearchQuery = query
	s.persistLocked()
}

// SetActiveCategory sets the transient category filter. Not synced.
func (s *Store) SetActiveCategory(category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ActiveCategory = category
	s.persistLocked()
}

// FilteredComponents returns the library entries whose name or any tag
// contains the search query (case-insensitive) and whose category matches
// the active filter. CategoryAll matches everything.
func (s *Store) FilteredComponents() []ComponentPrimitive {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := strings.ToLower(s.state.SearchQuery)
	var out []ComponentPrimitive
	for _, c := range s.state.Components {
		if s.state.ActiveCategory != CategoryAll && s.state.ActiveCategory != "" && c.Category != s.state.ActiveCategory {
			continue
		}
		if query != "" && !matchesQuery(c, query) {
			continue
		}
		out = append(out, c.clone())
	}
	return out
}

func matchesQuery(c ComponentPrimitive, query string) bool {
	if strings.Contains(strings.ToLower(c.Name), query) {
		return true
	}
	for _, tag := range c.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

// SyncToCloud pushes {components, templates, theme} to the remote state
// service. Strictly best-effort: failures are logged and reported to the
// sync callback, never returned.
func (s *Store) SyncToCloud(ctx context.Context) {
	if s.cloud == nil {
		return
	}
	s.mu.Lock()
	state := UserState{
		Components: make([]ComponentPrimitive, len(s.state.Components)),
		Templates:  make([]SavedTemplate, len(s.state.Templates)),
		Theme:      s.state.Theme,
	}
	for i, c := range s.state.Components {
		state.Components[i] = c.clone()
	}
	for i, t := range s.state.Templates {
		state.Templates[i] = t.clone()
	}
	s.mu.Unlock()

	err := s.cloud.Push(ctx, state)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cloud sync failed")
	}
	if s.onSync != nil {
		s.onSync(err)
	}
}

// HydrateFromCloud pulls the remote blob and overlays it onto local state,
// preserving the transient UI filters. On failure local state is left
// untouched.
func (s *Store) HydrateFromCloud(ctx context.Context) {
	if s.cloud == nil {
		return
	}
	remote, err := s.cloud.Pull(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("hydration failed")
		if s.onSync != nil {
			s.onSync(err)
		}
		return
	}
	if remote == nil {
		return
	}

	s.mu.Lock()
	s.state.Components = remote.Components
	s.state.Templates = remote.Templates
	s.state.Theme = remote.Theme
	s.persistLocked()
	s.mu.Unlock()

	if s.onSync != nil {
		s.onSync(nil)
	}
}

// Flush blocks until every scheduled sync has completed. Short-lived
// callers must flush before exiting or pending pushes die with the
// process.
func (s *Store) Flush() {
	s.syncWG.Wait()
}

// scheduleSync queues a detached sync. Each mutation schedules its own
// call; there is no coalescing, so the remote copy converges on whichever
// push arrives last.
func (s *Store) scheduleSync() {
	if s.cloud == nil {
		return
	}
	s.syncWG.Add(1)
	go func() {
		defer s.syncWG.Done()
		s.SyncToCloud(context.Background())
	}()
}

func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(s.snapshotLocked()); err != nil {
		s.logger.Warn().Err(err).Msg("local persist failed")
	}
}
