package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/floorplan-editor/backend/internal/models"
	"github.com/floorplan-editor/backend/internal/render"
	"github.com/floorplan-editor/backend/internal/security"
	"github.com/floorplan-editor/backend/internal/shape"
	"github.com/floorplan-editor/backend/internal/storage"
	"github.com/google/uuid"
)

// MaxSessions limits concurrent editor sessions to bound memory.
const MaxSessions = 50

// SessionMaxAge is how long an idle session is kept before cleanup.
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow is how long to keep sessions that are actively being used.
const SessionKeepAliveWindow = 5 * time.Minute

// Security decides which users get writable sessions.
type Security struct {
	RequireAuth     bool
	EditAuthorities []string
}

// Manager owns the open editor sessions.
type Manager struct {
	sessions map[string]*EditorSession
	// opening counts sessions still loading that hold a reserved slot.
	opening int
	mu      sync.RWMutex

	repo     *storage.Repository
	source   storage.MapSource
	registry *shape.Registry
	renderer *render.Renderer
	opts     Options
	security Security
}

// NewManager creates a session manager. A nil registry uses the global one.
func NewManager(repo *storage.Repository, source storage.MapSource, registry *shape.Registry, opts Options, sec Security) *Manager {
	if registry == nil {
		registry = shape.GetGlobalRegistry()
	}
	return &Manager{
		sessions: make(map[string]*EditorSession),
		repo:     repo,
		source:   source,
		registry: registry,
		opts:     opts,
		security: sec,
	}
}

// SetRenderer enables PNG previews.
func (m *Manager) SetRenderer(r *render.Renderer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renderer = r
}

// Open starts a session for user on one map version. Users without an edit
// authority get a read-only session.
func (m *Manager) Open(ctx context.Context, user models.User, mapID, version string) (*EditorSession, error) {
	if mapID == "" || version == "" {
		return nil, fmt.Errorf("%w: mapId and version are required", ErrInvalidOperation)
	}
	m.cleanupOldSessionsIfNeeded(ctx)

	// Reserve the slot under the write lock so concurrent opens cannot all
	// pass the limit check while their sessions load.
	m.mu.Lock()
	if len(m.sessions)+m.opening >= MaxSessions {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}
	m.opening++
	renderer := m.renderer
	m.mu.Unlock()

	readOnly := !security.CanEdit(&user, m.security.EditAuthorities, m.security.RequireAuth)
	scope := storage.Scope{UserID: user.UserID, MapID: mapID, Version: version}
	s := newEditorSession(uuid.New().String(), user, scope, readOnly, m.opts, m.repo, m.source, m.registry, renderer)
	err := s.open(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.opening--
	if err != nil {
		return nil, err
	}
	m.sessions[s.ID] = s
	return s, nil
}

// Get returns a session and refreshes its keep-alive.
func (m *Manager) Get(id string) (*EditorSession, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	s.touch()
	return s, true
}

// TouchSession updates the last accessed time of a session.
func (m *Manager) TouchSession(id string) bool {
	_, ok := m.Get(id)
	return ok
}

// Close flushes a session's pending edits and forgets it.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	if _, err := s.Autosave(ctx); err != nil {
		return fmt.Errorf("flushing session %s: %w", shortID(id), err)
	}
	fmt.Printf("[Manager] Closed session %s\n", shortID(id))
	return nil
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// List returns the info of every open session, newest access first.
func (m *Manager) List() []models.EditorSessionInfo {
	m.mu.RLock()
	sessions := make([]*EditorSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	out := make([]models.EditorSessionInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastAccessed.After(out[j].LastAccessed) })
	return out
}

// AutosaveAll flushes every dirty session and returns how many wrote.
func (m *Manager) AutosaveAll(ctx context.Context) int {
	m.mu.RLock()
	sessions := make([]*EditorSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	saved := 0
	for _, s := range sessions {
		wrote, err := s.Autosave(ctx)
		if err != nil {
			fmt.Printf("[Manager] Autosave failed for %s: %v\n", shortID(s.ID), err)
			continue
		}
		if wrote {
			saved++
		}
	}
	return saved
}

// cleanupOldSessionsIfNeeded evicts the least recently used sessions once
// the limit is reached.
func (m *Manager) cleanupOldSessionsIfNeeded(ctx context.Context) {
	m.mu.Lock()
	if len(m.sessions) < MaxSessions {
		m.mu.Unlock()
		return
	}
	keepAliveCutoff := time.Now().Add(-SessionKeepAliveWindow)
	var idle []*EditorSession
	for _, s := range m.sessions {
		if s.LastAccessed().Before(keepAliveCutoff) {
			idle = append(idle, s)
		}
	}
	sort.Slice(idle, func(i, j int) bool { return idle[i].LastAccessed().Before(idle[j].LastAccessed()) })

	toFree := len(m.sessions) - MaxSessions + 1
	var evicted []*EditorSession
	for _, s := range idle {
		if len(evicted) >= toFree {
			break
		}
		delete(m.sessions, s.ID)
		evicted = append(evicted, s)
	}
	m.mu.Unlock()

	for _, s := range evicted {
		if _, err := s.Autosave(ctx); err != nil {
			fmt.Printf("[Manager] Autosave failed for evicted session %s: %v\n", shortID(s.ID), err)
		}
		fmt.Printf("[Manager] Cleaned up old session %s to free memory\n", shortID(s.ID))
	}
}

// CleanupOldSessions removes sessions idle for longer than maxAge, but keeps
// sessions that have been accessed within SessionKeepAliveWindow. Pending
// edits are flushed before a session is dropped.
func (m *Manager) CleanupOldSessions(ctx context.Context, maxAge time.Duration) int {
	if maxAge < SessionKeepAliveWindow {
		maxAge = SessionKeepAliveWindow
	}
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	var expired []*EditorSession
	for id, s := range m.sessions {
		if s.LastAccessed().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		if _, err := s.Autosave(ctx); err != nil {
			fmt.Printf("[Manager] Autosave failed for expired session %s: %v\n", shortID(s.ID), err)
		}
		fmt.Printf("[Manager] Cleaned up session %s (idle since %s)\n", shortID(s.ID), s.LastAccessed().Format(time.RFC3339))
	}
	return len(expired)
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
