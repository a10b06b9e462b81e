package registry

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	// Packages
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type memory struct {
	sync.RWMutex
	sessions map[string]schema.UploadSession
}

var _ Registry = (*memory)(nil)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewMemory returns a registry which keeps records in process memory.
func NewMemory() *memory {
	return &memory{sessions: make(map[string]schema.UploadSession)}
}

func (m *memory) Close() error {
	m.Lock()
	defer m.Unlock()
	clear(m.sessions)
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (m *memory) Create(_ context.Context, session schema.UploadSession) error {
	m.Lock()
	defer m.Unlock()
	if _, exists := m.sessions[session.Id]; exists {
		return fmt.Errorf("session %q already exists", session.Id)
	}
	m.sessions[session.Id] = session.Clone()
	return nil
}

func (m *memory) Get(_ context.Context, id string) (*schema.UploadSession, error) {
	m.RLock()
	defer m.RUnlock()
	session, exists := m.sessions[id]
	if !exists {
		return nil, fmt.Errorf("%w: %q", schema.ErrSessionNotFound, id)
	}
	session = session.Clone()
	return &session, nil
}

func (m *memory) Put(_ context.Context, session schema.UploadSession) error {
	m.Lock()
	defer m.Unlock()
	if _, exists := m.sessions[session.Id]; !exists {
		return fmt.Errorf("%w: %q", schema.ErrSessionNotFound, session.Id)
	}
	m.sessions[session.Id] = session.Clone()
	return nil
}

func (m *memory) Update(_ context.Context, id string, fn func(*schema.UploadSession) error) (*schema.UploadSession, error) {
	m.Lock()
	defer m.Unlock()
	session, exists := m.sessions[id]
	if !exists {
		return nil, fmt.Errorf("%w: %q", schema.ErrSessionNotFound, id)
	}
	session = session.Clone()
	if err := fn(&session); err != nil {
		return nil, err
	}
	m.sessions[id] = session.Clone()
	return &session, nil
}

func (m *memory) Delete(_ context.Context, id string) error {
	m.Lock()
	defer m.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memory) List(_ context.Context) ([]schema.UploadSession, error) {
	m.RLock()
	defer m.RUnlock()
	result := make([]schema.UploadSession, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session.Clone())
	}
	sortSessions(result)
	return result, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func sortSessions(sessions []schema.UploadSession) {
	slices.SortFunc(sessions, func(a, b schema.UploadSession) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Id, b.Id)
	})
}
