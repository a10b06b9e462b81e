package schema

import (
	"slices"
	"time"

	// Packages
	types "github.com/mutablelogic/go-server/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// State is the lifecycle state of an upload session.
type State string

const (
	StateInitializing State = "initializing"
	StateCollecting   State = "collecting"
	StateCompleting   State = "completing"
	StateCompleted    State = "completed"
	StateCancelled    State = "cancelled"
	StateExpired      State = "expired"
)

// UploadSession is the server-side record coordinating one chunked upload.
type UploadSession struct {
	Id         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ChunkSize  int64     `json:"chunk_size"`
	ChunkCount int       `json:"chunk_count"`
	Received   []int     `json:"received,omitempty"` // sorted, unique chunk indices
	State      State     `json:"state"`
	ObjectId   string    `json:"object_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ActivityAt time.Time `json:"activity_at"`
	ClosedAt   time.Time `json:"closed_at,omitzero"`
}

// InitRequest declares a new upload.
type InitRequest struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ChunkCount int    `json:"chunks"`
}

type InitResponse struct {
	Id         string `json:"id"`
	ChunkSize  int64  `json:"chunk_size"`
	ChunkCount int    `json:"chunks"`
}

// ChunkResponse acknowledges a stored chunk.
type ChunkResponse struct {
	Id         string `json:"id"`
	Index      int    `json:"index"`
	Received   int    `json:"received"`
	ChunkCount int    `json:"chunks"`
}

// CancelResponse acknowledges a cancel request.
type CancelResponse struct {
	Id  string `json:"id"`
	Ack bool   `json:"ack"`
}

// SessionListRequest pages through sessions. A zero limit returns up to
// MaxListLimit sessions.
type SessionListRequest struct {
	Offset int   `json:"offset,omitempty"`
	Limit  int   `json:"limit,omitempty"`
	State  State `json:"state,omitempty"`
}

type SessionList struct {
	Count int             `json:"count"`
	Body  []UploadSession `json:"body,omitempty"`
}

// ServiceInfo describes the limits a client must agree with before it opens
// a session.
type ServiceInfo struct {
	Storage    string   `json:"storage"`
	ChunkSize  int64    `json:"chunk_size"`
	MaxSize    int64    `json:"max_size"`
	Extensions []string `json:"extensions,omitempty"`
}

// ReclaimResponse reports the outcome of one reclaim pass.
type ReclaimResponse struct {
	Expired []string `json:"expired,omitempty"`
	Purged  []string `json:"purged,omitempty"`
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (s UploadSession) String() string {
	return types.Stringify(s)
}

func (r InitRequest) String() string {
	return types.Stringify(r)
}

func (r InitResponse) String() string {
	return types.Stringify(r)
}

func (r ChunkResponse) String() string {
	return types.Stringify(r)
}

func (i ServiceInfo) String() string {
	return types.Stringify(i)
}

func (r SessionList) String() string {
	return types.Stringify(r)
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateExpired:
		return true
	default:
		return false
	}
}

// Has reports whether the chunk index has been received.
func (s *UploadSession) Has(index int) bool {
	_, found := slices.BinarySearch(s.Received, index)
	return found
}

// Add records a received chunk index, keeping the set sorted. It returns
// false if the index was already present.
func (s *UploadSession) Add(index int) bool {
	i, found := slices.BinarySearch(s.Received, index)
	if found {
		return false
	}
	s.Received = slices.Insert(s.Received, i, index)
	return true
}

// Missing returns the indices in [0, ChunkCount) not yet received.
func (s *UploadSession) Missing() []int {
	var missing []int
	for i := range s.ChunkCount {
		if !s.Has(i) {
			missing = append(missing, i)
		}
	}
	return missing
}

// Full reports whether every planned chunk has been received.
func (s *UploadSession) Full() bool {
	return len(s.Received) == s.ChunkCount
}

// Close moves the session into a terminal state.
func (s *UploadSession) Close(state State, now time.Time) {
	s.State = state
	s.ClosedAt = now
}

// Clone returns a deep copy of the session.
func (s UploadSession) Clone() UploadSession {
	s.Received = slices.Clone(s.Received)
	return s
}
