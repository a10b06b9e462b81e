package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"slices"
	"strings"

	// Packages
	uuid "github.com/google/uuid"
	backend "github.com/mutablelogic/go-chunkup/pkg/backend"
	chunk "github.com/mutablelogic/go-chunkup/pkg/chunk"
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	otel "github.com/mutablelogic/go-client/pkg/otel"
	types "github.com/mutablelogic/go-server/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

// wellKnownMIME covers video types missing from some system MIME databases.
var wellKnownMIME = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".m4v":  "video/x-m4v",
	".webm": "video/webm",
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Init opens a new session in the collecting state.
func (manager *Manager) Init(ctx context.Context, req schema.InitRequest) (_ *schema.InitResponse, err error) {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("Init"))
	defer func() { endFunc(err) }()

	// Validate the declared upload
	if err := manager.validateInit(req); err != nil {
		return nil, err
	}

	// Create the session record
	now := manager.now()
	session := schema.UploadSession{
		Id:         uuid.NewString(),
		Name:       req.Name,
		Size:       req.Size,
		ChunkSize:  manager.chunkSize,
		ChunkCount: req.ChunkCount,
		State:      schema.StateCollecting,
		CreatedAt:  now,
		ActivityAt: now,
	}
	if err := manager.registry.Create(child, session); err != nil {
		return nil, err
	}
	manager.countSession(child, schema.StateCollecting)
	manager.debugf(child, "session %s opened for %q (%d bytes in %d chunks)", session.Id, session.Name, session.Size, session.ChunkCount)

	// Return success
	return &schema.InitResponse{
		Id:         session.Id,
		ChunkSize:  session.ChunkSize,
		ChunkCount: session.ChunkCount,
	}, nil
}

// PutChunk stores the chunk at index. A chunk which has already been received
// is checked for length and acknowledged without touching storage.
func (manager *Manager) PutChunk(ctx context.Context, id string, index int, body io.Reader) (_ *schema.ChunkResponse, err error) {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("PutChunk"))
	defer func() { endFunc(err) }()

	if err := validId(id); err != nil {
		return nil, err
	}
	unlock := manager.lock(id)
	defer unlock()

	// Get the session, which must be collecting
	session, err := manager.registry.Get(child, id)
	if err != nil {
		return nil, err
	} else if err := collecting(session); err != nil {
		return nil, err
	}
	length, err := chunk.Length(session.Size, session.ChunkSize, index)
	if err != nil {
		return nil, err
	}

	// Store the chunk, or check the length of a duplicate
	stored := false
	if session.Has(index) {
		if n, err := io.Copy(io.Discard, io.LimitReader(body, length+1)); err != nil {
			return nil, err
		} else if n != length {
			return nil, fmt.Errorf("%w: chunk %d has %d bytes, expected %d", schema.ErrInvalidChunk, index, n, length)
		}
		manager.debugf(child, "session %s: duplicate chunk %d acknowledged", id, index)
	} else {
		if err := manager.storage.WriteChunk(child, id, index, length, body); err != nil {
			return nil, err
		}
		stored = true
	}

	// Record the chunk and the activity on the latest record, which another
	// process sharing the registry may have changed
	session, err = manager.registry.Update(child, id, func(session *schema.UploadSession) error {
		if err := collecting(session); err != nil {
			return err
		}
		session.Add(index)
		session.ActivityAt = manager.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if stored {
		manager.chunks.Add(child, 1)
		manager.bytes.Add(child, length)
	}

	// Return success
	return &schema.ChunkResponse{
		Id:         id,
		Index:      index,
		Received:   len(session.Received),
		ChunkCount: session.ChunkCount,
	}, nil
}

// Complete reassembles the chunks of a session, in index order, into one
// object and releases the chunk storage. When reassembly fails the session
// returns to collecting.
func (manager *Manager) Complete(ctx context.Context, id string) (_ *schema.Object, err error) {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("Complete"))
	defer func() { endFunc(err) }()

	if err := validId(id); err != nil {
		return nil, err
	}
	unlock := manager.lock(id)
	defer unlock()

	// Every chunk must have been received. The transition to completing
	// happens once, so only one caller assembles the object.
	session, err := manager.registry.Update(child, id, func(session *schema.UploadSession) error {
		if session.State.Terminal() {
			return fmt.Errorf("%w: session %q is %s", schema.ErrSessionNotFound, id, session.State)
		} else if missing := session.Missing(); len(missing) > 0 {
			return fmt.Errorf("%w: session %q is missing chunks %v", schema.ErrIncompleteUpload, id, missing)
		} else if session.State != schema.StateCollecting {
			return fmt.Errorf("%w: session %q is %s", schema.ErrIncompleteUpload, id, session.State)
		}
		session.State = schema.StateCompleting
		session.ActivityAt = manager.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Assemble the object
	objectId := uuid.NewString()
	obj, err := manager.storage.Assemble(child, schema.AssembleRequest{
		Session:     id,
		ChunkCount:  session.ChunkCount,
		Path:        backend.ObjectPath(objectId),
		ContentType: contentType(session.Name),
		Meta: schema.ObjectMeta{
			schema.AttrSession: id,
			schema.AttrName:    session.Name,
		},
	})
	if err == nil && obj.Size != session.Size {
		err = errors.Join(
			fmt.Errorf("assembled %d bytes, expected %d", obj.Size, session.Size),
			manager.storage.DeleteObject(child, obj.Path),
		)
	}
	if err != nil {
		session.State = schema.StateCollecting
		return nil, errors.Join(err, manager.registry.Put(child, *session))
	}
	obj.Id = objectId
	obj.Name = session.Name

	// Transition to completed
	session.ObjectId = objectId
	session.Close(schema.StateCompleted, manager.now())
	if err := manager.registry.Put(child, *session); err != nil {
		return nil, errors.Join(err, manager.storage.DeleteObject(child, obj.Path))
	}
	manager.countSession(child, schema.StateCompleted)
	manager.logf(child, "session %s completed as object %s (%q, %d bytes)", id, objectId, session.Name, obj.Size)

	// Release chunk storage
	if _, err := manager.storage.DeleteChunks(child, id); err != nil {
		manager.logf(child, "session %s: releasing chunks: %v", id, err)
	}

	// Hand the object on
	if manager.notifier != nil {
		if err := manager.notifier.Notify(child, *obj); err != nil {
			manager.logf(child, "session %s: notify: %v", id, err)
		}
	}

	// Return success
	return obj, nil
}

// Cancel discards a session and all of its chunk bytes. Cancelling an unknown
// or finished session succeeds.
func (manager *Manager) Cancel(ctx context.Context, id string) (err error) {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("Cancel"))
	defer func() { endFunc(err) }()

	if validId(id) != nil {
		return nil
	}
	unlock := manager.lock(id)
	defer unlock()

	// Mark an open session as cancelled, so no further chunks are accepted
	cancelled := false
	if _, err := manager.registry.Update(child, id, func(session *schema.UploadSession) error {
		if cancelled = !session.State.Terminal(); cancelled {
			session.Close(schema.StateCancelled, manager.now())
		}
		return nil
	}); err != nil && !errors.Is(err, schema.ErrSessionNotFound) {
		return err
	}

	// Always release the chunk storage
	if _, err := manager.storage.DeleteChunks(child, id); err != nil {
		return err
	}
	if cancelled {
		manager.countSession(child, schema.StateCancelled)
		manager.logf(child, "session %s cancelled", id)
	}

	// Return success
	return nil
}

// GetSession returns a session record in any state.
func (manager *Manager) GetSession(ctx context.Context, id string) (_ *schema.UploadSession, err error) {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("GetSession"))
	defer func() { endFunc(err) }()

	if err := validId(id); err != nil {
		return nil, err
	}
	return manager.registry.Get(child, id)
}

// ListSessions returns session records in creation order.
func (manager *Manager) ListSessions(ctx context.Context, req schema.SessionListRequest) (_ *schema.SessionList, err error) {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("ListSessions"))
	defer func() { endFunc(err) }()

	sessions, err := manager.registry.List(child)
	if err != nil {
		return nil, err
	}
	if req.State != "" {
		sessions = slices.DeleteFunc(sessions, func(s schema.UploadSession) bool {
			return s.State != req.State
		})
	}

	// Record total count before slicing
	resp := &schema.SessionList{Count: len(sessions)}

	// Apply offset
	offset := min(max(req.Offset, 0), resp.Count)
	sessions = sessions[offset:]

	// Clamp limit to MaxListLimit and apply
	limit := req.Limit
	if limit <= 0 || limit > schema.MaxListLimit {
		limit = schema.MaxListLimit
	}
	if limit < len(sessions) {
		sessions = sessions[:limit]
	}
	resp.Body = sessions

	return resp, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (manager *Manager) validateInit(req schema.InitRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: missing name", schema.ErrInvalidInput)
	}
	if len(manager.extensions) > 0 {
		ext := strings.ToLower(filepath.Ext(req.Name))
		if !slices.Contains(manager.extensions, ext) {
			return fmt.Errorf("%w: %q is not an accepted file type (accepted: %s)", schema.ErrInvalidInput, req.Name, strings.Join(manager.extensions, ", "))
		}
	}
	if req.Size <= 0 {
		return fmt.Errorf("%w: size must be positive, got %d", schema.ErrInvalidInput, req.Size)
	}
	if req.Size > manager.maxSize {
		return fmt.Errorf("%w: size %d exceeds maximum of %d bytes", schema.ErrInvalidInput, req.Size, manager.maxSize)
	}
	if want := chunk.Count(req.Size, manager.chunkSize); req.ChunkCount != want {
		return fmt.Errorf("%w: %d bytes needs %d chunks of %d bytes, got %d", schema.ErrInvalidInput, req.Size, want, manager.chunkSize, req.ChunkCount)
	}
	return nil
}

// collecting returns an error unless chunks may be added to the session.
func collecting(session *schema.UploadSession) error {
	if session.State.Terminal() {
		return fmt.Errorf("%w: session %q is %s", schema.ErrSessionNotFound, session.Id, session.State)
	} else if session.State != schema.StateCollecting {
		return fmt.Errorf("%w: session %q is %s", schema.ErrInvalidChunk, session.Id, session.State)
	}
	return nil
}

func contentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, exists := wellKnownMIME[ext]; exists {
		return ct
	} else if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return types.ContentTypeBinary
}
