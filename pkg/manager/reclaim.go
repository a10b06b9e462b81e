package manager

import (
	"context"
	"errors"
	"time"

	// Packages
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	otel "github.com/mutablelogic/go-client/pkg/otel"
)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

var errActive = errors.New("session is active")

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Run calls Reclaim every reclaim interval until the context is done.
func (manager *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(manager.interval)
	defer ticker.Stop()

	manager.debugf(ctx, "reclaim every %v (idle %v, retention %v)", manager.interval, manager.idle, manager.retention)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := manager.Reclaim(ctx); err != nil {
				manager.logf(ctx, "reclaim: %v", err)
			}
		}
	}
}

// Reclaim expires open sessions which have been idle for longer than the
// idle timeout, discarding their chunks, and purges finished session records
// older than the retention period.
func (manager *Manager) Reclaim(ctx context.Context) (_ *schema.ReclaimResponse, err error) {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("Reclaim"))
	defer func() { endFunc(err) }()

	sessions, err := manager.registry.List(child)
	if err != nil {
		return nil, err
	}

	var result error
	resp := new(schema.ReclaimResponse)
	for _, session := range sessions {
		if child.Err() != nil {
			return resp, errors.Join(result, child.Err())
		}
		expired, purged, err := manager.reclaim(child, session.Id)
		if err != nil {
			result = errors.Join(result, err)
		} else if expired {
			resp.Expired = append(resp.Expired, session.Id)
		} else if purged {
			resp.Purged = append(resp.Purged, session.Id)
		}
	}
	if len(resp.Expired) > 0 || len(resp.Purged) > 0 {
		manager.logf(child, "reclaim: %d sessions expired, %d purged", len(resp.Expired), len(resp.Purged))
	}

	// Return any errors
	return resp, result
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// reclaim re-reads one session under its lock, since it may have moved on
// since it was listed.
func (manager *Manager) reclaim(ctx context.Context, id string) (bool, bool, error) {
	unlock := manager.lock(id)
	defer unlock()

	session, err := manager.registry.Get(ctx, id)
	if errors.Is(err, schema.ErrSessionNotFound) {
		return false, false, nil
	} else if err != nil {
		return false, false, err
	}
	now := manager.now()

	switch {
	case !session.State.Terminal():
		if now.Sub(session.ActivityAt) <= manager.idle {
			return false, false, nil
		}

		// Expire on the latest record, which may have seen activity since
		var idle time.Duration
		if _, err := manager.registry.Update(ctx, id, func(session *schema.UploadSession) error {
			if idle = now.Sub(session.ActivityAt); session.State.Terminal() || idle <= manager.idle {
				return errActive
			}
			session.Close(schema.StateExpired, now)
			return nil
		}); errors.Is(err, errActive) || errors.Is(err, schema.ErrSessionNotFound) {
			return false, false, nil
		} else if err != nil {
			return false, false, err
		}
		if _, err := manager.storage.DeleteChunks(ctx, id); err != nil {
			return false, false, err
		}
		manager.countSession(ctx, schema.StateExpired)
		manager.debugf(ctx, "session %s expired after %v idle", id, idle.Truncate(time.Second))
		return true, false, nil
	case !session.ClosedAt.IsZero() && now.Sub(session.ClosedAt) > manager.retention:
		// Chunks left behind by a failed expiry go with the record
		if _, err := manager.storage.DeleteChunks(ctx, id); err != nil {
			return false, false, err
		}
		if err := manager.registry.Delete(ctx, id); err != nil {
			return false, false, err
		}
		manager.debugf(ctx, "session %s purged", id)
		return false, true, nil
	default:
		return false, false, nil
	}
}
