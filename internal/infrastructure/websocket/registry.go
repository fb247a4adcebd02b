package websocket

import (
	"encoding/json"
	"sync"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"
)

// Registry tracks live connections keyed by user ID. It is constructed
// once per process and injected wherever live push is needed; nothing
// in this package holds global state. A user may hold several
// connections (multiple tabs or devices); per-connection send failures
// are logged and do not stop delivery to the rest.
type Registry struct {
	mu    sync.RWMutex
	conns map[string][]domain.LiveConnection
	log   logger.Logger
}

func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		conns: make(map[string][]domain.LiveConnection),
		log:   log,
	}
}

func (r *Registry) Register(userID string, conn domain.LiveConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[userID] = append(r.conns[userID], conn)
	r.log.Info("Live connection registered", "user_id", userID)
}

func (r *Registry) Unregister(userID string, conn domain.LiveConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.conns[userID][:0]
	for _, c := range r.conns[userID] {
		if c != conn {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		delete(r.conns, userID)
	} else {
		r.conns[userID] = kept
	}
	r.log.Info("Live connection unregistered", "user_id", userID)
}

func (r *Registry) NotifyUser(userID string, payload interface{}) error {
	r.mu.RLock()
	conns := append([]domain.LiveConnection(nil), r.conns[userID]...)
	r.mu.RUnlock()

	if len(conns) == 0 {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	for _, conn := range conns {
		if err := conn.Send(data); err != nil {
			r.log.Error("Failed to push to live connection", "user_id", userID, "error", err)
		}
	}
	return nil
}

func (r *Registry) ConnectedUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.conns))
	for userID := range r.conns {
		users = append(users, userID)
	}
	return users
}
