// Package permission tracks which players hold which limiter permissions.
package permission

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Ignore lets a player place restricted objects without any density check.
const Ignore = "siegelimit.ignore"

// ErrUnknownPermission is returned when granting a permission that was never registered.
var ErrUnknownPermission = errors.New("unknown permission")

// Registry is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	registered map[string]struct{}
	grants     map[string]map[string]struct{} // permission -> player UIDs
}

// NewRegistry creates a registry with the given permissions registered.
func NewRegistry(permissions ...string) *Registry {
	r := &Registry{
		registered: make(map[string]struct{}),
		grants:     make(map[string]map[string]struct{}),
	}
	for _, p := range permissions {
		r.Register(p)
	}
	return r
}

// Register makes a permission grantable. Registering twice is a no-op.
func (r *Registry) Register(permission string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.registered[permission]; ok {
		return
	}
	r.registered[permission] = struct{}{}
	r.grants[permission] = make(map[string]struct{})
}

// Grant gives uid the permission.
func (r *Registry) Grant(uid, permission string) error {
	if uid == "" {
		return fmt.Errorf("player uid is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	holders, ok := r.grants[permission]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPermission, permission)
	}
	holders[uid] = struct{}{}
	return nil
}

// Revoke takes the permission away from uid. It reports whether uid held it.
func (r *Registry) Revoke(uid, permission string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	holders, ok := r.grants[permission]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownPermission, permission)
	}
	_, held := holders[uid]
	delete(holders, uid)
	return held, nil
}

// Has reports whether uid holds permission.
func (r *Registry) Has(uid, permission string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.grants[permission][uid]
	return ok
}

// Replace sets the holders of permission to exactly uids, e.g. after a config reload.
func (r *Registry) Replace(permission string, uids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.registered[permission]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPermission, permission)
	}
	holders := make(map[string]struct{}, len(uids))
	for _, uid := range uids {
		if uid != "" {
			holders[uid] = struct{}{}
		}
	}
	r.grants[permission] = holders
	return nil
}

// Holders returns the UIDs holding permission, sorted.
func (r *Registry) Holders(permission string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.grants[permission]))
	for uid := range r.grants[permission] {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out
}
