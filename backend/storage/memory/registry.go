package memory

import (
	"github.com/samber/lo"
)

// Registry binds connections to identities.
// It is not safe for concurrent use, callers serialize access.
type Registry struct {
	byConn     map[string]string
	byIdentity map[string]string
	order      []string
}

func NewRegistry() *Registry {
	return &Registry{
		byConn:     make(map[string]string),
		byIdentity: make(map[string]string),
	}
}

// Register binds conn to identity. It is a no-op returning false if the identity
// is already bound to some connection or conn already carries an identity.
func (r *Registry) Register(conn, identity string) bool {
	if _, ok := r.byIdentity[identity]; ok {
		return false
	}
	if _, ok := r.byConn[conn]; ok {
		return false
	}
	r.byConn[conn] = identity
	r.byIdentity[identity] = conn
	r.order = append(r.order, identity)
	return true
}

func (r *Registry) Unregister(conn string) (string, bool) {
	identity, ok := r.byConn[conn]
	if !ok {
		return "", false
	}
	delete(r.byConn, conn)
	delete(r.byIdentity, identity)
	r.order = lo.Without(r.order, identity)
	return identity, true
}

func (r *Registry) IdentityOf(conn string) (string, bool) {
	identity, ok := r.byConn[conn]
	return identity, ok
}

func (r *Registry) ConnectionOf(identity string) (string, bool) {
	conn, ok := r.byIdentity[identity]
	return conn, ok
}

// Snapshot returns registered identities in registration order.
func (r *Registry) Snapshot() []string {
	return append(make([]string, 0, len(r.order)), r.order...)
}
