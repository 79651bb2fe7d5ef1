package sioclient

import (
	"sort"
	"sync"
)

// namespaceRegistry holds the manager's namespace sockets. A socket leaves
// the registry exactly once; a later lookup of the same namespace creates a
// new socket.
type namespaceRegistry struct {
	sync.RWMutex
	sockets map[string]*Socket
}

func newNamespaceRegistry() *namespaceRegistry {
	return &namespaceRegistry{sockets: make(map[string]*Socket)}
}

// getOrCreate returns the socket for nsp, creating it with create when absent.
func (r *namespaceRegistry) getOrCreate(nsp string, create func() *Socket) (*Socket, bool) {
	r.Lock()
	defer r.Unlock()
	if socket, ok := r.sockets[nsp]; ok {
		return socket, false
	}
	socket := create()
	r.sockets[nsp] = socket
	return socket, true
}

func (r *namespaceRegistry) get(nsp string) *Socket {
	r.RLock()
	defer r.RUnlock()
	return r.sockets[nsp]
}

// owns reports whether socket is the live socket of its namespace.
func (r *namespaceRegistry) owns(socket *Socket) bool {
	return r.get(socket.nsp) == socket
}

func (r *namespaceRegistry) remove(nsp string) *Socket {
	r.Lock()
	defer r.Unlock()
	socket, ok := r.sockets[nsp]
	if !ok {
		return nil
	}
	delete(r.sockets, nsp)
	return socket
}

func (r *namespaceRegistry) len() int {
	r.RLock()
	defer r.RUnlock()
	return len(r.sockets)
}

// snapshot returns the sockets ordered by namespace.
func (r *namespaceRegistry) snapshot() []*Socket {
	r.RLock()
	sockets := make([]*Socket, 0, len(r.sockets))
	for _, socket := range r.sockets {
		sockets = append(sockets, socket)
	}
	r.RUnlock()

	sort.Slice(sockets, func(i, j int) bool { return sockets[i].nsp < sockets[j].nsp })
	return sockets
}
