package resolver

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// NodeReader is the registry view needed by the lookup protocol.
type NodeReader interface {
	Resolver(node common.Hash) common.Address
}

// Directory maps resolver addresses to the instances serving them.
// Nodes reference resolvers by address; the directory turns that reference
// back into something that can be queried.
type Directory struct {
	mu        sync.RWMutex
	resolvers map[common.Address]*Resolver
}

// NewDirectory creates a directory holding the given resolvers.
func NewDirectory(resolvers ...*Resolver) *Directory {
	d := &Directory{resolvers: make(map[common.Address]*Resolver, len(resolvers))}

	for _, r := range resolvers {
		d.Register(r)
	}

	return d
}

// Register adds r under its own address, replacing any previous instance.
func (d *Directory) Register(r *Resolver) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.resolvers[r.Address()] = r
}

// Get returns the resolver registered at addr.
func (d *Directory) Get(addr common.Address) (*Resolver, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.resolvers[addr]

	return r, ok
}

// For returns the resolver a node points at.
func (d *Directory) For(reg NodeReader, node common.Hash) (*Resolver, error) {
	addr := reg.Resolver(node)
	if addr == (common.Address{}) {
		return nil, fmt.Errorf("%w for %s", ErrNoResolver, node.Hex())
	}

	r, ok := d.Get(addr)
	if !ok {
		return nil, fmt.Errorf("%w %s for %s", ErrUnknownResolver, addr.Hex(), node.Hex())
	}

	return r, nil
}

// Resolve reads the record of kind for node through the node's resolver.
func (d *Directory) Resolve(reg NodeReader, node common.Hash, kind Kind) ([]byte, error) {
	r, err := d.For(reg, node)
	if err != nil {
		return nil, err
	}

	value, ok := r.Record(node, kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrRecordNotFound, kind, node.Hex())
	}

	return value, nil
}
