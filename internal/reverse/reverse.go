// Package reverse lets an address claim its node under addr.reverse and
// publish a name there, giving address -> name lookups.
package reverse

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"YakNS/internal/logger"
	"YakNS/internal/namehash"
	"YakNS/internal/registrar"
)

// NodeStore is the registry surface the reverse registrar drives.
type NodeStore interface {
	SetSubnodeOwner(caller common.Address, parent, labelHash common.Hash, owner common.Address) (common.Hash, error)
	SetResolver(caller common.Address, node common.Hash, resolver common.Address) error
	SetOwner(caller common.Address, node common.Hash, owner common.Address) error
}

// NameResolver is the resolver used for names published through SetName.
type NameResolver interface {
	Address() common.Address
	SetName(caller common.Address, node common.Hash, name string) error
}

// Registrar assigns reverse nodes. It must own namehash.ReverseAddrNode.
type Registrar struct {
	addr     common.Address
	nodes    NodeStore
	resolver NameResolver // resolver is the default resolver for SetName
	base     common.Hash
}

// New creates a reverse registrar identified by addr.
func New(addr common.Address, nodes NodeStore, defaultResolver NameResolver) *Registrar {
	return &Registrar{
		addr:     addr,
		nodes:    nodes,
		resolver: defaultResolver,
		base:     namehash.ReverseAddrNode,
	}
}

// Address returns the reverse registrar's identity.
func (r *Registrar) Address() common.Address {
	return r.addr
}

// Node returns the reverse node of addr.
func (r *Registrar) Node(addr common.Address) common.Hash {
	return namehash.Subnode(r.base, namehash.LabelHash(namehash.ReverseLabel(addr)))
}

// Claim makes caller the owner of its own reverse node.
func (r *Registrar) Claim(caller common.Address) (common.Hash, error) {
	if caller == (common.Address{}) {
		return common.Hash{}, registrar.ErrInvalidClaimant
	}

	label := namehash.LabelHash(namehash.ReverseLabel(caller))

	node, err := r.nodes.SetSubnodeOwner(r.addr, r.base, label, caller)
	if err != nil {
		return common.Hash{}, fmt.Errorf("claim reverse node of %s:\n%w", caller.Hex(), err)
	}

	logger.Debug("reverse node claimed", "addr", caller.Hex(), "node", node.Hex())

	return node, nil
}

// ClaimWithResolver points caller's reverse node at resolver and hands it to owner.
// A zero resolver leaves the current resolver in place.
func (r *Registrar) ClaimWithResolver(caller, owner common.Address, resolver common.Address) (common.Hash, error) {
	if caller == (common.Address{}) || owner == (common.Address{}) {
		return common.Hash{}, registrar.ErrInvalidClaimant
	}

	label := namehash.LabelHash(namehash.ReverseLabel(caller))

	// Hold the node while the resolver is set, then transfer it.
	node, err := r.nodes.SetSubnodeOwner(r.addr, r.base, label, r.addr)
	if err != nil {
		return common.Hash{}, fmt.Errorf("claim reverse node of %s:\n%w", caller.Hex(), err)
	}

	if resolver != (common.Address{}) {
		if err := r.nodes.SetResolver(r.addr, node, resolver); err != nil {
			return common.Hash{}, fmt.Errorf("set reverse resolver:\n%w", err)
		}
	}

	if owner != r.addr {
		if err := r.nodes.SetOwner(r.addr, node, owner); err != nil {
			return common.Hash{}, fmt.Errorf("transfer reverse node:\n%w", err)
		}
	}

	return node, nil
}

// SetName publishes name as caller's reverse record on the default resolver
// and leaves caller owning the reverse node.
func (r *Registrar) SetName(caller common.Address, name string) (common.Hash, error) {
	node, err := r.ClaimWithResolver(caller, r.addr, r.resolver.Address())
	if err != nil {
		return common.Hash{}, err
	}

	if err := r.resolver.SetName(r.addr, node, name); err != nil {
		return common.Hash{}, fmt.Errorf("set reverse name:\n%w", err)
	}

	if err := r.nodes.SetOwner(r.addr, node, caller); err != nil {
		return common.Hash{}, fmt.Errorf("transfer reverse node:\n%w", err)
	}

	logger.Info("reverse name set", "addr", caller.Hex(), "name", name)

	return node, nil
}
