// Package registrar hands out names under one TLD on a first-come, first-served basis.
package registrar

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"YakNS/internal/logger"
	"YakNS/internal/namehash"
)

var (
	// ErrAlreadyRegistered is returned when the requested name already has an owner.
	ErrAlreadyRegistered = errors.New("already registered")

	// ErrInvalidClaimant is returned for the zero address as claimant.
	ErrInvalidClaimant = errors.New("invalid claimant")
)

// NodeStore is the registry surface the registrar drives.
type NodeStore interface {
	Owner(node common.Hash) common.Address
	SetSubnodeOwner(caller common.Address, parent, labelHash common.Hash, owner common.Address) (common.Hash, error)
}

// Registrar assigns children of tldNode. It must own tldNode in the registry.
type Registrar struct {
	mu      sync.Mutex
	addr    common.Address // addr is the registrar's identity as a node owner
	nodes   NodeStore
	tldNode common.Hash
}

// New creates a registrar identified by addr for the subtree rooted at tldNode.
func New(addr common.Address, nodes NodeStore, tldNode common.Hash) *Registrar {
	return &Registrar{addr: addr, nodes: nodes, tldNode: tldNode}
}

// Address returns the registrar's identity.
func (r *Registrar) Address() common.Address {
	return r.addr
}

// TLDNode returns the node the registrar allocates under.
func (r *Registrar) TLDNode() common.Hash {
	return r.tldNode
}

// Register assigns label under the TLD to claimant if nobody owns it yet.
// There is no expiry: a registered name stays with its owner until they transfer it.
func (r *Registrar) Register(label string, claimant common.Address) (common.Hash, error) {
	if err := namehash.ValidLabel(label); err != nil {
		return common.Hash{}, err
	}

	if claimant == (common.Address{}) {
		return common.Hash{}, ErrInvalidClaimant
	}

	labelHash := namehash.LabelHash(label)
	node := namehash.Subnode(r.tldNode, labelHash)

	// The owner check and assignment must not interleave with another Register.
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner := r.nodes.Owner(node); owner != (common.Address{}) {
		return common.Hash{}, fmt.Errorf("%w: %q owned by %s", ErrAlreadyRegistered, label, owner.Hex())
	}

	if _, err := r.nodes.SetSubnodeOwner(r.addr, r.tldNode, labelHash, claimant); err != nil {
		return common.Hash{}, fmt.Errorf("assign %q:\n%w", label, err)
	}

	logger.Info("name registered", "label", label, "node", node.Hex(), "owner", claimant.Hex())

	return node, nil
}

// Available reports whether label can currently be registered.
func (r *Registrar) Available(label string) bool {
	if namehash.ValidLabel(label) != nil {
		return false
	}

	node := namehash.Subnode(r.tldNode, namehash.LabelHash(label))

	return r.nodes.Owner(node) == (common.Address{})
}
