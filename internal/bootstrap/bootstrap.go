// Package bootstrap creates the naming system and delegates authority down the tree.
//
// The sequence is ordered and not transactional: a failing step aborts the
// rest and nothing is rolled back. Every write is preceded by a read, so
// running the sequence again after a crash converges on the same state.
package bootstrap

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"YakNS/internal/logger"
	"YakNS/internal/namehash"
	"YakNS/internal/registrar"
	"YakNS/internal/registry"
	"YakNS/internal/resolver"
	"YakNS/internal/reverse"
	"YakNS/internal/storage"
)

// Deployment nonces of the components; the address of each is
// crypto.CreateAddress(authority, nonce), so re-runs derive the same identities.
const (
	nonceRegistry uint64 = iota
	nonceResolver
	nonceRegistrar
	nonceReverseRegistrar
)

const (
	// resolverLabel names the node publishing the resolver's own address.
	resolverLabel = "resolver"

	// reverseLabel and addrLabel form the addr.reverse subtree.
	reverseLabel = "reverse"
	addrLabel    = "addr"
)

// Config selects the authority and TLD of a bootstrap.
type Config struct {
	// Authority owns the root and signs every bootstrap write.
	Authority common.Address

	// TLD is the label delegated to the first-come-first-served registrar.
	TLD string
}

// Validate checks the config before any step runs.
func (c Config) Validate() error {
	if c.Authority == (common.Address{}) {
		return fmt.Errorf("authority is required")
	}

	if err := namehash.ValidLabel(c.TLD); err != nil {
		return fmt.Errorf("tld:\n%w", err)
	}

	if c.TLD == resolverLabel || c.TLD == reverseLabel {
		return fmt.Errorf("tld %q is reserved", c.TLD)
	}

	return nil
}

// Addresses holds the derived identities of the components.
type Addresses struct {
	Registry         common.Address
	Resolver         common.Address
	Registrar        common.Address
	ReverseRegistrar common.Address
}

// DeriveAddresses returns the component identities for authority.
func DeriveAddresses(authority common.Address) Addresses {
	return Addresses{
		Registry:         crypto.CreateAddress(authority, nonceRegistry),
		Resolver:         crypto.CreateAddress(authority, nonceResolver),
		Registrar:        crypto.CreateAddress(authority, nonceRegistrar),
		ReverseRegistrar: crypto.CreateAddress(authority, nonceReverseRegistrar),
	}
}

// Bootstrapper runs the sequence against one store.
type Bootstrapper struct {
	cfg   Config
	db    *storage.Storage
	addrs Addresses
	sys   *System

	// afterStep, when set, runs after each step is recorded. Tests use it to
	// interrupt the sequence.
	afterStep func(Step) error
}

// New creates a bootstrapper for db.
func New(cfg Config, db *storage.Storage) (*Bootstrapper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config:\n%w", err)
	}

	return &Bootstrapper{
		cfg:   cfg,
		db:    db,
		addrs: DeriveAddresses(cfg.Authority),
		sys:   &System{Authority: cfg.Authority, TLD: cfg.TLD},
	}, nil
}

// Run applies every step in order and returns the assembled system.
// The first failure is returned as a *StepError and stops the sequence.
func (b *Bootstrapper) Run() (*System, error) {
	start := time.Now()

	prev, err := Progress(b.db)
	if err != nil {
		return nil, fmt.Errorf("read progress:\n%w", err)
	}

	if prev != StepNone {
		logger.Info("resuming bootstrap", "last_completed", prev.String())
	}

	for _, step := range steps {
		if err := b.run(step); err != nil {
			logger.Error("bootstrap step failed", "step", step.String(), "error", err)
			return nil, &StepError{Step: step, Err: err}
		}

		if step > prev {
			if err := saveProgress(b.db, step); err != nil {
				return nil, &StepError{Step: step, Err: fmt.Errorf("record progress:\n%w", err)}
			}
		}

		if b.afterStep != nil {
			if err := b.afterStep(step); err != nil {
				return nil, &StepError{Step: step, Err: err}
			}
		}
	}

	b.sys.Addresses = b.addrs
	b.sys.db = b.db

	logger.Info("bootstrap complete", "tld", b.cfg.TLD, logger.Timed(start))

	return b.sys, nil
}

// run dispatches one step.
func (b *Bootstrapper) run(step Step) error {
	switch step {
	case StepRegistry:
		return b.createRegistry()
	case StepResolver:
		return b.createResolver()
	case StepResolverNode:
		return b.publishResolver()
	case StepRegistrar:
		return b.delegateTLD()
	case StepReverseRegistrar:
		return b.createReverseRegistrar()
	case StepReverseNode:
		return b.delegateReverse()
	default:
		return fmt.Errorf("unknown step %s", step)
	}
}

// createRegistry opens the registry; the root goes to the authority on first open.
func (b *Bootstrapper) createRegistry() error {
	reg, err := registry.New(b.db, b.cfg.Authority)
	if err != nil {
		return err
	}

	b.sys.Registry = reg

	logger.Info("registry ready", "address", b.addrs.Registry.Hex(), "root_owner", reg.Owner(namehash.Root).Hex())

	return nil
}

// createResolver creates the public resolver bound to the registry.
func (b *Bootstrapper) createResolver() error {
	res := resolver.New(b.addrs.Resolver, b.sys.Registry, b.db)

	b.sys.Resolver = res
	b.sys.Directory = resolver.NewDirectory(res)

	logger.Info("resolver ready", "address", res.Address().Hex())

	return nil
}

// publishResolver makes "resolver" resolve to the resolver's own address.
func (b *Bootstrapper) publishResolver() error {
	reg, res := b.sys.Registry, b.sys.Resolver
	auth := b.cfg.Authority
	label := namehash.LabelHash(resolverLabel)
	node := namehash.Subnode(namehash.Root, label)

	if reg.Owner(node) != auth {
		if _, err := reg.SetSubnodeOwner(auth, namehash.Root, label, auth); err != nil {
			return fmt.Errorf("assign resolver node:\n%w", err)
		}
	}

	if reg.Resolver(node) != res.Address() {
		if err := reg.SetResolver(auth, node, res.Address()); err != nil {
			return fmt.Errorf("set resolver of resolver node:\n%w", err)
		}
	}

	if addr, ok := res.Addr(node); !ok || addr != res.Address() {
		if err := res.SetAddr(auth, node, res.Address()); err != nil {
			return fmt.Errorf("publish resolver address:\n%w", err)
		}
	}

	logger.Info("resolver node published", "node", node.Hex())

	return nil
}

// delegateTLD creates the registrar and hands it the TLD subtree.
func (b *Bootstrapper) delegateTLD() error {
	reg := b.sys.Registry
	label := namehash.LabelHash(b.cfg.TLD)
	tldNode := namehash.Subnode(namehash.Root, label)

	b.sys.Registrar = registrar.New(b.addrs.Registrar, reg, tldNode)

	if reg.Owner(tldNode) != b.addrs.Registrar {
		if _, err := reg.SetSubnodeOwner(b.cfg.Authority, namehash.Root, label, b.addrs.Registrar); err != nil {
			return fmt.Errorf("delegate tld %q:\n%w", b.cfg.TLD, err)
		}
	}

	logger.Info("registrar ready", "address", b.addrs.Registrar.Hex(), "tld", b.cfg.TLD, "node", tldNode.Hex())

	return nil
}

// createReverseRegistrar creates the reverse registrar with the public resolver as default.
func (b *Bootstrapper) createReverseRegistrar() error {
	b.sys.Reverse = reverse.New(b.addrs.ReverseRegistrar, b.sys.Registry, b.sys.Resolver)

	logger.Info("reverse registrar ready", "address", b.addrs.ReverseRegistrar.Hex())

	return nil
}

// delegateReverse hands addr.reverse to the reverse registrar via the "reverse" node.
func (b *Bootstrapper) delegateReverse() error {
	reg := b.sys.Registry
	auth := b.cfg.Authority

	if reg.Owner(namehash.ReverseAddrNode) == b.addrs.ReverseRegistrar {
		return nil
	}

	reverseLabelHash := namehash.LabelHash(reverseLabel)
	reverseNode := namehash.Subnode(namehash.Root, reverseLabelHash)

	if reg.Owner(reverseNode) != auth {
		if _, err := reg.SetSubnodeOwner(auth, namehash.Root, reverseLabelHash, auth); err != nil {
			return fmt.Errorf("assign reverse node:\n%w", err)
		}
	}

	if _, err := reg.SetSubnodeOwner(auth, reverseNode, namehash.LabelHash(addrLabel), b.addrs.ReverseRegistrar); err != nil {
		return fmt.Errorf("delegate addr.reverse:\n%w", err)
	}

	logger.Info("reverse subtree delegated", "node", namehash.ReverseAddrNode.Hex())

	return nil
}
