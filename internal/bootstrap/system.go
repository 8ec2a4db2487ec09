package bootstrap

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"YakNS/internal/namehash"
	"YakNS/internal/registrar"
	"YakNS/internal/registry"
	"YakNS/internal/resolver"
	"YakNS/internal/reverse"
	"YakNS/internal/storage"
)

// System is the wired naming system returned by a completed bootstrap.
type System struct {
	Authority common.Address
	TLD       string
	Addresses Addresses

	Registry  *registry.Registry
	Resolver  *resolver.Resolver
	Directory *resolver.Directory
	Registrar *registrar.Registrar
	Reverse   *reverse.Registrar

	db *storage.Storage
}

// Resolve looks up the record of kind for a dotted name.
func (s *System) Resolve(name string, kind resolver.Kind) ([]byte, error) {
	return s.Directory.Resolve(s.Registry, namehash.Namehash(name), kind)
}

// ResolveAddr returns the address record of a dotted name.
func (s *System) ResolveAddr(name string) (common.Address, error) {
	data, err := s.Resolve(name, resolver.KindAddr)
	if err != nil {
		return common.Address{}, err
	}

	return common.BytesToAddress(data), nil
}

// ReverseName returns the name published on addr's reverse node.
func (s *System) ReverseName(addr common.Address) (string, error) {
	data, err := s.Directory.Resolve(s.Registry, namehash.ReverseNode(addr), resolver.KindName)
	if err != nil {
		return "", fmt.Errorf("reverse %s:\n%w", addr.Hex(), err)
	}

	return string(data), nil
}

// Progress returns the last recorded bootstrap step.
func (s *System) Progress() (Step, error) {
	return Progress(s.db)
}
