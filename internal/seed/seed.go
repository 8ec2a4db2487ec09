// Package seed registers a manifest of names right after bootstrap.
//
// Each entry is registered to the authority, given its records, and then
// transferred to its owner, so the owner receives a fully configured name.
package seed

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"YakNS/internal/bootstrap"
	"YakNS/internal/logger"
	"YakNS/internal/namehash"
	"YakNS/internal/registrar"
)

// Manifest lists the names to register.
type Manifest struct {
	Names []Entry `yaml:"names"`
}

// Entry is one name under the TLD.
type Entry struct {
	Label       string            `yaml:"label"`
	Owner       string            `yaml:"owner"`
	Addr        string            `yaml:"addr,omitempty"`
	ContentHash string            `yaml:"contenthash,omitempty"`
	Text        map[string]string `yaml:"text,omitempty"`
}

// Result counts what Apply did.
type Result struct {
	Registered int
	Resumed    int // Resumed counts names still held by the authority and configured again
	Skipped    int
}

// Load reads and validates a manifest file.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read seed %s:\n%w", path, err)
	}

	return Parse(data)
}

// Parse decodes and validates a YAML manifest.
func Parse(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse seed:\n%w", err)
	}

	seen := make(map[string]bool, len(m.Names))

	for i, e := range m.Names {
		if err := e.validate(); err != nil {
			return Manifest{}, fmt.Errorf("names[%d]:\n%w", i, err)
		}

		if seen[e.Label] {
			return Manifest{}, fmt.Errorf("names[%d]: duplicate label %q", i, e.Label)
		}
		seen[e.Label] = true
	}

	return m, nil
}

// Apply registers every entry that is still available. A name the authority
// still holds is configured again, which finishes an earlier run that failed
// before the hand-over. Names owned by anyone else are skipped, so applying a
// manifest twice is harmless.
func Apply(sys *bootstrap.System, m Manifest) (Result, error) {
	var res Result

	for _, e := range m.Names {
		if err := e.validate(); err != nil {
			return res, fmt.Errorf("invalid entry %q:\n%w", e.Label, err)
		}

		node, err := sys.Registrar.Register(e.Label, sys.Authority)
		if errors.Is(err, registrar.ErrAlreadyRegistered) {
			node = namehash.Subnode(sys.Registrar.TLDNode(), namehash.LabelHash(e.Label))
			if sys.Registry.Owner(node) != sys.Authority {
				logger.Debug("seed name already registered", "label", e.Label)
				res.Skipped++
				continue
			}

			if err := configure(sys, node, e); err != nil {
				return res, fmt.Errorf("resume %q:\n%w", e.Label, err)
			}

			logger.Debug("seed name resumed", "label", e.Label)
			res.Resumed++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("register %q:\n%w", e.Label, err)
		}

		if err := configure(sys, node, e); err != nil {
			return res, fmt.Errorf("configure %q:\n%w", e.Label, err)
		}

		res.Registered++
	}

	logger.Info("seed applied", "registered", res.Registered, "resumed", res.Resumed, "skipped", res.Skipped)

	return res, nil
}

// configure writes the entry's records as the authority and hands the node over.
func configure(sys *bootstrap.System, node common.Hash, e Entry) error {
	auth := sys.Authority
	res := sys.Resolver

	if e.hasRecords() {
		if err := sys.Registry.SetResolver(auth, node, res.Address()); err != nil {
			return err
		}
	}

	if e.Addr != "" {
		if err := res.SetAddr(auth, node, common.HexToAddress(e.Addr)); err != nil {
			return err
		}
	}

	if e.ContentHash != "" {
		hash, _ := hex.DecodeString(strings.TrimPrefix(e.ContentHash, "0x"))
		if err := res.SetContentHash(auth, node, hash); err != nil {
			return err
		}
	}

	for key, value := range e.Text {
		if err := res.SetText(auth, node, key, value); err != nil {
			return err
		}
	}

	owner := common.HexToAddress(e.Owner)
	if owner == auth {
		return nil
	}

	return sys.Registry.SetOwner(auth, node, owner)
}

// hasRecords reports whether the entry publishes anything through the resolver.
func (e Entry) hasRecords() bool {
	return e.Addr != "" || e.ContentHash != "" || len(e.Text) > 0
}

// validate checks the entry's fields.
func (e Entry) validate() error {
	if err := namehash.ValidLabel(e.Label); err != nil {
		return err
	}

	if !common.IsHexAddress(e.Owner) || common.HexToAddress(e.Owner) == (common.Address{}) {
		return fmt.Errorf("owner %q is not a non-zero hex address", e.Owner)
	}

	if e.Addr != "" && !common.IsHexAddress(e.Addr) {
		return fmt.Errorf("addr %q is not a hex address", e.Addr)
	}

	if e.ContentHash != "" {
		if _, err := hex.DecodeString(strings.TrimPrefix(e.ContentHash, "0x")); err != nil {
			return fmt.Errorf("contenthash is not hex:\n%w", err)
		}
	}

	for key, value := range e.Text {
		if key == "" || !utf8.ValidString(key) {
			return fmt.Errorf("text key %q must be non-empty utf-8", key)
		}
		if !utf8.ValidString(value) {
			return fmt.Errorf("text %q value is not utf-8", key)
		}
	}

	return nil
}
