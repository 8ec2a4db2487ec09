// Package namehash derives the 256-bit node identifiers of the naming tree.
//
// A label hash is keccak256 over the UTF-8 bytes of one label. A node is
// keccak256(parent || labelHash), folded from the root through each label of a
// dotted name read right to left, so "alice.yak" is Subnode(Subnode(Root, "yak"), "alice").
package namehash

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidLabel is returned for labels that cannot name a single tree segment.
var ErrInvalidLabel = errors.New("invalid label")

// Root is the all-zero node at the top of the tree.
var Root = common.Hash{}

// ReverseAddrNode is the namehash of "addr.reverse", the root of the address->name subtree.
var ReverseAddrNode = Namehash("addr.reverse")

// LabelHash returns keccak256 of the label's UTF-8 bytes.
func LabelHash(label string) common.Hash {
	return crypto.Keccak256Hash([]byte(label))
}

// Subnode returns the node for labelHash directly under parent.
func Subnode(parent, labelHash common.Hash) common.Hash {
	return crypto.Keccak256Hash(parent.Bytes(), labelHash.Bytes())
}

// Namehash returns the node of a dotted name. The empty name is Root.
func Namehash(name string) common.Hash {
	node := Root
	if name == "" {
		return node
	}

	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		node = Subnode(node, LabelHash(labels[i]))
	}

	return node
}

// ValidLabel checks that label is a non-empty, dot-free UTF-8 string.
func ValidLabel(label string) error {
	switch {
	case label == "":
		return fmt.Errorf("%w: empty", ErrInvalidLabel)
	case !utf8.ValidString(label):
		return fmt.Errorf("%w: not utf-8", ErrInvalidLabel)
	case strings.Contains(label, "."):
		return fmt.Errorf("%w: %q contains a dot", ErrInvalidLabel, label)
	}

	return nil
}

// ReverseLabel returns the label under ReverseAddrNode for addr:
// the lowercase hex of its 20 bytes without a 0x prefix.
func ReverseLabel(addr common.Address) string {
	return hex.EncodeToString(addr.Bytes())
}

// ReverseNode returns the reverse node owned by addr after a claim.
func ReverseNode(addr common.Address) common.Hash {
	return Subnode(ReverseAddrNode, LabelHash(ReverseLabel(addr)))
}
