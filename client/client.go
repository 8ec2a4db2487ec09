package client

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"YakNS/internal/api"
	"YakNS/internal/resolver"
)

type (
	// Status describes a node's bootstrap state and component addresses.
	Status = api.StatusResponse

	// NodeInfo is the registry record of a name.
	NodeInfo = api.NodeResponse

	// RecordInfo is one resolved record.
	RecordInfo = api.RecordResponse

	// ReverseInfo is the result of a reverse lookup.
	ReverseInfo = api.ReverseResponse

	// EventInfo is one registry journal entry.
	EventInfo = api.EventResponse
)

// Client connects to a YakNS node via HTTP.
type Client struct {
	nodeAddr string // nodeAddr is the HTTP address (e.g. "127.0.0.1:8080")
	tld      string // tld is the top-level label served by the node
}

// NewClient creates a client connected to a node.
// It fetches the node's TLD from /status and fails if the node is unreachable.
func NewClient(nodeAddr string) (*Client, error) {
	c := &Client{nodeAddr: nodeAddr}

	status, err := c.Status()
	if err != nil {
		return nil, fmt.Errorf("get status:\n%w", err)
	}

	c.tld = status.TLD

	return c, nil
}

// TLD returns the top-level label served by the node.
func (c *Client) TLD() string {
	return c.tld
}

// Status fetches the node status.
func (c *Client) Status() (*Status, error) {
	var status Status
	if err := httpGet(c.url("/status"), &status); err != nil {
		return nil, err
	}

	return &status, nil
}

// Lookup fetches the registry record of a dotted name.
func (c *Client) Lookup(name string) (*NodeInfo, error) {
	var info NodeInfo
	if err := httpGet(c.url("/names/"+url.PathEscape(name)), &info); err != nil {
		return nil, err
	}

	return &info, nil
}

// Record resolves one record of a name. key selects the text record and is ignored otherwise.
func (c *Client) Record(name string, kind resolver.Kind, key string) (*RecordInfo, error) {
	path := "/names/" + url.PathEscape(name) + "/records/" + kind.String()
	if key != "" {
		path += "?key=" + url.QueryEscape(key)
	}

	var info RecordInfo
	if err := httpGet(c.url(path), &info); err != nil {
		return nil, err
	}

	return &info, nil
}

// Addr resolves the address record of a name.
func (c *Client) Addr(name string) (common.Address, error) {
	info, err := c.Record(name, resolver.KindAddr, "")
	if err != nil {
		return common.Address{}, err
	}

	if !common.IsHexAddress(info.Value) {
		return common.Address{}, fmt.Errorf("invalid address %q", info.Value)
	}

	return common.HexToAddress(info.Value), nil
}

// Reverse returns the name published for addr.
func (c *Client) Reverse(addr common.Address) (string, error) {
	var info ReverseInfo
	if err := httpGet(c.url("/reverse/"+addr.Hex()), &info); err != nil {
		return "", err
	}

	return info.Name, nil
}

// Events fetches up to limit journal entries starting at sequence from.
func (c *Client) Events(from, limit uint64) ([]EventInfo, error) {
	q := url.Values{}
	q.Set("from", strconv.FormatUint(from, 10))
	q.Set("limit", strconv.FormatUint(limit, 10))

	var events []EventInfo
	if err := httpGet(c.url("/events?"+q.Encode()), &events); err != nil {
		return nil, err
	}

	return events, nil
}

// Snapshot downloads a compressed snapshot of the node's store.
func (c *Client) Snapshot() ([]byte, error) {
	return httpGetBytes(c.url("/snapshot"))
}

// url builds an absolute URL for path.
func (c *Client) url(path string) string {
	return "http://" + c.nodeAddr + path
}
