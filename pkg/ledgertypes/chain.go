package ledgertypes

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/chainsafe/remittance-ledger/pkg/apperrors"
)

// ChainName identifies the chain family recognized by the ledger.
type ChainName int

const (
	// ChainUnknown is the zero value and is never valid on the wire.
	ChainUnknown ChainName = iota
	ChainEthereum
	ChainPolygon
	ChainIcp
)

// Chain is a sum type over recognized chains: {Ethereum:1, Ethereum:5,
// Polygon:137, Icp}. Only those four (name, id) pairs are valid; anything
// else fails to parse with INVALID_CHAIN.
type Chain struct {
	Name ChainName
	ID   int64
}

var (
	// EthereumMainnet is Ethereum:1.
	EthereumMainnet = Chain{Name: ChainEthereum, ID: 1}
	// EthereumGoerli is Ethereum:5.
	EthereumGoerli = Chain{Name: ChainEthereum, ID: 5}
	// PolygonMainnet is Polygon:137.
	PolygonMainnet = Chain{Name: ChainPolygon, ID: 137}
	// Icp is the Internet Computer chain tag; it carries no numeric id.
	Icp = Chain{Name: ChainIcp, ID: 0}
)

// ParseChain parses a "<name>:<id>" string into a Chain. "icp" ignores the
// id field entirely (the canonical form is just "icp", but "icp:0" is
// tolerated). Unknown (name, id) combinations fail with INVALID_CHAIN.
func ParseChain(s string) (Chain, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	name, idStr, hasID := strings.Cut(lower, ":")

	if name == "icp" {
		return Icp, nil
	}

	if !hasID {
		return Chain{}, apperrors.MalformedInput(apperrors.CodeInvalidChain, "chain string missing id: "+s, nil)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return Chain{}, apperrors.MalformedInput(apperrors.CodeInvalidChain, "chain id is not numeric: "+s, err)
	}

	switch {
	case name == "ethereum" && id == 1:
		return EthereumMainnet, nil
	case name == "ethereum" && id == 5:
		return EthereumGoerli, nil
	case name == "polygon" && id == 137:
		return PolygonMainnet, nil
	default:
		return Chain{}, apperrors.MalformedInput(apperrors.CodeInvalidChain, "unrecognized chain: "+s, nil)
	}
}

// String formats the chain back into its "<name>:<id>" wire form.
func (c Chain) String() string {
	switch c.Name {
	case ChainEthereum:
		return fmt.Sprintf("ethereum:%d", c.ID)
	case ChainPolygon:
		return fmt.Sprintf("polygon:%d", c.ID)
	case ChainIcp:
		return "icp"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the chain as its wire string.
func (c Chain) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes the chain from its wire string.
func (c *Chain) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseChain(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
