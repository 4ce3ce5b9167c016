// Package idgen issues the receipt numbers printed on payment ledger entries.
package idgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	creditapp "github.com/fiado/backend/internal/application/credit"
)

var _ creditapp.ReceiptNumberGenerator = (*SnowflakeReceiptGenerator)(nil)

// SnowflakeReceiptGenerator issues time-ordered receipt numbers unique per node
type SnowflakeReceiptGenerator struct {
	node *snowflake.Node
}

// NewSnowflakeReceiptGenerator creates a generator for the given node id (0..1023)
func NewSnowflakeReceiptGenerator(nodeID int64) (*SnowflakeReceiptGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node %d: %w", nodeID, err)
	}
	return &SnowflakeReceiptGenerator{node: node}, nil
}

// NextReceiptNo returns a new receipt number in base-10
func (g *SnowflakeReceiptGenerator) NextReceiptNo() string {
	return g.node.Generate().String()
}
