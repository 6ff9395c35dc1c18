// Package idgen issues opaque record ids. Voucher and detail rows get their
// ids before the insert commits, which lets the issuance coordinator key its
// in-flight guard without waiting for the database.
package idgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Generator wraps a snowflake node
type Generator struct {
	node *snowflake.Node
}

// New creates a generator for the given node id (0..1023)
func New(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}
	return &Generator{node: node}, nil
}

// NextID returns a new unique id
func (g *Generator) NextID() int64 {
	return g.node.Generate().Int64()
}
