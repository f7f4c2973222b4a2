package snowflake

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	// Epoch is the custom epoch in milliseconds (Jan 01 2024 00:00:00 UTC).
	// IDs embed milliseconds since this epoch, so it must never change once
	// tickets or orders have been issued.
	Epoch int64 = 1704067200000

	// NodeBits holds the number of bits to use for the node id.
	NodeBits uint8 = 10

	// StepBits holds the number of bits to use for the per-millisecond step.
	StepBits uint8 = 12

	nodeMask  = -1 ^ (-1 << NodeBits)
	stepMask  = -1 ^ (-1 << StepBits)
	timeShift = NodeBits + StepBits
	nodeShift = StepBits
)

// IDGenerator generates unique ids using the snowflake layout:
// time (42 bits) | node (10 bits) | step (12 bits).
type IDGenerator struct {
	mu        sync.Mutex
	timestamp int64
	nodeID    int64
	step      int64
}

// NewIDGenerator creates a new ID generator for the given node.
func NewIDGenerator(nodeID int64) (*IDGenerator, error) {
	if nodeID < 0 || nodeID > nodeMask {
		return nil, errors.New("invalid node ID")
	}

	return &IDGenerator{nodeID: nodeID}, nil
}

// NextID generates a new ID
func (g *IDGenerator) NextID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UnixMilli()

	if g.timestamp == now {
		g.step = (g.step + 1) & stepMask

		if g.step == 0 {
			// Sequence exhausted, wait for next millisecond
			for now <= g.timestamp {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		g.step = 0
	}

	g.timestamp = now

	return ((now - Epoch) << timeShift) |
		(g.nodeID << nodeShift) |
		g.step
}

// NextTicketID generates an opaque ticket id string.
func (g *IDGenerator) NextTicketID() string {
	return fmt.Sprintf("tkt-%016x", uint64(g.NextID()))
}

// NextOrderNo generates an order number string.
func (g *IDGenerator) NextOrderNo() string {
	return fmt.Sprintf("FS%d", g.NextID())
}

// ParseID parses an ID to extract timestamp, node ID and step
func ParseID(id int64) (timestamp int64, nodeID int64, step int64) {
	step = id & stepMask
	nodeID = (id >> nodeShift) & nodeMask
	timestamp = (id >> timeShift) + Epoch
	return
}
