package order

import (
	"strconv"
	"sync"
	"time"
)

// DefaultIDPrefix is used when no prefix is configured
const DefaultIDPrefix = "ORD"

// IDGenerator produces order ids of the form <PREFIX>-<unix millis>.
// Ids from one generator are strictly increasing; a clash within the same
// millisecond takes the next free stamp.
type IDGenerator struct {
	mu     sync.Mutex
	prefix string
	last   int64
	now    func() time.Time
}

func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = DefaultIDPrefix
	}
	return &IDGenerator{prefix: prefix, now: time.Now}
}

func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	stamp := g.now().UnixMilli()
	if stamp <= g.last {
		stamp = g.last + 1
	}
	g.last = stamp
	return g.prefix + "-" + strconv.FormatInt(stamp, 10)
}
