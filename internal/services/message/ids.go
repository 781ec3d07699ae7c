package message

import (
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
)

// idSuffixRange is the number of random values packed below the
// millisecond part of an id: an id is <unix ms><6 digits>.
const idSuffixRange = 1_000_000

// idGenerator issues numeric ids that sort by send time. The random
// suffix keeps two participants sending in the same millisecond apart; the
// generator never repeats itself, even when the clock stands still or
// steps back.
type idGenerator struct {
	mu     sync.Mutex
	last   int64
	now    func() time.Time
	suffix func() int64
}

func newIDGenerator() *idGenerator {
	return &idGenerator{
		now:    time.Now,
		suffix: func() int64 { return rand.Int63n(idSuffixRange) },
	}
}

func (g *idGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()*idSuffixRange + g.suffix()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return strconv.FormatInt(id, 10)
}

// lessID orders numeric ids by value without parsing, so "9" sorts before "10".
func lessID(a, b string) bool {
	a, b = strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
