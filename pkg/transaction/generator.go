package transaction

import (
	"strconv"
	"sync/atomic"

	"github.com/pion/randutil"
)

const idPrefixRunes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// IDGenerator produces unique transaction ids. Each generator draws
// a random prefix at construction and appends a counter, so ids stay
// unique across generator instances without coordination.
type IDGenerator struct {
	prefix string
	n      atomic.Uint64
}

// NewIDGenerator creates a generator with a fresh random prefix.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{
		prefix: randutil.NewMathRandomGenerator().GenerateString(8, idPrefixRunes),
	}
}

// Next returns a new id. Safe for concurrent use.
func (g *IDGenerator) Next() string {
	return g.prefix + "-" + strconv.FormatUint(g.n.Add(1), 10)
}
