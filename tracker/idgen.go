package tracker

// IDGenerator hands out track identities 1, 2, 3, ... in allocation order.
// Identities are never reused until Reset is called.
type IDGenerator struct {
	id uint64
}

// NewIDGenerator returns a generator whose first identity is 1
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// GetNext returns the next identity
func (g *IDGenerator) GetNext() uint64 {
	g.id++
	return g.id
}

// Last returns the most recently allocated identity, 0 if none
func (g *IDGenerator) Last() uint64 {
	return g.id
}

// Reset restarts allocation at 1
func (g *IDGenerator) Reset() {
	g.id = 0
}
