package usecase

// Pair is a canonical unordered pair of user ids (Low <= High)
type Pair struct {
	Low  int
	High int
}

// CanonicalPair orders two user ids so lookups are order independent
func CanonicalPair(a, b int) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{Low: a, High: b}
}

// ChatPairs records mutually approved chat pairs. Pairs are never revoked.
// Not safe for concurrent use; the hub loop owns it.
type ChatPairs struct {
	pairs map[Pair]struct{}
}

// NewChatPairs creates an empty approval set
func NewChatPairs() *ChatPairs {
	return &ChatPairs{
		pairs: make(map[Pair]struct{}),
	}
}

// Approve records the pair (a, b)
func (c *ChatPairs) Approve(a, b int) {
	c.pairs[CanonicalPair(a, b)] = struct{}{}
}

// Approved reports whether (a, b) was approved in either order
func (c *ChatPairs) Approved(a, b int) bool {
	_, ok := c.pairs[CanonicalPair(a, b)]
	return ok
}

// Count returns the number of approved pairs
func (c *ChatPairs) Count() int {
	return len(c.pairs)
}
