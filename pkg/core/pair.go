package core

import "fmt"

// Pair is an unordered pair of vehicle ids, normalized so that A < B.
type Pair struct {
	A int `json:"a"`
	B int `json:"b"`
}

// NewPair returns the normalized pair for two vehicle ids.
func NewPair(a, b int) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Other returns the partner of id in the pair.
func (p Pair) Other(id int) int {
	if p.A == id {
		return p.B
	}
	return p.A
}

func (p Pair) String() string {
	return fmt.Sprintf("%d-%d", p.A, p.B)
}
