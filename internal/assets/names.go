package assets

import "fmt"

// NameRegistry hands out filename stems that are unique for one batch. It is
// not safe for concurrent use; batches run sequentially.
type NameRegistry struct {
	used map[string]bool
}

func NewNameRegistry() *NameRegistry {
	return &NameRegistry{used: make(map[string]bool)}
}

// Claim returns stem if it is unused, otherwise the first free stem_N with
// N starting at 2.
func (n *NameRegistry) Claim(stem string) string {
	candidate := stem
	for i := 2; n.used[candidate]; i++ {
		candidate = fmt.Sprintf("%s_%d", stem, i)
	}
	n.used[candidate] = true
	return candidate
}
