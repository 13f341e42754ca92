package vehicle

import (
	"maps"
	"slices"
)

// Connected reports whether v holds a connection to id.
func (v *Vehicle) Connected(id int) bool {
	_, ok := v.connections[id]
	return ok
}

// ConnectionCount returns the number of partners.
func (v *Vehicle) ConnectionCount() int {
	return len(v.connections)
}

// ConnectionIDs returns the partner ids in ascending order.
func (v *Vehicle) ConnectionIDs() []int {
	return slices.Sorted(maps.Keys(v.connections))
}

// Disconnect removes id from v only. It is used when the partner is gone and
// there is no other side left to update.
func (v *Vehicle) Disconnect(id int) {
	delete(v.connections, id)
}

// Link connects a and b on both sides. Linking a vehicle to itself is a no-op.
func Link(a, b *Vehicle) {
	if a.id == b.id {
		return
	}
	a.connections[b.id] = struct{}{}
	b.connections[a.id] = struct{}{}
}

// Unlink removes the connection between a and b on both sides.
func Unlink(a, b *Vehicle) {
	delete(a.connections, b.id)
	delete(b.connections, a.id)
}
