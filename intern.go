package banjo

import (
	"math"
	"sync"
)

// Interning table of canonical core nodes, bucketed by content hash. Children
// of a node are always canonical already, so comparing two candidates only
// needs pointer equality on their children.
type Arena struct {
	mutex   sync.Mutex
	buckets map[uint64][]CoreExpr
	count   int
}

func NewArena() *Arena {
	return &Arena{buckets: make(map[uint64][]CoreExpr)}
}

// Returns nil on lookup failure.
func (self *Arena) lookupWithHash(node CoreExpr, hash uint64) CoreExpr {
	bucket, ok := self.buckets[hash]
	if !ok || len(bucket) == 0 {
		return nil
	}

	for _, element := range bucket {
		if sameNode(element, node) {
			return element
		}
	}

	return nil
}

func (self *Arena) intern(node CoreExpr) CoreExpr {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	hash := node.Hash()
	if lookup := self.lookupWithHash(node, hash); lookup != nil {
		return lookup
	}
	self.buckets[hash] = append(self.buckets[hash], node)
	self.count += 1
	return node
}

// Number of distinct nodes held by the arena.
func (self *Arena) Count() int {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.count
}

func sameSlots(a, b []CoreSlot) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Value != b[i].Value {
			return false
		}
	}
	return true
}

func sameChildren(a, b []CoreExpr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameNode(a, b CoreExpr) bool {
	if !a.SourceRanges().Equal(b.SourceRanges()) {
		return false
	}
	switch a := a.(type) {
	case *CoreIdentifier:
		b, ok := b.(*CoreIdentifier)
		return ok && a.Name == b.Name
	case *CoreLiteral:
		b, ok := b.(*CoreLiteral)
		return ok && a.Kind == b.Kind && a.Unit == b.Unit && a.Text == b.Text &&
			math.Float64bits(a.Number) == math.Float64bits(b.Number)
	case *CoreCall:
		b, ok := b.(*CoreCall)
		return ok && a.Target == b.Target && a.Method == b.Method && sameChildren(a.Arguments, b.Arguments)
	case *CoreLet:
		b, ok := b.(*CoreLet)
		return ok && a.Body == b.Body && sameSlots(a.Bindings, b.Bindings)
	case *CoreProjection:
		b, ok := b.(*CoreProjection)
		return ok && a.Base == b.Base && a.Object == b.Object && a.Body == b.Body
	case *CoreObject:
		b, ok := b.(*CoreObject)
		return ok && sameSlots(a.Slots, b.Slots)
	case *CoreList:
		b, ok := b.(*CoreList)
		return ok && sameChildren(a.Elements, b.Elements)
	case *CoreFunction:
		b, ok := b.(*CoreFunction)
		return ok && a.Body == b.Body && sameStrings(a.Parameters, b.Parameters)
	case *CoreBad:
		b, ok := b.(*CoreBad)
		return ok && a.Message == b.Message
	}
	return false
}
