package store

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/google/btree"
	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
)

// compareValues orders two property values for the range index. Within a
// kind the comparison is the natural one; across kinds the ordering is by
// Kind, so an equality/range predicate against one kind never matches
// values of another.
func compareValues(a, b graphval.PropertyValue) int {
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	switch a.Kind {
	case graphval.KindBool:
		if a.Bool == b.Bool {
			return 0
		}
		if !a.Bool {
			return -1
		}
		return 1
	case graphval.KindInt:
		switch {
		case a.Int < b.Int:
			return -1
		case a.Int > b.Int:
			return 1
		default:
			return 0
		}
	case graphval.KindFloat:
		switch {
		case a.Float < b.Float:
			return -1
		case a.Float > b.Float:
			return 1
		default:
			return 0
		}
	case graphval.KindString:
		switch {
		case a.String < b.String:
			return -1
		case a.String > b.String:
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}

// valueItem is a btree.Item keyed by a property value, carrying the set of
// node ids holding exactly that value for one property key.
type valueItem struct {
	value graphval.PropertyValue
	ids   *roaring64.Bitmap
}

func (v *valueItem) Less(than btree.Item) bool {
	return compareValues(v.value, than.(*valueItem).value) < 0
}

// propertyIndex keeps one ordered btree per property key, mapping each
// distinct value to the set of node ids holding it. It supports both
// equality seeks and ordered range scans, which an unordered map could not
// give in a single pass.
type propertyIndex struct {
	mu   sync.RWMutex
	keys map[string]*btree.BTree
}

func newPropertyIndex() *propertyIndex {
	return &propertyIndex{keys: make(map[string]*btree.BTree)}
}

const btreeDegree = 32

func (p *propertyIndex) insert(key string, value graphval.PropertyValue, id graphval.NodeId) {
	if !indexable(value) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	tr, ok := p.keys[key]
	if !ok {
		tr = btree.New(btreeDegree)
		p.keys[key] = tr
	}
	probe := &valueItem{value: value}
	if existing := tr.Get(probe); existing != nil {
		existing.(*valueItem).ids.Add(uint64(id))
		return
	}
	bm := roaring64.New()
	bm.Add(uint64(id))
	tr.ReplaceOrInsert(&valueItem{value: value, ids: bm})
}

func (p *propertyIndex) remove(key string, value graphval.PropertyValue, id graphval.NodeId) {
	if !indexable(value) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	tr, ok := p.keys[key]
	if !ok {
		return
	}
	probe := &valueItem{value: value}
	existing := tr.Get(probe)
	if existing == nil {
		return
	}
	item := existing.(*valueItem)
	item.ids.Remove(uint64(id))
	if item.ids.IsEmpty() {
		tr.Delete(probe)
	}
}

// indexable reports whether a value kind participates in the property
// index. Vectors, arrays, and objects are not ordered/equality-seekable in
// the same sense and are excluded; vector properties are served by
// internal/vectorindex instead.
func indexable(v graphval.PropertyValue) bool {
	switch v.Kind {
	case graphval.KindBool, graphval.KindInt, graphval.KindFloat, graphval.KindString:
		return true
	default:
		return false
	}
}

// Seek returns the node ids with exactly the given value for key.
func (p *propertyIndex) Seek(key string, value graphval.PropertyValue) []graphval.NodeId {
	p.mu.RLock()
	defer p.mu.RUnlock()
	tr, ok := p.keys[key]
	if !ok {
		return nil
	}
	got := tr.Get(&valueItem{value: value})
	if got == nil {
		return nil
	}
	return NodeIdsFromBitmap(got.(*valueItem).ids)
}

// Range returns the node ids whose value for key falls within [lo, hi).
// A nil lo or hi means unbounded on that side.
func (p *propertyIndex) Range(key string, lo, hi *graphval.PropertyValue) []graphval.NodeId {
	p.mu.RLock()
	defer p.mu.RUnlock()
	tr, ok := p.keys[key]
	if !ok {
		return nil
	}

	var out []graphval.NodeId
	visit := func(it btree.Item) bool {
		vi := it.(*valueItem)
		if hi != nil && compareValues(vi.value, *hi) >= 0 {
			return false
		}
		out = append(out, NodeIdsFromBitmap(vi.ids)...)
		return true
	}

	if lo != nil {
		tr.AscendGreaterOrEqual(&valueItem{value: *lo}, visit)
	} else {
		tr.Ascend(visit)
	}
	return out
}
