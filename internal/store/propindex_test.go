package store

import (
	"testing"

	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/stretchr/testify/assert"
)

func TestPropertyIndexSeek(t *testing.T) {
	p := newPropertyIndex()
	p.insert("age", graphval.Int(30), 1)
	p.insert("age", graphval.Int(30), 2)
	p.insert("age", graphval.Int(40), 3)

	ids := p.Seek("age", graphval.Int(30))
	assert.ElementsMatch(t, []graphval.NodeId{1, 2}, ids)

	ids = p.Seek("age", graphval.Int(99))
	assert.Empty(t, ids)
}

func TestPropertyIndexRange(t *testing.T) {
	p := newPropertyIndex()
	for i := int64(0); i < 10; i++ {
		p.insert("age", graphval.Int(i), graphval.NodeId(i))
	}

	lo := graphval.Int(3)
	hi := graphval.Int(6)
	ids := p.Range("age", &lo, &hi)
	assert.ElementsMatch(t, []graphval.NodeId{3, 4, 5}, ids)

	ids = p.Range("age", nil, &hi)
	assert.ElementsMatch(t, []graphval.NodeId{0, 1, 2, 3, 4, 5}, ids)
}

func TestPropertyIndexRemove(t *testing.T) {
	p := newPropertyIndex()
	p.insert("name", graphval.String("ada"), 1)
	p.remove("name", graphval.String("ada"), 1)

	ids := p.Seek("name", graphval.String("ada"))
	assert.Empty(t, ids)
}

func TestPropertyIndexIgnoresNonScalarKinds(t *testing.T) {
	p := newPropertyIndex()
	p.insert("tags", graphval.Array([]graphval.PropertyValue{graphval.String("a")}), 1)
	assert.Empty(t, p.Seek("tags", graphval.Array([]graphval.PropertyValue{graphval.String("a")})))
}

func TestCompareValuesAcrossKinds(t *testing.T) {
	assert.Less(t, compareValues(graphval.Bool(true), graphval.Int(0)), 0)
	assert.Equal(t, 0, compareValues(graphval.String("a"), graphval.String("a")))
	assert.Greater(t, compareValues(graphval.Float(2), graphval.Float(1)), 0)
}
