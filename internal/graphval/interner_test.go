package graphval

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternerAssignsStableIds(t *testing.T) {
	in := NewInterner()
	a := in.Intern("Person")
	b := in.Intern("Movie")
	c := in.Intern("Person")

	assert.Equal(t, a, c)
	assert.NotEqual(t, a, b)
	assert.Equal(t, "Person", in.Name(a))
	assert.Equal(t, "Movie", in.Name(b))
}

func TestInternerLookup(t *testing.T) {
	in := NewInterner()
	_, ok := in.Lookup("Person")
	assert.False(t, ok)

	id := in.Intern("Person")
	got, ok := in.Lookup("Person")
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestInternerConcurrent(t *testing.T) {
	in := NewInterner()
	var wg sync.WaitGroup
	ids := make([]uint32, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = in.Intern("Shared")
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, in.Len())
}
