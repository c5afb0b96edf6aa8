package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/catalog/internal/name"
	"github.com/roach88/catalog/internal/transport"
)

func segment(prefix string, seg uint64, content string) transport.Packet {
	return transport.Packet{
		Name:    name.MustParse(prefix).AppendSegment(seg),
		Content: []byte(content),
	}
}

func TestCache_StoreAndLookup(t *testing.T) {
	c := New(0)
	p := segment("/catalog/query-results/id/q/%FD%01", 0, `{"resultCount":0,"results":[]}`)

	_, ok := c.Lookup(p.Name)
	assert.False(t, ok, "lookup before store is a miss")

	assert.True(t, c.Store(p))

	first, ok := c.Lookup(p.Name)
	require.True(t, ok)
	second, ok := c.Lookup(p.Name)
	require.True(t, ok)
	assert.Equal(t, first, second)
	assert.Equal(t, p.Content, first.Content)
}

func TestCache_StoreIsIdempotent(t *testing.T) {
	c := New(0)
	p := segment("/r", 0, "original")

	assert.True(t, c.Store(p))
	assert.False(t, c.Store(segment("/r", 0, "other")))

	got, ok := c.Lookup(p.Name)
	require.True(t, ok)
	assert.Equal(t, []byte("original"), got.Content)
	assert.Equal(t, 1, c.Len())
}

func TestCache_MissPastFinalSegment(t *testing.T) {
	c := New(0)
	c.Store(segment("/r", 0, "a"))
	c.Store(segment("/r", 1, "b"))

	_, ok := c.Lookup(name.MustParse("/r").AppendSegment(2))
	assert.False(t, ok)
}

func TestCache_Match(t *testing.T) {
	c := New(0)
	c.Store(segment("/r/v1", 0, "a"))
	c.Store(segment("/r/v1", 1, "b"))
	c.Store(segment("/r/v2", 0, "c"))

	got, ok := c.Match(name.MustParse("/r/v1"))
	require.True(t, ok)
	assert.Equal(t, []byte("a"), got.Content)

	got, ok = c.Match(name.MustParse("/r/v2"))
	require.True(t, ok)
	assert.Equal(t, []byte("c"), got.Content)

	got, ok = c.Match(name.MustParse("/r/v1").AppendSegment(1))
	require.True(t, ok)
	assert.Equal(t, []byte("b"), got.Content)

	_, ok = c.Match(name.MustParse("/r/v3"))
	assert.False(t, ok)
}

func TestCache_BoundedEviction(t *testing.T) {
	c := New(2)
	c.Store(segment("/r", 0, "a"))
	c.Store(segment("/r", 1, "b"))
	c.Store(segment("/r", 2, "c"))

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, uint64(1), c.Evicted())

	_, ok := c.Lookup(name.MustParse("/r").AppendSegment(0))
	assert.False(t, ok, "oldest entry evicted first")
	_, ok = c.Lookup(name.MustParse("/r").AppendSegment(2))
	assert.True(t, ok)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New(0)
	var wg sync.WaitGroup

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				p := segment(fmt.Sprintf("/q/%d", w), uint64(i), "x")
				c.Store(p)
				_, ok := c.Lookup(p.Name)
				assert.True(t, ok)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 400, c.Len())
}
