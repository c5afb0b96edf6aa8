package transport

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/catalog/internal/name"
)

func TestHTTPClient_Express(t *testing.T) {
	mem := NewMemFace(WithLogger(discardLogger()), WithSigner(NewSigner(name.MustParse("/signer"))))
	h := NewHTTPFace(mem, WithHTTPLogger(discardLogger()), WithRequestLifetime(50*time.Millisecond))
	ctx := context.Background()

	segName := name.MustParse("/catalog/query-results/id").AppendSegment(0)
	require.NoError(t, mem.Publish(ctx, Packet{
		Name:         segName,
		Content:      []byte(`{"resultCount":1,"results":["a"]}`),
		FinalBlockID: name.FromSegment(0),
		Freshness:    time.Hour,
	}))

	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", nil)
	p, err := c.Express(ctx, segName)
	require.NoError(t, err)

	assert.True(t, segName.Equal(p.Name))
	assert.Equal(t, `{"resultCount":1,"results":["a"]}`, string(p.Content))
	assert.Equal(t, name.FromSegment(0), p.FinalBlockID)
	assert.Equal(t, time.Hour, p.Freshness)
	assert.Equal(t, "/signer", p.SignerID.String())
	assert.True(t, Verify(p))
}

func TestHTTPClient_Errors(t *testing.T) {
	mem := NewMemFace(WithLogger(discardLogger()))
	require.NoError(t, mem.RegisterHandler(name.MustParse("/silent"), func(context.Context, name.Name) {}))
	h := NewHTTPFace(mem, WithHTTPLogger(discardLogger()), WithRequestLifetime(20*time.Millisecond))

	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	c := NewHTTPClient(srv.URL, nil)
	ctx := context.Background()

	_, err := c.Express(ctx, name.MustParse("/nowhere"))
	assert.True(t, errors.Is(err, ErrNoRoute))

	_, err = c.Express(ctx, name.MustParse("/silent/x"))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
