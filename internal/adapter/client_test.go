package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	f := newFixture(t)
	f.backend.SetRows(exactTestSQL, "/ndn/test3", "/ndn/test1", "/ndn/test2")

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()

	request := QueryRequest(testPrefix, `{"name":"test"}`)
	assert.True(t, f.request(`{"name":"test"}`).Equal(request))

	res, err := Fetch(ctx, f.face, testPrefix, request)
	require.NoError(t, err)

	assert.Equal(t, "/query-results/catalogIdPlaceHolder/%7B%22name%22%3A%22test%22%7D/%FD%01", string(res.Ack.Content))
	assert.True(t, testPrefix.IsPrefixOf(res.ResponsePrefix))
	assert.Len(t, res.Segments, 2)
	assert.Equal(t, 3, res.ResultCount)
	assert.Equal(t, []string{"/ndn/test3", "/ndn/test1", "/ndn/test2"}, res.Items)
	assert.False(t, res.LastComponent)
}

func TestFetch_TerminalAutocomplete(t *testing.T) {
	f := newFixture(t)
	f.backend.SetDefault("1850", "2006")

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()

	res, err := Fetch(ctx, f.face, testPrefix,
		QueryRequest(testPrefix, `{"?":"/CMIP5/output1/NOAA/GFDL/historical/mon/atmos/tas/r1i1p1/"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"1850", "2006"}, res.Items)
	assert.True(t, res.LastComponent)
}

func TestFetch_RejectedQueryTimesOut(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, err := Fetch(ctx, f.face, testPrefix, QueryRequest(testPrefix, `{"name":`))
	require.Error(t, err)
	require.NotNil(t, res)
	assert.NotEmpty(t, res.Ack.Content)
	assert.Empty(t, res.Segments)
}
