package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashWithDomain_Deterministic(t *testing.T) {
	a := HashWithDomain(DomainPacket, []byte("/a"), []byte("content"))
	b := HashWithDomain(DomainPacket, []byte("/a"), []byte("content"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestHashWithDomain_Separation(t *testing.T) {
	packet := HashWithDomain(DomainPacket, []byte("x"))
	query := HashWithDomain(DomainQuery, []byte("x"))
	assert.NotEqual(t, packet, query)

	// Part boundaries matter: ("ab","c") differs from ("a","bc").
	assert.NotEqual(t,
		HashWithDomain(DomainPacket, []byte("ab"), []byte("c")),
		HashWithDomain(DomainPacket, []byte("a"), []byte("bc")),
	)
}

func TestQueryID(t *testing.T) {
	id := QueryID("SELECT name FROM cmip5;")
	assert.Len(t, id, 16)
	assert.Equal(t, id, QueryID("SELECT name FROM cmip5;"))
	assert.NotEqual(t, id, QueryID("SELECT name FROM cmip6;"))
}
