// Package transport is the request/response collaborator of the catalog.
//
// Requests are hierarchical names. A Handler registered under a name prefix
// receives every request below that prefix and answers by publishing
// Packets; a published packet satisfies any pending or later request whose
// name is a prefix of the packet name.
//
// Two faces are provided. MemFace is an in-process forwarder with a content
// store, used for tests and embedding. HTTPFace exposes a MemFace over HTTP
// (GET /data/<name>) together with Prometheus metrics.
//
// Packets are signed by the face, never by the handlers. Signatures are
// domain-separated SHA-256 digests bound to a signing identity.
package transport

import (
	"time"

	"github.com/roach88/catalog/internal/ir"
	"github.com/roach88/catalog/internal/name"
)

// Packet is a named, signed unit of response data.
type Packet struct {
	// Name is the full packet name.
	Name name.Name

	// Content is the payload.
	Content []byte

	// FinalBlockID marks the last segment of a segmented response. Empty
	// when the packet is not the final segment.
	FinalBlockID name.Component

	// Freshness is how long the packet may be served from a content store.
	// Zero means it never goes stale.
	Freshness time.Duration

	// SignerID is the signing identity; set by Signer.Sign.
	SignerID name.Name

	// Signature is the hex digest; set by Signer.Sign.
	Signature string
}

// IsFinal reports whether the packet carries a final block id.
func (p Packet) IsFinal() bool {
	return p.FinalBlockID != ""
}

// Signer signs packets with a fixed identity.
type Signer struct {
	identity name.Name
}

// NewSigner creates a Signer for identity.
func NewSigner(identity name.Name) Signer {
	return Signer{identity: identity}
}

// Identity returns the signing identity.
func (s Signer) Identity() name.Name {
	return s.identity
}

// Sign returns p with SignerID and Signature set.
func (s Signer) Sign(p Packet) Packet {
	p.SignerID = s.identity
	p.Signature = digest(p)
	return p
}

// Verify reports whether p carries a valid signature for its SignerID.
func Verify(p Packet) bool {
	return p.Signature != "" && p.Signature == digest(p)
}

func digest(p Packet) string {
	return ir.HashWithDomain(ir.DomainPacket,
		[]byte(p.SignerID.String()),
		[]byte(p.Name.String()),
		[]byte(p.FinalBlockID),
		p.Content,
	)
}
