package adapter

import (
	"context"
	"fmt"

	"github.com/roach88/catalog/internal/name"
	"github.com/roach88/catalog/internal/reply"
	"github.com/roach88/catalog/internal/transport"
)

// maxFetchSegments bounds Fetch against a response that never finalizes.
const maxFetchSegments = 1 << 16

// Result is a query response as a requester sees it.
type Result struct {
	// Ack is the acknowledgement packet.
	Ack transport.Packet

	// ResponsePrefix is the ack content resolved against the service prefix.
	ResponsePrefix name.Name

	// Segments are the fetched segment packets, in order.
	Segments []transport.Packet

	// ResultCount is the size of the whole result set.
	ResultCount int

	// Items are the rows of all fetched segments, in order.
	Items []string

	// LastComponent is set when a terminal autocomplete query answered.
	LastComponent bool
}

// QueryRequest builds the request name for a JSON query payload.
func QueryRequest(prefix name.Name, payload string) name.Name {
	return prefix.AppendString(ComponentQuery).AppendString(payload)
}

// Fetch expresses request, resolves the acknowledgement against prefix and
// fetches segments 0, 1, ... until the final one.
func Fetch(ctx context.Context, ex transport.Expresser, prefix, request name.Name) (*Result, error) {
	ack, err := ex.Express(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("express query: %w", err)
	}
	rel, err := name.Parse(string(ack.Content))
	if err != nil {
		return nil, fmt.Errorf("acknowledgement content %q: %w", ack.Content, err)
	}

	res := &Result{Ack: ack, ResponsePrefix: prefix.AppendName(rel)}
	for seg := uint64(0); seg < maxFetchSegments; seg++ {
		p, err := ex.Express(ctx, res.ResponsePrefix.AppendSegment(seg))
		if err != nil {
			return res, fmt.Errorf("express segment %d: %w", seg, err)
		}
		page, err := reply.Decode(p.Content)
		if err != nil {
			return res, fmt.Errorf("segment %d: %w", seg, err)
		}

		res.Segments = append(res.Segments, p)
		res.ResultCount = page.ResultCount
		res.Items = append(res.Items, page.Items()...)
		if p.IsFinal() {
			res.LastComponent = page.LastComponent
			return res, nil
		}
	}
	return res, fmt.Errorf("response %s did not finalize", res.ResponsePrefix)
}
