package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/catalog/internal/name"
)

// Expresser requests named data. *MemFace, *HTTPFace and *HTTPClient
// implement it.
type Expresser interface {
	Express(ctx context.Context, n name.Name) (Packet, error)
}

// HTTPClient expresses names against a remote HTTPFace.
type HTTPClient struct {
	base   string
	client *http.Client
}

// NewHTTPClient creates a client for the face served at base, for example
// "http://localhost:8080". A nil client uses http.DefaultClient.
func NewHTTPClient(base string, client *http.Client) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClient{base: strings.TrimSuffix(base, "/"), client: client}
}

// Express fetches n with GET /data/<n> and rebuilds the packet from the
// response headers.
func (c *HTTPClient) Express(ctx context.Context, n name.Name) (Packet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/data"+n.String(), nil)
	if err != nil {
		return Packet{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return Packet{}, fmt.Errorf("express %s: %w", n, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Packet{}, fmt.Errorf("read response: %w", err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Packet{}, fmt.Errorf("%w: %s", ErrNoRoute, n)
	case http.StatusGatewayTimeout:
		return Packet{}, fmt.Errorf("express %s: %w", n, context.DeadlineExceeded)
	default:
		return Packet{}, fmt.Errorf("express %s: %s: %s", n, resp.Status, strings.TrimSpace(string(body)))
	}

	return packetFromResponse(n, resp.Header, body)
}

func packetFromResponse(requested name.Name, hdr http.Header, body []byte) (Packet, error) {
	p := Packet{Name: requested, Content: body}

	if v := hdr.Get(HeaderName); v != "" {
		n, err := name.Parse(v)
		if err != nil {
			return Packet{}, fmt.Errorf("header %s: %w", HeaderName, err)
		}
		p.Name = n
	}
	if v := hdr.Get(HeaderFinalBlockID); v != "" {
		n, err := name.Parse("/" + v)
		if err != nil || n.Len() != 1 {
			return Packet{}, fmt.Errorf("header %s: invalid component %q", HeaderFinalBlockID, v)
		}
		p.FinalBlockID = n.At(0)
	}
	if v := hdr.Get(HeaderFreshness); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Packet{}, fmt.Errorf("header %s: %w", HeaderFreshness, err)
		}
		p.Freshness = time.Duration(ms) * time.Millisecond
	}
	if v := hdr.Get(HeaderSigner); v != "" {
		n, err := name.Parse(v)
		if err != nil {
			return Packet{}, fmt.Errorf("header %s: %w", HeaderSigner, err)
		}
		p.SignerID = n
		p.Signature = hdr.Get(HeaderSignature)
	}
	return p, nil
}
