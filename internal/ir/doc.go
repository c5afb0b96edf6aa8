// Package ir provides the JSON value model shared by the catalog's query
// payloads and reply segments.
//
// Query payloads arrive as the terminal component of a request name and are
// decoded into Value trees. Decoding keeps numbers as their literal text so
// that shape checks (strings only, no composites, no null) are made by the
// translators and not by the decoder.
//
// MarshalCanonical produces RFC 8785 style canonical JSON: sorted keys,
// NFC-normalized strings, no HTML escaping, integers only. Reply segments
// use MarshalVerbatim, the same encoding with string bytes left untouched,
// so result rows reach requesters exactly as stored. Either way two builds
// of the same value are byte-identical, which the segment cache and the
// packet digests rely on.
//
// This package imports nothing internal.
package ir
