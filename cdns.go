// Package cdns implements the C-DNS compact binary format for captured
// DNS query/response traffic, as specified in RFC 8618.
//
// A C-DNS file is a single CBOR-encoded value: a file preamble declaring
// the format version and the storage parameters blocks may reference, followed
// by a stream of blocks. Each block deduplicates its IP addresses, DNS
// names, resource records and signatures into small per-block tables, and
// stores every query/response, malformed message and address-event count
// as an array of indices into those tables plus whatever optional fields
// StorageHints says to keep.
//
// # Core Features
//
//   - Hand-written streaming CBOR codec (no whole-document buffering)
//   - Pluggable output compression (none, gzip, xz)
//   - Deduplicating per-block tables with CRC32-accelerated lookup
//   - StorageHints-driven field omission, honored symmetrically on read
//   - Address-event aggregation across repeated observations
//
// # Basic Usage
//
// Writing a file:
//
//	sink, _ := compress.NewSink(format.CompressionGzip, "/tmp/capture")
//	preamble, _ := file.NewPreamble([]block.BlockParameters{params})
//	exporter, _ := file.NewExporter(sink, preamble)
//
//	b := block.New(&preamble.BlockParameters[0], 0)
//	b.AppendQueryResponse(block.QueryResponseAppend{ ... })
//	exporter.WriteBlock(b)
//	exporter.Close()
//
// Reading one back:
//
//	f, _ := os.Open("/tmp/capture.gz")
//	r, _ := file.NewReader(gzip-unwrapped-reader)
//	for {
//	    b, err := r.ReadBlock()
//	    if errors.Is(err, errs.ErrEndOfInput) {
//	        break
//	    }
//	    for _, qr := range b.QueryResponses() { ... }
//	}
//
// # Package Structure
//
// This file provides a couple of convenience wrappers over the block,
// file, compress and format packages. For anything beyond the common
// case, use those packages directly: they carry the bulk of the
// documentation.
package cdns

import (
	"github.com/dns-stats/cdns/block"
	"github.com/dns-stats/cdns/compress"
	"github.com/dns-stats/cdns/file"
	"github.com/dns-stats/cdns/format"
)

// DefaultStorageHints enables every optional field this library knows
// about: the full QueryResponseHints/QueryResponseSignatureHints masks,
// both RRHints bits, and both OtherDataHints bits. Callers that want a
// smaller file should build their own block.StorageHints instead.
func DefaultStorageHints() block.StorageHints {
	return block.StorageHints{
		QueryResponseHints:          ^uint32(0) >> (32 - 18),
		QueryResponseSignatureHints: ^uint32(0) >> (32 - 17),
		RRHints:                     format.RRHintTTL | format.RRHintRdataIndex,
		OtherDataHints:              format.OtherDataHintMalformedMessages | format.OtherDataHintAddressEventCounts,
	}
}

// NewWriter wraps sink (created via compress.NewSink) and returns an
// Exporter ready to accept blocks built against the first entry of
// params. params becomes the file's preamble and must be non-empty.
func NewWriter(sink compress.Sink, params []block.BlockParameters, opts ...file.ExporterOption) (*file.Exporter, error) {
	preamble, err := file.NewPreamble(params)
	if err != nil {
		return nil, err
	}
	return file.NewExporter(sink, preamble, opts...)
}

// NewBlock constructs an empty block bound to the i'th entry of a
// preamble's BlockParameters, the common case of a writer with a single
// set of storage parameters for the whole file.
func NewBlock(preamble file.Preamble, i int) *block.Block {
	return block.New(&preamble.BlockParameters[i], i)
}
