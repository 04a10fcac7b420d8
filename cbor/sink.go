package cbor

import "io"

// Sink is the pluggable byte destination an Encoder flushes to. Any
// io.Writer qualifies: a compression sink (compress.Sink), a plain
// *os.File, or a bytes.Buffer in tests.
type Sink = io.Writer

// Source is the pluggable byte origin a Decoder reads from behind its
// read-ahead buffer.
type Source = io.Reader
