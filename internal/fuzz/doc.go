// Package fuzztests houses Go fuzz harnesses for the decoders that read
// untrusted bytes: the binary word stream, the library cache formats and the
// library archive. They guard against panics and allocation explosions on
// arbitrary inputs.
package fuzztests
