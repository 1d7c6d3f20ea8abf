// Package chunk provides content-addressed storage primitives.
//
// A chunk is one unit of binary data identified by the cryptographic
// digest of its content. The [Store] interface abstracts where chunk
// bytes live; [Validator] guards writes and reads with integrity
// checks; [Lazy] provides a cached partial view over a stored chunk so
// large payloads can be probed without full materialization.
//
// Identity is carried by [Address]. Two addresses with the same ID
// refer to identical bytes; metadata never participates in identity.
package chunk
