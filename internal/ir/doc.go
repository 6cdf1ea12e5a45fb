// Package ir provides the foundational types shared by every stage of the
// decoder generator.
//
// This package contains value-level definitions only. All other internal
// packages import ir; ir imports nothing internal.
//
// Contents:
//   - ValueType: the abstract value-type algebra inferred for formats
//   - ByteSet: 256-bit membership sets used by byte formats and match trees
//   - NodeID: stable node identities assigned once during decoder construction
//   - IRValue and MarshalCanonical: RFC 8785 canonical JSON used for
//     structural identity of declarations and for cache keys
package ir
