package distaffstark

import (
	"github.com/vybium/distaff-stark/internal/distaffstark/merkle"
)

// HashFunction names the Merkle digest a proof run uses. The
// Fiat-Shamir transcript uses SHA3-256 when it is Sha3_256 and SHA-256
// otherwise.
type HashFunction = merkle.HashFunction

const (
	RescueHash     = merkle.Rescue
	Sha3_256Hash   = merkle.Sha3_256
	Blake3_256Hash = merkle.Blake3_256
)

// ProofOptions configures the extension factor, query count, grinding
// factor, and hash function for a prove/verify call.
type ProofOptions struct {
	ExtensionFactor int          // b, one of 16, 32, 64
	NumQueries      int          // 1..128
	GrindingFactor  int          // 0..32
	HashFn          HashFunction // Blake3_256, Sha3_256, or Rescue
	// FieldExtension is reserved; only None (the zero value) is
	// supported.
	FieldExtension FieldExtensionKind
}

// FieldExtensionKind is reserved for future quadratic/cubic extension
// field support; only None is implemented.
type FieldExtensionKind int

const FieldExtensionNone FieldExtensionKind = 0

// DefaultOptions returns a reasonable default configuration: 96-bit
// security via 48 queries at extension factor 16, no grinding.
func DefaultOptions() ProofOptions {
	return ProofOptions{
		ExtensionFactor: 16,
		NumQueries:      48,
		GrindingFactor:  0,
		HashFn:          Blake3_256Hash,
		FieldExtension:  FieldExtensionNone,
	}
}

// Validate checks that every field is within its documented domain.
func (o ProofOptions) Validate() error {
	switch o.ExtensionFactor {
	case 16, 32, 64:
	default:
		return newErr(ErrInvalidOptions, "extension_factor must be 16, 32, or 64", nil)
	}
	if o.NumQueries < 1 || o.NumQueries > 128 {
		return newErr(ErrInvalidOptions, "num_queries must be in [1, 128]", nil)
	}
	if o.GrindingFactor < 0 || o.GrindingFactor > 32 {
		return newErr(ErrInvalidOptions, "grinding_factor must be in [0, 32]", nil)
	}
	if o.FieldExtension != FieldExtensionNone {
		return newErr(ErrInvalidOptions, "field_extension other than None is not supported", nil)
	}
	return nil
}
