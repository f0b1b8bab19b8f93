// Package distaffstark provides a zero-knowledge STARK prover and
// verifier for a small stack machine: the Distaff virtual machine.
//
// # Features
//
//   - Complete zkSTARK prover and verifier over a 128-bit prime field
//   - Radix-4 FRI low-degree testing
//   - Modified Rescue-Prime hashing for Merkle commitments and program
//     attestation, with Sha3-256 and Blake3-256 as drop-in alternatives
//   - Pluggable hash function and security parameters via ProofOptions
//
// # Quick Start
//
// Proving an execution trace:
//
//	options := distaffstark.DefaultOptions()
//	proofBytes, err := distaffstark.Prove(trace, publicInputs, publicOutputs, program, options)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Verifying it against a program hash, without the trace:
//
//	err = distaffstark.Verify(program.Hash(), publicInputs, publicOutputs, proofBytes, options)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Architecture
//
//   - pkg/distaffstark/: public API (this package) — options, errors,
//     opaque field-element and program types, Prove and Verify.
//   - internal/distaffstark/: the field, polynomial, Rescue-Prime, Merkle
//     tree, trace, AIR constraint catalog, composition, FRI, transcript,
//     proof codec, and pipeline-orchestration packages the public API
//     wires together. Not importable outside this module.
//
// # References
//
//   - STARK paper: https://eprint.iacr.org/2018/046
//   - FRI paper: https://eccc.weizmann.ac.il/report/2017/134/
package distaffstark
