// Command distaff-prover reads a claim (public inputs/outputs, program,
// execution trace, and proof options) as JSON lines on stdin and writes
// the resulting proof, hex-encoded, to stdout.
package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/vybium/distaff-stark/pkg/distaffstark"
)

// blockInput mirrors distaffstark.Block in a JSON-friendly shape: Kind
// is one of "instructions", "group", "switch", "loop".
type blockInput struct {
	Kind         string       `json:"kind"`
	Instructions []uint64     `json:"instructions,omitempty"`
	Children     []blockInput `json:"children,omitempty"`
}

type optionsInput struct {
	ExtensionFactor int    `json:"extension_factor"`
	NumQueries      int    `json:"num_queries"`
	GrindingFactor  int    `json:"grinding_factor"`
	HashFn          string `json:"hash_fn"`
}

func main() {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<28)

	optsIn := readOptions(scanner)
	programIn := readBlock(scanner, "program")
	publicInputs := readUint64Array(scanner, "public_inputs")
	publicOutputs := readUint64Array(scanner, "public_outputs")
	traceRows := readTraceRows(scanner)

	options := distaffstark.DefaultOptions()
	if optsIn.ExtensionFactor != 0 {
		options.ExtensionFactor = optsIn.ExtensionFactor
	}
	if optsIn.NumQueries != 0 {
		options.NumQueries = optsIn.NumQueries
	}
	options.GrindingFactor = optsIn.GrindingFactor
	switch optsIn.HashFn {
	case "sha3_256":
		options.HashFn = distaffstark.Sha3_256Hash
	case "rescue":
		options.HashFn = distaffstark.RescueHash
	case "", "blake3_256":
		options.HashFn = distaffstark.Blake3_256Hash
	default:
		fatal(fmt.Sprintf("unknown hash_fn %q", optsIn.HashFn))
	}

	program := &distaffstark.Program{Root: convertBlock(programIn)}

	trace := distaffstark.ExecutionTrace{Rows: make([][]distaffstark.FieldElement, len(traceRows))}
	for i, row := range traceRows {
		trace.Rows[i] = convertUint64s(row)
	}

	logStderr("proving...")
	proofBytes, err := distaffstark.Prove(trace, convertUint64s(publicInputs), convertUint64s(publicOutputs), program, options)
	if err != nil {
		fatal(fmt.Sprintf("prove failed: %v", err))
	}
	logStderr(fmt.Sprintf("proof generated: %d bytes", len(proofBytes)))

	os.Stdout.WriteString(hex.EncodeToString(proofBytes))
	os.Stdout.Write([]byte("\n"))
}

func readOptions(scanner *bufio.Scanner) optionsInput {
	if !scanner.Scan() {
		fatal("failed to read options")
	}
	var o optionsInput
	if err := json.Unmarshal(scanner.Bytes(), &o); err != nil {
		fatal(fmt.Sprintf("failed to parse options: %v", err))
	}
	return o
}

func readBlock(scanner *bufio.Scanner, what string) blockInput {
	if !scanner.Scan() {
		fatal("failed to read " + what)
	}
	var b blockInput
	if err := json.Unmarshal(scanner.Bytes(), &b); err != nil {
		fatal(fmt.Sprintf("failed to parse %s: %v", what, err))
	}
	return b
}

func readUint64Array(scanner *bufio.Scanner, what string) []uint64 {
	if !scanner.Scan() {
		fatal("failed to read " + what)
	}
	var v []uint64
	if err := json.Unmarshal(scanner.Bytes(), &v); err != nil {
		fatal(fmt.Sprintf("failed to parse %s: %v", what, err))
	}
	return v
}

func readTraceRows(scanner *bufio.Scanner) [][]uint64 {
	if !scanner.Scan() {
		fatal("failed to read trace")
	}
	var v [][]uint64
	if err := json.Unmarshal(scanner.Bytes(), &v); err != nil {
		fatal(fmt.Sprintf("failed to parse trace: %v", err))
	}
	return v
}

func convertBlock(b blockInput) *distaffstark.Block {
	var kind distaffstark.BlockKind
	switch b.Kind {
	case "instructions":
		kind = distaffstark.Instructions
	case "group":
		kind = distaffstark.Group
	case "switch":
		kind = distaffstark.Switch
	case "loop":
		kind = distaffstark.Loop
	default:
		fatal(fmt.Sprintf("unknown block kind %q", b.Kind))
	}
	children := make([]*distaffstark.Block, len(b.Children))
	for i, c := range b.Children {
		children[i] = convertBlock(c)
	}
	return &distaffstark.Block{
		Kind:         kind,
		Instructions: convertUint64s(b.Instructions),
		Children:     children,
	}
}

func convertUint64s(values []uint64) []distaffstark.FieldElement {
	out := make([]distaffstark.FieldElement, len(values))
	for i, v := range values {
		out[i] = distaffstark.NewFieldElement(v)
	}
	return out
}

func logStderr(msg string) {
	fmt.Fprintln(os.Stderr, "distaff-prover:", msg)
}

func fatal(msg string) {
	logStderr("ERROR: " + msg)
	os.Exit(1)
}
