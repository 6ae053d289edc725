// Package main provides the entry point for the datafetch CLI.
//
// datafetch downloads a plain-text, CSV, Excel and JSON dataset, writes each
// raw payload to disk, and derives a small report from every payload.
//
// Usage:
//
//	datafetch run
//	datafetch run --kind csv --root ./out
//	datafetch history
//
// See --help for all available options.
package main

// main is the entry point for datafetch.
func main() {
	Execute()
}
