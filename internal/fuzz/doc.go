// Package fuzztests houses Go fuzz harnesses for the inputs prism accepts
// from outside: interchange documents and qualifier word sequences. They
// guard against panics on arbitrary input.
//
//	go test ./internal/fuzz -fuzz FuzzLowerDocument
package fuzztests
