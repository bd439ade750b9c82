// Package normalisers provides implementations of the Normaliser interface
// for compliance document formats. Each normaliser knows how to extract
// text content from a specific MIME type.
//
// Registry selects a normaliser by MIME type, falling back to the file
// extension when a document source cannot report one. Defaults returns
// a registry holding every built-in normaliser.
package normalisers
