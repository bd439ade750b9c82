// Package connectors holds the DocumentSource implementations that feed the
// ingest pipeline. Each connector knows how to fetch raw compliance
// documents from one kind of location (a local directory, a GitHub
// repository) and leaves format handling to the normalisers.
package connectors
