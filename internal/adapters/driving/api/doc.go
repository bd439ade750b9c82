// Package api provides the HTTP adapter for the answer pipeline.
//
// Routes:
//
//	POST /api/v1/chat/query         answer a question, JSON result
//	POST /api/v1/chat/query/stream  answer a question as server-sent events
//	GET  /api/v1/health             backend health with an explicit status mapping
//
// Malformed requests and invalid questions are rejected with 400. Backend
// failures during answering are not transport errors: the result carries
// confidence "error" and the request succeeds.
package api
