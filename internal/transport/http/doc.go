// Package http implements the HTTP request handlers for the query API.
// Handlers stay thin: they parse and validate query parameters, delegate to
// the service layer, and render the result.
//
// # Request Flow
//
// A typical request flows through these layers:
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → Snapshot
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Error Handling
//
// All errors follow RFC 7807 Problem Details:
//
//	{
//	    "type": "/errors/invalid-filter",
//	    "title": "Invalid Filter",
//	    "status": 400,
//	    "detail": "invalid value \"X\" for filter \"sex\"",
//	    "trace_id": "..."
//	}
//
// Unknown query parameters are rejected rather than ignored, so typos in
// filter names surface as 400s instead of silently widening the cohort.
//
// # Testing
//
// Handlers are tested end to end with httptest servers built from real
// services and snapshots; tests assert on status codes, problem bodies and
// response payloads.
package http
