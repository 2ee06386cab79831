// Package services implements the business logic layer between the HTTP
// handlers and the in-memory cohort snapshot.
//
// # Architecture
//
// Services follow these architectural principles:
//
//	1. Context propagation for cancellation and tracing
//	2. Dependency injection for loose coupling
//	3. Domain-focused methods that encapsulate business rules
//	4. Validation at the service boundary, not in handlers
//
// # Available Services
//
// The package provides two services:
//
//	- QueryService: percentile, distribution, statistics and rank queries
//	  over the currently published snapshot
//	- HealthService: liveness and dataset readiness reporting
//
// # Error Handling
//
// Services return domain-specific errors that the transport layer maps to
// RFC 7807 problem responses:
//
//	- Invalid filter errors for malformed query parameters
//	- Insufficient data errors when a cohort is below the sample floor
//	- Source data errors when no snapshot has been published
//
// # Testing
//
// Services are tested against real snapshots built from in-memory records,
// not mocks; a published Holder is the only dependency a test needs.
package services
