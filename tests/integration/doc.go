// Package integration exercises the running server against real journal
// backends. PostgreSQL and MongoDB are started with testcontainers-go.
//
// Run with: go test -tags=integration ./tests/integration/...
package integration
