// Package api contains the HTTP handlers: the health endpoint, task
// submission and lookup for the API role, and the read-only endpoints
// served by the monitor role.
package api
