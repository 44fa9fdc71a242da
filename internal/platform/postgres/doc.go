// Package postgres implements the task result backend on PostgreSQL using
// the pgx driver through database/sql. It persists task lifecycle
// transitions so submitters can observe completed results and permanent
// failures.
package postgres
