// Package database provides the shared PostgreSQL connection pool used
// by the scan store and the snapshot archive.
package database
