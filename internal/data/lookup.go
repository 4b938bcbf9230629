package data

import (
	"errors"
	"net"
	"time"
)

var (
	// ErrNoRecord is returned when the database has no network containing the address.
	ErrNoRecord = errors.New("no record for address")

	// ErrNoCountry is returned when the matching record carries no country ISO code.
	ErrNoCountry = errors.New("record has no country")
)

// Database is one opened geolocation database. Implementations are
// immutable after open and safe for concurrent lookups.
type Database interface {
	// LookupCountry returns the ISO-3166 country code for the given IP address.
	// Returns ErrNoRecord or ErrNoCountry when the address resolves to nothing,
	// any other error is a fault in the database itself.
	LookupCountry(ip net.IP) (string, error)

	// Metadata describes the loaded database file.
	Metadata() Metadata

	// Close releases any resources held by the database.
	Close() error
}

// Metadata describes a loaded database file.
type Metadata struct {
	DatabaseType string
	BuildTime    time.Time
}

// Opener loads a Database from a file path.
type Opener func(path string) (Database, error)
