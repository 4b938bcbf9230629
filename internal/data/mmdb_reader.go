package data

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/oschwald/geoip2-golang"
	"github.com/oschwald/maxminddb-golang"
)

// MmdbReader implements Database using a MaxMind MMDB file.
type MmdbReader struct {
	db *maxminddb.Reader
}

// Open is an Opener backed by NewMmdbReader.
func Open(path string) (Database, error) {
	return NewMmdbReader(path)
}

// NewMmdbReader reads the MMDB file at the given path into memory and
// returns a reader. Later changes to the file are not seen by the reader.
func NewMmdbReader(path string) (*MmdbReader, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read MMDB file: %w", err)
	}
	db, err := maxminddb.FromBytes(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to open MMDB file: %w", err)
	}
	return &MmdbReader{db: db}, nil
}

// LookupCountry returns the ISO-3166 country code for the given IP address.
func (r *MmdbReader) LookupCountry(ip net.IP) (string, error) {
	var record geoip2.Country
	_, ok, err := r.db.LookupNetwork(ip, &record)
	if err != nil {
		return "", fmt.Errorf("country lookup failed: %w", err)
	}
	if !ok {
		return "", ErrNoRecord
	}
	if record.Country.IsoCode == "" {
		return "", ErrNoCountry
	}
	return record.Country.IsoCode, nil
}

// Metadata returns the database type and build time from the MMDB header.
func (r *MmdbReader) Metadata() Metadata {
	return Metadata{
		DatabaseType: r.db.Metadata.DatabaseType,
		BuildTime:    time.Unix(int64(r.db.Metadata.BuildEpoch), 0).UTC(),
	}
}

// Close releases the MMDB reader resources.
func (r *MmdbReader) Close() error {
	return r.db.Close()
}
