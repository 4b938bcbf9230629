// Package resolver maps textual IP addresses to country codes against one
// database snapshot.
package resolver

import (
	"errors"
	"fmt"
	"net"

	"github.com/TomasB/ipcountry/internal/data"
)

var (
	// ErrInvalidAddress is returned when the input is not an IPv4 or IPv6 address.
	ErrInvalidAddress = errors.New("invalid IP address")

	// ErrNotFound is returned when the address is valid but maps to no country.
	ErrNotFound = errors.New("no country found")
)

// DatabaseFaultError reports a failure of the lookup mechanism itself.
type DatabaseFaultError struct {
	IP  string
	Err error
}

func (e *DatabaseFaultError) Error() string {
	return fmt.Sprintf("database fault looking up %s: %v", e.IP, e.Err)
}

func (e *DatabaseFaultError) Unwrap() error {
	return e.Err
}

// Resolve parses ipText and looks up its country code in db.
func Resolve(ipText string, db data.Database) (string, error) {
	ip := net.ParseIP(ipText)
	if ip == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, ipText)
	}

	country, err := db.LookupCountry(ip)
	switch {
	case errors.Is(err, data.ErrNoRecord), errors.Is(err, data.ErrNoCountry):
		return "", fmt.Errorf("%w for %s: %w", ErrNotFound, ip, err)
	case err != nil:
		return "", &DatabaseFaultError{IP: ip.String(), Err: err}
	case country == "":
		return "", fmt.Errorf("%w for %s", ErrNotFound, ip)
	}
	return country, nil
}
