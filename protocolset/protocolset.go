// Package protocolset contains the set of TLS protocol versions that
// a caller enables for outbound connections.
//
// A Set is an immutable bitset value. The zero value, None, means
// that the caller did not restrict anything and the platform default
// policy applies. Bits that this package does not know about are
// preserved by every operation, so values round trip unchanged.
package protocolset

import (
	"crypto/tls"
	"errors"
	"fmt"
	"math/bits"
	"strings"
)

// Version is a protocol version as it appears on the wire.
type Version uint16

// These are the protocol versions we know about.
const (
	VersionSSL20 Version = 0x0200
	VersionSSL30 Version = tls.VersionSSL30 //nolint:staticcheck
	VersionTLS10 Version = tls.VersionTLS10
	VersionTLS11 Version = tls.VersionTLS11
	VersionTLS12 Version = tls.VersionTLS12
	VersionTLS13 Version = tls.VersionTLS13
)

var versionString = map[Version]string{
	VersionSSL20: "SSLv2",
	VersionSSL30: "SSLv3",
	VersionTLS10: "TLSv1",
	VersionTLS11: "TLSv1.1",
	VersionTLS12: "TLSv1.2",
	VersionTLS13: "TLSv1.3",
	0:            "", // guarantee correct behaviour
}

// String returns the version name. If the version is zero, we return
// the empty string. If the version is unknown, we return a string like
// `TLS_VERSION_UNKNOWN_ddd` where `ddd` is the numeric value.
func (v Version) String() string {
	if s, found := versionString[v]; found {
		return s
	}
	return fmt.Sprintf("TLS_VERSION_UNKNOWN_%d", uint16(v))
}

// Set is a set of protocol versions.
type Set uint32

// These are the flags composing a Set.
const (
	None  Set = 0
	SSL2  Set = 1 << 0
	SSL3  Set = 1 << 1
	TLS10 Set = 1 << 2
	TLS11 Set = 1 << 3
	TLS12 Set = 1 << 4
	TLS13 Set = 1 << 5

	// known contains all the flags above.
	known = SSL2 | SSL3 | TLS10 | TLS11 | TLS12 | TLS13
)

// flags maps each known flag to its version. Keep sorted by version.
var flags = []struct {
	flag    Set
	version Version
}{
	{SSL2, VersionSSL20},
	{SSL3, VersionSSL30},
	{TLS10, VersionTLS10},
	{TLS11, VersionTLS11},
	{TLS12, VersionTLS12},
	{TLS13, VersionTLS13},
}

// Of returns the set containing the given versions. Unknown
// versions are silently ignored.
func Of(versions ...Version) (s Set) {
	for _, v := range versions {
		s |= FlagOf(v)
	}
	return
}

// FlagOf returns the flag corresponding to v or None if we
// don't know about such a version.
func FlagOf(v Version) Set {
	for _, e := range flags {
		if e.version == v {
			return e.flag
		}
	}
	return None
}

// Union returns the set containing every version in either a or b.
func Union(a, b Set) Set {
	return a | b
}

// Intersect returns the set containing the versions in both a and b.
func Intersect(a, b Set) Set {
	return a & b
}

// IsEmpty returns true when no version is selected, which means that
// the platform default policy applies. This is not the same as a set
// that becomes empty after filtering it against what the platform
// can actually use.
func (s Set) IsEmpty() bool {
	return s == None
}

// Contains returns whether v is a member of s.
func (s Set) Contains(v Version) bool {
	f := FlagOf(v)
	return f != None && s&f == f
}

// Unknown returns the bits of s that do not correspond to any known version.
func (s Set) Unknown() Set {
	return s &^ known
}

// Len returns the number of known versions in s.
func (s Set) Len() int {
	return bits.OnesCount32(uint32(s & known))
}

// Versions returns the known versions in s in ascending order.
func (s Set) Versions() (out []Version) {
	for _, e := range flags {
		if s&e.flag != 0 {
			out = append(out, e.version)
		}
	}
	return
}

// Min returns the lowest known version in s, or zero.
func (s Set) Min() Version {
	if v := s.Versions(); len(v) > 0 {
		return v[0]
	}
	return 0
}

// Max returns the highest known version in s, or zero.
func (s Set) Max() Version {
	if v := s.Versions(); len(v) > 0 {
		return v[len(v)-1]
	}
	return 0
}

// String returns a comma separated list of version names. Unknown
// bits are rendered in hexadecimal so that no information is lost.
func (s Set) String() string {
	var out []string
	for _, v := range s.Versions() {
		out = append(out, v.String())
	}
	if u := s.Unknown(); u != None {
		out = append(out, fmt.Sprintf("0x%x", uint32(u)))
	}
	return strings.Join(out, ",")
}

// ErrInvalidVersion indicates that you passed us a string
// that does not represent a valid protocol version.
var ErrInvalidVersion = errors.New("invalid TLS version")

// ParseVersion maps a version name to a Version.
//
// Recognized strings: SSLv2, SSLv3, TLSv1.0 (or TLSv1), TLSv1.1,
// TLSv1.2, TLSv1.3.
func ParseVersion(name string) (Version, error) {
	switch strings.TrimSpace(name) {
	case "SSLv2":
		return VersionSSL20, nil
	case "SSLv3":
		return VersionSSL30, nil
	case "TLSv1.0", "TLSv1":
		return VersionTLS10, nil
	case "TLSv1.1":
		return VersionTLS11, nil
	case "TLSv1.2":
		return VersionTLS12, nil
	case "TLSv1.3":
		return VersionTLS13, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidVersion, name)
	}
}

// Parse parses a comma separated list of version names. The
// empty string parses to None.
func Parse(value string) (Set, error) {
	var s Set
	if strings.TrimSpace(value) == "" {
		return None, nil
	}
	for _, name := range strings.Split(value, ",") {
		v, err := ParseVersion(name)
		if err != nil {
			return None, err
		}
		s |= FlagOf(v)
	}
	return s, nil
}
