// Package domain defines the keystore model: key aliases, stored key entries, the
// provider capability backing the KeyStore and the keystore error taxonomy.
package domain

import (
	"strings"
	"time"
)

// Well-known keystore aliases.
const (
	// AliasIdentityKey names the server's P-256 identity key pair (PKCS#8 DER).
	AliasIdentityKey = "register-key"
	// AliasFederationKey names the AES-256 federation key (K_G) protecting ECCs.
	AliasFederationKey = "federation-key"
	// AliasKeyEncryptionKey names the 256-bit KEK wrapping registration keys.
	AliasKeyEncryptionKey = "key-encryption-key"

	dayKeyPrefix     = "server-key-"
	dayKeyDateLayout = "20060102"
)

// DayKeyAlias returns the alias of the day key (K_S) valid on date's UTC day,
// e.g. server-key-20200601.
func DayKeyAlias(date time.Time) string {
	return dayKeyPrefix + date.UTC().Format(dayKeyDateLayout)
}

// ParseDayKeyAlias extracts the UTC date from a day key alias.
func ParseDayKeyAlias(alias string) (time.Time, bool) {
	raw, ok := strings.CutPrefix(alias, dayKeyPrefix)
	if !ok {
		return time.Time{}, false
	}
	date, err := time.ParseInLocation(dayKeyDateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

// IsKnownAlias reports whether alias is one of the aliases the engine reads.
func IsKnownAlias(alias string) bool {
	switch alias {
	case AliasIdentityKey, AliasFederationKey, AliasKeyEncryptionKey:
		return true
	}
	_, ok := ParseDayKeyAlias(alias)
	return ok
}
