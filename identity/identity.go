// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// UnknownAddress stands in for a source address that could not be determined
const UnknownAddress = "unknown"

// Signals is the set of identity signals resolved for one vote request
type Signals struct {
	CookieToken string
	Fingerprint string
	Address     string
}

// Kind identifies one identity signal
type Kind string

const (
	KindCookie      Kind = "cookie"
	KindFingerprint Kind = "fingerprint"
	KindAddress     Kind = "address"
)

type Signal struct {
	Kind  Kind
	Value string
}

// Ranked returns the non-empty signals from strongest to weakest:
// cookie, fingerprint, address.
func (s Signals) Ranked() []Signal {
	ranked := make([]Signal, 0, 3)
	if s.CookieToken != "" {
		ranked = append(ranked, Signal{KindCookie, s.CookieToken})
	}
	if s.Fingerprint != "" {
		ranked = append(ranked, Signal{KindFingerprint, s.Fingerprint})
	}
	ranked = append(ranked, Signal{KindAddress, s.Address})
	return ranked
}

// Resolver turns raw request signals into Signals.
// With a salt, addresses are replaced by a keyed hash before they are
// compared or stored.
type Resolver struct {
	salt string
}

func NewResolver(salt string) Resolver {
	return Resolver{salt: salt}
}

// Resolve never fails. The fingerprint is taken as given; it is a
// best-effort client signal and is not validated.
func (r Resolver) Resolve(cookieToken, fingerprint, sourceAddress string) Signals {
	addr := strings.TrimSpace(sourceAddress)
	if addr == "" {
		addr = UnknownAddress
	}
	if r.salt != "" {
		addr = HashAddress(addr, r.salt)
	}
	return Signals{
		CookieToken: strings.TrimSpace(cookieToken),
		Fingerprint: strings.TrimSpace(fingerprint),
		Address:     addr,
	}
}

// NewToken mints a voter cookie token
func NewToken() string {
	return uuid.NewString()
}

// HashAddress creates a one-way hash of an address for privacy
// Includes salt to prevent rainbow table attacks
func HashAddress(addr, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(addr))
	sum := h.Sum(nil)
	// First 16 bytes - enough for deduplication
	return hex.EncodeToString(sum[:16])
}
