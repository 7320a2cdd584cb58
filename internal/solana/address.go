// Package solana provides Solana address helpers used during normalization.
package solana

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mr-tron/base58"
)

// PublicKeyLength is the decoded size of a Solana address.
const PublicKeyLength = 32

// WrappedSOLMint is the wSOL mint address.
const WrappedSOLMint = "So11111111111111111111111111111111111111112"

// ErrInvalidAddress is returned for strings that are not Solana addresses.
var ErrInvalidAddress = errors.New("invalid solana address")

// DecodeAddress decodes a base58 address and checks its length.
func DecodeAddress(s string) ([]byte, error) {
	if s == "" {
		return nil, ErrInvalidAddress
	}
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(b) != PublicKeyLength {
		return nil, fmt.Errorf("%w: decoded length %d", ErrInvalidAddress, len(b))
	}
	return b, nil
}

// ValidateAddress returns nil if s is a base58 encoded 32-byte address.
func ValidateAddress(s string) error {
	_, err := DecodeAddress(s)
	return err
}

// IsOnCurve reports whether s is a valid ed25519 public key.
// Program derived addresses are off curve and can never sign.
func IsOnCurve(s string) bool {
	b, err := DecodeAddress(s)
	if err != nil {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// DefaultCacheSize bounds the number of memoized address checks.
const DefaultCacheSize = 4096

type addressInfo struct {
	valid   bool
	onCurve bool
}

// AddressCache memoizes address validation. Mints repeat across refresh
// cycles, so decoding is done once per distinct string.
// Safe for concurrent use. A nil *AddressCache validates without memoizing.
type AddressCache struct {
	cache *lru.Cache[string, addressInfo]
}

// NewAddressCache creates a cache holding up to size entries.
func NewAddressCache(size int) *AddressCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	// lru.New only fails for non-positive sizes.
	c, _ := lru.New[string, addressInfo](size)
	return &AddressCache{cache: c}
}

func (c *AddressCache) lookup(s string) addressInfo {
	if c == nil {
		return check(s)
	}
	if info, ok := c.cache.Get(s); ok {
		return info
	}
	info := check(s)
	c.cache.Add(s, info)
	return info
}

func check(s string) addressInfo {
	b, err := DecodeAddress(s)
	info := addressInfo{valid: err == nil}
	if info.valid {
		_, perr := new(edwards25519.Point).SetBytes(b)
		info.onCurve = perr == nil
	}
	return info
}

// Valid reports whether s is a valid address.
func (c *AddressCache) Valid(s string) bool {
	if s == "" {
		return false
	}
	return c.lookup(s).valid
}

// OnCurve reports whether s is a valid on-curve address.
func (c *AddressCache) OnCurve(s string) bool {
	if s == "" {
		return false
	}
	return c.lookup(s).onCurve
}

// Len returns the number of cached entries.
func (c *AddressCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}
