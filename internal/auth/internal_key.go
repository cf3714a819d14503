package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// InternalKey holds the shared secret of trusted backend callers. The
// configured value may be the secret itself or its bcrypt hash.
type InternalKey struct {
	secret []byte
	hashed bool
}

func NewInternalKey(configured string) InternalKey {
	return InternalKey{
		secret: []byte(configured),
		hashed: strings.HasPrefix(configured, "$2"),
	}
}

func (k InternalKey) Enabled() bool {
	return len(k.secret) > 0
}

// Matches reports whether presented is the shared secret. An unconfigured
// key matches nothing.
func (k InternalKey) Matches(presented string) bool {
	if !k.Enabled() || presented == "" {
		return false
	}
	if k.hashed {
		return bcrypt.CompareHashAndPassword(k.secret, []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare(k.secret, []byte(presented)) == 1
}
