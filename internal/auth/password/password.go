// Package password hashes operator passwords with argon2id.
//
// Accounts carried over from the legacy tbl_users still hold their password as
// plain text. Verify accepts those rows and NeedsRehash reports them so login can
// upgrade them in place.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32
	argonSaltLen        = 16

	argonPrefix = "$argon2id$"
)

type argonHash struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

// Hash returns the argon2id encoding stored in tbl_users.password.
func Hash(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("%sv=19$m=%d,t=%d,p=%d$%s$%s",
		argonPrefix, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks password against a stored value, either an argon2id encoding or
// a legacy plain text password.
func Verify(password, stored string) bool {
	if stored == "" {
		return false
	}
	if !strings.HasPrefix(stored, argonPrefix) {
		return subtle.ConstantTimeCompare([]byte(password), []byte(stored)) == 1
	}

	h, ok := decode(stored)
	if !ok {
		return false
	}
	check := argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.threads, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(h.key, check) == 1
}

// NeedsRehash reports stored values that are legacy plain text or use weaker
// argon2 parameters than Hash does today.
func NeedsRehash(stored string) bool {
	if !strings.HasPrefix(stored, argonPrefix) {
		return true
	}
	h, ok := decode(stored)
	if !ok {
		return true
	}
	return h.memory < argonMemory || h.time < argonTime || uint32(len(h.key)) < argonKeyLen
}

func decode(encoded string) (argonHash, bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return argonHash{}, false
	}

	params := strings.Split(parts[3], ",")
	if len(params) != 3 {
		return argonHash{}, false
	}
	m, err := paramValue(params[0], "m=", 32)
	if err != nil {
		return argonHash{}, false
	}
	t, err := paramValue(params[1], "t=", 32)
	if err != nil {
		return argonHash{}, false
	}
	p, err := paramValue(params[2], "p=", 8)
	if err != nil {
		return argonHash{}, false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return argonHash{}, false
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return argonHash{}, false
	}

	return argonHash{
		memory:  uint32(m),
		time:    uint32(t),
		threads: uint8(p),
		salt:    salt,
		key:     key,
	}, true
}

func paramValue(field, prefix string, bits int) (uint64, error) {
	raw, ok := strings.CutPrefix(field, prefix)
	if !ok {
		return 0, fmt.Errorf("missing %s", prefix)
	}
	return strconv.ParseUint(raw, 10, bits)
}
