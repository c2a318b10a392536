package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/angelmondragon/memorial-backend/pkg/config"
)

// ErrInvalidHash signals a stored password hash that is not a PHC argon2id string.
var ErrInvalidHash = errors.New("invalid argon2id hash")

const hashPrefix = "$argon2id$v=19$"

// Params are the argon2id cost settings embedded in every hash.
type Params struct {
	MemoryKB uint32
	Time     uint32
	Threads  uint8
	SaltLen  int
	KeyLen   uint32
}

// ParamsFromConfig clamps the configured costs to sane bounds.
func ParamsFromConfig(cfg config.PasswordConfig) Params {
	return Params{
		MemoryKB: uint32(clamp(cfg.ArgonMemoryKB, 8, 512*1024)),
		Time:     uint32(clamp(cfg.ArgonTime, 1, 10)),
		Threads:  uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		SaltLen:  clamp(cfg.ArgonSaltLen, 8, 64),
		KeyLen:   uint32(clamp(cfg.ArgonKeyLen, 16, 64)),
	}
}

// HashPassword derives a PHC-formatted argon2id hash with a fresh salt.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	p := ParamsFromConfig(cfg)

	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKB, p.Threads, p.KeyLen)

	return fmt.Sprintf("%sm=%d,t=%d,p=%d$%s$%s", hashPrefix, p.MemoryKB, p.Time, p.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// VerifyPassword reports whether password matches the encoded hash. A
// malformed hash is an error, a mismatch is not.
func VerifyPassword(password, encoded string) (bool, error) {
	p, salt, key, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	computed := argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKB, p.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, computed) == 1, nil
}

// NeedsRehash reports whether encoded was produced with costs other than the
// configured ones, so a successful login can upgrade it.
func NeedsRehash(encoded string, cfg config.PasswordConfig) bool {
	p, salt, key, err := parseHash(encoded)
	if err != nil {
		return true
	}
	want := ParamsFromConfig(cfg)
	return p.MemoryKB != want.MemoryKB ||
		p.Time != want.Time ||
		p.Threads != want.Threads ||
		len(salt) != want.SaltLen ||
		uint32(len(key)) != want.KeyLen
}

var b64 = base64.RawStdEncoding

func parseHash(encoded string) (Params, []byte, []byte, error) {
	rest, ok := strings.CutPrefix(encoded, hashPrefix)
	if !ok {
		return Params{}, nil, nil, ErrInvalidHash
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 3 {
		return Params{}, nil, nil, ErrInvalidHash
	}

	var (
		p       Params
		threads uint32
	)
	if _, err := fmt.Sscanf(fields[0], "m=%d,t=%d,p=%d", &p.MemoryKB, &p.Time, &threads); err != nil || threads == 0 || threads > 255 {
		return Params{}, nil, nil, ErrInvalidHash
	}
	p.Threads = uint8(threads)

	salt, err := b64.DecodeString(fields[1])
	if err != nil || len(salt) == 0 {
		return Params{}, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(fields[2])
	if err != nil || len(key) == 0 {
		return Params{}, nil, nil, ErrInvalidHash
	}
	p.SaltLen = len(salt)
	p.KeyLen = uint32(len(key))
	return p, salt, key, nil
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
