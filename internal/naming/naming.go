// Package naming turns untrusted client file names into safe, unique stored
// names and recovers the original name from a stored one.
//
// A stored name produced by this package has the shape
//
//	{base}-{unixMillis}-{12 hex}{ext}
//
// Exactly one token is appended to the end of the stem, so OriginalName can
// strip it without guessing, whatever the base itself contains.
package naming

import (
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Policy selects how a stored name is derived from the sanitized name.
type Policy string

const (
	// PolicySuffix always appends a fresh token.
	PolicySuffix Policy = "suffix"
	// PolicyProbe keeps the literal name unless it is already taken, then
	// appends one token. The check and the write are not atomic.
	PolicyProbe Policy = "probe"
)

var (
	ErrUnknownPolicy = errors.New("unknown naming policy")
	ErrInvalidName   = errors.New("invalid file name")
)

const (
	maxNameBytes = 200
	maxExtBytes  = 20
	fallbackName = "file"
)

var tokenPattern = regexp.MustCompile(`-[0-9]+-[0-9a-f]{12}$`)

// ParsePolicy maps a configuration string onto a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicySuffix, "":
		return PolicySuffix, nil
	case PolicyProbe:
		return PolicyProbe, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Sanitize reduces a client supplied name to a single safe path component.
// Directory parts are dropped, so "../../etc/passwd" becomes "passwd".
func Sanitize(name string) string {
	name = strings.ToValidUTF8(name, "_")
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return '_'
		}
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, " .")
	if name == "" {
		return fallbackName
	}
	if len(name) > maxNameBytes {
		ext := filepath.Ext(name)
		if len(ext) > maxExtBytes {
			ext = ""
		}
		name = truncate(strings.TrimSuffix(name, ext), maxNameBytes-len(ext)) + ext
	}
	return name
}

// Validate checks that a stored name requested by a client refers to an entry
// directly inside the storage root. It runs before any filesystem access.
func Validate(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case filepath.IsAbs(name) || filepath.VolumeName(name) != "":
		return fmt.Errorf("%w: %q is absolute", ErrInvalidName, name)
	}
	return nil
}

// NewToken returns a time ordered token with a random component.
func NewToken() string {
	return tokenAt(time.Now(), uuid.New())
}

func tokenAt(now time.Time, id uuid.UUID) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), hex.EncodeToString(id[:6]))
}

// WithToken inserts token between the base and the extension of name.
func WithToken(name, token string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "-" + token + ext
}

// OriginalName reverses WithToken. Names without a trailing token are
// returned unchanged.
func OriginalName(stored string) string {
	ext := filepath.Ext(stored)
	stem := strings.TrimSuffix(stored, ext)
	loc := tokenPattern.FindStringIndex(stem)
	if loc == nil || loc[0] == 0 {
		return stored
	}
	return stem[:loc[0]] + ext
}

func truncate(s string, n int) string {
	if n <= 0 {
		return fallbackName
	}
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
