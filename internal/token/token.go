package token

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// Alphabet excludes visually ambiguous characters (I, L, O, 0, 1) so tokens
// survive being read aloud or copied by hand.
const Alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	groupLen   = 4
	groupCount = 3
	separator  = "-"

	// defaultMaxAttempts bounds the uniqueness retry loop so adversarial
	// collision cannot spin it forever.
	defaultMaxAttempts = 25
)

var formatPattern = regexp.MustCompile(
	fmt.Sprintf(`^[%s]{%d}(%s[%s]{%d}){%d}$`, Alphabet, groupLen, separator, Alphabet, groupLen, groupCount-1))

// ExistsFunc reports whether a token is already assigned to any ticket.
type ExistsFunc func(ctx context.Context, token string) (bool, error)

// Service generates and validates anonymous-ticket tokens. Tokens are
// write-once: once assigned to a ticket they are never regenerated.
type Service struct {
	exists      ExistsFunc
	maxAttempts int
}

// NewService constructs the service with the given uniqueness lookup.
func NewService(exists ExistsFunc) *Service {
	return &Service{exists: exists, maxAttempts: defaultMaxAttempts}
}

// Generate produces a unique token formatted as three 4-character groups
// separated by dashes, retrying on collision up to the attempt bound.
func (s *Service) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		candidate, err := randomToken()
		if err != nil {
			return "", err
		}
		if s.exists == nil {
			return candidate, nil
		}
		taken, err := s.exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("token generation: no unique value after %d attempts", s.maxAttempts)
}

// ValidateFormat is a structural check only; it does not consult storage.
func ValidateFormat(token string) bool {
	return formatPattern.MatchString(token)
}

func randomToken() (string, error) {
	groups := make([]string, 0, groupCount)
	var b strings.Builder
	max := big.NewInt(int64(len(Alphabet)))
	for g := 0; g < groupCount; g++ {
		b.Reset()
		for i := 0; i < groupLen; i++ {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", fmt.Errorf("token generation: %w", err)
			}
			b.WriteByte(Alphabet[n.Int64()])
		}
		groups = append(groups, b.String())
	}
	return strings.Join(groups, separator), nil
}
