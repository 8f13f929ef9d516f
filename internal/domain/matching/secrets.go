package matching

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"

	apperrors "github.com/helpline/faqmatch/pkg/errors"
)

const secretKeyBytes = 32

// SecretKeys are the two independent bearer tokens scoped to one stored
// request. The inbound key authorizes pagination, the feedback key feedback
// submission; leaking one must not expose the other capability.
type SecretKeys struct {
	FeedbackSecretKey string
	InboundSecretKey  string
}

// GenerateSecretKeys draws both keys from crypto/rand.
func GenerateSecretKeys() (SecretKeys, error) {
	feedback, err := randomKey()
	if err != nil {
		return SecretKeys{}, err
	}
	inbound, err := randomKey()
	if err != nil {
		return SecretKeys{}, err
	}
	return SecretKeys{FeedbackSecretKey: feedback, InboundSecretKey: inbound}, nil
}

func randomKey() (string, error) {
	buf := make([]byte, secretKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", apperrors.Wrap("storage_error", "secret key generation failed", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// secretKeyMatches compares keys in constant time.
func secretKeyMatches(stored, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
