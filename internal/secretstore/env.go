package secretstore

import (
	"context"
	"fmt"
	"os"
)

// EnvStore is a single-credential Store sourced from two environment
// variables, for small deployments that don't want a secrets file at all.
type EnvStore struct {
	principalID string
	secret      []byte
}

// NewEnvStore reads accessKeyEnv/secretKeyEnv from the environment. Both
// must be set and non-empty.
func NewEnvStore(accessKeyEnv, secretKeyEnv string) (*EnvStore, error) {
	accessKey := os.Getenv(accessKeyEnv)
	secretKey := os.Getenv(secretKeyEnv)
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("secretstore: %s and %s must both be set", accessKeyEnv, secretKeyEnv)
	}
	return &EnvStore{principalID: accessKey, secret: []byte(secretKey)}, nil
}

// GetSecret implements Store.
func (e *EnvStore) GetSecret(_ context.Context, principalID string) (Secret, error) {
	if principalID != e.principalID {
		return Secret{}, ErrUnknownPrincipal
	}
	return Secret{PrincipalID: e.principalID, Key: e.secret}, nil
}
