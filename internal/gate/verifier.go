package gate

import (
	"context"

	accountdomain "authgate/internal/account/domain"
	accountrepo "authgate/internal/account/repository"
	"authgate/internal/security"
)

// dummyHash is a bcrypt hash of an unguessable value. Compared against when
// the identifier is unknown so the response takes roughly the same time as a
// real comparison.
const dummyHash = "$2a$12$K8GpVzB0qYxHMendzfZuX.P7VWfmrCFBZsvTyLIwyM6DYrU9OJW3S"

// CredentialVerifier looks up an account by identifier and checks its secret.
type CredentialVerifier struct {
	hasher *security.Hasher
}

// NewCredentialVerifier returns a verifier using the given hasher.
func NewCredentialVerifier(hasher *security.Hasher) *CredentialVerifier {
	return &CredentialVerifier{hasher: hasher}
}

// Verify resolves the identifier and checks the secret, in that order:
//
//   - unknown identifier: a dummy comparison is still performed, then
//     ErrInvalidCredentials
//   - disabled account: the secret is still compared (result discarded),
//     then ErrAccountDisabled
//   - wrong secret: ErrInvalidCredentials
//
// The account row is locked for update so concurrent logins for the same
// account serialize on it. Any other error is an infrastructure failure.
func (v *CredentialVerifier) Verify(ctx context.Context, accounts accountrepo.Repository, identifier, secret string) (*accountdomain.Account, error) {
	account, err := accounts.GetByEmailForUpdate(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if account == nil {
		_ = v.hasher.Compare(dummyHash, []byte(secret))
		return nil, ErrInvalidCredentials
	}
	if !account.Active {
		_ = v.hasher.Compare(account.PasswordHash, []byte(secret))
		return nil, ErrAccountDisabled
	}
	if err := v.hasher.Compare(account.PasswordHash, []byte(secret)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return account, nil
}
