package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

// CredentialFingerprint derives the deterministic fingerprint embedded in a
// process token. The same credential always produces the same fingerprint,
// which is what lets verify re-bind an attempt without server-side state.
func CredentialFingerprint(credential string) (string, error) {
	id, err := hashid.NewUUID(normalizeCredential(credential))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to derive credential fingerprint")
	}
	return id.String(), nil
}

// OwnerKey derives the verification-code owner for (method, credential).
// Regenerating for the same pair always lands on the same row.
func OwnerKey(method VerificationMethod, credential string) (string, error) {
	id, err := hashid.NewUUID(string(method) + ":" + normalizeCredential(credential))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to derive owner key")
	}
	return id.String(), nil
}

func normalizeCredential(credential string) string {
	return strings.ToLower(strings.TrimSpace(credential))
}
