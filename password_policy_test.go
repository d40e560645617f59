package identity_test

import (
	"strings"
	"testing"

	identity "github.com/flowmatic/go-identity"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/require"
)

func TestPasswordPolicy(t *testing.T) {
	policy := identity.NewPasswordPolicy()

	testCases := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "empty password",
			password: "",
			wantErr:  true,
		},
		{
			name:     "below minimum length",
			password: "short1!",
			wantErr:  true,
		},
		{
			name:     "exactly minimum length",
			password: "12345678",
			wantErr:  false,
		},
		{
			name:     "exactly maximum length",
			password: strings.Repeat("a", 64),
			wantErr:  false,
		},
		{
			name:     "above maximum length",
			password: strings.Repeat("a", 65),
			wantErr:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := policy.Validate(tc.password)
			if !tc.wantErr {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			requireCategory(t, err, goerrors.CategoryValidation)
			requireTextCode(t, err, identity.TextCodeWeakPassword)
		})
	}
}
