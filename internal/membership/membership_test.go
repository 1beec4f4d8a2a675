package membership

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialRoundTrip(t *testing.T) {
	cred, err := NewCredential("member-1", "password")
	require.NoError(t, err)
	require.NoError(t, cred.Validate())
	assert.NotContains(t, cred.PasswordHash, "password")

	ok, err := cred.Matches("password")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cred.Matches("Password")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCredentialsAreSalted(t *testing.T) {
	a, err := NewCredential("u", "same")
	require.NoError(t, err)
	b, err := NewCredential("u", "same")
	require.NoError(t, err)
	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.PasswordHash, b.PasswordHash)
}

func TestMatchesRejectsCorruptSalt(t *testing.T) {
	_, err := Credential{UserID: "u", PasswordHash: "aGFzaA==", Salt: "%%%"}.Matches("x")
	assert.Error(t, err)
}

func TestUserValidate(t *testing.T) {
	assert.NoError(t, User{ID: "admin-1", Role: RoleAdmin}.Validate())
	assert.Error(t, User{Role: RoleAdmin}.Validate())
	assert.Error(t, User{ID: "x", Role: "librarian"}.Validate())
}

func TestCountMembers(t *testing.T) {
	users := []User{
		{ID: "admin-1", Role: RoleAdmin},
		{ID: "member-1", Role: RoleMember},
		{ID: "member-2", Role: RoleMember},
	}
	assert.Equal(t, 2, CountMembers(users))
	assert.Equal(t, 0, CountMembers(nil))
}
