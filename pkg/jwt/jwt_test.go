package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/mercado-ledger/pkg/jwt"
)

const secret = "test-secret"

func TestGenerateParse_RoundTrip(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "user-1", "vendor-1", "test", 5)
	require.NoError(t, err)

	id, err := pkgjwt.Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, "vendor-1", id.VendorID)
}

func TestParse_WrongSecret(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "user-1", "vendor-1", "test", 5)
	require.NoError(t, err)

	_, err = pkgjwt.Parse("otro", tok)
	assert.Error(t, err)
}

func TestParse_Expired(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "user-1", "vendor-1", "test", -1)
	require.NoError(t, err)

	_, err = pkgjwt.Parse(secret, tok)
	assert.Error(t, err)
}

func TestParse_MissingVendor(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "user-1", "", "test", 5)
	require.NoError(t, err)

	_, err = pkgjwt.Parse(secret, tok)
	assert.Error(t, err)
}

func TestEmptySecret(t *testing.T) {
	_, err := pkgjwt.Generate("", "u", "v", "test", 5)
	assert.ErrorIs(t, err, pkgjwt.ErrEmptySecret)

	_, err = pkgjwt.Parse("", "x.y.z")
	assert.ErrorIs(t, err, pkgjwt.ErrEmptySecret)
}
