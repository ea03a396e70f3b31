package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	svc := NewTokenService("a-sufficiently-long-signing-key-for-tests", NewBlacklist())

	token, err := svc.Issue("user-1", []Role{RoleDeveloper}, time.Hour)
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, []Role{RoleDeveloper}, claims.TypedRoles())
}

func TestVerify_ExpiredRejected(t *testing.T) {
	svc := NewTokenService("a-sufficiently-long-signing-key-for-tests", NewBlacklist())

	token, err := svc.Issue("user-1", []Role{RoleViewer}, -time.Minute)
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.Error(t, err)
}

func TestVerify_WrongKeyRejected(t *testing.T) {
	a := NewTokenService("a-sufficiently-long-signing-key-for-tests", NewBlacklist())
	b := NewTokenService("a-totally-different-signing-key-value!!", NewBlacklist())

	token, err := a.Issue("user-1", []Role{RoleViewer}, time.Hour)
	require.NoError(t, err)

	_, err = b.Verify(token)
	assert.Error(t, err)
}

func TestVerify_RevokedTokenRejected(t *testing.T) {
	bl := NewBlacklist()
	svc := NewTokenService("a-sufficiently-long-signing-key-for-tests", bl)

	token, err := svc.Issue("user-1", []Role{RoleViewer}, time.Hour)
	require.NoError(t, err)

	bl.RevokeToken(hashToken(token), time.Now().Add(time.Hour))

	_, err = svc.Verify(token)
	assert.Error(t, err)
}

func TestVerify_UserWideCutoffRejectsOlderTokens(t *testing.T) {
	bl := NewBlacklist()
	svc := NewTokenService("a-sufficiently-long-signing-key-for-tests", bl)

	token, err := svc.Issue("user-1", []Role{RoleViewer}, time.Hour)
	require.NoError(t, err)

	bl.RevokeUser("user-1", time.Now().Add(time.Minute))

	_, err = svc.Verify(token)
	assert.Error(t, err)
}

func TestBlacklist_SweepRemovesExpired(t *testing.T) {
	bl := NewBlacklist()
	bl.RevokeToken("hash-a", time.Now().Add(-time.Minute))
	bl.RevokeToken("hash-b", time.Now().Add(time.Hour))

	removed := bl.Sweep(time.Now())
	assert.Equal(t, 1, removed)
	assert.False(t, bl.IsRevoked("hash-a"))
	assert.True(t, bl.IsRevoked("hash-b"))
}
