// Copyright 2026 The Notarium Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates the token verification round trip and its failure modes.
// Scope: Unit Test
// Security: Token forgery and algorithm confusion resistance
// Expected: A freshly issued token verifies; expired, wrong-secret, wrong-issuer and alg=none tokens are rejected.
// Test Case ID: IDN-01
func TestToken_VerifyRoundTrip(t *testing.T) {
	v := NewTokenVerifier([]byte("test-secret"), "notarium")

	token, err := v.Issue("user-1", time.Hour)
	require.NoError(t, err)

	userID, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	// Expired
	expired, err := v.Issue("user-1", -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, ErrTokenExpired)

	// Wrong secret
	other := NewTokenVerifier([]byte("other-secret"), "notarium")
	forged, err := other.Issue("user-1", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Wrong issuer
	foreign := NewTokenVerifier([]byte("test-secret"), "someone-else")
	fromElsewhere, err := foreign.Issue("user-1", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(fromElsewhere)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Unsigned token
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "notarium",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = v.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Garbage
	_, err = v.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

type stubUserRepo struct {
	users map[string]*User
	err   error
}

func (s *stubUserRepo) GetByID(ctx context.Context, id string) (*User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func (s *stubUserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

// TestPurpose: Validates principal resolution and the superuser check semantics.
// Scope: Unit Test
// Security: Inactive users must not obtain a principal; store failures must propagate
// Expected: Active users resolve; inactive users fail; IsSuperuser is false for missing users but errors for store failures.
// Test Case ID: IDN-02
func TestIdentity_PrincipalAndSuperuser(t *testing.T) {
	repo := &stubUserRepo{users: map[string]*User{
		"user-active":   {ID: "user-active", Email: "a@example.com", IsActive: true},
		"user-root":     {ID: "user-root", Email: "r@example.com", IsActive: true, IsSuperuser: true},
		"user-disabled": {ID: "user-disabled", Email: "d@example.com", IsSuperuser: true},
	}}
	svc := NewService(repo)
	ctx := context.Background()

	p, err := svc.PrincipalFor(ctx, "user-active")
	require.NoError(t, err)
	assert.False(t, p.IsSuperuser)

	p, err = svc.PrincipalFor(ctx, "user-root")
	require.NoError(t, err)
	assert.True(t, p.IsSuperuser)

	_, err = svc.PrincipalFor(ctx, "user-disabled")
	assert.ErrorIs(t, err, ErrUserInactive)

	_, err = svc.PrincipalFor(ctx, "user-missing")
	assert.ErrorIs(t, err, ErrUserNotFound)

	// Superuser flag: a disabled superuser is not a superuser.
	su, err := svc.IsSuperuser(ctx, "user-root")
	require.NoError(t, err)
	assert.True(t, su)

	su, err = svc.IsSuperuser(ctx, "user-disabled")
	require.NoError(t, err)
	assert.False(t, su)

	// Missing user is simply not a superuser.
	su, err = svc.IsSuperuser(ctx, "user-missing")
	require.NoError(t, err)
	assert.False(t, su)

	// Store failure propagates so the resolver fails closed.
	repo.err = errors.New("connection refused")
	_, err = svc.IsSuperuser(ctx, "user-root")
	assert.Error(t, err)
}
