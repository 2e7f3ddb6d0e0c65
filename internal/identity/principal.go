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
	"fmt"
	"time"
)

// Domain errors
var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserInactive = errors.New("user is inactive")
)

// Principal is the established identity a request acts as. The authorization
// engine consumes principals; it never authenticates them.
type Principal struct {
	UserID      string
	IsSuperuser bool
}

// User is the identity record behind a principal. Credentials live elsewhere;
// this service only deals in established identities.
type User struct {
	ID          string
	Email       string
	DisplayName string
	IsSuperuser bool
	IsActive    bool
	CreatedAt   time.Time
}

// UserRepository defines the interface for user lookups.
type UserRepository interface {
	// GetByID retrieves a user by ID, or ErrUserNotFound.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail retrieves a user by email, or ErrUserNotFound.
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// Service resolves authenticated user ids to principals.
type Service struct {
	repo UserRepository
}

// NewService creates a new identity service.
func NewService(repo UserRepository) *Service {
	return &Service{repo: repo}
}

// PrincipalFor resolves a user id to a principal. Inactive users do not get
// a principal at all.
func (s *Service) PrincipalFor(ctx context.Context, userID string) (Principal, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return Principal{}, err
	}
	if !user.IsActive {
		return Principal{}, ErrUserInactive
	}
	return Principal{UserID: user.ID, IsSuperuser: user.IsSuperuser}, nil
}

// IsSuperuser reports whether the user holds the platform superuser flag.
// It satisfies the resolver's SuperuserChecker. A missing user is simply not
// a superuser; store failures propagate so the resolver can fail closed.
func (s *Service) IsSuperuser(ctx context.Context, userID string) (bool, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load user: %w", err)
	}
	return user.IsActive && user.IsSuperuser, nil
}
