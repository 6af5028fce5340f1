package identity

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/soramar/chatd/chatd/store"
)

// ErrInvalidCredentials covers both unknown email and wrong password so the
// login response does not reveal which one failed.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service is the identity provider: account creation and credential
// verification. The session core only ever sees the tokens it mints.
type Service struct {
	users      *store.UserStore
	verifier   *Verifier
	bcryptCost int
}

func NewService(users *store.UserStore, verifier *Verifier, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{users: users, verifier: verifier, bcryptCost: bcryptCost}
}

// Signup hashes the password and creates the account.
func (s *Service) Signup(ctx context.Context, username, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if _, err := s.users.Create(ctx, username, email, string(hash)); err != nil {
		return err
	}
	return nil
}

// Login verifies the credential and mints a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (token, username string, err error) {
	user, err := s.users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return "", "", ErrInvalidCredentials
		}
		return "", "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", "", ErrInvalidCredentials
	}

	token, err = s.verifier.Mint(user.ID, user.Username)
	if err != nil {
		return "", "", err
	}
	return token, user.Username, nil
}
