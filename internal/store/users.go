package store

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/scrypt"
)

const (
	minNameLen     = 2
	minPasswordLen = 8
	saltBytes      = 16
	hashBytes      = 64
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	PasswordSalt string    `json:"passwordSalt"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PublicUser is a User without credentials.
type PublicUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && at < len(email)-1
}

func hashPassword(password, salt string) (string, error) {
	// N=16384, r=8, p=1; stored hashes depend on these, do not change
	key, err := scrypt.Key([]byte(password), []byte(salt), 1<<14, 8, 1, hashBytes)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hex.EncodeToString(key), nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Register creates a user. The password is hashed with a fresh salt before
// the mutation is queued; the duplicate check runs inside the queue.
func (s *Store) Register(ctx context.Context, in RegisterInput) (PublicUser, error) {
	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)
	if len([]rune(name)) < minNameLen {
		return PublicUser{}, authErr(ErrInvalidName)
	}
	if !validEmail(email) {
		return PublicUser{}, authErr(ErrInvalidEmail)
	}
	if len(in.Password) < minPasswordLen {
		return PublicUser{}, authErr(ErrWeakPassword)
	}

	salt, err := randomHex(saltBytes)
	if err != nil {
		return PublicUser{}, err
	}
	hash, err := hashPassword(in.Password, salt)
	if err != nil {
		return PublicUser{}, err
	}

	return mutate(ctx, s, func(d *document) (PublicUser, error) {
		for _, u := range d.Users {
			if u.Email == email {
				return PublicUser{}, authErr(ErrEmailTaken)
			}
		}
		u := User{
			ID:           uuid.NewString(),
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			PasswordSalt: salt,
			CreatedAt:    s.now().UTC(),
		}
		d.Users = append(d.Users, u)
		return u.Public(), nil
	})
}

// Authenticate checks credentials with a constant-time comparison. Unknown
// emails cost one hash too.
func (s *Store) Authenticate(ctx context.Context, email, password string) (PublicUser, error) {
	email = NormalizeEmail(email)
	found, err := view(ctx, s, func(d *document) *User {
		for i := range d.Users {
			if d.Users[i].Email == email {
				u := d.Users[i]
				return &u
			}
		}
		return nil
	})
	if err != nil {
		return PublicUser{}, err
	}

	salt, want := "00000000000000000000000000000000", strings.Repeat("0", hashBytes*2)
	if found != nil {
		salt, want = found.PasswordSalt, found.PasswordHash
	}
	got, err := hashPassword(password, salt)
	if err != nil {
		return PublicUser{}, err
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 || found == nil {
		return PublicUser{}, authErr(ErrInvalidCredentials)
	}
	return found.Public(), nil
}
