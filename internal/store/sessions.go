package store

import (
	"context"
	"slices"
	"time"
)

const tokenBytes = 32

type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func pruneExpired(d *document, now time.Time) {
	d.Sessions = slices.DeleteFunc(d.Sessions, func(s Session) bool {
		return !s.ExpiresAt.After(now)
	})
}

// CreateSession issues a random token valid for the session TTL.
func (s *Store) CreateSession(ctx context.Context, userID string) (Session, error) {
	token, err := randomHex(tokenBytes)
	if err != nil {
		return Session{}, err
	}
	return mutate(ctx, s, func(d *document) (Session, error) {
		now := s.now().UTC()
		pruneExpired(d, now)
		sess := Session{
			Token:     token,
			UserID:    userID,
			CreatedAt: now,
			ExpiresAt: now.Add(s.sessionTTL),
		}
		d.Sessions = append(d.Sessions, sess)
		return sess, nil
	})
}

func (s *Store) RevokeSession(ctx context.Context, token string) error {
	_, err := mutate(ctx, s, func(d *document) (struct{}, error) {
		d.Sessions = slices.DeleteFunc(d.Sessions, func(x Session) bool { return x.Token == token })
		return struct{}{}, nil
	})
	return err
}

// ResolveSession returns the session's user, or nil when the token is
// unknown or expired. Every expired session is pruned on the way.
func (s *Store) ResolveSession(ctx context.Context, token string) (*PublicUser, error) {
	return mutate(ctx, s, func(d *document) (*PublicUser, error) {
		pruneExpired(d, s.now())
		i := slices.IndexFunc(d.Sessions, func(x Session) bool { return x.Token == token })
		if i < 0 {
			return nil, nil
		}
		userID := d.Sessions[i].UserID
		for _, u := range d.Users {
			if u.ID == userID {
				pub := u.Public()
				return &pub, nil
			}
		}
		return nil, nil
	})
}
