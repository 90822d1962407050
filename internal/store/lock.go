package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-food-court/internal/metrics"
)

// fileLock is a cross-process advisory lock: whoever creates the marker
// file exclusively owns the document until it removes it. Each acquire
// writes its own nonce into the marker, and only the holder of that nonce
// removes it.
type fileLock struct {
	path       string
	timeout    time.Duration
	backoff    time.Duration
	staleAfter time.Duration
	log        *zap.Logger
}

func markerNonce() (string, error) {
	r, err := randomHex(8)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d:%s", os.Getpid(), r), nil
}

func (l *fileLock) acquire(ctx context.Context) (release func(), err error) {
	nonce, err := markerNonce()
	if err != nil {
		return nil, fmt.Errorf("lock nonce: %w", err)
	}
	started := time.Now()
	deadline := started.Add(l.timeout)
	for {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, werr := f.WriteString(nonce)
			if cerr := f.Close(); werr == nil {
				werr = cerr
			}
			if werr != nil {
				_ = os.Remove(l.path)
				return nil, fmt.Errorf("write lock marker: %w", werr)
			}
			metrics.RecordLockWait(started)
			return func() { l.release(nonce) }, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("create lock marker: %w", err)
		}
		if l.breakStale(nonce) {
			continue
		}
		if !time.Now().Before(deadline) {
			metrics.StoreBusy.Inc()
			return nil, ErrBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.backoff):
		}
	}
}

// release removes the marker only while it still carries nonce; a marker
// broken as stale and retaken by someone else is left alone.
func (l *fileLock) release(nonce string) {
	got, err := os.ReadFile(l.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		l.log.Warn("lock marker already gone", zap.String("path", l.path))
		return
	case err != nil:
		l.log.Warn("read lock marker", zap.String("path", l.path), zap.Error(err))
		return
	case string(got) != nonce:
		l.log.Warn("lock marker taken over, not removing", zap.String("path", l.path))
		return
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		l.log.Warn("remove lock marker", zap.String("path", l.path), zap.Error(err))
	}
}

// breakStale removes a marker left behind by a crashed process. The marker
// is first claimed by renaming it aside, then checked against what was seen
// stale; a fresh marker grabbed by mistake is linked back.
func (l *fileLock) breakStale(nonce string) bool {
	if l.staleAfter <= 0 {
		return false
	}
	fi, err := os.Stat(l.path)
	if err != nil || time.Since(fi.ModTime()) < l.staleAfter {
		return false
	}
	seen, err := os.ReadFile(l.path)
	if err != nil {
		return false
	}

	claim := l.path + ".stale-" + nonce
	if err := os.Rename(l.path, claim); err != nil {
		return false
	}
	defer os.Remove(claim)

	got, err := os.ReadFile(claim)
	if err != nil || !bytes.Equal(got, seen) {
		if err := os.Link(claim, l.path); err != nil {
			l.log.Warn("restore lock marker", zap.String("path", l.path), zap.Error(err))
		}
		return false
	}
	l.log.Warn("broke stale lock marker", zap.String("path", l.path), zap.Time("mtime", fi.ModTime()))
	return true
}
