// Package security tracks failed credential checks and locks out subjects
// that fail too often.
package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	BruteForceMaxAttempts = 5
	BruteForceWindow      = 15 * time.Minute
	BruteForceLockout     = 5 * time.Minute
	bruteForceCleanup     = 60 * time.Second
	bruteForceMaxRecords  = 10000
)

type failureRecord struct {
	attempts  int
	firstFail time.Time
	lockedAt  time.Time
}

// BruteForceGuard counts password failures per subject (a login username or
// a signer re-entering their password) and blocks the subject once the
// threshold is reached within the tracking window. Subjects are stored hashed.
type BruteForceGuard struct {
	mu      sync.Mutex
	records map[string]*failureRecord
	log     *logrus.Logger
	now     func() time.Time
}

// NewBruteForceGuard creates a guard and starts a cleanup goroutine that
// stops when ctx is cancelled.
func NewBruteForceGuard(ctx context.Context, log *logrus.Logger) *BruteForceGuard {
	g := &BruteForceGuard{
		records: make(map[string]*failureRecord),
		log:     log,
		now:     time.Now,
	}
	go g.cleanupLoop(ctx)

	return g
}

func subjectHash(subject string) string {
	h := sha256.Sum256([]byte(subject))
	return hex.EncodeToString(h[:])
}

// IsBlocked reports whether subject is currently locked out.
func (g *BruteForceGuard) IsBlocked(subject string) bool {
	sh := subjectHash(subject)

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[sh]
	if !ok {
		return false
	}

	return !rec.lockedAt.IsZero() && g.now().Sub(rec.lockedAt) < BruteForceLockout
}

// RecordFailure records a failed credential check and reports whether the
// subject is now locked out.
func (g *BruteForceGuard) RecordFailure(subject string) bool {
	sh := subjectHash(subject)
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[sh]
	if !ok || now.Sub(rec.firstFail) > BruteForceWindow {
		g.records[sh] = &failureRecord{attempts: 1, firstFail: now}
		return false
	}

	rec.attempts++
	if rec.attempts >= BruteForceMaxAttempts && rec.lockedAt.IsZero() {
		rec.lockedAt = now
		g.log.WithField("subject_hash", sh[:16]+"...").Warn("credential locked out after repeated failures")
	}

	return !rec.lockedAt.IsZero()
}

// Reset clears failure tracking for subject (call on success).
func (g *BruteForceGuard) Reset(subject string) {
	sh := subjectHash(subject)

	g.mu.Lock()
	delete(g.records, sh)
	g.mu.Unlock()
}

func (g *BruteForceGuard) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(bruteForceCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sweep()
		}
	}
}

func (g *BruteForceGuard) sweep() {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	for k, rec := range g.records {
		expiredLock := !rec.lockedAt.IsZero() && now.Sub(rec.lockedAt) >= BruteForceLockout
		expiredWindow := rec.lockedAt.IsZero() && now.Sub(rec.firstFail) >= BruteForceWindow

		if expiredLock || expiredWindow {
			delete(g.records, k)
		}
	}

	if len(g.records) > bruteForceMaxRecords {
		g.evictOldest(len(g.records) - bruteForceMaxRecords)
	}
}

// evictOldest removes n entries with the oldest firstFail times.
// Caller must hold g.mu.
func (g *BruteForceGuard) evictOldest(n int) {
	type entry struct {
		key  string
		time time.Time
	}

	entries := make([]entry, 0, len(g.records))
	for k, rec := range g.records {
		entries = append(entries, entry{k, rec.firstFail})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].time.Before(entries[j].time)
	})

	for i := range n {
		delete(g.records, entries[i].key)
	}
}
