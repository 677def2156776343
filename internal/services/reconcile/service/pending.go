package service

import (
	"sort"
	"sync"

	"matchbook/internal/core/recordkey"
	"matchbook/internal/services/reconcile/domain"
)

// PendingIndex holds submissions awaiting a verdict, keyed by correlation
// identity. Take is an atomic find-and-remove, so a key can be consumed at
// most once no matter how many outcomes claim it
type PendingIndex struct {
	mu   sync.Mutex
	subs map[recordkey.Key]domain.SubmissionRecord
}

// NewPendingIndex returns an empty index
func NewPendingIndex() *PendingIndex {
	return &PendingIndex{subs: make(map[recordkey.Key]domain.SubmissionRecord)}
}

// Insert stores sub under its key and reports whether an earlier submission
// with the same key was replaced. Last writer wins; the replaced entry is
// counted by the caller, not resurrected
func (p *PendingIndex) Insert(sub domain.SubmissionRecord) (replaced bool) {
	k := sub.Key()
	p.mu.Lock()
	_, replaced = p.subs[k]
	p.subs[k] = sub
	p.mu.Unlock()
	return replaced
}

// Take removes and returns the submission under key. The second return is
// false when the key is absent, including when it was already taken
func (p *PendingIndex) Take(key recordkey.Key) (domain.SubmissionRecord, bool) {
	p.mu.Lock()
	sub, ok := p.subs[key]
	if ok {
		delete(p.subs, key)
	}
	p.mu.Unlock()
	return sub, ok
}

// Count returns how many submissions are still pending
func (p *PendingIndex) Count() int {
	p.mu.Lock()
	n := len(p.subs)
	p.mu.Unlock()
	return n
}

// Remaining returns the unmatched submissions in key order so residual
// reports are stable across runs
func (p *PendingIndex) Remaining() []domain.SubmissionRecord {
	p.mu.Lock()
	out := make([]domain.SubmissionRecord, 0, len(p.subs))
	for _, sub := range p.subs {
		out = append(out, sub)
	}
	p.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key().String() < out[j].Key().String()
	})
	return out
}
