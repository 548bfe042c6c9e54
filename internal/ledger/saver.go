package ledger

import (
	"fmt"
	"path/filepath"
	"sync"
)

// Saver persists batch progress incrementally. Every recorded account is
// appended to an in-memory sequence in completion order, and the output ledger
// for that account's highest completed room is rewritten in full. The full
// rewrite per account is deliberate: batches are small and durability after
// every single account matters more than write efficiency.
type Saver struct {
	mu        sync.Mutex
	dir       string
	processed []*Account
}

// NewSaver creates a saver that writes output ledgers into dir.
func NewSaver(dir string) *Saver {
	return &Saver{dir: dir}
}

// Record appends a processed account and rewrites the matching output ledger.
// It returns the path written, or an empty path when the account completed no
// room (a failed attempt changes no output file). A write error leaves the
// in-memory sequence intact so a later successful Record restores durability.
func (s *Saver) Record(account *Account) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.processed = append(s.processed, account.Clone())

	room := account.HighestPlayedRoom()
	if room == 0 {
		return "", nil
	}

	path := filepath.Join(s.dir, OutputFilename(room))
	if err := Write(path, s.processed); err != nil {
		return path, fmt.Errorf("failed to save progress: %w", err)
	}
	return path, nil
}

// Processed returns a snapshot of all accounts recorded so far, in completion
// order.
func (s *Saver) Processed() []*Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]*Account, len(s.processed))
	copy(snapshot, s.processed)
	return snapshot
}

// Count returns the number of accounts recorded so far.
func (s *Saver) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.processed)
}
