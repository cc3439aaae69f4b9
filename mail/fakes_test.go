package mail

import (
	"context"
	"errors"
	"sort"
	"sync"

	"eventboard/data/models"
)

// memStore keeps letters in memory and counts resets.
type memStore struct {
	mu      sync.Mutex
	letters map[int64]*models.Letter
	resets  int
}

func newMemStore(letters ...models.Letter) *memStore {
	s := &memStore{letters: make(map[int64]*models.Letter)}
	for i := range letters {
		l := letters[i]
		s.letters[l.ID] = &l
	}
	return s
}

func (s *memStore) UnsentLetters(ctx context.Context, subscriberID int64) ([]models.Letter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Letter
	for _, l := range s.letters {
		if l.SubscriberID == subscriberID && !l.IsSent {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) MarkLetterSent(ctx context.Context, letterID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.letters[letterID]
	if !ok {
		return errors.New("no such letter")
	}
	l.IsSent = true
	return nil
}

func (s *memStore) ResetSentLetters(ctx context.Context, subscriberID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
	var n int64
	for _, l := range s.letters {
		if l.SubscriberID == subscriberID && l.IsSent {
			l.IsSent = false
			n++
		}
	}
	return n, nil
}

func (s *memStore) sent() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for id, l := range s.letters {
		if l.IsSent {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// fakeTransport records sends and fails for subjects listed in failOn.
type fakeTransport struct {
	mu     sync.Mutex
	sent   []string
	failOn map[string]bool
	// gate, when set, blocks every send until it is closed.
	gate chan struct{}
}

func (t *fakeTransport) Send(ctx context.Context, to, subject, body string) error {
	if t.gate != nil {
		<-t.gate
	}
	if t.failOn[subject] {
		return errors.New("mailbox unavailable")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, to+":"+subject)
	return nil
}

func (t *fakeTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sent)
}
