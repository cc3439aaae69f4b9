package mail

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"eventboard/data/models"
)

// DefaultResetDelay is how long demo-mode letters stay sent.
const DefaultResetDelay = 5 * time.Second

// LetterStore is the part of the repository the dispatcher needs.
type LetterStore interface {
	UnsentLetters(ctx context.Context, subscriberID int64) ([]models.Letter, error)
	MarkLetterSent(ctx context.Context, letterID int64) error
	ResetSentLetters(ctx context.Context, subscriberID int64) (int64, error)
}

// Outcome is the result of delivering a single letter.
type Outcome string

const (
	Delivered Outcome = "delivered"
	Failed    Outcome = "failed"
)

// Result records the outcome of one letter. Reason is set for failures.
type Result struct {
	LetterID int64   `json:"letter_id"`
	Outcome  Outcome `json:"outcome"`
	Reason   string  `json:"reason,omitempty"`
}

// Report summarizes one SendPost call. Results is empty when the sends were
// left running in the background.
type Report struct {
	Subscriber string   `json:"subscriber"`
	Dispatched int      `json:"dispatched"`
	Results    []Result `json:"results"`
	ResetTask  string   `json:"reset_task,omitempty"`
}

func (r Report) Delivered() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == Delivered {
			n++
		}
	}
	return n
}

func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == Failed {
			n++
		}
	}
	return n
}

// Options tune a Dispatcher.
type Options struct {
	// Demo makes every dispatch repeatable: sent letters are reverted before
	// sending and again ResetDelay after a bulk dispatch.
	Demo       bool
	ResetDelay time.Duration
}

// Dispatcher sends a subscriber's unsent letters through a Transport and
// marks each delivered letter as sent.
type Dispatcher struct {
	store     LetterStore
	transport Transport
	scheduler *Scheduler
	opts      Options

	// base outlives requests; background sends run on it.
	base context.Context
	wg   sync.WaitGroup
}

func NewDispatcher(base context.Context, store LetterStore, transport Transport, scheduler *Scheduler, opts Options) *Dispatcher {
	if opts.ResetDelay <= 0 {
		opts.ResetDelay = DefaultResetDelay
	}
	return &Dispatcher{
		store:     store,
		transport: transport,
		scheduler: scheduler,
		opts:      opts,
		base:      base,
	}
}

// SendPost delivers every unsent letter of sub.
//
// With bulk set each letter is sent from its own goroutine. In demo mode the
// call waits for all sends and schedules a reset; otherwise it returns as soon
// as the sends are started. Without bulk the letters are sent one by one
// before returning.
func (d *Dispatcher) SendPost(ctx context.Context, sub models.Subscriber, bulk bool) (Report, error) {
	if d.opts.Demo {
		if _, err := d.store.ResetSentLetters(ctx, sub.ID); err != nil {
			return Report{}, err
		}
	}

	letters, err := d.store.UnsentLetters(ctx, sub.ID)
	if err != nil {
		return Report{}, err
	}
	report := Report{Subscriber: sub.String(), Dispatched: len(letters), Results: []Result{}}

	if !bulk {
		for _, l := range letters {
			report.Results = append(report.Results, d.deliver(ctx, sub, l))
		}
		return report, nil
	}

	if !d.opts.Demo {
		d.wg.Add(len(letters))
		for _, l := range letters {
			go func(l models.Letter) {
				defer d.wg.Done()
				d.deliver(d.base, sub, l)
			}(l)
		}
		return report, nil
	}

	results := make([]Result, len(letters))
	var wg sync.WaitGroup
	wg.Add(len(letters))
	for i, l := range letters {
		go func(i int, l models.Letter) {
			defer wg.Done()
			results[i] = d.deliver(ctx, sub, l)
		}(i, l)
	}
	wg.Wait()
	report.Results = results

	task := d.scheduler.Schedule("reset letters of "+sub.String(), d.opts.ResetDelay, func(ctx context.Context) error {
		n, err := d.store.ResetSentLetters(ctx, sub.ID)
		if err != nil {
			return err
		}
		log.Printf("mail: reset %d letters of %s", n, sub)
		return nil
	})
	report.ResetTask = task.ID

	return report, nil
}

// Wait blocks until background sends have returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, sub models.Subscriber, l models.Letter) Result {
	if !sub.Email.Valid || sub.Email.String == "" {
		log.Printf("mail: letter %d not sent: subscriber %d has no email", l.ID, sub.ID)
		return Result{LetterID: l.ID, Outcome: Failed, Reason: "subscriber has no email"}
	}

	if err := d.transport.Send(ctx, sub.Email.String, l.Subject, l.Text); err != nil {
		log.Printf("mail: letter %d to %s failed: %v", l.ID, sub, err)
		return Result{LetterID: l.ID, Outcome: Failed, Reason: err.Error()}
	}

	if err := d.store.MarkLetterSent(ctx, l.ID); err != nil {
		log.Printf("mail: letter %d to %s sent but not marked: %v", l.ID, sub, err)
		return Result{LetterID: l.ID, Outcome: Failed, Reason: fmt.Sprintf("mark sent: %v", err)}
	}

	log.Printf("mail: letter %d delivered to %s", l.ID, sub)
	return Result{LetterID: l.ID, Outcome: Delivered}
}
