// Package poller waits for a submitted user operation to be included.
package poller

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/luxfi/safe4337/pkg/bundler"
	"github.com/luxfi/safe4337/pkg/common/errors"
	"github.com/luxfi/safe4337/pkg/logger"
)

const (
	DefaultInterval = time.Second
	DefaultTimeout  = 30 * time.Second
)

// State of a poll. Every state but Pending is terminal.
type State int

const (
	Pending State = iota
	Found
	TimedOut
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Found:
		return "found"
	case TimedOut:
		return "timed_out"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ReceiptFetcher is the slice of the bundler client the poller needs.
type ReceiptFetcher interface {
	GetUserOperationReceipt(ctx context.Context, hash common.Hash) (*bundler.Receipt, error)
}

// Result is the terminal outcome of a poll.
type Result struct {
	State   State
	Receipt *bundler.Receipt
	Err     error
	Polls   int
	Elapsed time.Duration
}

type Poller struct {
	fetcher  ReceiptFetcher
	interval time.Duration
	timeout  time.Duration
	log      zerolog.Logger
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func New(fetcher ReceiptFetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher:  fetcher,
		interval: DefaultInterval,
		timeout:  DefaultTimeout,
		log:      logger.Component("poller"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls until the receipt is found, the fetcher errors, the timeout
// elapses or ctx is done. The first poll happens immediately. Fetch errors are
// terminal and not retried.
func (p *Poller) Run(ctx context.Context, hash common.Hash) Result {
	start := time.Now()
	res := Result{State: Pending}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for res.State == Pending {
		select {
		case <-ctx.Done():
			res.State, res.Err = Failed, ctx.Err()
			continue
		case <-timer.C:
		}

		receipt, err := p.fetcher.GetUserOperationReceipt(ctx, hash)
		res.Polls++
		elapsed := time.Since(start)
		switch {
		case err != nil:
			res.State, res.Err = Failed, err
		case receipt != nil:
			res.State, res.Receipt = Found, receipt
		case elapsed >= p.timeout:
			res.State = TimedOut
			res.Err = errors.New(errors.KindPollTimeout, "poller.Run", "receipt for %s not found within %s", hash.Hex(), p.timeout)
		default:
			p.log.Debug().Str("userOpHash", hash.Hex()).Int("poll", res.Polls).Msg("Receipt pending")
			timer.Reset(p.interval)
		}
	}

	res.Elapsed = time.Since(start)
	p.log.Debug().
		Str("userOpHash", hash.Hex()).
		Stringer("state", res.State).
		Int("polls", res.Polls).
		Dur("elapsed", res.Elapsed).
		Msg("Poll finished")
	return res
}

// WaitForReceipt runs the poll and returns the receipt, or the terminal error.
// A timeout yields a PollTimeout error; the caller may poll again.
func (p *Poller) WaitForReceipt(ctx context.Context, hash common.Hash) (*bundler.Receipt, error) {
	res := p.Run(ctx, hash)
	if res.State != Found {
		return nil, res.Err
	}
	return res.Receipt, nil
}
