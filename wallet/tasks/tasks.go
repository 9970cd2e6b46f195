// Package tasks is a persistent queue of outbound proposal pushes.
//
// A push that fails (engine unreachable, swap service down) is
// retried with exponential backoff and jitter until it succeeds;
// pending pushes survive a restart because they are persisted to
// the database. Retry policy lives here, in the orchestration
// layer, never in the state store.
package tasks

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	i10rnet "github.com/ebourg/hathor-wallet/net"
	"github.com/ebourg/hathor-wallet/wallet/log"
)

// Pusher delivers one proposal update to the swap service.
type Pusher interface {
	PushProposal(ctx context.Context, id, password string, data json.RawMessage) error
}

// Push is one queued proposal update.
type Push struct {
	ProposalID string
	Password   string
	Data       json.RawMessage
}

type pair struct {
	k []byte
	p Push
}

const bucket = "proposal_pushes"

// Queue is a collection of pending pushes persisted to a database.
// When the queue is running (see Queue.Run) it launches each push
// in a goroutine that retries until the push succeeds, at which
// point it is removed from the database.
type Queue struct {
	db     *bolt.DB
	pusher Pusher
	ch     chan pair
	wg     *sync.WaitGroup
}

// New creates a new queue. It launches goroutines for any pushes
// already existing in the db.
func New(ctx context.Context, db *bolt.DB, pusher Pusher) (*Queue, error) {
	q := &Queue{
		db:     db,
		pusher: pusher,
		ch:     make(chan pair),
		wg:     new(sync.WaitGroup),
	}

	var pending []pair
	err := db.Update(func(tx *bolt.Tx) error {
		bu, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}
		return bu.ForEach(func(k, v []byte) error {
			var p Push
			err := json.Unmarshal(v, &p)
			if err != nil {
				return err
			}
			pending = append(pending, pair{k: append([]byte(nil), k...), p: p})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// Launch existing pushes here rather than in Run, so a push
	// Added before Run starts cannot be launched twice.
	for _, p := range pending {
		q.wg.Add(1)
		go q.runPush(ctx, p.k, p.p)
	}

	return q, nil
}

// Add persists a push and schedules it for immediate delivery.
// Note that if Queue.Run has not been called, this function can
// block.
func (q *Queue) Add(p Push) error {
	bits, err := json.Marshal(p)
	if err != nil {
		return err
	}
	key := make([]byte, 32)
	_, err = rand.Read(key)
	if err != nil {
		return err
	}
	err = q.db.Update(func(tx *bolt.Tx) error {
		bu, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}
		return bu.Put(key, bits)
	})
	if err != nil {
		return err
	}
	q.ch <- pair{k: key, p: p}
	return nil
}

// Run runs forever, processing queued pushes, until its context is
// canceled.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-q.ch:
			q.wg.Add(1)
			go q.runPush(ctx, p.k, p.p)
		}
	}
}

// Wait blocks until all in-flight pushes have settled.
// Useful in tests.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) runPush(ctx context.Context, key []byte, p Push) {
	defer q.wg.Done()

	backoff := i10rnet.Backoff{Base: time.Second}
	for {
		err := q.pusher.PushProposal(ctx, p.ProposalID, p.Password, p.Data)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Debugf("push of proposal %s failed: %s; will retry", p.ProposalID, err)
			timer := time.NewTimer(backoff.Next())
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				continue
			}
		}
		err = q.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket([]byte(bucket)).Delete(key)
		})
		if err != nil {
			panic(err)
		}
		return
	}
}
