package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

type testPusher struct {
	mu       sync.Mutex
	failing  bool
	attempts int32
	done     chan Push
}

func (p *testPusher) setFailing(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failing = v
}

func (p *testPusher) PushProposal(ctx context.Context, id, password string, data json.RawMessage) error {
	n := atomic.AddInt32(&p.attempts, 1)
	p.mu.Lock()
	failing := p.failing
	p.mu.Unlock()
	if failing {
		return fmt.Errorf("push failure %d", n)
	}
	p.done <- Push{ProposalID: id, Password: password, Data: data}
	return nil
}

func openTestDB(t *testing.T) *bolt.DB {
	t.Helper()
	db, err := bolt.Open(filepath.Join(t.TempDir(), "tasks.db"), 0600, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func pendingPushes(t *testing.T, db *bolt.DB) int {
	t.Helper()
	var n int
	err := db.View(func(tx *bolt.Tx) error {
		bu := tx.Bucket([]byte(bucket))
		if bu == nil {
			return nil
		}
		return bu.ForEach(func(k, v []byte) error {
			n++
			return nil
		})
	})
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestQueueRetry(t *testing.T) {
	db := openTestDB(t)
	pusher := &testPusher{failing: true, done: make(chan Push, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q, err := New(ctx, db, pusher)
	if err != nil {
		t.Fatal(err)
	}
	go q.Run(ctx)

	err = q.Add(Push{ProposalID: "prop1", Password: "pw", Data: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatal(err)
	}

	// Let the first attempt fail, then allow the retry through.
	deadline := time.Now().Add(5 * time.Second)
	for atomic.LoadInt32(&pusher.attempts) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no push attempt observed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	pusher.setFailing(false)

	select {
	case p := <-pusher.done:
		if p.ProposalID != "prop1" || p.Password != "pw" {
			t.Errorf("pushed %+v, want prop1/pw", p)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("push did not succeed after retry")
	}
	if atomic.LoadInt32(&pusher.attempts) < 2 {
		t.Errorf("attempts = %d, want at least 2", pusher.attempts)
	}

	q.Wait()
	if n := pendingPushes(t, db); n != 0 {
		t.Errorf("%d pushes left in db after success", n)
	}
}

func TestQueuePersistence(t *testing.T) {
	db := openTestDB(t)
	pusher := &testPusher{failing: true, done: make(chan Push, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	q, err := New(ctx, db, pusher)
	if err != nil {
		t.Fatal(err)
	}
	go q.Run(ctx)

	err = q.Add(Push{ProposalID: "prop1", Password: "pw", Data: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatal(err)
	}
	// Shut down with the push still failing; the record must remain.
	cancel()
	q.Wait()
	if n := pendingPushes(t, db); n != 1 {
		t.Fatalf("%d pushes in db after shutdown, want 1", n)
	}

	// A new queue picks the push up and delivers it.
	pusher.setFailing(false)
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	q2, err := New(ctx2, db, pusher)
	if err != nil {
		t.Fatal(err)
	}
	go q2.Run(ctx2)

	select {
	case p := <-pusher.done:
		if p.ProposalID != "prop1" {
			t.Errorf("pushed %+v, want prop1", p)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("persisted push was not delivered")
	}
	q2.Wait()
	if n := pendingPushes(t, db); n != 0 {
		t.Errorf("%d pushes left in db after delivery", n)
	}
}
