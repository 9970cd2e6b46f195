package net

import (
	"testing"
	"time"
)

func TestBackoffGrows(t *testing.T) {
	b := Backoff{Base: time.Second}
	prev := time.Duration(0)
	for i := 0; i < 4; i++ {
		d := b.Next()
		if d < prev/2 {
			t.Errorf("interval %d = %v, shrank below half of %v", i, d, prev)
		}
		prev = d
	}
}

func TestBackoffCap(t *testing.T) {
	b := Backoff{Base: time.Second, MaxDelay: 2 * time.Second}
	for i := 0; i < 10; i++ {
		if d := b.Next(); d > 2*time.Second {
			t.Errorf("interval %d = %v, want <= %v", i, d, 2*time.Second)
		}
	}
}

func TestIsLoopback(t *testing.T) {
	cases := map[string]bool{
		"localhost:7001":  true,
		"127.0.0.1:7001":  true,
		"[::1]:7001":      true,
		"0.0.0.0:7001":    false,
		"example.com:443": false,
		"garbage":         false,
	}
	for addr, want := range cases {
		if got := IsLoopback(addr); got != want {
			t.Errorf("IsLoopback(%q) = %v, want %v", addr, got, want)
		}
	}
}
