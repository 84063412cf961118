package ratelimit

import (
	"testing"
	"time"
)

func TestTokenBucket(t *testing.T) {
	bucket := NewTokenBucket(2, 5) // 2 tokens per second, capacity of 5

	for i := 0; i < 5; i++ {
		if !bucket.Allow() {
			t.Errorf("Expected initial request %d to be allowed", i)
		}
	}
	if bucket.Allow() {
		t.Error("Expected request to be denied when bucket is empty")
	}

	time.Sleep(1100 * time.Millisecond)

	if !bucket.Allow() {
		t.Error("Expected request to be allowed after token refill")
	}
	if !bucket.Allow() {
		t.Error("Expected second request to be allowed after token refill")
	}
	if bucket.Allow() {
		t.Error("Expected third request to be denied")
	}
}

func TestLimiterPerHost(t *testing.T) {
	l := NewLimiter(0, 2, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Errorf("Expected connection %d to be allowed", i)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Error("Expected connection to be denied due to per-host limit")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("Expected connection to be allowed for a different host")
	}
}

func TestLimiterGlobal(t *testing.T) {
	l := NewLimiter(2, 0, 2)

	if !l.Allow("a") || !l.Allow("b") {
		t.Fatal("Expected first two connections to be allowed")
	}
	if l.Allow("c") {
		t.Error("Expected connection to be denied due to global limit")
	}
}

func TestLimiterPrune(t *testing.T) {
	l := NewLimiter(0, 1, 1)
	l.Allow("a")
	l.Allow("b")

	if n := l.Prune(time.Hour); n != 2 {
		t.Errorf("Expected 2 host buckets to remain, got %d", n)
	}
	time.Sleep(20 * time.Millisecond)
	l.Allow("a")
	if n := l.Prune(10 * time.Millisecond); n != 1 {
		t.Errorf("Expected 1 host bucket after prune, got %d", n)
	}
	if _, ok := l.perHost["b"]; ok {
		t.Error("Expected host b to be pruned")
	}
}

func TestLimiterDisabled(t *testing.T) {
	l := NewLimiter(0, 0, 5)
	if l != nil {
		t.Fatal("Expected nil limiter when all limits are disabled")
	}
	for i := 0; i < 100; i++ {
		if !l.Allow("host") {
			t.Errorf("Expected connection %d to be allowed when limits disabled", i)
		}
	}
	if l.Prune(time.Second) != 0 {
		t.Error("Expected prune on nil limiter to report zero")
	}
}
