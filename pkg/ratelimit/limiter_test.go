package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucket(t *testing.T) {
	tb := NewTokenBucket(5, time.Second)

	// Test initial capacity
	for i := 0; i < 5; i++ {
		if !tb.Allow() {
			t.Errorf("Expected token %d to be available", i+1)
		}
	}

	// Test exhaustion
	if tb.Allow() {
		t.Error("Expected no more tokens to be available")
	}

	// Test refill after waiting
	time.Sleep(time.Second + 100*time.Millisecond)
	if !tb.Allow() {
		t.Error("Expected tokens to be refilled after waiting")
	}

	// Test reset
	tb.tokens = 0
	tb.Reset()
	if tb.tokens != tb.capacity {
		t.Error("Expected tokens to be reset to capacity")
	}
}

func TestTokenBucketWaitCancellation(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)
	tb.Allow() // drain

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := tb.Wait(ctx)
	if err == nil {
		t.Fatal("Expected Wait to return an error when context expires")
	}
	if err != context.DeadlineExceeded {
		t.Errorf("Expected DeadlineExceeded, got %v", err)
	}
}

func TestTokenBucketWaitSucceeds(t *testing.T) {
	tb := NewTokenBucket(1, 50*time.Millisecond)
	tb.Allow() // drain

	if err := tb.Wait(context.Background()); err != nil {
		t.Fatalf("Expected Wait to succeed after refill, got %v", err)
	}
}

func TestPerMinute(t *testing.T) {
	tb := PerMinute(60, 10)

	if tb.capacity != 10 {
		t.Errorf("Expected burst capacity 10, got %d", tb.capacity)
	}
	// 10 tokens at 60/min means a refill every 10 seconds.
	if tb.refillPeriod != 10*time.Second {
		t.Errorf("Expected 10s refill period, got %v", tb.refillPeriod)
	}

	// Degenerate inputs fall back to a working limiter.
	tb = PerMinute(0, 0)
	if !tb.Allow() {
		t.Error("Expected fallback limiter to allow a request")
	}
}

func TestSlidingWindow(t *testing.T) {
	sw := NewSlidingWindow(3, time.Second)

	// Test initial requests
	for i := 0; i < 3; i++ {
		if !sw.Allow() {
			t.Errorf("Expected request %d to be allowed", i+1)
		}
	}

	// Test limit reached
	if sw.Allow() {
		t.Error("Expected request to be denied when limit is reached")
	}

	// Test window sliding
	time.Sleep(time.Second + 100*time.Millisecond)
	if !sw.Allow() {
		t.Error("Expected request to be allowed after window slides")
	}

	// Test reset
	sw.Reset()
	if len(sw.requests) != 0 {
		t.Error("Expected requests to be cleared after reset")
	}
}

func TestSlidingWindowWaitCancellation(t *testing.T) {
	sw := NewSlidingWindow(1, time.Hour)
	sw.Allow() // fill the window

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := sw.Wait(ctx); err == nil {
		t.Fatal("Expected Wait to return an error when context expires")
	}
}
