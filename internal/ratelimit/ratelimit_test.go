package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterAllowsWithinBurst(t *testing.T) {
	l := New(Config{QPS: 1, Burst: 3, BlockDuration: time.Second})
	for i := range 3 {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed within burst", i)
		}
	}
}

func TestLimiterBlocksAfterExhaustion(t *testing.T) {
	l := New(Config{QPS: 0.001, Burst: 1, BlockDuration: time.Minute})
	if !l.Allow("1.2.3.4") {
		t.Fatal("first request should be allowed")
	}
	if l.Allow("1.2.3.4") {
		t.Fatal("second immediate request should be refused once bucket is empty")
	}
}

func TestLimiterBlockedUntilRefusesEvenAfterRefillWindow(t *testing.T) {
	l := New(Config{QPS: 1000, Burst: 1, BlockDuration: 50 * time.Millisecond})
	if !l.Allow("1.2.3.4") {
		t.Fatal("first request should be allowed")
	}
	if l.Allow("1.2.3.4") {
		t.Fatal("second request should trip the cool-down")
	}
	// Even though QPS is high enough to have refilled a token by now, the
	// cool-down should still be in effect immediately after tripping.
	if l.Allow("1.2.3.4") {
		t.Fatal("request immediately after block should still be refused")
	}
}

func TestLimiterUnblocksAfterCooldown(t *testing.T) {
	l := New(Config{QPS: 1000, Burst: 1, BlockDuration: 20 * time.Millisecond})
	l.Allow("1.2.3.4")
	if l.Allow("1.2.3.4") {
		t.Fatal("expected block to trip")
	}
	time.Sleep(30 * time.Millisecond)
	if !l.Allow("1.2.3.4") {
		t.Fatal("expected request allowed after cool-down elapses")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := New(Config{QPS: 0.001, Burst: 1, BlockDuration: time.Minute})
	if !l.Allow("1.1.1.1") {
		t.Fatal("first source's first request should be allowed")
	}
	if !l.Allow("2.2.2.2") {
		t.Fatal("second source should have its own independent bucket")
	}
}

func TestLimiterDisabledWhenQPSZero(t *testing.T) {
	l := New(Config{QPS: 0, Burst: 0})
	for range 100 {
		if !l.Allow("1.2.3.4") {
			t.Fatal("limiter with QPS<=0 should never refuse")
		}
	}
}

func TestNilLimiterAllowsEverything(t *testing.T) {
	var l *Limiter
	if !l.Allow("1.2.3.4") {
		t.Fatal("nil limiter should allow by default")
	}
}
