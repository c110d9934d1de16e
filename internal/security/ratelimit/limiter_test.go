package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinLimit(t *testing.T) {
	l := NewLimiter(3, time.Minute)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("u1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("u1") {
		t.Error("fourth request should be refused")
	}
}

func TestAllowAnonymousUnlimited(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	defer l.Stop()

	for i := 0; i < 10; i++ {
		if !l.Allow("") {
			t.Fatal("empty identifier must never be limited")
		}
	}
}

func TestBucketsAreIndependent(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	defer l.Stop()

	if !l.Allow("u1") {
		t.Fatal("u1 should be allowed")
	}
	if !l.Allow("u2") {
		t.Error("u2 has its own bucket")
	}
	if l.Allow("u1") {
		t.Error("u1 should now be refused")
	}
}

func TestWindowSlides(t *testing.T) {
	l := NewLimiter(1, 20*time.Millisecond)
	defer l.Stop()

	if !l.Allow("u1") {
		t.Fatal("first request should be allowed")
	}
	if l.Allow("u1") {
		t.Fatal("second request should be refused")
	}

	time.Sleep(30 * time.Millisecond)
	if !l.Allow("u1") {
		t.Error("request after the window should be allowed")
	}
}

func TestStrictBucketIsSeparate(t *testing.T) {
	l := NewLimiter(100, time.Minute)
	defer l.Stop()

	if !l.AllowStrict("login:a@b.com", 1, time.Minute) {
		t.Fatal("first strict request should be allowed")
	}
	if l.AllowStrict("login:a@b.com", 1, time.Minute) {
		t.Error("second strict request should be refused")
	}
	// The general bucket for the same identifier is untouched.
	if !l.Allow("login:a@b.com") {
		t.Error("general bucket must be unaffected by strict checks")
	}
}
