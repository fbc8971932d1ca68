package resilience_test

import (
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/pinmap/internal/pkg/resilience"
)

var errDown = errors.New("down")

func TestBreaker_TripsAfterThreshold(t *testing.T) {
	b := resilience.New(resilience.Config{
		Name:             "test-trip",
		MaxRequests:      1,
		Timeout:          time.Hour,
		FailureThreshold: 3,
	})

	for i := 0; i < 3; i++ {
		if err := b.Do(func() error { return errDown }); !errors.Is(err, errDown) {
			t.Fatalf("call %d: expected errDown, got %v", i, err)
		}
	}
	if b.State() != "open" {
		t.Fatalf("expected open breaker, got %s", b.State())
	}

	called := false
	err := b.Do(func() error { called = true; return nil })
	if !errors.Is(err, resilience.ErrOpen) {
		t.Errorf("expected ErrOpen, got %v", err)
	}
	if called {
		t.Error("fn must not run while the breaker is open")
	}
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b := resilience.New(resilience.Config{Name: "test-reset", FailureThreshold: 2, Timeout: time.Hour})

	_ = b.Do(func() error { return errDown })
	_ = b.Do(func() error { return nil })
	_ = b.Do(func() error { return errDown })

	if b.State() != "closed" {
		t.Errorf("expected closed breaker, got %s", b.State())
	}
}

func TestBreaker_IsSuccessful(t *testing.T) {
	errClient := errors.New("client error")
	b := resilience.New(resilience.Config{
		Name:             "test-classify",
		FailureThreshold: 1,
		Timeout:          time.Hour,
		IsSuccessful:     func(err error) bool { return err == nil || errors.Is(err, errClient) },
	})

	for i := 0; i < 5; i++ {
		if err := b.Do(func() error { return errClient }); !errors.Is(err, errClient) {
			t.Fatalf("expected errClient, got %v", err)
		}
	}
	if b.State() != "closed" {
		t.Errorf("client errors must not trip the breaker, state %s", b.State())
	}
}

func TestBreaker_HalfOpenRecovers(t *testing.T) {
	b := resilience.New(resilience.Config{
		Name:             "test-recover",
		MaxRequests:      1,
		Timeout:          10 * time.Millisecond,
		FailureThreshold: 1,
	})

	_ = b.Do(func() error { return errDown })
	time.Sleep(20 * time.Millisecond)

	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("expected trial request to pass, got %v", err)
	}
	if b.State() != "closed" {
		t.Errorf("expected closed after successful trial request, got %s", b.State())
	}
}
