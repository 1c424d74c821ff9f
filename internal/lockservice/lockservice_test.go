package lockservice

import (
	"testing"
	"time"
)

func TestComputeExtension(t *testing.T) {
	ttl := 120 * time.Second
	last := time.Unix(1000, 0)

	t.Run("before quarter TTL elapsed, does not extend", func(t *testing.T) {
		now := last.Add(29 * time.Second)
		got, extend := ComputeExtension(last, now, ttl)
		if extend {
			t.Fatalf("expected no extension before ttl/4 elapsed")
		}
		if !got.Equal(last) {
			t.Fatalf("lastExtendedAt changed without extension: got %v want %v", got, last)
		}
	})

	t.Run("past quarter TTL elapsed, extends", func(t *testing.T) {
		now := last.Add(31 * time.Second)
		got, extend := ComputeExtension(last, now, ttl)
		if !extend {
			t.Fatalf("expected extension past ttl/4 elapsed")
		}
		if !got.Equal(now) {
			t.Fatalf("lastExtendedAt = %v, want %v", got, now)
		}
	})

	t.Run("zero ttl never extends", func(t *testing.T) {
		now := last.Add(time.Hour)
		got, extend := ComputeExtension(last, now, 0)
		if extend {
			t.Fatalf("expected no extension with zero ttl")
		}
		if !got.Equal(last) {
			t.Fatalf("lastExtendedAt changed with zero ttl")
		}
	})
}
