package uuid

import (
	"regexp"
	"testing"
)

var canonical = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func TestNewV7Format(t *testing.T) {
	u := NewV7()
	if !canonical.MatchString(u.String()) {
		t.Fatalf("not a canonical v7 UUID: %s", u)
	}
}

func TestNewV7Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s := NewV7().String()
		if seen[s] {
			t.Fatalf("duplicate UUID: %s", s)
		}
		seen[s] = true
	}
}

func TestNewV7TimestampOrdering(t *testing.T) {
	// the 48-bit prefix is a millisecond timestamp, so IDs generated later
	// never sort before IDs generated earlier across distinct milliseconds
	a := NewV7()
	b := NewV7()
	if string(a[:6]) > string(b[:6]) {
		t.Fatalf("timestamp prefix went backwards: %s then %s", a, b)
	}
}
