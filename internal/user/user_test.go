package user

import "testing"

func TestNormalizeEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"alice@example.com", "alice@example.com"},
		{"Alice@Example.com", "alice@example.com"},
		{" alice@example.com ", "alice@example.com"},
		{"\tALICE@EXAMPLE.COM\n", "alice@example.com"},
	}
	for _, tc := range cases {
		if got := NormalizeEmail(tc.in); got != tc.want {
			t.Fatalf("NormalizeEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewUser(t *testing.T) {
	u := New(" Alice@Example.com ", "digest")
	if u.ID == "" {
		t.Fatal("expected ID to be assigned")
	}
	if u.Email != "alice@example.com" {
		t.Fatalf("Email = %q, want normalized form", u.Email)
	}
	if !u.IsActive {
		t.Fatal("expected new user to be active")
	}

	other := New("alice@example.com", "digest")
	if other.ID == u.ID {
		t.Fatal("expected distinct IDs")
	}
}
