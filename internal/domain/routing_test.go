package domain

import "testing"

func TestExternalRouter_IsExternal(t *testing.T) {
	t.Parallel()

	router := NewExternalRouter(DefaultExternalPrefixes)

	tests := []struct {
		destination string
		want        bool
	}{
		{"UPI-merchant123", true},
		{"upi:shop.example", true},
		{"merchant@okbank", true},
		{"first.last-1@ybl", true},
		{"UPI-", false},
		{"123456789012", false},
		{"acc_01HZX", false},
		{"@bank", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.destination, func(t *testing.T) {
			if got := router.IsExternal(tt.destination); got != tt.want {
				t.Fatalf("IsExternal(%q) = %v, want %v", tt.destination, got, tt.want)
			}
		})
	}
}

func TestExternalRouter_CustomPrefixes(t *testing.T) {
	t.Parallel()

	router := NewExternalRouter([]string{" IMPS/ ", ""})

	if !router.IsExternal("IMPS/9988776655") {
		t.Fatalf("expected custom prefix to match")
	}

	if router.IsExternal("UPI-merchant123") {
		t.Fatalf("default prefixes must not apply when custom ones are given")
	}
}
