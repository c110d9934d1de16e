package metrics

import "testing"

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"/api/reports", "/api/reports"},
		{"/api/reports/0b96ef7e-6a94-4f0a-9e2a-1c9fd2a3b456/decision", "/api/reports/:id/decision"},
		{"/api/admin/rewards/0B96EF7E-6A94-4F0A-9E2A-1C9FD2A3B456", "/api/admin/rewards/:id"},
		{"/static/avatars/p-1.png", "/static/"},
		{"/api/rewards/not-a-uuid/redeem", "/api/rewards/not-a-uuid/redeem"},
	}
	for _, tc := range cases {
		if got := normalizePath(tc.in); got != tc.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
