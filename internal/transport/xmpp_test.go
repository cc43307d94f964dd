//go:build xmpp

package transport

import "testing"

func TestIsDelayed(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{`<delay xmlns="urn:xmpp:delay" stamp="2020-01-01T00:00:00Z"/>`, true},
		{`<x xmlns="jabber:x:delay" stamp="20200101T00:00:00"/>`, true},
		{`<body>aGVsbG8=</body>`, false},
	}
	for _, c := range cases {
		if got := isDelayed(c.raw); got != c.want {
			t.Errorf("isDelayed(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}
