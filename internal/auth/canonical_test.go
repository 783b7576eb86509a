package auth_test

import (
	"encoding/json"
	"testing"

	"github.com/mithileshchellappan/pushgate/internal/auth"
)

func TestCanonicalize(t *testing.T) {
	tests := map[string]struct {
		params    auth.Params
		timestamp string
		want      string
	}{
		"values concatenated in key order": {
			params: auth.Params{
				"title":      "Hello",
				"domain":     "news",
				"access_key": "ak1",
			},
			want: "ak1newsHello",
		},

		"timestamp folded in under its key": {
			params: auth.Params{
				"title": "Hello",
				"zone":  "east",
			},
			timestamp: "1700000000",
			want:      "1700000000Helloeast",
		},

		"signature excluded": {
			params: auth.Params{
				"signature": "c2lnbmF0dXJl",
				"title":     "Hello",
			},
			want: "Hello",
		},

		"numbers render in plain decimal": {
			params: auth.Params{
				"count": float64(3),
				"ratio": 0.5,
				"ttl":   int64(86400),
			},
			want: "30.586400",
		},

		"json numbers keep their text": {
			params: auth.Params{
				"expire": json.Number("1700000000"),
			},
			want: "1700000000",
		},

		"empty set": {
			params: auth.Params{},
			want:   "",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := auth.Canonicalize(tt.params, tt.timestamp)
			if string(got) != tt.want {
				t.Errorf("Canonicalize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalizeDeterministic(t *testing.T) {
	// The same logical set must canonicalize identically no matter how the
	// map was populated.
	a := auth.Params{}
	b := auth.Params{}
	keys := []string{"domain", "title", "body", "access_key", "expire"}
	for _, k := range keys {
		a[k] = "v-" + k
	}
	for i := len(keys) - 1; i >= 0; i-- {
		b[keys[i]] = "v-" + keys[i]
	}

	if got, want := auth.Canonicalize(a, "123"), auth.Canonicalize(b, "123"); string(got) != string(want) {
		t.Errorf("canonical form depends on insertion order: %q vs %q", got, want)
	}
}
