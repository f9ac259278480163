package stringutil_test

import (
	"net/mail"
	"testing"

	"github.com/mailbridge/mailbridge/pkg/stringutil"
)

func TestStringAddress(t *testing.T) {
	got := stringutil.StringAddress(&mail.Address{Name: "Fred B. Fish", Address: "fred@fish.org"})
	if want := `"Fred B. Fish" <fred@fish.org>`; got != want {
		t.Errorf("Got %q, want %q", got, want)
	}
	got = stringutil.StringAddress(&mail.Address{Address: "fred@fish.org"})
	if want := "fred@fish.org"; got != want {
		t.Errorf("Got %q, want %q", got, want)
	}
	if got = stringutil.StringAddress(nil); got != "" {
		t.Errorf("Got %q, want empty string", got)
	}
}

func TestStringAddressList(t *testing.T) {
	input := []*mail.Address{
		{Name: "Fred B. Fish", Address: "fred@fish.org"},
		{Address: "user@domain.org"},
	}
	want := []string{`"Fred B. Fish" <fred@fish.org>`, `user@domain.org`}
	output := stringutil.StringAddressList(input)
	if len(output) != len(want) {
		t.Fatalf("Got %v strings, want: %v", len(output), len(want))
	}
	for i, got := range output {
		if got != want[i] {
			t.Errorf("Got %q, want: %q", got, want[i])
		}
	}
}

func TestMakePathPrefixer(t *testing.T) {
	tests := []struct {
		name string
		base string
		path string
		want string
	}{
		{name: "empty base", base: "", path: "/api/", want: "/api/"},
		{name: "simple base", base: "bridge", path: "/api/", want: "/bridge/api/"},
		{name: "slashed base", base: "/bridge/", path: "/api/", want: "/bridge/api/"},
		{name: "nested base", base: "mail/bridge", path: "/api/", want: "/mail/bridge/api/"},
		{name: "bare path", base: "bridge", path: "api", want: "/bridge/api"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			prefix := stringutil.MakePathPrefixer(tc.base)
			if got := prefix(tc.path); got != tc.want {
				t.Errorf("Got %q, want %q", got, tc.want)
			}
		})
	}
}
