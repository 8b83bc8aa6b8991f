package terminal

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   \t ", nil},
		{"help", []string{"help"}},
		{"  showmappings  0x1000 0x3000 ", []string{"showmappings", "0x1000", "0x3000"}},
		{"showmem Virtual 0xf0100000 8", []string{"showmem", "Virtual", "0xf0100000", "8"}},
		{`setperm 0x1000 change "0x7"`, []string{"setperm", "0x1000", "change", "0x7"}},
	} {
		got, err := tokenize(tc.in)
		if err != nil {
			t.Errorf("tokenize(%q): %v", tc.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("tokenize(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

func TestTokenizeLimit(t *testing.T) {
	args, err := tokenize(strings.Repeat("x ", MaxArgs-1))
	if err != nil {
		t.Fatal(err)
	}
	if len(args) != MaxArgs-1 {
		t.Errorf("got %d tokens", len(args))
	}

	if _, err := tokenize(strings.Repeat("x ", MaxArgs)); err != ErrTooManyArgs {
		t.Errorf("expected ErrTooManyArgs, got %v", err)
	}
}
