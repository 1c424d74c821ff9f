package resolver

import (
	"reflect"
	"testing"
)

func TestPrefixesOf(t *testing.T) {
	tests := []struct {
		qualifier string
		want      []string
	}{
		{"module1", []string{"module1"}},
		{"module1.func3a", []string{"module1.func3a", "module1"}},
		{"a.b.c.d", []string{"a.b.c.d", "a.b.c", "a.b", "a"}},
		{"", []string{""}},
	}

	for _, tt := range tests {
		got := prefixesOf(tt.qualifier)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("prefixesOf(%q) = %v, want %v", tt.qualifier, got, tt.want)
		}
	}
}
