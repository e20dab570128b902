package tools

import (
	"context"
	"strings"
	"testing"
)

func noopHandler(ctx context.Context, input string) (string, error) {
	return "", nil
}

func TestRegistryInsertionOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&Tool{Name: "web_search", Description: "searches", Handler: noopHandler})
	r.Register(&Tool{Name: "remember", Description: "remembers", Handler: noopHandler})
	r.Register(&Tool{Name: "recall", Description: "recalls", Handler: noopHandler})

	want := []string{"web_search", "remember", "recall"}
	got := r.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRegistryOverwriteKeepsOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&Tool{Name: "a", Description: "first", Handler: noopHandler})
	r.Register(&Tool{Name: "b", Description: "second", Handler: noopHandler})
	r.Register(&Tool{Name: "a", Description: "replaced", Handler: noopHandler})

	names := r.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", names)
	}
	if r.Get("a").Description != "replaced" {
		t.Errorf("overwrite did not take effect: %q", r.Get("a").Description)
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()
	if r.Get("nope") != nil {
		t.Error("Get for unregistered name should return nil")
	}
}

func TestDescribeFormat(t *testing.T) {
	r := NewRegistry()
	r.Register(&Tool{
		Name:        "web_search",
		Params:      []Param{{Name: "query", Type: "string"}},
		Description: "Performs a web search.",
		Handler:     noopHandler,
	})
	r.Register(&Tool{
		Name: "remember",
		Params: []Param{
			{Name: "key", Type: "string"},
			{Name: "value", Type: "string"},
		},
		Description: "Remembers a fact.",
		Handler:     noopHandler,
	})

	got := r.Describe()
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("Describe() has %d lines, want 2:\n%s", len(lines), got)
	}
	if lines[0] != "- **web_search**(query: string): Performs a web search." {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "- **remember**(key: string, value: string): Remembers a fact." {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestDescribeEmpty(t *testing.T) {
	r := NewRegistry()
	if r.Describe() != "" {
		t.Errorf("empty registry Describe() = %q", r.Describe())
	}
}

func TestUserIDContext(t *testing.T) {
	ctx := context.Background()

	if got := UserIDFromContext(ctx); got != DefaultUserID {
		t.Errorf("unbound context user = %q, want %q", got, DefaultUserID)
	}

	ctx = WithUserID(ctx, "u42")
	if got := UserIDFromContext(ctx); got != "u42" {
		t.Errorf("bound context user = %q, want u42", got)
	}

	// Empty binding falls back to the default.
	if got := UserIDFromContext(WithUserID(context.Background(), "")); got != DefaultUserID {
		t.Errorf("empty binding user = %q, want %q", got, DefaultUserID)
	}
}

func TestUserIDContextIsolation(t *testing.T) {
	base := context.Background()
	ctx1 := WithUserID(base, "alice")
	ctx2 := WithUserID(base, "bob")

	if UserIDFromContext(ctx1) != "alice" || UserIDFromContext(ctx2) != "bob" {
		t.Error("per-request bindings interfered with each other")
	}
}

func TestSplitKeyValue(t *testing.T) {
	tests := []struct {
		in        string
		key, val  string
		wantError bool
	}{
		{"color: blue", "color", "blue", false},
		{"color = blue", "color", "blue", false},
		{"color blue", "color", "blue", false},
		{"  city:  New York  ", "city", "New York", false},
		{"favorite_food: sinigang na baboy", "favorite_food", "sinigang na baboy", false},
		{"justonekey", "", "", true},
		{"", "", "", true},
		{":", "", "", true},
	}

	for _, tt := range tests {
		key, val, err := splitKeyValue(tt.in)
		if (err != nil) != tt.wantError {
			t.Errorf("splitKeyValue(%q) error = %v, wantError %v", tt.in, err, tt.wantError)
			continue
		}
		if key != tt.key || val != tt.val {
			t.Errorf("splitKeyValue(%q) = (%q, %q), want (%q, %q)", tt.in, key, val, tt.key, tt.val)
		}
	}
}
