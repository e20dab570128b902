package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/kurtgav/tinker/internal/memory"
)

// RegisterMemoryTools adds the remember/recall pair backed by the given
// store. Facts are attributed to the user id bound in the request
// context, so the model never needs to know who it is talking to.
func RegisterMemoryTools(r *Registry, store *memory.Store) {
	r.Register(&Tool{
		Name: "remember",
		Params: []Param{
			{Name: "key", Type: "string"},
			{Name: "value", Type: "string"},
		},
		Description: "Remembers a user preference or fact. Input format: 'key: value'. Key should be a short identifier.",
		Handler: func(ctx context.Context, input string) (string, error) {
			key, value, err := splitKeyValue(input)
			if err != nil {
				return "", err
			}
			user := UserIDFromContext(ctx)
			if err := store.Set(user, key, value); err != nil {
				return "", err
			}
			return fmt.Sprintf("I have remembered that %s is %s.", key, value), nil
		},
	})

	r.Register(&Tool{
		Name: "recall",
		Params: []Param{
			{Name: "key", Type: "string"},
		},
		Description: "Recalls a previously stored user preference or fact by its key.",
		Handler: func(ctx context.Context, input string) (string, error) {
			key := strings.TrimSpace(input)
			if key == "" {
				return "", fmt.Errorf("recall: key is required")
			}
			user := UserIDFromContext(ctx)
			value, ok, err := store.Get(user, key)
			if err != nil {
				return "", err
			}
			if !ok {
				return fmt.Sprintf("I don't have any memory of %s.", key), nil
			}
			return fmt.Sprintf("%s is %s.", key, value), nil
		},
	})
}

// splitKeyValue parses the remember tool's free-text input. Accepted
// separators, in order of preference: "key: value", "key = value",
// "key value". The model is prompted with the colon form, the rest is
// tolerance for models that improvise.
func splitKeyValue(input string) (string, string, error) {
	input = strings.TrimSpace(input)

	for _, sep := range []string{":", "="} {
		if key, value, found := strings.Cut(input, sep); found {
			key, value = strings.TrimSpace(key), strings.TrimSpace(value)
			if key != "" && value != "" {
				return key, value, nil
			}
		}
	}

	if key, value, found := strings.Cut(input, " "); found {
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key != "" && value != "" {
			return key, value, nil
		}
	}

	return "", "", fmt.Errorf("remember: expected 'key: value', got %q", input)
}
