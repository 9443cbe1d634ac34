// Package validator holds small combinators for validating decoded
// configuration. Each check returns nil or an error naming the offending
// field by its description.
package validator

import (
	"fmt"
	"net/url"
	"slices"
	"sort"

	"github.com/ersinkoc/Shopologic-sub016/pkg/tmpl"
)

// All returns the first non-nil error.
func All(errors ...error) error {
	for _, err := range errors {
		if err != nil {
			return err
		}
	}
	return nil
}

type Validatable interface {
	Validate() error
}

func Each[T Validatable](items []T, description string) error {
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("%s[%d]: %w", description, i, err)
		}
	}
	return nil
}

func Map[T any](items []T, f func(T, string) error, description string) error {
	for i, item := range items {
		if err := f(item, fmt.Sprintf("%s[%d]", description, i)); err != nil {
			return err
		}
	}
	return nil
}

// MapDict checks every entry of items in key order, so the reported error
// does not depend on map iteration.
func MapDict[T any](items map[string]T, f func(string, T, string) error, description string) error {
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := f(k, items[k], fmt.Sprintf("%s.%s", description, k)); err != nil {
			return err
		}
	}
	return nil
}

func NotEmpty(field, description string) error {
	if field == "" {
		return fmt.Errorf("%s must not be empty", description)
	}
	return nil
}

func NoDuplicates[T comparable](slice []T, description string) error {
	seen := make(map[T]struct{})
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			return fmt.Errorf("%s contains duplicate value: %v", description, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

func MatchesAllowed[T comparable](field T, allowed []T, description string) error {
	if !slices.Contains(allowed, field) {
		return fmt.Errorf("%s must be one of %v, got %v", description, allowed, field)
	}
	return nil
}

// InRange checks lo <= n <= hi.
func InRange(n, lo, hi int, description string) error {
	if n < lo || n > hi {
		return fmt.Errorf("%s must be between %d and %d, got %d", description, lo, hi, n)
	}
	return nil
}

// HTTPURL checks that an optional field is an absolute http(s) URL.
func HTTPURL(field, description string) error {
	if field == "" {
		return nil
	}
	u, err := url.Parse(field)
	if err != nil {
		return fmt.Errorf("%s: %w", description, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http or https URL, got %q", description, field)
	}
	return nil
}

// Template checks that src parses as a template.
func Template(src, description string) error {
	if _, err := tmpl.Parse(description, src); err != nil {
		return fmt.Errorf("%s is not a valid template: %w", description, err)
	}
	return nil
}
