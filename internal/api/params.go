package api

import (
	"net/http"
	"strconv"
	"strings"

	"cix/internal/errors"
)

// defaultDepth applies when a traversal request names no depth.
const defaultDepth = 2

// QueryParamInt extracts an integer query parameter with a default value.
// A malformed value is a validation error.
func QueryParamInt(r *http.Request, name string, defaultVal int) (int, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, errors.NewValidationError(name, name+" must be an integer")
	}
	return i, nil
}

// QueryParamBool extracts an optional boolean query parameter.
func QueryParamBool(r *http.Request, name string) (*bool, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, errors.NewValidationError(name, name+" must be true or false")
	}
	return &b, nil
}

// QueryParamList collects a repeatable, comma-separated parameter.
func QueryParamList(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// page reads limit and offset.
func page(r *http.Request) (limit, offset int, err error) {
	if limit, err = QueryParamInt(r, "limit", 0); err != nil {
		return 0, 0, err
	}
	if offset, err = QueryParamInt(r, "offset", 0); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}
