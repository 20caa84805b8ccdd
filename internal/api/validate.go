package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

const maxBodyBytes = 1 << 20

var (
	errEmptyBody = errors.New("request body is empty")
	errNotObject = errors.New("request body must be a JSON object")
)

// decodeParameters reads an optimize request body. An empty object selects
// every default; an empty body is rejected. Numbers stay json.Number so the
// normalizer sees integers and fractions exactly as sent.
func decodeParameters(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errEmptyBody
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	params, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return params, nil
}

// numDaysQuery parses the optional numDays query parameter of catalog views.
func numDaysQuery(r *http.Request, def int) (int, error) {
	v := r.URL.Query().Get("numDays")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("numDays must be a positive integer, got %q", v)
	}
	return n, nil
}
