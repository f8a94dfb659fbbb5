package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Result status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// DefaultWorkers bounds how many items of a batch run at once.
const DefaultWorkers = 4

// Result is the outcome of a single item of a batch.
type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BatchResult aggregates the results of a batch.
type BatchResult struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// ParseIDs parses a parameter holding one ID, an array of IDs or a JSON
// encoded array of IDs. Duplicates are dropped, keeping the first occurrence.
func ParseIDs(param interface{}, paramName string) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	var raw []string
	switch v := param.(type) {
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		// Some clients send arrays as JSON text.
		var decoded []string
		if strings.HasPrefix(v, "[") && json.Unmarshal([]byte(v), &decoded) == nil {
			if len(decoded) == 0 {
				return nil, fmt.Errorf("%s cannot be empty", paramName)
			}
			raw = decoded
		} else {
			raw = []string{v}
		}
	case []interface{}:
		if len(v) == 0 {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			raw = append(raw, str)
		}
	case []string:
		if len(v) == 0 {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		raw = v
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}

	ids := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, id := range raw {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// Summarize counts the successful and failed results.
func Summarize(results []Result) BatchResult {
	br := BatchResult{
		Total:   len(results),
		Results: results,
	}
	for _, r := range results {
		if r.Status == StatusSuccess {
			br.Successful++
		} else {
			br.Failed++
		}
	}
	return br
}

// FormatResults renders the results as indented JSON.
func FormatResults(results []Result) string {
	jsonBytes, _ := json.MarshalIndent(Summarize(results), "", "  ")
	return string(jsonBytes)
}

// Process runs fn for every ID with at most workers calls in flight and
// returns the results in input order. IDs not started before ctx is done
// fail with the context error.
func Process(ctx context.Context, ids []string, workers int, fn func(ctx context.Context, id string) (string, error)) []Result {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	results := make([]Result, len(ids))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			results[i] = NewErrorResult(id, err)
			continue
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			results[i] = NewErrorResult(id, ctx.Err())
			continue
		}

		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := fn(ctx, id)
			if err != nil {
				results[i] = NewErrorResult(id, err)
				return
			}
			results[i] = NewSuccessResult(id, res)
		}(i, id)
	}

	wg.Wait()
	return results
}

// NewSuccessResult creates a success result
func NewSuccessResult(id, message string) Result {
	return Result{
		ID:     id,
		Status: StatusSuccess,
		Result: message,
	}
}

// NewErrorResult creates an error result
func NewErrorResult(id string, err error) Result {
	return Result{
		ID:     id,
		Status: StatusError,
		Error:  err.Error(),
	}
}
