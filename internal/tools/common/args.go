package common

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/senderwatch/internal/apperrors"
)

// dateLayout is accepted next to RFC3339 for date arguments.
const dateLayout = "2006-01-02"

// StringArg returns the trimmed string argument key, or "" when absent.
func StringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

// RequiredString returns the string argument key or an error naming it.
func RequiredString(args map[string]interface{}, key string) (string, error) {
	v := StringArg(args, key)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// BoolArg returns the boolean argument key, or def when absent.
func BoolArg(args map[string]interface{}, key string, def bool) bool {
	switch v := args[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1":
			return true
		case "false", "no", "0":
			return false
		}
	}
	return def
}

// IntArg returns the numeric argument key, or def when absent.
func IntArg(args map[string]interface{}, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// ParseTime parses s as RFC3339 or YYYY-MM-DD (UTC midnight). The boolean
// reports whether s was a bare date. name is used in the error.
func ParseTime(name, s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, apperrors.NewInvalidRangeError("%s must be RFC3339 or YYYY-MM-DD, got %q", name, s)
}

// ParseEndTime is ParseTime, except that a bare date covers the whole day.
func ParseEndTime(name, s string) (time.Time, error) {
	t, dateOnly, err := ParseTime(name, s)
	if err != nil {
		return t, err
	}
	if dateOnly {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return t, nil
}

// TimeArg parses the argument key with ParseTime. An absent argument
// returns the zero time.
func TimeArg(args map[string]interface{}, key string) (time.Time, error) {
	s := StringArg(args, key)
	if s == "" {
		return time.Time{}, nil
	}
	t, _, err := ParseTime(key, s)
	return t, err
}

// EndOfDayArg is TimeArg, except that a bare date covers the whole day.
func EndOfDayArg(args map[string]interface{}, key string) (time.Time, error) {
	s := StringArg(args, key)
	if s == "" {
		return time.Time{}, nil
	}
	return ParseEndTime(key, s)
}

// JSONResult renders v as an indented JSON text result.
func JSONResult(v interface{}) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// ErrorResult renders err as a tool error. Validation failures and
// conflicts are reported as-is; remote failures keep the provider message.
func ErrorResult(action string, err error) *mcp.CallToolResult {
	switch {
	case apperrors.IsInvalidRange(err), apperrors.IsNotConfigured(err), apperrors.IsConflict(err):
		return mcp.NewToolResultError(err.Error())
	default:
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err))
	}
}
