package transport

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// CurrentCanonicalVersion defines the canonicalization format version.
// Bump it whenever canonicalization changes so stale cache entries stop
// matching.
const CurrentCanonicalVersion = "v1"

// CanonicalPayload is the normalized, stable form of a logical request. It is
// the sole input to IdemKey hashing: equivalent requests must produce
// identical payloads regardless of whitespace or map ordering.
type CanonicalPayload struct {
	Operation OperationType  `json:"operation"`
	Provider  string         `json:"provider"`
	Model     string         `json:"model"`
	System    string         `json:"system,omitempty"`
	Prompt    string         `json:"prompt"`
	Params    map[string]any `json:"params,omitempty"`
	Version   string         `json:"version"`
}

// IdemKey is a SHA-256 hex digest of a CanonicalPayload.
type IdemKey string

// String returns the string representation of the idempotency key.
func (k IdemKey) String() string { return string(k) }

// BuildCanonicalPayload normalizes req for hashing. Timeout, RequestID and
// Metadata do not change what the model is asked, so they are excluded.
func BuildCanonicalPayload(req *Request) *CanonicalPayload {
	payload := &CanonicalPayload{
		Operation: req.Operation,
		Provider:  strings.ToLower(strings.TrimSpace(req.Provider)),
		Model:     strings.TrimSpace(req.Model),
		System:    normalizeText(req.SystemPrompt),
		Prompt:    normalizeText(req.Prompt),
		Version:   CurrentCanonicalVersion,
	}

	// Only non-default parameters, to minimize key variations.
	params := make(map[string]any)
	if req.MaxTokens > 0 {
		params["max_tokens"] = req.MaxTokens
	}
	if req.Temperature != 0 {
		params["temperature"] = req.Temperature
	}
	if req.JSONMode {
		params["json_mode"] = true
	}
	if len(params) > 0 {
		payload.Params = params
	}

	return payload
}

// BuildIdemKey hashes the stable JSON form of payload.
func BuildIdemKey(payload *CanonicalPayload) (IdemKey, error) {
	jsonBytes, err := stableJSON(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal canonical payload: %w", err)
	}

	hash := sha256.Sum256(jsonBytes)
	return IdemKey(hex.EncodeToString(hash[:])), nil
}

// GenerateIdemKey canonicalizes req and hashes it.
func GenerateIdemKey(req *Request) (IdemKey, error) {
	return BuildIdemKey(BuildCanonicalPayload(req))
}

// CacheKey builds the Redis key {prefix}:{operation}:{idemkey}.
func CacheKey(prefix string, operation OperationType, key IdemKey) string {
	if prefix == "" {
		prefix = "pte"
	}
	return fmt.Sprintf("%s:%s:%s", prefix, operation, key)
}

// normalizeText trims, converts CRLF to LF and collapses whitespace runs.
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Join(strings.Fields(text), " ")
}

// stableJSON produces deterministic JSON with sorted map keys.
func stableJSON(v any) ([]byte, error) {
	tempJSON, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var normalized any
	if err := json.Unmarshal(tempJSON, &normalized); err != nil {
		return nil, err
	}

	return json.Marshal(sortKeys(normalized))
}

// sortKeys recursively rebuilds maps in key order. encoding/json already
// sorts map keys; the walk keeps nested arrays normalized too.
func sortKeys(v any) any {
	switch v := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sorted := make(map[string]any, len(v))
		for _, k := range keys {
			sorted[k] = sortKeys(v[k])
		}
		return sorted

	case []any:
		sorted := make([]any, len(v))
		for i, elem := range v {
			sorted[i] = sortKeys(elem)
		}
		return sorted

	default:
		return v
	}
}
