package crpe

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Partial property sets carry a JSON object mapping RFC 6901 pointers
// to replacement values. ApplyPartial applies such a patch document to
// the current property body.
//
// The patch body and the current value must both be JSON; an empty
// current value patches against an empty object.
func ApplyPartial(current, patch []byte) ([]byte, error) {
	var patches map[string]json.RawMessage
	if err := json.Unmarshal(patch, &patches); err != nil {
		return nil, fmt.Errorf("crpe: partial set body is not a JSON object: %w", err)
	}

	var doc interface{}
	if len(current) == 0 {
		doc = map[string]interface{}{}
	} else if err := json.Unmarshal(current, &doc); err != nil {
		return nil, fmt.Errorf("crpe: current value is not JSON: %w", err)
	}

	for pointer, raw := range patches {
		var value interface{}
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, err
		}
		next, err := setPointer(doc, pointer, value)
		if err != nil {
			return nil, err
		}
		doc = next
	}
	return json.Marshal(doc)
}

// setPointer replaces the value at an RFC 6901 pointer, creating the
// final object member when absent. Array indices must address existing
// elements.
func setPointer(doc interface{}, pointer string, value interface{}) (interface{}, error) {
	if pointer == "" {
		return value, nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, fmt.Errorf("%w: %q", ErrPointer, pointer)
	}

	tokens := strings.Split(pointer[1:], "/")
	for i, t := range tokens {
		t = strings.ReplaceAll(t, "~1", "/")
		tokens[i] = strings.ReplaceAll(t, "~0", "~")
	}
	return setToken(doc, tokens, pointer, value)
}

func setToken(doc interface{}, tokens []string, pointer string, value interface{}) (interface{}, error) {
	token := tokens[0]
	last := len(tokens) == 1

	switch node := doc.(type) {
	case map[string]interface{}:
		if last {
			node[token] = value
			return node, nil
		}
		child, ok := node[token]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrPointer, pointer)
		}
		next, err := setToken(child, tokens[1:], pointer, value)
		if err != nil {
			return nil, err
		}
		node[token] = next
		return node, nil
	case []interface{}:
		idx, err := strconv.Atoi(token)
		if err != nil || idx < 0 || idx >= len(node) {
			return nil, fmt.Errorf("%w: %q", ErrPointer, pointer)
		}
		if last {
			node[idx] = value
			return node, nil
		}
		next, err := setToken(node[idx], tokens[1:], pointer, value)
		if err != nil {
			return nil, err
		}
		node[idx] = next
		return node, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrPointer, pointer)
	}
}
