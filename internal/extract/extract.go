// Package extract salvages structured records from free-form model output.
//
// The producer is a best-effort model, not a trusted peer: replies may wrap
// the payload in prose, fence it in a markdown code block, return a single
// object where an array was asked for, or leave a trailing comma. Repair is
// a small ordered pipeline with explicit failure modes, applied until one
// candidate parses. Structural repair is aggressive, but a record missing a
// field is kept (with the field empty) rather than dropped.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	ErrNoStructureFound     = errors.New("extraction_no_structure_found")
	ErrMalformedAfterRepair = errors.New("extraction_malformed_after_repair")
	ErrEmptyResult          = errors.New("extraction_empty_result")
)

// Record is one extracted item. Fields carries the template order; Values
// holds the (possibly empty) value per field.
type Record struct {
	Fields []string
	Values map[string]string
}

// Get returns the value for a field, empty if absent.
func (r Record) Get(field string) string {
	return r.Values[field]
}

// Row returns the values in template order, for row sinks.
func (r Record) Row() []string {
	out := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		out[i] = r.Values[f]
	}
	return out
}

var (
	fencedRe        = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\\s*\n?(.*?)```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// Extract turns raw model output into an ordered sequence of records mapped
// through template. Unknown fields in the payload are dropped; missing
// template fields are populated empty.
func Extract(raw string, template []string) ([]Record, error) {
	if len(template) == 0 {
		template = DefaultTemplate()
	}

	parsed, err := parse(raw)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return nil, ErrEmptyResult
	}

	records := make([]Record, 0, len(parsed))
	for _, item := range parsed {
		rec := Record{
			Fields: template,
			Values: make(map[string]string, len(template)),
		}
		for _, f := range template {
			rec.Values[f] = stringify(item[f])
		}
		records = append(records, rec)
	}
	return records, nil
}

// parse tries each repair candidate in order and returns the first that
// yields records.
func parse(raw string) ([]map[string]any, error) {
	var candidates []string

	if m := fencedRe.FindStringSubmatch(raw); m != nil {
		// A fence with no array or object marker inside is prose, not
		// structure.
		interior := strings.TrimSpace(m[1])
		if span, ok := bracketSpan(interior); ok {
			candidates = append(candidates, interior)
			if span != interior {
				candidates = append(candidates, span)
			}
		}
	} else if span, ok := bracketSpan(raw); ok {
		candidates = append(candidates, span)
	}

	if len(candidates) == 0 {
		return nil, ErrNoStructureFound
	}

	var lastErr error
	for _, candidate := range candidates {
		candidate = trailingCommaRe.ReplaceAllString(strings.TrimSpace(candidate), "$1")
		if candidate == "" {
			continue
		}

		items, err := decode(candidate)
		if err == nil {
			return items, nil
		}
		lastErr = err

		// A single object where an array was expected.
		if strings.HasPrefix(candidate, "{") {
			items, err = decode("[" + candidate + "]")
			if err == nil {
				return items, nil
			}
			lastErr = err
		}
	}

	if lastErr != nil {
		return nil, ErrMalformedAfterRepair
	}
	return nil, ErrNoStructureFound
}

// bracketSpan slices from the first opening marker to the last closing
// marker, discarding surrounding prose.
func bracketSpan(s string) (string, bool) {
	start := len(s)
	if i := strings.IndexAny(s, "[{"); i >= 0 {
		start = i
	}
	end := -1
	if i := strings.LastIndexAny(s, "]}"); i >= 0 {
		end = i
	}
	if start >= len(s) || end < start {
		return "", false
	}
	return s[start : end+1], true
}

func decode(candidate string) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(candidate)))
	dec.UseNumber()

	if strings.HasPrefix(candidate, "[") {
		var items []map[string]any
		if err := dec.Decode(&items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var single map[string]any
	if err := dec.Decode(&single); err != nil {
		return nil, err
	}
	return []map[string]any{single}, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
