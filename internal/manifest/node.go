package manifest

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// parseNode reads a manifest file into its raw field map. Anything other
// than a plain JSON object is a FormatError.
func parseNode(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &FormatError{Reason: err.Error()}
	}
	node, ok := probe.(map[string]any)
	if !ok {
		return nil, &FormatError{Reason: "manifest is not a JSON object"}
	}
	return node, nil
}

// optionalString returns a field that must be a string when present.
func optionalString(node map[string]any, key string) (string, bool, error) {
	v, ok := node[key]
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, &FieldError{Field: key, Reason: "must be a string"}
	}
	return s, true, nil
}

// requiredString returns a field that must be present and a string.
func requiredString(node map[string]any, key string) (string, error) {
	s, ok, err := optionalString(node, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &FieldError{Field: key, Reason: "is required"}
	}
	return s, nil
}

// nullableString returns a field that may be absent, explicitly null, or a
// string. Absent and null both yield "".
func nullableString(node map[string]any, key string) (string, error) {
	v, ok := node[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &FieldError{Field: key, Reason: "must be a string or null"}
	}
	return s, nil
}

// optionalObject returns a field that must be a JSON object when present.
func optionalObject(node map[string]any, key string) (map[string]any, bool, error) {
	v, ok := node[key]
	if !ok {
		return nil, false, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false, &FieldError{Field: key, Reason: "must be an object"}
	}
	return obj, true, nil
}

// stringList coerces a field value that must be an array of strings.
func stringList(v any, key string) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, &FieldError{Field: key, Reason: "must be an array of strings"}
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, &FieldError{Field: key, Reason: "must be an array of strings"}
		}
		out = append(out, s)
	}
	return out, nil
}

// lessonClasses maps the fixed lesson class enumeration to its platform
// integers. Null or absent maps to 0.
var lessonClasses = map[string]int{
	"tutorial":  1,
	"activity":  2,
	"project":   3,
	"challenge": 4,
}

// lessonClass validates and maps the `class` field.
func lessonClass(node map[string]any) (int, error) {
	v, ok := node["class"]
	if !ok || v == nil {
		return 0, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, &FieldError{Field: "class", Reason: "must be a string or null"}
	}
	class, ok := lessonClasses[s]
	if !ok {
		return 0, &FieldError{Field: "class", Reason: fmt.Sprintf("unknown class %q (want tutorial, activity, project, or challenge)", s)}
	}
	return class, nil
}
