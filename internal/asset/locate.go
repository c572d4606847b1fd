package asset

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
)

const maxDepth = 32

var priorityKeys = []string{
	"image",
	"imageUrl",
	"image_url",
	"imageURL",
	"imageSrc",
	"imageBase64",
	"image_base64",
	"base64",
	"b64_json",
	"dataUrl",
	"data_url",
	"url",
	"src",
	"webContentLink",
	"thumbnailLink",
	"webViewLink",
	"downloadUrl",
	"fileUrl",
}

var containerKeys = []string{
	"body",
	"data",
	"result",
	"results",
	"payload",
	"response",
	"output",
	"json",
	"item",
	"items",
	"files",
	"file",
	"attachments",
	"content",
	"message",
}

var skipInScan = func() map[string]struct{} {
	m := make(map[string]struct{}, len(priorityKeys)+len(containerKeys))
	for _, k := range priorityKeys {
		m[k] = struct{}{}
	}
	for _, k := range containerKeys {
		m[k] = struct{}{}
	}
	return m
}()

type visitKey struct {
	kind reflect.Kind
	ptr  uintptr
	len  int
}

type locator struct {
	visited map[visitKey]struct{}
}

// Locate finds the first image reference inside an untyped payload.
// Objects are searched by known image keys, then known container keys,
// then every other key in sorted order. Maps and slices are tracked by
// identity so self-referencing payloads terminate.
func Locate(payload any) (string, bool) {
	l := &locator{visited: make(map[visitKey]struct{})}
	return l.find(payload, 0, false)
}

// find walks v. When keyed is true, v sits under a known image key and
// any non-empty string is accepted; otherwise a string must look like an
// image reference.
func (l *locator) find(v any, depth int, keyed bool) (string, bool) {
	if depth > maxDepth {
		return "", false
	}

	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return "", false
		}
		if looksLikeJSON(s) {
			var parsed any
			if err := json.Unmarshal([]byte(s), &parsed); err == nil {
				return l.find(parsed, depth+1, keyed)
			}
		}
		if keyed || looksLikeReference(s) {
			return s, true
		}
		return "", false
	case []any:
		if !l.enter(reflect.ValueOf(x)) {
			return "", false
		}
		for _, item := range x {
			if ref, ok := l.find(item, depth+1, false); ok {
				return ref, true
			}
		}
		return "", false
	case map[string]any:
		if !l.enter(reflect.ValueOf(x)) {
			return "", false
		}
		return l.findInObject(x, depth)
	case bool, float64, float32, int, int64, json.Number:
		return "", false
	default:
		raw, err := json.Marshal(x)
		if err != nil {
			return "", false
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return "", false
		}
		return l.find(generic, depth+1, keyed)
	}
}

func (l *locator) findInObject(obj map[string]any, depth int) (string, bool) {
	for _, key := range priorityKeys {
		if val, ok := obj[key]; ok {
			if ref, ok := l.find(val, depth+1, true); ok {
				return ref, true
			}
		}
	}

	for _, key := range containerKeys {
		if val, ok := obj[key]; ok {
			if ref, ok := l.find(val, depth+1, false); ok {
				return ref, true
			}
		}
	}

	rest := make([]string, 0, len(obj))
	for key := range obj {
		if _, skip := skipInScan[key]; !skip {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		if ref, ok := l.find(obj[key], depth+1, false); ok {
			return ref, true
		}
	}
	return "", false
}

// enter records a map or slice by identity and reports whether it was
// not seen before.
func (l *locator) enter(v reflect.Value) bool {
	key := visitKey{kind: v.Kind(), ptr: v.Pointer(), len: v.Len()}
	if key.ptr == 0 {
		return true
	}
	if _, seen := l.visited[key]; seen {
		return false
	}
	l.visited[key] = struct{}{}
	return true
}

func looksLikeJSON(s string) bool {
	return (strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")) ||
		(strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"))
}

// looksLikeReference is the stricter test used outside known image keys.
// Strings containing spaces are prose, not base64.
func looksLikeReference(s string) bool {
	lower := strings.ToLower(s)
	return isDataURL(s) ||
		strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		(!strings.Contains(s, " ") && isBase64Payload(stripSpace(s)))
}

// ExtractPrompt returns the generation prompt echoed by the webhook at
// "prompt" or "body.prompt".
func ExtractPrompt(payload any) string {
	return firstString(asObject(payload), []string{"prompt"}, []string{"body", "prompt"})
}

// ExtractFileName returns "fileName", "body.fileName" or "body.file_name".
func ExtractFileName(payload any) string {
	return firstString(asObject(payload),
		[]string{"fileName"},
		[]string{"body", "fileName"},
		[]string{"body", "file_name"},
	)
}

func asObject(payload any) map[string]any {
	switch x := payload.(type) {
	case map[string]any:
		return x
	case string:
		s := strings.TrimSpace(x)
		if !looksLikeJSON(s) {
			return nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return nil
		}
		return m
	case []any:
		for _, item := range x {
			if m, ok := item.(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}

func firstString(obj map[string]any, paths ...[]string) string {
	if obj == nil {
		return ""
	}
	for _, path := range paths {
		var cur any = obj
		for _, key := range path {
			m := asObject(cur)
			if m == nil {
				cur = nil
				break
			}
			cur = m[key]
		}
		if s, ok := cur.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}
