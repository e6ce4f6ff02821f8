package enhancer

import "github.com/mitchellh/copystructure"

// FieldValue is a serialized image field: {type, id, meta: {...}}.
type FieldValue map[string]any

// ID returns the referenced entity UUID, or "" when absent.
func (v FieldValue) ID() string {
	id, _ := v["id"].(string)
	return id
}

// Merge adds links under meta.links and returns a new value. Existing meta
// keys and existing link entries are kept. With no links, or when meta or
// meta.links is not an object, original is returned as is.
func Merge(original FieldValue, links map[string]DerivativeLink) FieldValue {
	if len(links) == 0 || original == nil {
		return original
	}
	if meta, ok := original["meta"]; ok && meta != nil {
		m, isMap := meta.(map[string]any)
		if !isMap {
			return original
		}
		if existing, ok := m["links"]; ok && existing != nil {
			if _, isMap := existing.(map[string]any); !isMap {
				return original
			}
		}
	}
	copied, err := copystructure.Copy(map[string]any(original))
	if err != nil {
		return original
	}
	out := FieldValue(copied.(map[string]any))
	meta, _ := out["meta"].(map[string]any)
	if meta == nil {
		meta = map[string]any{}
		out["meta"] = meta
	}
	linkMap, _ := meta["links"].(map[string]any)
	if linkMap == nil {
		linkMap = make(map[string]any, len(links))
	}
	for styleID, link := range links {
		if _, taken := linkMap[styleID]; taken {
			continue
		}
		linkMap[styleID] = link.Value()
	}
	meta["links"] = linkMap
	return out
}
