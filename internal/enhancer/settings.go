package enhancer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ID is the identifier under which the image styles enhancer is registered
// for resource fields.
const ID = "image_styles"

// Settings is the persisted configuration of an image_styles field enhancer.
type Settings struct {
	Styles StyleSettings `json:"styles" yaml:"styles"`
}

// StyleSettings narrows the consumer's styles for a single field.
type StyleSettings struct {
	Refine          bool      `json:"refine" yaml:"refine"`
	CustomSelection Selection `json:"custom_selection" yaml:"custom_selection"`
}

// FieldConfiguration is assembled by the host once per request: the consumer's
// granted style ids come from negotiation, the rest from the field's settings.
type FieldConfiguration struct {
	ConsumerImageStyleIDs []string
	Settings
}

// NewFieldConfiguration pairs negotiated style ids with field settings.
func NewFieldConfiguration(consumerStyleIDs []string, settings Settings) FieldConfiguration {
	return FieldConfiguration{ConsumerImageStyleIDs: consumerStyleIDs, Settings: settings}
}

// ParseSettings decodes stored settings JSON. Anything that does not decode
// yields the zero Settings, which means no refinement.
func ParseSettings(raw []byte) Settings {
	var s Settings
	if len(bytes.TrimSpace(raw)) == 0 {
		return s
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return Settings{}
	}
	return s
}

// UnmarshalJSON accepts refine as a bool, number or string.
func (s *StyleSettings) UnmarshalJSON(data []byte) error {
	var raw struct {
		Refine          any       `json:"refine"`
		CustomSelection Selection `json:"custom_selection"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		*s = StyleSettings{}
		return nil
	}
	s.Refine = truthy(raw.Refine)
	s.CustomSelection = raw.CustomSelection
	return nil
}

func (s *StyleSettings) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Refine          any       `yaml:"refine"`
		CustomSelection Selection `yaml:"custom_selection"`
	}
	if err := node.Decode(&raw); err != nil {
		*s = StyleSettings{}
		return nil
	}
	s.Refine = truthy(raw.Refine)
	s.CustomSelection = raw.CustomSelection
	return nil
}

// Selection is the ordered custom style selection of a field. Entries may be
// disabled ("" or "0"); Enabled drops them.
//
// Besides a plain list it decodes the checkbox form {"large": "large", "huge": 0},
// keeping key order.
type Selection []string

// Enabled returns the selection without disabled entries.
func (s Selection) Enabled() []string {
	out := make([]string, 0, len(s))
	for _, id := range s {
		id = strings.TrimSpace(id)
		if isFalsy(id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

func (s *Selection) UnmarshalJSON(data []byte) error {
	*s = nil
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil
	}
	var out Selection
	switch delim {
	case '[':
		for dec.More() {
			var v any
			if err := dec.Decode(&v); err != nil {
				return nil
			}
			out = append(out, scalarEntry(v))
		}
	case '{':
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil
			}
			key, _ := keyTok.(string)
			var v any
			if err := dec.Decode(&v); err != nil {
				return nil
			}
			if truthy(v) {
				out = append(out, key)
			} else {
				out = append(out, "")
			}
		}
	default:
		return nil
	}
	*s = out
	return nil
}

func (s *Selection) UnmarshalYAML(node *yaml.Node) error {
	*s = nil
	var out Selection
	switch node.Kind {
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode || item.Tag == "!!null" {
				out = append(out, "")
				continue
			}
			out = append(out, item.Value)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i], node.Content[i+1]
			if val.Kind == yaml.ScalarNode && val.Tag != "!!null" && !isFalsy(val.Value) {
				out = append(out, key.Value)
			} else {
				out = append(out, "")
			}
		}
	}
	*s = out
	return nil
}

func scalarEntry(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == 0 {
			return ""
		}
		return fmt.Sprintf("%v", t)
	default:
		return ""
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		return !isFalsy(strings.TrimSpace(t))
	default:
		return false
	}
}

func isFalsy(s string) bool {
	return s == "" || s == "0" || strings.EqualFold(s, "false")
}
