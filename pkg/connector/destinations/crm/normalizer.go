package crm

import (
	stdjson "encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
	"github.com/ajitpratap0/nebula-crm/pkg/errors"
	jsonpool "github.com/ajitpratap0/nebula-crm/pkg/json"
	"github.com/ajitpratap0/nebula-crm/pkg/schema"
	nebulastrings "github.com/ajitpratap0/nebula-crm/pkg/strings"
)

// Properties are canonical CRM property values. A value is never "".
type Properties map[string]string

// Normalized is a record ready to be written.
type Normalized struct {
	// Document is the decoded input object. Identity lookups read ids from it.
	Document map[string]interface{}
	// Properties is what gets sent to the CRM.
	Properties Properties
}

var (
	pairKeyFields   = []string{"key", "Key", "name", "Name", "property", "Property", "field", "Field"}
	pairValueFields = []string{"value", "Value"}

	internalPrefixes = []string{"_", "@odata."}
	metadataKeys     = map[string]struct{}{
		"__metadata": {},
		"ObjectID":   {},
		"ETag":       {},
		"uri":        {},
	}
)

// Normalizer turns arbitrarily shaped input into canonical properties.
type Normalizer struct {
	resolver *schema.Resolver
}

// NewNormalizer creates a normalizer; a nil resolver uses the built-in
// entity tables.
func NewNormalizer(resolver *schema.Resolver) *Normalizer {
	if resolver == nil {
		resolver = schema.NewResolver(nil)
	}
	return &Normalizer{resolver: resolver}
}

// Normalize decodes input and maps its keys onto entity's properties.
// Accepted input, checked in order:
//
//   - JSON text (string, []byte, json.RawMessage), decoded first
//   - a list of {key, value} pairs
//   - an object with a "properties" object, which is unwrapped
//   - any other object, used as-is
//
// Empty values, internal keys and metadata keys are dropped. When two keys
// resolve to the same property, the key already spelled canonically wins;
// otherwise the first key in sorted order wins.
func (n *Normalizer) Normalize(entity string, input interface{}) (*Normalized, error) {
	doc, err := decodeInput(input)
	if err != nil {
		return nil, err
	}

	fields := doc
	if props, ok := doc["properties"].(map[string]interface{}); ok {
		fields = props
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	props := make(Properties, len(fields))
	exact := make(map[string]bool, len(fields))
	for _, key := range keys {
		if skipKey(key) {
			continue
		}
		value, ok := stringify(fields[key])
		if !ok {
			continue
		}
		canonical := n.resolver.Resolve(entity, key)
		if _, taken := props[canonical]; taken && (exact[canonical] || key != canonical) {
			continue
		}
		props[canonical] = value
		exact[canonical] = key == canonical
	}

	return &Normalized{Document: doc, Properties: props}, nil
}

func decodeInput(input interface{}) (map[string]interface{}, error) {
	switch v := input.(type) {
	case string:
		return decodeText([]byte(v))
	case []byte:
		return decodeText(v)
	case stdjson.RawMessage:
		return decodeText(v)
	}
	return decodeValue(input)
}

func decodeText(text []byte) (map[string]interface{}, error) {
	var v interface{}
	if err := jsonpool.Unmarshal(text, &v); err != nil {
		return nil, errors.NewMalformedRecord("record is not valid JSON", err)
	}
	return decodeValue(v)
}

func decodeValue(input interface{}) (map[string]interface{}, error) {
	switch v := input.(type) {
	case core.RawRecord:
		return map[string]interface{}(v), nil
	case map[string]interface{}:
		return v, nil
	case Properties:
		return decodeValue(map[string]string(v))
	case map[string]string:
		out := make(map[string]interface{}, len(v))
		for k, s := range v {
			out[k] = s
		}
		return out, nil
	case []interface{}:
		return foldPairs(v), nil
	case []map[string]interface{}:
		items := make([]interface{}, len(v))
		for i := range v {
			items[i] = v[i]
		}
		return foldPairs(items), nil
	case []map[string]string:
		items := make([]interface{}, len(v))
		for i := range v {
			items[i] = v[i]
		}
		return foldPairs(items), nil
	case nil:
		return nil, errors.NewMalformedRecord("record is empty", nil)
	default:
		return nil, errors.Newf(errors.ErrorTypeMalformedRecord, "unsupported record shape %T", input)
	}
}

// foldPairs turns [{"key": k, "value": v}, ...] into an object. Entries
// without a usable key are skipped; a later entry for the same key wins.
func foldPairs(items []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(items))
	for _, item := range items {
		var entry map[string]interface{}
		switch e := item.(type) {
		case map[string]interface{}:
			entry = e
		case core.RawRecord:
			entry = e
		case map[string]string:
			entry = make(map[string]interface{}, len(e))
			for k, s := range e {
				entry[k] = s
			}
		default:
			continue
		}

		key := ""
		for _, f := range pairKeyFields {
			if s, ok := entry[f].(string); ok && strings.TrimSpace(s) != "" {
				key = s
				break
			}
		}
		if key == "" {
			continue
		}
		var value interface{}
		for _, f := range pairValueFields {
			if v, ok := entry[f]; ok {
				value = v
				break
			}
		}
		out[key] = value
	}
	return out
}

func skipKey(key string) bool {
	if key == "" {
		return true
	}
	if _, ok := metadataKeys[key]; ok {
		return true
	}
	for _, p := range internalPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// stringify returns the property form of v, or ok=false when v is empty.
func stringify(v interface{}) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, strings.TrimSpace(x) != ""
	case jsonpool.Number:
		return formatNumber(x.String()), x != ""
	case map[string]interface{}:
		if len(x) == 0 {
			return "", false
		}
		return compactJSON(x)
	case []interface{}:
		if len(x) == 0 {
			return "", false
		}
		return compactJSON(x)
	case core.RawRecord:
		if len(x) == 0 {
			return "", false
		}
		return compactJSON(map[string]interface{}(x))
	default:
		s := nebulastrings.ValueToString(x)
		return s, s != ""
	}
}

// formatNumber rewrites exponent notation as a plain decimal.
func formatNumber(s string) string {
	if !strings.ContainsAny(s, "eE") {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func compactJSON(v interface{}) (string, bool) {
	b, err := jsonpool.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(b), true
}
