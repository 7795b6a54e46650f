package catalogue

import (
	"bytes"
	_ "embed"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Well-known document keys. Other keys pass through untouched.
const (
	KeyTitle           = "title"
	KeyAuthors         = "authors"
	KeyPublisher       = "publisher"
	KeyPublicationYear = "publication_year"
	KeyEdition         = "edition"
	KeyISBN            = "isbn"
	KeyISBN10          = "isbn_10"
	KeyISBN13          = "isbn_13"
	KeyDescription     = "description"
	KeyKeywords        = "keywords"
	KeyCoverURL        = "cover_url"
	KeyCategories      = "categories"
	KeySource          = "source"
	KeyTotalCopies     = "total_copies"
)

// Document is a semi-structured metadata mapping. Values follow JSON
// decoding rules: strings, float64, bool, nil, []any and map[string]any.
type Document map[string]any

//go:embed document_schema.json
var documentSchemaJSON []byte

var documentSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("document.json", bytes.NewReader(documentSchemaJSON)); err != nil {
		return nil, fmt.Errorf("load document schema: %w", err)
	}
	return compiler.Compile("document.json")
})

// ParseDocument decodes a JSON object. Empty input yields a nil document.
func ParseDocument(raw []byte) (Document, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// Canonical round-trips d through JSON so Go-native values ([]string, int)
// take their decoded shapes.
func (d Document) Canonical() (Document, error) {
	if d == nil {
		return nil, nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return ParseDocument(raw)
}

// Validate checks the types of the keys the workflow and insertion engine read.
func (d Document) Validate() error {
	if d == nil {
		return nil
	}
	schema, err := documentSchema()
	if err != nil {
		return err
	}
	canonical, err := d.Canonical()
	if err != nil {
		return &ValidationError{Field: "metadata", Message: err.Error()}
	}
	if err := schema.Validate(map[string]any(canonical)); err != nil {
		return &ValidationError{Field: "metadata", Message: err.Error()}
	}
	return nil
}

// Clone returns a shallow copy.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return maps.Clone(d)
}

// Merge returns a copy of d with every key in edits applied on top.
func (d Document) Merge(edits Document) Document {
	out := d.Clone()
	if out == nil {
		out = Document{}
	}
	maps.Copy(out, edits)
	return out
}

// Has reports whether key is present with a non-empty value.
func (d Document) Has(key string) bool {
	switch value := d[key].(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(value) != ""
	case []any:
		return len(value) > 0
	case []string:
		return len(value) > 0
	default:
		return true
	}
}

// String returns the trimmed string form of a scalar value, or "".
func (d Document) String(key string) string {
	switch value := d[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case json.Number:
		return value.String()
	case bool:
		return strconv.FormatBool(value)
	default:
		return ""
	}
}

// Strings returns a list value. A string holding a JSON array is decoded;
// any other string becomes a one-element list.
func (d Document) Strings(key string) []string {
	switch value := d[key].(type) {
	case []string:
		out := make([]string, len(value))
		for i, item := range value {
			out[i] = strings.TrimSpace(item)
		}
		return out
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			switch v := item.(type) {
			case string:
				out = append(out, strings.TrimSpace(v))
			case nil:
				out = append(out, "")
			default:
				out = append(out, fmt.Sprint(v))
			}
		}
		return out
	case string:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return nil
		}
		if strings.HasPrefix(trimmed, "[") {
			var list []string
			if err := json.Unmarshal([]byte(trimmed), &list); err == nil {
				return list
			}
		}
		return []string{trimmed}
	default:
		return nil
	}
}

// Int returns an integer value. Whole floats and numeric strings convert.
func (d Document) Int(key string) (int, bool) {
	switch value := d[key].(type) {
	case int:
		return value, true
	case int64:
		return int(value), true
	case float64:
		if value != float64(int(value)) {
			return 0, false
		}
		return int(value), true
	case json.Number:
		n, err := value.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// FirstString returns the first non-empty string form among keys.
func (d Document) FirstString(keys ...string) string {
	for _, key := range keys {
		if value := d.String(key); value != "" {
			return value
		}
	}
	return ""
}

func encodeDocument(d Document) (any, error) {
	if d == nil {
		return nil, nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return string(raw), nil
}
