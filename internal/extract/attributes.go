package extract

import "strings"

// Canonical attribute keys resolved through the synonym table.
const (
	AttrBrand  = "brand"
	AttrColour = "colour"
)

// attributeSynonyms maps each canonical attribute to the normalized source
// keys that may carry it, highest priority first.
var attributeSynonyms = []struct {
	canonical string
	synonyms  []string
}{
	{AttrBrand, []string{"brand", "brand name", "manufacturer"}},
	{AttrColour, []string{"colour", "color", "colour name", "color name"}},
}

// NormalizeKey lower-cases an attribute label and removes decoration around it.
func NormalizeKey(k string) string {
	k = cleanText(k)
	k = strings.TrimRight(k, " :")
	return strings.ToLower(k)
}

// buildAttributes folds raw rows into a key-normalized map. The first value
// seen for a key wins, and canonical attributes are filled from their synonyms.
func buildAttributes(rows []KeyValue) map[string]string {
	attrs := make(map[string]string, len(rows)+len(attributeSynonyms))
	for _, kv := range rows {
		key := NormalizeKey(kv.Key)
		value := cleanText(kv.Value)
		if key == "" || value == "" {
			continue
		}
		if _, exists := attrs[key]; !exists {
			attrs[key] = value
		}
	}

	for _, entry := range attributeSynonyms {
		for _, syn := range entry.synonyms {
			if v, ok := attrs[syn]; ok {
				attrs[entry.canonical] = v
				break
			}
		}
	}
	return attrs
}
