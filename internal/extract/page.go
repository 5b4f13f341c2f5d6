// Package extract pulls listing fields out of raw product page content using
// ordered, independently replaceable extraction strategies.
package extract

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is one fetched document, parsed once and shared by every strategy.
type Page struct {
	Raw string
	Doc *goquery.Document
}

// NewPage parses content. Unparseable markup yields an empty document so that
// raw-text strategies can still run.
func NewPage(content string) *Page {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
	}
	return &Page{Raw: content, Doc: doc}
}

// invisible runes that the source sprinkles around labels.
var invisibleReplacer = strings.NewReplacer(
	"\u200e", "",
	"\u200f", "",
	"\u200b", "",
	"\ufeff", "",
	"\u00a0", " ",
)

// cleanText strips invisible marks and collapses all whitespace runs to one space.
func cleanText(s string) string {
	return strings.Join(strings.Fields(invisibleReplacer.Replace(s)), " ")
}

// unescapeJSONString decodes the escapes the source leaves in inline script URLs.
func unescapeJSONString(s string) string {
	s = strings.ReplaceAll(s, `\u0026`, "&")
	return strings.ReplaceAll(s, `\/`, "/")
}

func isURLShaped(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

// walkJSON streams through a JSON document in source order, reporting every
// object key through onKey and every string value (with its enclosing key, or
// "" inside arrays) through onValue.
func walkJSON(data []byte, onKey func(key string), onValue func(key, value string)) error {
	type frame struct {
		object    bool
		expectKey bool
		key       string
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var stack []*frame

	top := func() *frame {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1]
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			if len(stack) > 0 {
				return io.ErrUnexpectedEOF
			}
			return nil
		}
		if err != nil {
			return err
		}

		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{', '[':
				if f := top(); f != nil && f.object {
					f.expectKey = true
				}
				stack = append(stack, &frame{object: v == '{', expectKey: v == '{'})
			case '}', ']':
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
			}
		case string:
			f := top()
			if f != nil && f.object && f.expectKey {
				f.key = v
				f.expectKey = false
				onKey(v)
				continue
			}
			key := ""
			if f != nil && f.object {
				key = f.key
				f.expectKey = true
			}
			onValue(key, v)
		default:
			if f := top(); f != nil && f.object {
				f.expectKey = true
			}
		}
	}
}
