package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TitleStrategy attempts to read the product title.
type TitleStrategy struct {
	Name    string
	Extract func(p *Page) string
}

// ImageStrategy contributes raw image URL candidates.
type ImageStrategy struct {
	Name    string
	Extract func(p *Page) []string
}

// BulletStrategy attempts to read feature bullets.
type BulletStrategy struct {
	Name    string
	Extract func(p *Page) []string
}

// AttributeStrategy contributes raw key/value attribute pairs.
type AttributeStrategy struct {
	Name    string
	Extract func(p *Page) []KeyValue
}

// PriceStrategy attempts to read the displayed price.
type PriceStrategy struct {
	Name    string
	Extract func(p *Page) string
}

// KeyValue is one attribute row as found on the page.
type KeyValue struct {
	Key   string
	Value string
}

// DefaultTitleStrategies returns the title strategies in priority order.
func DefaultTitleStrategies() []TitleStrategy {
	return []TitleStrategy{
		{Name: "title-anchor", Extract: selectorText("#productTitle")},
		{Name: "first-heading", Extract: selectorText("h1")},
	}
}

// DefaultImageStrategies returns the image strategies in priority order.
// All of them contribute; results are unioned in this order.
func DefaultImageStrategies() []ImageStrategy {
	return []ImageStrategy{
		{Name: "hires-json", Extract: inlineJSONField("hiRes")},
		{Name: "large-json", Extract: inlineJSONField("large")},
		{Name: "gallery-json", Extract: galleryJSON},
		{Name: "product-img", Extract: productImgElements},
	}
}

// DefaultBulletStrategies returns the bullet container strategies in priority order.
func DefaultBulletStrategies() []BulletStrategy {
	return []BulletStrategy{
		{Name: "feature-bullets", Extract: listItems("#feature-bullets li")},
		{Name: "feature-bullets-div", Extract: listItems("#featurebullets_feature_div li")},
	}
}

// DefaultAttributeStrategies returns the attribute strategies in priority order.
func DefaultAttributeStrategies() []AttributeStrategy {
	return []AttributeStrategy{
		{Name: "detail-bullets", Extract: colonListItems("#detailBullets_feature_div li")},
		{Name: "product-overview", Extract: tableRows("#productOverview_feature_div tr")},
		{Name: "product-details-table", Extract: tableRows(`table[id^="productDetails"] tr`)},
	}
}

// DefaultPriceStrategies returns the price strategies in priority order.
func DefaultPriceStrategies() []PriceStrategy {
	return []PriceStrategy{
		{Name: "core-price", Extract: selectorText("#corePrice_feature_div .a-offscreen")},
		{Name: "a-price", Extract: selectorText(".a-price .a-offscreen")},
		{Name: "priceblock-our", Extract: selectorText("#priceblock_ourprice")},
		{Name: "priceblock-deal", Extract: selectorText("#priceblock_dealprice")},
		{Name: "buybox", Extract: selectorText("#price_inside_buybox")},
		{Name: "currency-pattern", Extract: currencyPattern},
	}
}

// selectorText returns the cleaned text of the first element matching selector.
func selectorText(selector string) func(p *Page) string {
	return func(p *Page) string {
		return cleanText(p.Doc.Find(selector).First().Text())
	}
}

func inlineJSONField(field string) func(p *Page) []string {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(field) + `"\s*:\s*"([^"]+)"`)
	return func(p *Page) []string {
		var out []string
		for _, m := range re.FindAllStringSubmatch(p.Raw, -1) {
			out = append(out, unescapeJSONString(m[1]))
		}
		return out
	}
}

// galleryKeys are JSON keys whose string values are treated as image URLs.
var galleryKeys = map[string]bool{
	"hiRes":    true,
	"large":    true,
	"mainUrl":  true,
	"imageUrl": true,
	"url":      true,
	"src":      true,
}

// galleryJSON walks embedded gallery data: the dynamic-image attribute (a map
// keyed by URL) and JSON script blocks.
func galleryJSON(p *Page) []string {
	var out []string
	onKey := func(k string) {
		if isURLShaped(k) {
			out = append(out, k)
		}
	}
	onValue := func(k, v string) {
		if galleryKeys[k] && isURLShaped(v) {
			out = append(out, v)
		}
	}

	p.Doc.Find("[data-a-dynamic-image]").Each(func(_ int, s *goquery.Selection) {
		raw, _ := s.Attr("data-a-dynamic-image")
		_ = walkJSON([]byte(raw), onKey, onValue)
	})
	p.Doc.Find(`script[type="application/json"], script[type="a-state"]`).Each(func(_ int, s *goquery.Selection) {
		_ = walkJSON([]byte(s.Text()), onKey, onValue)
	})
	return out
}

// productImagePath is the CDN path convention for product photos.
const productImagePath = "/images/I/"

func productImgElements(p *Page) []string {
	var out []string
	p.Doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"data-old-hires", "src", "data-src"} {
			if v, ok := s.Attr(attr); ok && strings.Contains(v, productImagePath) && isURLShaped(v) {
				out = append(out, v)
			}
		}
	})
	return out
}

func listItems(selector string) func(p *Page) []string {
	return func(p *Page) []string {
		var out []string
		p.Doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if t := cleanText(s.Text()); t != "" {
				out = append(out, t)
			}
		})
		return out
	}
}

func colonListItems(selector string) func(p *Page) []KeyValue {
	return func(p *Page) []KeyValue {
		var out []KeyValue
		p.Doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			k, v, ok := strings.Cut(cleanText(s.Text()), ":")
			if !ok {
				return
			}
			out = append(out, KeyValue{Key: k, Value: strings.TrimSpace(v)})
		})
		return out
	}
}

func tableRows(selector string) func(p *Page) []KeyValue {
	return func(p *Page) []KeyValue {
		var out []KeyValue
		p.Doc.Find(selector).Each(func(_ int, row *goquery.Selection) {
			var key, value string
			if th := row.Find("th"); th.Length() > 0 {
				key = cleanText(th.First().Text())
				value = cleanText(row.Find("td").First().Text())
			} else {
				cells := row.Find("td")
				if cells.Length() < 2 {
					return
				}
				key = cleanText(cells.Eq(0).Text())
				value = cleanText(cells.Eq(1).Text())
			}
			out = append(out, KeyValue{Key: key, Value: value})
		})
		return out
	}
}

var currencyRe = regexp.MustCompile(`[£$€]\s?\d[\d,]*(?:\.\d{2})?`)

func currencyPattern(p *Page) string {
	return strings.ReplaceAll(currencyRe.FindString(p.Raw), " ", "")
}
