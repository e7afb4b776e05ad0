package poshmark

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"goposh/models"
)

var (
	// Net price breakdown: order total, fee, earnings, tax in page
	// order. The last amount always carries decimals.
	priceDetailsRegex = regexp.MustCompile(`[\D.]+([\d.]+)[\D.]+([\d.]+)[\D.]+([\d.]+)[\D]+([\d]+\.[\d]+)`)
	orderDetailsRegex = regexp.MustCompile(`Date: *(\S+) *Order #: *(\S+) *Buyer: *(\S+)\b`)
	statusRegex       = regexp.MustCompile(`(?i)Status:([A-Z ]+)`)
	tagRegex          = regexp.MustCompile(`<[^>]*>`)
)

// ParseOrderSummaries extracts summary orders from a sales listing
// page fragment, preserving row order.
func ParseOrderSummaries(html, baseURL string) ([]models.Order, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing order page: %w", err)
	}

	var orders []models.Order
	doc.Find("a.item").Each(func(_ int, row *goquery.Selection) {
		href, _ := row.Attr("href")
		id := lastPathSegment(href)

		count := 1
		if n, err := strconv.Atoi(strings.TrimSpace(row.Find(".badge-con .badge").Text())); err == nil {
			count = n
		}

		img, _ := row.Find("img.item-pic").Attr("src")

		orders = append(orders, models.Order{
			ID:               id,
			Title:            strings.TrimSpace(row.Find(".title").Eq(0).Text()),
			OrderTotal:       models.ParsePrice(strings.TrimSpace(row.Find(".price .value").Text())),
			Size:             strings.TrimSpace(row.Find(".size .value").Text()),
			ItemCount:        count,
			BuyerUsername:    strings.TrimSpace(row.Find(".seller .value").Text()),
			Status:           strings.TrimSpace(row.Find(".status .value").Text()),
			ImageURL:         img,
			URL:              orderURL(baseURL, id),
			ShippingLabelURL: shippingLabelURL(baseURL, id),
		})
	})
	return orders, nil
}

// ParseOrderDetail extracts an order from its detail page. Items are
// fetched separately; the caller attaches them and then sets the
// title with orderTitle.
func ParseOrderDetail(html, orderID, baseURL string) (*models.Order, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing order page: %w", err)
	}

	order := &models.Order{
		ID:               orderID,
		Status:           "Unknown",
		BuyerUsername:    "Unknown",
		OrderDate:        time.Now(),
		URL:              orderURL(baseURL, orderID),
		ShippingLabelURL: shippingLabelURL(baseURL, orderID),
	}

	total, fee, earnings, tax := parseOrderPrices(doc)
	order.OrderTotal, order.Fee, order.Earnings, order.Tax = total, fee, earnings, tax

	details := stripTags(detailsHTML(doc.Find(".order-details")))
	if m := orderDetailsRegex.FindStringSubmatch(details); m != nil {
		if d, err := time.Parse("2006-01-02", m[1]); err == nil {
			order.OrderDate = d
		}
		if m[3] != "" {
			order.BuyerUsername = m[3]
		}
	}

	if m := statusRegex.FindStringSubmatch(doc.Find(".status-desc").Text()); m != nil {
		order.Status = strings.TrimSpace(m[1])
	}

	return order, nil
}

// parseOrderPrices pulls the four amounts out of the price breakdown
// block. All four share the currency symbol found just before the
// first amount; no match leaves everything at 0.00.
func parseOrderPrices(doc *goquery.Document) (total, fee, earnings, tax models.Price) {
	text := doc.Find(".price-details").Text()
	m := priceDetailsRegex.FindStringSubmatchIndex(text)
	if m == nil {
		return
	}

	symbol := ""
	if start := m[2]; start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		symbol = string(r)
	}

	amount := func(i int) models.Price {
		return models.ParsePrice(symbol + text[m[2*i]:m[2*i+1]])
	}
	return amount(1), amount(2), amount(3), amount(4)
}

// OrderItemURLs returns the listing links of every item row on an
// order detail page.
func OrderItemURLs(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing order page: %w", err)
	}

	var urls []string
	doc.Find(".order-main-con .listing-details .rw").Each(func(_ int, row *goquery.Selection) {
		if href, ok := row.Find("a").First().Attr("href"); ok {
			urls = append(urls, href)
		}
	})
	return urls, nil
}

// ParseItemIDFromURL extracts the listing id, the final dash-separated
// segment of a listing URL.
func ParseItemIDFromURL(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if i := strings.LastIndex(u, "-"); i >= 0 {
		return u[i+1:]
	}
	return u
}

func orderTitle(orderID string, items []models.Item) string {
	if len(items) == 1 {
		return items[0].Title
	}
	return fmt.Sprintf("Order %s (%d items)", orderID, len(items))
}

func orderURL(baseURL, id string) string {
	return baseURL + "/order/sales/" + id
}

func shippingLabelURL(baseURL, id string) string {
	return baseURL + "/order/sales/" + id + "/download_shipping_label_link"
}

func lastPathSegment(href string) string {
	href = strings.TrimRight(href, "/")
	if i := strings.LastIndex(href, "/"); i >= 0 {
		return href[i+1:]
	}
	return href
}

// detailsHTML renders a selection's inner HTML with a space after
// every tag so that stripping tags keeps words separated.
func detailsHTML(sel *goquery.Selection) string {
	html, err := sel.Html()
	if err != nil {
		return sel.Text()
	}
	return strings.ReplaceAll(html, ">", "> ")
}

func stripTags(s string) string {
	s = tagRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
