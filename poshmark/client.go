package poshmark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"goposh/httputil"
	"goposh/identity"
	"goposh/models"
)

const (
	appVersion = "2.55"

	// Hard caps on pagination loops. The site has never served
	// closets or sales lists anywhere near these sizes.
	maxItemPages  = 250
	maxOrderPages = 100

	maxSummaryLimit = 10000
)

// Config tunes a Client. Zero values get sensible defaults; the
// delays exist so tests can run without sleeping.
type Config struct {
	BaseURL     string
	Referer     string
	Timeout     time.Duration
	PageDelay   time.Duration
	ExtraDelay  time.Duration
	UpdateDelay time.Duration
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://poshmark.com"
	}
	if c.Referer == "" {
		c.Referer = c.BaseURL + "/feed"
	}
	if c.PageDelay == 0 {
		c.PageDelay = 100 * time.Millisecond
	}
	if c.ExtraDelay == 0 {
		c.ExtraDelay = 200 * time.Millisecond
	}
	if c.UpdateDelay == 0 {
		c.UpdateDelay = 200 * time.Millisecond
	}
}

// Client talks to the marketplace on behalf of one logged-in account.
// Requests are sequential and never retried; a failed call surfaces
// through the error taxonomy in errors.go.
type Client struct {
	http    *resty.Client
	session *identity.Session
	cfg     Config
}

func NewClient(session *identity.Session, cfg Config) (*Client, error) {
	if session == nil {
		return nil, fmt.Errorf("%w: nil session", ErrInvalidArgument)
	}
	cfg.applyDefaults()

	httpClient := httputil.NewSiteClient(cfg.BaseURL, cfg.Referer, cfg.Timeout).
		SetHeader("Cookie", session.CookieHeader())

	return &Client{http: httpClient, session: session, cfg: cfg}, nil
}

func (c *Client) Session() *identity.Session { return c.session }

// GetItem fetches and normalizes a single listing.
func (c *Client) GetItem(ctx context.Context, itemID string) (*models.Item, error) {
	if itemID == "" {
		return nil, fmt.Errorf("%w: blank item id", ErrInvalidArgument)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("app_version", appVersion).
		SetQueryParam("_", timestampParam()).
		Get("/vm-rest/posts/" + itemID)
	if err != nil {
		return nil, DataError{StatusCode: StatusUnknown, Message: err.Error()}
	}
	if resp.StatusCode() == 404 {
		return nil, ItemNotFoundError{ItemID: itemID}
	}

	data, err := jsonBody(resp)
	if err != nil {
		return nil, err
	}
	return ParseItem(data, c.cfg.BaseURL)
}

// GetItems walks the whole closet of the session's account, oldest
// page first, and returns the listings sorted by id. A failure on the
// first page is fatal; on any later page the items gathered so far
// are returned.
func (c *Client) GetItems(ctx context.Context) ([]models.Item, error) {
	return c.GetUserItems(ctx, "", "")
}

// GetUserItems walks another user's closet. A blank userID or
// username falls back to the session's own account.
func (c *Client) GetUserItems(ctx context.Context, userID, username string) ([]models.Item, error) {
	id := c.session.Identity()
	if userID == "" {
		userID = id.UserID
	}
	if username == "" {
		username = id.Username
	}

	var items []models.Item
	maxID := ""
	for page := 1; page <= maxItemPages; page++ {
		req := c.http.R().
			SetContext(ctx).
			SetQueryParam("app_version", appVersion).
			SetQueryParam("format", "json").
			SetQueryParam("username", username).
			SetQueryParam("nm", "cl_all").
			SetQueryParam("summarize", "true").
			SetQueryParam("_", timestampParam())
		if maxID != "" {
			req.SetQueryParam("max_id", maxID)
		}

		resp, err := req.Get("/vm-rest/users/" + userID + "/posts")
		var data map[string]interface{}
		if err != nil {
			err = DataError{StatusCode: StatusUnknown, Message: err.Error()}
		} else {
			data, err = jsonBody(resp)
		}
		if err != nil {
			if page == 1 {
				return nil, err
			}
			log.Printf("Warning: closet page %d failed, returning %d items: %v", page, len(items), err)
			break
		}

		posts, _ := data["data"].([]interface{})
		for _, p := range posts {
			raw, ok := p.(map[string]interface{})
			if !ok {
				continue
			}
			item, err := ParseItem(raw, c.cfg.BaseURL)
			if err != nil {
				return nil, err
			}
			items = append(items, *item)
		}

		maxID = nextCursor(data)
		if len(posts) == 0 || cursorEnded(maxID) {
			break
		}

		time.Sleep(c.cfg.PageDelay)
		if page%10 == 0 {
			time.Sleep(c.cfg.ExtraDelay)
		}
	}

	slices.SortFunc(items, func(a, b models.Item) int {
		return strings.Compare(a.ID, b.ID)
	})
	return items, nil
}

// GetOrderSummaries pages through the sales list until limit orders
// have been collected or the list ends. Limit must be within
// [1, 10000]. The first-page/later-page failure policy matches
// GetItems.
func (c *Client) GetOrderSummaries(ctx context.Context, limit int) ([]models.Order, error) {
	if limit < 1 || limit > maxSummaryLimit {
		return nil, fmt.Errorf("%w: limit %d out of range [1, %d]", ErrInvalidArgument, limit, maxSummaryLimit)
	}

	var orders []models.Order
	maxID := ""
	for page := 1; page <= maxOrderPages; page++ {
		req := c.http.R().
			SetContext(ctx).
			SetQueryParam("_", timestampParam())
		if maxID != "" {
			req.SetQueryParam("max_id", maxID)
		}

		resp, err := req.Get("/order/sales")
		var data map[string]interface{}
		if err != nil {
			err = DataError{StatusCode: StatusUnknown, Message: err.Error()}
		} else {
			data, err = jsonBody(resp)
		}
		if err != nil {
			if page == 1 {
				return nil, err
			}
			log.Printf("Warning: sales page %d failed, returning %d orders: %v", page, len(orders), err)
			break
		}

		html, _ := data["html"].(string)
		pageOrders, err := ParseOrderSummaries(html, c.cfg.BaseURL)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			log.Printf("Warning: sales page %d unparseable, returning %d orders: %v", page, len(orders), err)
			break
		}
		orders = append(orders, pageOrders...)

		maxID = cursorString(data["max_id"])
		if len(pageOrders) == 0 || cursorEnded(maxID) || len(orders) >= limit {
			break
		}
	}

	if len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

// GetOrderDetails fetches one order's page and assembles the full
// order, including its items. A listing that has since disappeared is
// represented by a stub item; any other failure makes the whole order
// unavailable.
func (c *Client) GetOrderDetails(ctx context.Context, orderID string) (*models.Order, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: blank order id", ErrInvalidArgument)
	}

	html, err := c.htmlPage(ctx, "/order/sales/"+orderID)
	if err != nil {
		return nil, OrderNotFoundError{OrderID: orderID, Err: err}
	}

	order, err := ParseOrderDetail(html, orderID, c.cfg.BaseURL)
	if err != nil {
		return nil, OrderNotFoundError{OrderID: orderID, Err: err}
	}

	urls, err := OrderItemURLs(html)
	if err != nil {
		return nil, OrderNotFoundError{OrderID: orderID, Err: err}
	}

	items := make([]models.Item, 0, len(urls))
	for _, u := range urls {
		itemID := ParseItemIDFromURL(u)
		item, err := c.GetItem(ctx, itemID)
		if err == nil {
			items = append(items, *item)
			continue
		}
		var notFound ItemNotFoundError
		if errors.As(err, &notFound) {
			items = append(items, models.Item{
				ID:          itemID,
				Title:       "Unknown",
				Description: "Unknown",
			})
			continue
		}
		return nil, OrderNotFoundError{OrderID: orderID, Err: err}
	}

	order.Items = items
	order.ItemCount = len(items)
	order.Title = orderTitle(orderID, items)
	if len(items) > 0 {
		order.ImageURL = items[0].ImageURL
	}
	return order, nil
}

// UpdateItem merges the given changes into the listing's current
// payload and writes it back. The write endpoint needs the CSRF token
// scraped from the edit page.
func (c *Client) UpdateItem(ctx context.Context, itemID string, upd ItemUpdate) error {
	item, err := c.GetItem(ctx, itemID)
	if err != nil {
		return err
	}

	token, err := c.csrfToken(ctx, itemID)
	if err != nil {
		return err
	}
	time.Sleep(c.cfg.UpdateDelay)

	payload := map[string]interface{}{"post": buildUpdatePayload(item, upd)}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-XSRF-TOKEN", token).
		SetHeader("Content-Type", "application/json").
		SetHeader("Referer", c.cfg.BaseURL+"/edit-listing/"+itemID).
		SetBody(payload).
		Post("/vm-rest/posts/" + itemID)
	if err != nil {
		return DataError{StatusCode: StatusUnknown, Message: err.Error()}
	}

	_, err = jsonBody(resp)
	return err
}

// csrfToken loads the edit page for a listing and scrapes the CSRF
// token out of its meta tag.
func (c *Client) csrfToken(ctx context.Context, itemID string) (string, error) {
	html, err := c.htmlPage(ctx, "/edit-listing/"+itemID)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", DataError{StatusCode: StatusUnknown, Message: "parsing edit page: " + err.Error()}
	}
	token, ok := doc.Find("#csrftoken").Attr("content")
	if !ok || token == "" {
		return "", DataError{StatusCode: StatusUnknown, Message: "edit page has no csrf token"}
	}
	return token, nil
}

func (c *Client) htmlPage(ctx context.Context, path string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("_", timestampParam()).
		Get(path)
	if err != nil {
		return "", DataError{StatusCode: StatusUnknown, Message: err.Error()}
	}
	if resp.StatusCode() >= 400 {
		return "", DataError{StatusCode: resp.StatusCode(), Message: strings.TrimSpace(resp.String())}
	}
	return resp.String(), nil
}

// jsonBody validates and decodes a JSON response. Error objects
// embedded in a 200 response are surfaced as DataError with the
// embedded status code.
func jsonBody(resp *resty.Response) (map[string]interface{}, error) {
	body := strings.TrimSpace(resp.String())

	if resp.StatusCode() >= 400 {
		msg := body
		if data, err := decodeJSONObject(body); err == nil {
			if m := embeddedErrorMessage(data); m != "" {
				msg = m
			}
		}
		return nil, DataError{StatusCode: resp.StatusCode(), Message: msg}
	}

	data, err := decodeJSONObject(body)
	if err != nil {
		return nil, DataError{StatusCode: 500, Message: err.Error()}
	}

	if errObj, ok := data["error"].(map[string]interface{}); ok {
		code := int(numberField(errObj, "statusCode"))
		if code >= 400 {
			msg := embeddedErrorMessage(data)
			if msg == "" {
				msg = "request rejected"
			}
			return nil, DataError{StatusCode: code, Message: msg}
		}
	}
	return data, nil
}

func decodeJSONObject(body string) (map[string]interface{}, error) {
	if !strings.HasPrefix(body, "{") {
		return nil, fmt.Errorf("response is not a JSON object")
	}
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return data, nil
}

func embeddedErrorMessage(data map[string]interface{}) string {
	errObj, ok := data["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	for _, key := range []string{"message", "errorMessage", "error_message"} {
		if s, ok := errObj[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func numberField(raw map[string]interface{}, key string) float64 {
	switch v := raw[key].(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

func nextCursor(data map[string]interface{}) string {
	more, ok := data["more"].(map[string]interface{})
	if !ok {
		return ""
	}
	return cursorString(more["next_max_id"])
}

func cursorString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

// cursorEnded reports whether a cursor marks the end of the list. The
// site sends a negative id past the last page.
func cursorEnded(cursor string) bool {
	if cursor == "" {
		return true
	}
	if n, err := strconv.ParseFloat(cursor, 64); err == nil && n <= 0 {
		return true
	}
	return false
}

// timestampParam mimics the cache-busting "_" query parameter the web
// app sends: unix seconds with fractional microseconds.
func timestampParam() string {
	return strconv.FormatFloat(float64(time.Now().UnixMicro())/1e6, 'f', 4, 64)
}
