package httputil

import (
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// NewSiteClient builds the client used against the marketplace site
// itself. Requests there are dressed up as browser XHR calls; without
// these headers the site serves the full HTML app instead of JSON.
func NewSiteClient(baseURL, referer string, timeout time.Duration) *resty.Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", defaultUserAgent).
		SetHeader("Accept", "application/json, text/javascript, */*; q=0.01").
		SetHeader("Accept-Language", "en-US,en;q=0.5").
		SetHeader("Accept-Encoding", "gzip").
		SetHeader("X-Requested-With", "XMLHttpRequest").
		SetHeader("Referer", referer).
		SetRedirectPolicy(resty.NoRedirectPolicy())
}
