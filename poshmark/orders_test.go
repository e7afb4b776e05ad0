package poshmark

import (
	"testing"
	"time"
)

func TestParseOrderSummaries(t *testing.T) {
	orders, err := ParseOrderSummaries(string(loadFixture(t, "order_summaries.html")), testBaseURL)
	if err != nil {
		t.Fatalf("ParseOrderSummaries failed: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("got %d orders, want 2", len(orders))
	}

	first := orders[0]
	if first.ID != "ord111aaa" {
		t.Fatalf("id = %q, want ord111aaa", first.ID)
	}
	if first.Title != "Vintage Denim Jacket" {
		t.Fatalf("title = %q", first.Title)
	}
	if got := first.OrderTotal.String(); got != "$39.00" {
		t.Fatalf("total = %q, want $39.00", got)
	}
	if first.Size != "M" || first.ItemCount != 1 {
		t.Fatalf("size/count = %q/%d, want M/1", first.Size, first.ItemCount)
	}
	if first.BuyerUsername != "coolbuyer123" || first.Status != "Delivered" {
		t.Fatalf("buyer/status = %q/%q", first.BuyerUsername, first.Status)
	}
	if first.ImageURL != "https://img.example.com/o1.jpg" {
		t.Fatalf("image = %q", first.ImageURL)
	}
	if first.URL != testBaseURL+"/order/sales/ord111aaa" {
		t.Fatalf("url = %q", first.URL)
	}
	if first.ShippingLabelURL != testBaseURL+"/order/sales/ord111aaa/download_shipping_label_link" {
		t.Fatalf("label url = %q", first.ShippingLabelURL)
	}

	second := orders[1]
	if second.ID != "ord222bbb" || second.ItemCount != 2 {
		t.Fatalf("second id/count = %q/%d, want ord222bbb/2", second.ID, second.ItemCount)
	}
	if second.Size != "" {
		t.Fatalf("multi-item size = %q, want empty", second.Size)
	}
}

func TestParseOrderSummariesEmpty(t *testing.T) {
	orders, err := ParseOrderSummaries("<div class=\"tiles-con\"></div>", testBaseURL)
	if err != nil {
		t.Fatalf("ParseOrderSummaries failed: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("got %d orders, want 0", len(orders))
	}
}

func TestParseOrderDetail(t *testing.T) {
	html := string(loadFixture(t, "order_detail.html"))
	order, err := ParseOrderDetail(html, "ord111aaa", testBaseURL)
	if err != nil {
		t.Fatalf("ParseOrderDetail failed: %v", err)
	}

	if got := order.OrderTotal.String(); got != "$28.00" {
		t.Fatalf("total = %q, want $28.00", got)
	}
	if got := order.Fee.String(); got != "$4.70" {
		t.Fatalf("fee = %q, want $4.70", got)
	}
	if got := order.Earnings.String(); got != "$26.30" {
		t.Fatalf("earnings = %q, want $26.30", got)
	}
	if got := order.Tax.String(); got != "$3.24" {
		t.Fatalf("tax = %q, want $3.24", got)
	}
	if order.BuyerUsername != "coolbuyer123" {
		t.Fatalf("buyer = %q, want coolbuyer123", order.BuyerUsername)
	}
	want := time.Date(2020, 5, 24, 0, 0, 0, 0, time.UTC)
	if !order.OrderDate.Equal(want) {
		t.Fatalf("date = %v, want %v", order.OrderDate, want)
	}
	if order.Status != "Shipped" {
		t.Fatalf("status = %q, want Shipped", order.Status)
	}

	urls, err := OrderItemURLs(html)
	if err != nil {
		t.Fatalf("OrderItemURLs failed: %v", err)
	}
	if len(urls) != 1 || urls[0] != "/listing/Vintage-Denim-Jacket-abc123" {
		t.Fatalf("item urls = %v", urls)
	}
}

func TestParseOrderDetailDefaults(t *testing.T) {
	order, err := ParseOrderDetail("<div></div>", "ord999", testBaseURL)
	if err != nil {
		t.Fatalf("ParseOrderDetail failed: %v", err)
	}
	if order.Status != "Unknown" || order.BuyerUsername != "Unknown" {
		t.Fatalf("status/buyer = %q/%q, want Unknown/Unknown", order.Status, order.BuyerUsername)
	}
	if got := order.OrderTotal.String(); got != "$0.00" {
		t.Fatalf("total = %q, want $0.00", got)
	}
	if time.Since(order.OrderDate) > time.Minute {
		t.Fatalf("missing date should fall back to now, got %v", order.OrderDate)
	}
}

func TestParseItemIDFromURL(t *testing.T) {
	cases := []struct{ in, want string }{
		{"/listing/Vintage-Denim-Jacket-abc123", "abc123"},
		{"https://poshmark.example/listing/Great-Shirt-5e99ff?ref=closet", "5e99ff"},
		{"plainid", "plainid"},
	}
	for _, c := range cases {
		if got := ParseItemIDFromURL(c.in); got != c.want {
			t.Fatalf("ParseItemIDFromURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
