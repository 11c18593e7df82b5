package main

import (
	"net/http"
	"strings"
	"testing"
)

func TestCreateQuoteEndToEnd(t *testing.T) {
	h := newTestHandler(t)

	req := createQuoteRequest{
		CustomerName:  "ACME Plastics",
		CustomerEmail: "buyer@acme.test",
		UserInitials:  "rb",
		Items: []createQuoteItem{
			{PartNumber: "LS2000-115VAC-S-10", Quantity: 2},
			{PartNumber: "LS2000-FUSE", Spare: true},
		},
	}
	rr := doJSON(t, h, http.MethodPost, "/api/quotes", req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var created quoteView
	decodeBody(t, rr, &created)

	if !strings.HasPrefix(created.QuoteNumber, "RB") || !strings.HasSuffix(created.QuoteNumber, "A") || len(created.QuoteNumber) != 9 {
		t.Fatalf("quote number = %q, want RB<MMDDYY>A", created.QuoteNumber)
	}
	if created.TotalPrice != "860.00" {
		t.Fatalf("total = %s, want 850.00 parts + 10.00 fuse", created.TotalPrice)
	}
	if len(created.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(created.Items))
	}
	if created.Items[0].LineTotal != "850.00" || created.Items[0].Description != "LS2000 - 115VAC" {
		t.Fatalf("unexpected first item: %+v", created.Items[0])
	}
	if len(created.Items[0].Breakdown) == 0 {
		t.Fatal("priced part should carry its breakdown")
	}
	if created.Items[1].Description != "LS2000 Fuse" || created.Items[1].UnitPrice != "10.00" {
		t.Fatalf("unexpected spare item: %+v", created.Items[1])
	}

	// The saved quote is retrievable by number.
	rr = doJSON(t, h, http.MethodGet, "/api/quotes/"+created.QuoteNumber, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 on detail, got %d", rr.Code)
	}
	var loaded quoteView
	decodeBody(t, rr, &loaded)
	if loaded.QuoteNumber != created.QuoteNumber || len(loaded.Items) != 2 {
		t.Fatalf("reloaded quote mismatch: %+v", loaded)
	}
}

func TestCreateQuoteNumbersIncrement(t *testing.T) {
	h := newTestHandler(t)

	req := createQuoteRequest{
		UserInitials: "ZF",
		Items:        []createQuoteItem{{PartNumber: "LS2000-115VAC-S-10"}},
	}

	rr := doJSON(t, h, http.MethodPost, "/api/quotes", req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("first create: expected 201, got %d", rr.Code)
	}
	var first quoteView
	decodeBody(t, rr, &first)

	rr = doJSON(t, h, http.MethodPost, "/api/quotes", req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("second create: expected 201, got %d", rr.Code)
	}
	var second quoteView
	decodeBody(t, rr, &second)

	if !strings.HasSuffix(first.QuoteNumber, "A") || !strings.HasSuffix(second.QuoteNumber, "B") {
		t.Fatalf("expected A then B, got %s and %s", first.QuoteNumber, second.QuoteNumber)
	}
}

func TestCreateQuoteRejectsBadPartNumber(t *testing.T) {
	h := newTestHandler(t)

	req := createQuoteRequest{
		UserInitials: "RB",
		Items:        []createQuoteItem{{PartNumber: "XX9000-10"}},
	}
	rr := doJSON(t, h, http.MethodPost, "/api/quotes", req)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rr.Code)
	}

	var body map[string]string
	decodeBody(t, rr, &body)
	if !strings.Contains(body["error"], "unknown model") {
		t.Fatalf("unexpected error: %q", body["error"])
	}
}

func TestCreateQuoteRejectsUnresolvedSpare(t *testing.T) {
	h := newTestHandler(t)

	req := createQuoteRequest{
		UserInitials: "RB",
		Items:        []createQuoteItem{{PartNumber: "WIDGET", Spare: true}},
	}
	rr := doJSON(t, h, http.MethodPost, "/api/quotes", req)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rr.Code)
	}
}

func TestCreateQuoteRequestValidation(t *testing.T) {
	h := newTestHandler(t)

	cases := []struct {
		name string
		req  createQuoteRequest
	}{
		{"missing initials", createQuoteRequest{Items: []createQuoteItem{{PartNumber: "LS2000-115VAC-S-10"}}}},
		{"no items", createQuoteRequest{UserInitials: "RB"}},
		{"blank item part number", createQuoteRequest{UserInitials: "RB", Items: []createQuoteItem{{PartNumber: "  "}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, h, http.MethodPost, "/api/quotes", tc.req)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rr.Code)
			}
		})
	}
}

func TestQuotesListAndFilter(t *testing.T) {
	h := newTestHandler(t)

	for _, req := range []createQuoteRequest{
		{CustomerName: "ACME Plastics", UserInitials: "RB", Items: []createQuoteItem{{PartNumber: "LS2000-115VAC-S-10"}}},
		{CustomerName: "Globex", UserInitials: "ZF", Items: []createQuoteItem{{PartNumber: "LS2100-24VDC-S-10"}}},
	} {
		rr := doJSON(t, h, http.MethodPost, "/api/quotes", req)
		if rr.Code != http.StatusCreated {
			t.Fatalf("create: expected 201, got %d: %s", rr.Code, rr.Body.String())
		}
	}

	rr := doJSON(t, h, http.MethodGet, "/api/quotes", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var all []quoteSummaryView
	decodeBody(t, rr, &all)
	if len(all) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(all))
	}

	rr = doJSON(t, h, http.MethodGet, "/api/quotes?q=ACME", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var filtered []quoteSummaryView
	decodeBody(t, rr, &filtered)
	if len(filtered) != 1 || filtered[0].CustomerName != "ACME Plastics" {
		t.Fatalf("unexpected filter result: %+v", filtered)
	}
}

func TestQuoteDetailNotFound(t *testing.T) {
	h := newTestHandler(t)

	rr := doJSON(t, h, http.MethodGet, "/api/quotes/RB000000X", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}
