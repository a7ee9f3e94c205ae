package archive

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpclient "bookfetch/internal/http"
)

func TestSearch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/advancedsearch.php" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprint(w, `{"response":{"docs":[`+
			`{"identifier":"bk1","title":"First Book","creator":["A. Author","B. Author"],`+
			`"date":"1987-01-01","item_size":1000,"imagecount":120,"downloads":42,`+
			`"collection":["inlibrary"]},`+
			`{"identifier":"shell","title":"Empty Shell","item_size":0,"imagecount":0},`+
			`{"identifier":"bk2","title":"Second Book","item_size":"2000","imagecount":"55"}`+
			`]}}`)
	}))
	defer srv.Close()

	s := NewSearcher(httpclient.NewClient(), srv.URL)
	results, err := s.Search(context.Background(), "go programming", 10, 1, false)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if !strings.Contains(gotQuery, "(go programming)") ||
		!strings.Contains(gotQuery, "mediatype:texts") ||
		!strings.Contains(gotQuery, "-mediatype:collection") {
		t.Errorf("query = %q, missing book-shaped constraints", gotQuery)
	}
	if strings.Contains(gotQuery, "access-restricted-item") {
		t.Errorf("query = %q, unexpected restriction filter", gotQuery)
	}

	// The empty shell row is skipped.
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	first := results[0]
	if first.Identifier != "bk1" {
		t.Errorf("Identifier = %q, want bk1", first.Identifier)
	}
	if first.Creator != "A. Author; B. Author" {
		t.Errorf("Creator = %q, want joined author list", first.Creator)
	}
	if first.ImageCount != 120 || first.ItemSize != 1000 || first.Downloads != 42 {
		t.Errorf("numeric fields = %d/%d/%d, want 120/1000/42", first.ImageCount, first.ItemSize, first.Downloads)
	}
	if !first.Restricted {
		t.Error("Restricted = false, want true for a lending-collection doc")
	}

	// Numeric fields that arrive as strings still parse.
	if results[1].ImageCount != 55 || results[1].ItemSize != 2000 {
		t.Errorf("string-typed numerics = %d/%d, want 55/2000", results[1].ImageCount, results[1].ItemSize)
	}
	if results[1].Creator != "Unknown Author" {
		t.Errorf("Creator = %q, want Unknown Author fallback", results[1].Creator)
	}
}

func TestSearch_FilterRestricted(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprint(w, `{"response":{"docs":[]}}`)
	}))
	defer srv.Close()

	s := NewSearcher(httpclient.NewClient(), srv.URL)
	if _, err := s.Search(context.Background(), "anything", 5, 1, true); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if !strings.Contains(gotQuery, "-access-restricted-item:true") {
		t.Errorf("query = %q, missing restriction filter", gotQuery)
	}
}
