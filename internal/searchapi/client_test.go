package searchapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"grantreview/internal/pipeline"
)

func TestSearch(t *testing.T) {
	var got searchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/indexes/executive-orders/docs/search" || r.Method != "POST" {
			http.NotFound(w, r)
			return
		}
		if v := r.URL.Query().Get("api-version"); v != DefaultAPIVersion {
			t.Errorf("api-version: got %q want %q", v, DefaultAPIVersion)
		}
		if k := r.Header.Get("api-key"); k != "secret" {
			t.Errorf("api-key: got %q", k)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{
			"@odata.count": 2,
			"value": [
				{"id": "eo-14008-3", "title": "Tackling the Climate Crisis", "content": "Agencies shall...",
				 "executive_order_number": "14008", "effective_date": "2021-01-27",
				 "document_type": "Executive Order", "page_number": 3, "@search.score": 4.25},
				{"id": "eo-14057-1", "title": "Clean Energy", "content": "Recipients must...",
				 "executive_order_number": "14057", "page_number": "1", "@search.score": 2}
			]}`))
	}))
	defer server.Close()

	client, err := New(server.URL+"/", "executive-orders", "secret", WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatal(err)
	}
	passages, err := client.Search(context.Background(), "clean energy", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got.Search != "clean energy" || got.Top != 2 || !got.Count {
		t.Errorf("unexpected request: %+v", got)
	}
	if len(passages) != 2 {
		t.Fatalf("got %d passages, want 2", len(passages))
	}
	p := passages[0]
	if p.SourceID != "eo-14008-3" || p.Excerpt != "Agencies shall..." {
		t.Errorf("unexpected passage: %+v", p)
	}
	want := map[string]string{
		pipeline.MetaEONumber:      "14008",
		pipeline.MetaTitle:         "Tackling the Climate Crisis",
		pipeline.MetaEffectiveDate: "2021-01-27",
		pipeline.MetaDocumentType:  "Executive Order",
		pipeline.MetaPageNumber:    "3",
		pipeline.MetaScore:         "4.2500",
	}
	for k, v := range want {
		if p.Metadata[k] != v {
			t.Errorf("metadata[%s]: got %q want %q", k, p.Metadata[k], v)
		}
	}
	if page := passages[1].Metadata[pipeline.MetaPageNumber]; page != "1" {
		t.Errorf("string page number: got %q", page)
	}
}

func TestSearch_EmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value": []}`))
	}))
	defer server.Close()

	client, _ := New(server.URL, "idx", "", WithHTTPClient(server.Client()))
	passages, err := client.Search(context.Background(), "anything", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(passages) != 0 {
		t.Errorf("got %d passages, want 0", len(passages))
	}
}

func TestSearch_IndexNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": {"code": "", "message": "The index 'idx' for service 'svc' was not found."}}`))
	}))
	defer server.Close()

	client, _ := New(server.URL, "idx", "k", WithHTTPClient(server.Client()))
	_, err := client.Search(context.Background(), "q", 5)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotFound(err) {
		t.Errorf("expected IsNotFound, got: %v", err)
	}
}

func TestSearch_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client, _ := New(server.URL, "idx", "bad", WithHTTPClient(server.Client()))
	_, err := client.Search(context.Background(), "q", 5)
	if !IsUnauthorized(err) {
		t.Errorf("expected IsUnauthorized, got: %v", err)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "idx", "k"); err == nil {
		t.Error("expected error for empty endpoint")
	}
	if _, err := New("http://x", "", "k"); err == nil {
		t.Error("expected error for empty index")
	}
	if _, err := New("http://x", "idx", "k", WithTimeout(-1)); err == nil {
		t.Error("expected error for negative timeout")
	}
	c, err := New("http://x", "my index", "k", WithAPIVersion("2024-07-01"))
	if err != nil {
		t.Fatal(err)
	}
	if u := c.indexURL("/docs/search"); u != "http://x/indexes/my%20index/docs/search?api-version=2024-07-01" {
		t.Errorf("indexURL: got %q", u)
	}
}
