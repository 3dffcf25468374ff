package searchapi

import (
	"context"
	"encoding/json"
	"strconv"

	"grantreview/internal/pipeline"
)

type searchRequest struct {
	Search string `json:"search"`
	Top    int    `json:"top"`
	Count  bool   `json:"count"`
}

// document is one hit of the executive-order index. page_number may be a
// number or a string depending on how the index was built.
type document struct {
	ID                   string          `json:"id"`
	Title                string          `json:"title"`
	Content              string          `json:"content"`
	ExecutiveOrderNumber string          `json:"executive_order_number"`
	EffectiveDate        string          `json:"effective_date"`
	DocumentType         string          `json:"document_type"`
	PageNumber           json.RawMessage `json:"page_number"`
	URL                  string          `json:"url"`
	Score                float64         `json:"@search.score"`
}

type searchResponse struct {
	Count *int       `json:"@odata.count"`
	Value []document `json:"value"`
}

// Search implements pipeline.Searcher.
func (c *Client) Search(ctx context.Context, query string, topK int) ([]pipeline.Passage, error) {
	if topK <= 0 {
		topK = 5
	}
	var rs searchResponse
	err := c.doJSON(ctx, "POST", c.indexURL("/docs/search"), "search documents",
		searchRequest{Search: query, Top: topK, Count: true}, &rs)
	if err != nil {
		return nil, err
	}

	out := make([]pipeline.Passage, 0, len(rs.Value))
	for _, d := range rs.Value {
		out = append(out, d.passage())
	}
	if rs.Count != nil {
		c.logger.Debugw("search complete", "hits", len(out), "total", *rs.Count)
	}
	return out, nil
}

func (d document) passage() pipeline.Passage {
	md := map[string]string{
		pipeline.MetaEONumber: d.ExecutiveOrderNumber,
		pipeline.MetaTitle:    d.Title,
		pipeline.MetaScore:    strconv.FormatFloat(d.Score, 'f', 4, 64),
	}
	if d.EffectiveDate != "" {
		md[pipeline.MetaEffectiveDate] = d.EffectiveDate
	}
	if d.DocumentType != "" {
		md[pipeline.MetaDocumentType] = d.DocumentType
	}
	if p := pageNumber(d.PageNumber); p != "" {
		md[pipeline.MetaPageNumber] = p
	}
	if d.URL != "" {
		md[pipeline.MetaURL] = d.URL
	}
	return pipeline.Passage{SourceID: d.ID, Excerpt: d.Content, Metadata: md}
}

func pageNumber(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.Itoa(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
