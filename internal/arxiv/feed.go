// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"strconv"
	"strings"
	"time"
)

// arXiv Atom feed XML structures.
type atomFeed struct {
	TotalResults int         `xml:"totalResults"`
	Entries      []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string     `xml:"id"`
	Title     string     `xml:"title"`
	Summary   string     `xml:"summary"`
	Published string     `xml:"published"`
	Links     []atomLink `xml:"link"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Title string `xml:"title,attr"`
}

// toResult converts an Atom entry into a RawResult. Entries without a
// recognizable identifier or publication date are dropped; the feed
// occasionally carries a blank trailing entry.
func (e atomEntry) toResult() (RawResult, bool) {
	id := extractArxivID(e.ID)
	if id == "" {
		return RawResult{}, false
	}

	published, err := time.Parse(time.RFC3339, e.Published)
	if err != nil {
		return RawResult{}, false
	}

	r := RawResult{
		ID:          id,
		Title:       collapseWhitespace(e.Title),
		Abstract:    collapseWhitespace(e.Summary),
		ArxivURL:    e.ID,
		PublishedAt: published,
	}

	for _, l := range e.Links {
		if l.Title == "pdf" {
			r.PDFURL = l.Href
		}
	}
	if r.PDFURL == "" {
		r.PDFURL = "https://arxiv.org/pdf/" + id
	}
	return r, true
}

// extractArxivID pulls the short-form ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}

// collapseWhitespace joins the multi-line title/abstract text the feed
// returns into single-spaced prose.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
