package matching

// Page is one fixed-size slice of a stored ranking.
type Page struct {
	Items   []TopResponse
	HasPrev bool
	HasNext bool
}

// MaxPages reports how many pages a ranking of itemCount entries spans.
func MaxPages(itemCount, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (itemCount + pageSize - 1) / pageSize
}

// Paginate slices a stored ranking into the requested page. The page size is
// fixed by corpus configuration, never caller supplied. Page numbers below 1
// yield an empty page; callers decide whether that is an error (the service
// treats any page outside 1..MaxPages as not found).
func Paginate(record ScoringRecord, pageNumber, pageSize int) Page {
	maxPages := MaxPages(len(record.Scores), pageSize)
	page := Page{
		HasPrev: pageNumber > 1 && pageNumber <= maxPages,
		HasNext: pageNumber >= 1 && pageNumber < maxPages,
	}
	if pageNumber < 1 {
		page.Items = []TopResponse{}
		return page
	}

	ids := rankedIDs(record)
	start := (pageNumber - 1) * pageSize
	if start >= len(ids) {
		page.Items = []TopResponse{}
		return page
	}
	end := start + pageSize
	if end > len(ids) {
		end = len(ids)
	}

	page.Items = make([]TopResponse, 0, end-start)
	for _, id := range ids[start:end] {
		entry := record.Scores[id]
		page.Items = append(page.Items, TopResponse{
			FAQID:   id,
			Title:   entry.Title,
			Content: entry.Content,
		})
	}
	return page
}
