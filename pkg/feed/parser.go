package feed

import (
	"io"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/umputun/newsdesk/pkg/domain"
)

// Parse reads RSS (or Atom) document and returns its items as is, no normalization done.
// Missing elements end up as empty strings and zero time.
func Parse(r io.Reader) ([]domain.RawItem, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, err
	}

	items := make([]domain.RawItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		raw := domain.RawItem{
			Title:       item.Title,
			Description: item.Description,
			Link:        strings.TrimSpace(item.Link),
			Published:   item.Published,
		}

		// published time, fall back to updated for atom entries
		switch {
		case item.PublishedParsed != nil:
			raw.PublishedParsed = *item.PublishedParsed
		case item.UpdatedParsed != nil:
			raw.PublishedParsed = *item.UpdatedParsed
			if raw.Published == "" {
				raw.Published = item.Updated
			}
		}

		items = append(items, raw)
	}
	return items, nil
}
