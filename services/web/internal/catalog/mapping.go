package catalog

import (
	"strings"

	"github.com/example/animehub/services/web/internal/jikan"
	"github.com/example/animehub/services/web/internal/store"
)

// FromUpstream builds the cache snapshot for one anime.
func FromUpstream(a jikan.Anime, links []jikan.StreamingLink) store.Anime {
	out := store.Anime{
		MalID:          a.MalID,
		Title:          strings.TrimSpace(a.Title),
		Synopsis:       a.SynopsisText(),
		ImageURL:       a.ImageURL(),
		Score:          a.Score,
		StreamingLinks: make([]store.StreamingLink, 0, len(links)),
		Genres:         make([]store.Genre, 0, len(a.Genres)),
	}
	for _, l := range links {
		out.StreamingLinks = append(out.StreamingLinks, store.StreamingLink{Name: l.Name, URL: l.URL})
	}
	for _, g := range a.Genres {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			continue
		}
		out.Genres = append(out.Genres, store.Genre{MalID: g.MalID, Name: name})
	}
	return out
}
