package jikan

import "strings"

// Genre is a genre tag as returned inside anime objects and by /genres/anime.
type Genre struct {
	MalID int    `json:"mal_id"`
	Name  string `json:"name"`
	Count int    `json:"count,omitempty"`
}

// Anime is the subset of the Jikan anime object the site renders.
// Optional upstream fields are pointers so absence is distinguishable.
type Anime struct {
	MalID        int      `json:"mal_id"`
	Title        string   `json:"title"`
	TitleEnglish *string  `json:"title_english"`
	Synopsis     *string  `json:"synopsis"`
	Score        *float64 `json:"score"`
	Images       struct {
		JPG struct {
			ImageURL      string `json:"image_url"`
			LargeImageURL string `json:"large_image_url"`
		} `json:"jpg"`
	} `json:"images"`
	Genres []Genre `json:"genres"`
}

// ImageURL prefers the large poster and falls back to the default one.
func (a Anime) ImageURL() string {
	if u := strings.TrimSpace(a.Images.JPG.LargeImageURL); u != "" {
		return u
	}
	return strings.TrimSpace(a.Images.JPG.ImageURL)
}

func (a Anime) SynopsisText() string {
	if a.Synopsis == nil {
		return ""
	}
	return strings.TrimSpace(*a.Synopsis)
}

// StreamingLink is one provider entry from /anime/{id}/streaming.
type StreamingLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (a Anime) validate() error {
	if a.MalID <= 0 {
		return errString("missing mal_id")
	}
	if strings.TrimSpace(a.Title) == "" {
		return errString("missing title")
	}
	return nil
}

type errString string

func (e errString) Error() string { return string(e) }
