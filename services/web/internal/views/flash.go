package views

import (
	"encoding/base64"
	"net/http"

	json "github.com/goccy/go-json"
)

const flashCookie = "animehub_flash"

type Flash struct {
	Kind    string `json:"k"`
	Message string `json:"m"`
}

const (
	FlashSuccess = "success"
	FlashWarning = "warning"
	FlashDanger  = "danger"
	FlashInfo    = "info"
)

// AddFlash queues a message for the next rendered page.
func AddFlash(w http.ResponseWriter, r *http.Request, kind, msg string) {
	flashes := append(readFlashes(r), Flash{Kind: kind, Message: msg})
	b, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(b),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlashes returns queued messages and clears the cookie.
func PopFlashes(w http.ResponseWriter, r *http.Request) []Flash {
	flashes := readFlashes(r)
	if len(flashes) == 0 {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return flashes
}

func readFlashes(r *http.Request) []Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	b, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var out []Flash
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}
