package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"unicode/utf8"

	"github.com/isdelr/inventory-tracker/internal/views"
)

const (
	flashCookieName = "flash"
	// flashNameLimit keeps item names in messages well under the browser's
	// 4 KB cookie limit.
	flashNameLimit = 60
)

func flashSuccess(msg string) views.Flash { return views.Flash{Category: "success", Message: msg} }
func flashError(msg string) views.Flash   { return views.Flash{Category: "error", Message: msg} }
func flashInfo(msg string) views.Flash    { return views.Flash{Category: "info", Message: msg} }

// flashName shortens an item name for use inside a flash message.
func flashName(name string) string {
	if utf8.RuneCountInString(name) <= flashNameLimit {
		return name
	}
	runes := []rune(name)
	return string(runes[:flashNameLimit-3]) + "..."
}

// setFlash stores messages for the next rendered page.
func setFlash(w http.ResponseWriter, msgs ...views.Flash) {
	if len(msgs) == 0 {
		return
	}
	raw, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlashes returns pending messages and clears them.
func popFlashes(w http.ResponseWriter, r *http.Request) []views.Flash {
	c, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var msgs []views.Flash
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil
	}
	return msgs
}

// redirectWithFlash sets messages and answers with 303 See Other.
func redirectWithFlash(w http.ResponseWriter, r *http.Request, to string, msgs ...views.Flash) {
	setFlash(w, msgs...)
	http.Redirect(w, r, to, http.StatusSeeOther)
}
