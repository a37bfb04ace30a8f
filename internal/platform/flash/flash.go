// Package flash carries one-shot user messages across a redirect in a
// cookie. Messages are read and cleared by the next request that pops them.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
)

const cookieName = "flash"

type Level string

const (
	Info    Level = "info"
	Warning Level = "warning"
	Error   Level = "error"
)

type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// Add appends a message to the messages already pending for this client.
func Add(c echo.Context, level Level, text string) {
	msgs := append(read(c), Message{Level: level, Text: text})
	raw, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	c.SetCookie(&http.Cookie{
		Name:     cookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop returns the pending messages and expires the cookie.
func Pop(c echo.Context) []Message {
	msgs := read(c)
	if len(msgs) > 0 {
		c.SetCookie(&http.Cookie{
			Name:     cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return msgs
}

func read(c echo.Context) []Message {
	cookie, err := c.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var msgs []Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil
	}
	return msgs
}
