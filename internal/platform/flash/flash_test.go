package flash

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAddThenPop(t *testing.T) {
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/patients", nil), rec)
	Add(c, Warning, "You do not have permission to view this section.")

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != cookieName {
		t.Fatalf("expected one flash cookie, got %v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec2 := httptest.NewRecorder()
	c2 := e.NewContext(req, rec2)

	msgs := Pop(c2)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Level != Warning || msgs[0].Text != "You do not have permission to view this section." {
		t.Errorf("unexpected message: %+v", msgs[0])
	}

	cleared := rec2.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Errorf("expected flash cookie to be expired, got %v", cleared)
	}
}

func TestPop_Empty(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	if msgs := Pop(c); msgs != nil {
		t.Errorf("expected no messages, got %v", msgs)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("expected no cookie to be written")
	}
}

func TestPop_IgnoresGarbage(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "%%%not-base64"})
	c := e.NewContext(req, httptest.NewRecorder())

	if msgs := Pop(c); msgs != nil {
		t.Errorf("expected nil for malformed cookie, got %v", msgs)
	}
}
