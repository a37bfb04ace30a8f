package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(query string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", DefaultLimit, 0},
		{"limit=50&offset=10", 50, 10},
		{"limit=1000", MaxLimit, 0},
		{"limit=-5&offset=-3", DefaultLimit, 0},
		{"limit=10&page=3", 10, 20},
		{"limit=10&page=3&offset=5", 10, 20},
		{"page=0&offset=7", DefaultLimit, 7},
		{"limit=abc", DefaultLimit, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			p := paramsFor(tt.query)
			if p.Limit != tt.wantLimit {
				t.Errorf("expected limit %d, got %d", tt.wantLimit, p.Limit)
			}
			if p.Offset != tt.wantOffset {
				t.Errorf("expected offset %d, got %d", tt.wantOffset, p.Offset)
			}
		})
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse([]string{"a", "b"}, 50, 20, 20)

	if resp.Total != 50 || resp.Limit != 20 || resp.Offset != 20 {
		t.Errorf("unexpected response %+v", resp)
	}
	if !resp.HasMore {
		t.Error("expected has_more")
	}
	if resp.NextOffset == nil || *resp.NextOffset != 40 {
		t.Errorf("expected next offset 40, got %v", resp.NextOffset)
	}
	if resp.PreviousOffset == nil || *resp.PreviousOffset != 0 {
		t.Errorf("expected previous offset 0, got %v", resp.PreviousOffset)
	}
}

func TestNewResponse_SinglePage(t *testing.T) {
	resp := NewResponse([]string{}, 3, 20, 0)
	if resp.HasMore || resp.NextOffset != nil || resp.PreviousOffset != nil {
		t.Errorf("expected a single page, got %+v", resp)
	}
}

func TestParams_PreviousOffset(t *testing.T) {
	tests := []struct {
		p    Params
		want int
	}{
		{Params{Limit: 20, Offset: 40}, 20},
		{Params{Limit: 20, Offset: 10}, 0},
		{Params{Limit: 20, Offset: 0}, 0},
	}
	for _, tt := range tests {
		if got := tt.p.PreviousOffset(); got != tt.want {
			t.Errorf("PreviousOffset(%+v) = %d, want %d", tt.p, got, tt.want)
		}
	}
}
