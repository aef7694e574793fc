package callback

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/sarathss100/eve-client/internal/booking"
)

func get(t *testing.T, s *Server, target string) *http.Response {
	t.Helper()
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("request %s: %v", target, err)
	}
	return resp
}

func TestReturnParamsDeliveredOnce(t *testing.T) {
	s := NewServer(zap.NewNop())

	resp := get(t, s, "/?success=true&event_id=ev1&session_id=cs_1")
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("status = %d, want 303 redirect", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want / (query stripped)", loc)
	}

	select {
	case params := <-s.Returns():
		want := booking.ReturnParams{SessionID: "cs_1", EventID: "ev1", Success: true}
		if params != want {
			t.Errorf("params = %+v, want %+v", params, want)
		}
	default:
		t.Fatal("no return parameters delivered")
	}
}

func TestDuplicateReturnIgnored(t *testing.T) {
	s := NewServer(zap.NewNop())

	get(t, s, "/?success=true&event_id=ev1&session_id=cs_1")
	// A refresh replays the redirect; the duplicate must not block or
	// queue a second reconciliation.
	resp := get(t, s, "/?success=true&event_id=ev1&session_id=cs_1")
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("duplicate status = %d, want 303", resp.StatusCode)
	}

	<-s.Returns()
	select {
	case params := <-s.Returns():
		t.Errorf("duplicate delivery: %+v", params)
	default:
	}
}

func TestFailureReturn(t *testing.T) {
	s := NewServer(zap.NewNop())

	get(t, s, "/?success=false&event_id=ev1&session_id=cs_1")

	params := <-s.Returns()
	if params.Success {
		t.Error("cancelled checkout reported as success")
	}
}

func TestBareVisitServesLandingPage(t *testing.T) {
	s := NewServer(zap.NewNop())

	resp := get(t, s, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "return to the terminal") {
		t.Errorf("unexpected landing page body: %s", body)
	}

	select {
	case params := <-s.Returns():
		t.Errorf("bare visit delivered parameters: %+v", params)
	default:
	}
}

func TestPartialParamsTreatedAsBareVisit(t *testing.T) {
	s := NewServer(zap.NewNop())

	resp := get(t, s, "/?success=true&event_id=ev1")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 landing page", resp.StatusCode)
	}

	select {
	case params := <-s.Returns():
		t.Errorf("partial parameters delivered: %+v", params)
	default:
	}
}
