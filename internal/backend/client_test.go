package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spec-kit/ticket-relay/internal/session"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientOptions{BaseURL: srv.URL + "/", Timeout: 5 * time.Second}, nil)
}

func TestListTicketsForwardsCredentialAndFilters(t *testing.T) {
	var gotCookie, gotPath string
	var gotFilters [][3]string
	var gotFields []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotPath = r.URL.Path
		_ = json.Unmarshal([]byte(r.URL.Query().Get("filters")), &gotFilters)
		_ = json.Unmarshal([]byte(r.URL.Query().Get("fields")), &gotFields)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[{"name":"REQ-1","status":"Created"}]}`)
	})

	tickets, err := client.ListTickets(context.Background(), session.Credential("sid=abc"),
		[]Filter{Eq("raised_by", "alice"), Ne("status", "Accepted")}, TicketFields)
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if len(tickets) != 1 || tickets[0].Name != "REQ-1" {
		t.Fatalf("tickets = %+v", tickets)
	}
	if gotCookie != "sid=abc" {
		t.Fatalf("cookie = %q", gotCookie)
	}
	if gotPath != "/api/resource/Request Tickets" {
		t.Fatalf("path = %q", gotPath)
	}
	if len(gotFilters) != 2 || gotFilters[1] != [3]string{"status", "!=", "Accepted"} {
		t.Fatalf("filters = %v", gotFilters)
	}
	if len(gotFields) != len(TicketFields) {
		t.Fatalf("fields = %v", gotFields)
	}
}

func TestNonOKIsFetchError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"exc_type":"PermissionError"}`)
	})

	_, err := client.GetTicket(context.Background(), session.Credential("sid=abc"), "REQ-1")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Status != http.StatusForbidden {
		t.Fatalf("err = %v, want FetchError 403", err)
	}
	if !IsStatus(err, http.StatusForbidden) {
		t.Fatalf("IsStatus did not match")
	}
}

func TestUnreachableIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	client := NewClient(ClientOptions{BaseURL: url, Timeout: time.Second}, nil)

	_, err := client.LoggedUser(context.Background(), session.Credential("sid=abc"))
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("err = %v, want ErrUnreachable", err)
	}
}

func TestMalformedPayloadIsDecodeError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>oops</html>`)
	})

	_, err := client.ListTickets(context.Background(), "", nil, nil)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
}

func TestRotatedSessionReachesSink(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "rotated", Path: "/"})
		_, _ = io.WriteString(w, `{"message":"alice@example.com"}`)
	})

	sink := &session.Sink{}
	ctx := session.WithSink(context.Background(), sink)
	user, err := client.LoggedUser(ctx, session.Credential("sid=old"))
	if err != nil {
		t.Fatalf("LoggedUser: %v", err)
	}
	if user != "alice@example.com" {
		t.Fatalf("user = %q", user)
	}
	if sink.SID() != "rotated" {
		t.Fatalf("sink = %q, want rotated", sink.SID())
	}
}

func TestLoginPostsFormAndExtractsSID(t *testing.T) {
	var usr, pwd string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		usr, pwd = r.PostForm.Get("usr"), r.PostForm.Get("pwd")
		http.SetCookie(w, &http.Cookie{Name: "system_user", Value: "yes"})
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "fresh"})
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"message":"Logged In","full_name":"Alice"}`)
	})

	res, err := client.Login(context.Background(), LoginForm{User: "alice", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if usr != "alice" || pwd != "pw" {
		t.Fatalf("form = %q/%q", usr, pwd)
	}
	if res.Status != http.StatusOK || res.SID != "fresh" {
		t.Fatalf("result = %+v", res)
	}
}

func TestUploadFileSendsMultipart(t *testing.T) {
	var fileName, folder, content string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		folder = r.FormValue("folder")
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		raw, _ := io.ReadAll(file)
		fileName, content = header.Filename, string(raw)
		_, _ = io.WriteString(w, `{"message":{"file_url":"/files/report.pdf","file_name":"report.pdf"}}`)
	})

	uploaded, err := client.UploadFile(context.Background(), session.Credential("sid=abc"), FileUpload{
		FileName: "report.pdf",
		Content:  []byte("%PDF"),
		Folder:   "Home/Attachments",
	})
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if uploaded.Reference() != "/files/report.pdf" {
		t.Fatalf("reference = %q", uploaded.Reference())
	}
	if fileName != "report.pdf" || content != "%PDF" || folder != "Home/Attachments" {
		t.Fatalf("upload saw %q %q %q", fileName, content, folder)
	}
}

func TestWebhookNotConfigured(t *testing.T) {
	hooks := NewWebhookClient("", "", time.Second, nil)
	_, err := hooks.CreateTicket(context.Background(), CreateTicketPayload{Issue: "x"})
	if !errors.Is(err, ErrWebhookNotConfigured) || !errors.Is(err, ErrUnreachable) {
		t.Fatalf("err = %v", err)
	}
}
