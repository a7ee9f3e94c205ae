package archive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	httpclient "bookfetch/internal/http"
)

// loanServer scripts the loan endpoints per action.
func loanServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		action := r.PostForm.Get("action")
		h, ok := handlers[action]
		if !ok {
			t.Errorf("unexpected loan action %q", action)
			http.Error(w, "unexpected", 500)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func okJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}
}

func TestBorrow_IssuesToken(t *testing.T) {
	srv := loanServer(t, map[string]http.HandlerFunc{
		"grant_access": okJSON(`{"success":true}`),
		"browse_book":  okJSON(`{"success":true}`),
		"create_token": okJSON(`{"success":true,"token":"tok-1"}`),
	})

	lm := NewLoanManager(httpclient.NewClient(), srv.URL, nil)
	grant, err := lm.Borrow(context.Background(), "bk")
	if err != nil {
		t.Fatalf("Borrow() error = %v", err)
	}

	if grant.Token != "tok-1" {
		t.Errorf("Token = %q, want tok-1", grant.Token)
	}
	if !grant.Gated() {
		t.Error("Gated() = false, want true")
	}
	if lm.Current() != grant {
		t.Error("Current() does not hold the fresh grant")
	}
}

func TestBorrow_NotNeeded(t *testing.T) {
	srv := loanServer(t, map[string]http.HandlerFunc{
		"grant_access": okJSON(`{"success":true}`),
		"browse_book": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(400)
			fmt.Fprintf(w, `{"error":%q}`, notNeededMessage)
		},
	})

	lm := NewLoanManager(httpclient.NewClient(), srv.URL, nil)
	grant, err := lm.Borrow(context.Background(), "bk")
	if err != nil {
		t.Fatalf("Borrow() error = %v", err)
	}

	// A recognized "no loan required" answer yields a tokenless grant
	// and never reaches create_token.
	if grant.Gated() {
		t.Error("Gated() = true, want tokenless grant")
	}
}

func TestBorrow_RefusedIsFatal(t *testing.T) {
	srv := loanServer(t, map[string]http.HandlerFunc{
		"grant_access": okJSON(`{"success":true}`),
		"browse_book": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(400)
			fmt.Fprint(w, `{"error":"You have reached your loan limit."}`)
		},
	})

	lm := NewLoanManager(httpclient.NewClient(), srv.URL, nil)
	_, err := lm.Borrow(context.Background(), "bk")
	if !errors.Is(err, ErrLoan) {
		t.Errorf("Borrow() error = %v, want ErrLoan", err)
	}
}

func TestBorrow_MissingToken(t *testing.T) {
	srv := loanServer(t, map[string]http.HandlerFunc{
		"grant_access": okJSON(`{"success":true}`),
		"browse_book":  okJSON(`{"success":true}`),
		"create_token": okJSON(`{"success":true}`),
	})

	lm := NewLoanManager(httpclient.NewClient(), srv.URL, nil)
	_, err := lm.Borrow(context.Background(), "bk")
	if !errors.Is(err, ErrLoan) {
		t.Errorf("Borrow() error = %v, want ErrLoan", err)
	}
	if lm.Current() != nil {
		t.Error("Current() holds a grant after a failed borrow")
	}
}

func TestRefresh_CollapsesConcurrentCallers(t *testing.T) {
	var tokens atomic.Int32
	release := make(chan struct{})

	srv := loanServer(t, map[string]http.HandlerFunc{
		"grant_access": okJSON(`{"success":true}`),
		"browse_book":  okJSON(`{"success":true}`),
		"create_token": func(w http.ResponseWriter, r *http.Request) {
			<-release
			n := tokens.Add(1)
			fmt.Fprintf(w, `{"token":"tok-%d"}`, n)
		},
	})

	lm := NewLoanManager(httpclient.NewClient(), srv.URL, nil)

	const callers = 5
	var wg sync.WaitGroup
	grants := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			grant, err := lm.Refresh(context.Background(), "bk")
			if err != nil {
				t.Errorf("Refresh() error = %v", err)
				return
			}
			grants[i] = grant.Token
		}(i)
	}

	// The first caller is parked inside create_token; give the rest
	// time to join the in-flight borrow before letting it finish.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := tokens.Load(); n != 1 {
		t.Errorf("create_token called %d times, want 1", n)
	}
	for i, tok := range grants {
		if tok != "tok-1" {
			t.Errorf("caller %d got token %q, want tok-1", i, tok)
		}
	}
}

func TestReturn(t *testing.T) {
	returned := false
	srv := loanServer(t, map[string]http.HandlerFunc{
		"grant_access": okJSON(`{"success":true}`),
		"browse_book":  okJSON(`{"success":true}`),
		"create_token": okJSON(`{"token":"tok-1"}`),
		"return_loan": func(w http.ResponseWriter, r *http.Request) {
			returned = true
			fmt.Fprint(w, `{"success":true}`)
		},
	})

	lm := NewLoanManager(httpclient.NewClient(), srv.URL, nil)
	if _, err := lm.Borrow(context.Background(), "bk"); err != nil {
		t.Fatalf("Borrow() error = %v", err)
	}

	if err := lm.Return(context.Background(), "bk"); err != nil {
		t.Fatalf("Return() error = %v", err)
	}
	if !returned {
		t.Error("return_loan was never called")
	}
	if lm.Current() != nil {
		t.Error("Current() still holds a grant after Return")
	}
}

func TestReturn_Failure(t *testing.T) {
	srv := loanServer(t, map[string]http.HandlerFunc{
		"return_loan": okJSON(`{"success":false}`),
	})

	lm := NewLoanManager(httpclient.NewClient(), srv.URL, nil)
	if err := lm.Return(context.Background(), "bk"); !errors.Is(err, ErrLoan) {
		t.Errorf("Return() error = %v, want ErrLoan", err)
	}
}
