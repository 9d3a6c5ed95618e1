package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Errorf("got %s %s, want POST /auth/login", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body["email"] != "rider@resq.app" || body["password"] != "secret" {
			t.Errorf("credentials = %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "jwt-token"})
	}))
	defer srv.Close()

	token, err := NewClient(srv.URL, "").Login(context.Background(), "rider@resq.app", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token != "jwt-token" {
		t.Errorf("token = %q, want jwt-token", token)
	}
}

func TestLoginRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, "").Login(context.Background(), "x", "y"); err == nil {
		t.Error("Login() expected error for 401")
	}
}

func TestOrderMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages/order/order42" {
			t.Errorf("path = %s, want /messages/order/order42", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q, want Bearer tok", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"messages": []HistoryMessage{
				{OrderID: "order42", FromID: "s1", From: "Padaria Central", Content: "hi"},
			},
		})
	}))
	defer srv.Close()

	msgs, err := NewClient(srv.URL, "tok").OrderMessages(context.Background(), "order42")
	if err != nil {
		t.Fatalf("OrderMessages() error = %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hi" {
		t.Errorf("messages = %v, want one message with content hi", msgs)
	}
}

func TestMarkOrderRead(t *testing.T) {
	var marked bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/messages/order/order42/read" {
			marked = true
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL, "tok").MarkOrderRead(context.Background(), "order42"); err != nil {
		t.Fatalf("MarkOrderRead() error = %v", err)
	}
	if !marked {
		t.Error("read endpoint not called")
	}
}

func TestListReservations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"reservations": []Reservation{
				{OrderID: "order42", LotTitle: "day-old bread", StoreName: "Padaria Central", Status: "reserved", PickupCode: "RSQ-42"},
			},
		})
	}))
	defer srv.Close()

	rs, err := NewClient(srv.URL, "tok").ListReservations(context.Background())
	if err != nil {
		t.Fatalf("ListReservations() error = %v", err)
	}
	if len(rs) != 1 || rs[0].PickupCode != "RSQ-42" {
		t.Errorf("reservations = %v", rs)
	}
}

func TestServerErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, "tok").OrderMessages(context.Background(), "order42"); err == nil {
		t.Error("OrderMessages() expected error for 500")
	}
}
