package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSignInWithPassword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("request = %s", r.URL)
		}
		if r.Header.Get("apikey") != "anon" || r.Header.Get("Authorization") != "Bearer anon" {
			t.Errorf("headers = %v", r.Header)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "admin@gudang.id" || body["password"] != "rahasia" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			return
		}
		w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600,"user":{"id":"u1","email":"admin@gudang.id"}}`))
	}))
	defer srv.Close()

	a := NewAuthClient(srv.URL, "anon")
	grant, err := a.SignInWithPassword(context.Background(), "admin@gudang.id", "rahasia")
	if err != nil {
		t.Fatal(err)
	}
	if grant.AccessToken != "at" || grant.RefreshToken != "rt" || grant.User.ID != "u1" {
		t.Errorf("grant = %+v", grant)
	}
	now := time.Unix(1000, 0)
	if !grant.Expiry(now).Equal(now.Add(time.Hour)) {
		t.Errorf("expiry = %v", grant.Expiry(now))
	}

	_, err = a.SignInWithPassword(context.Background(), "admin@gudang.id", "salah")
	if !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("bad password err = %v", err)
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Error("auth failure should not expose the raw APIError")
	}
}

func TestLookupEmailByName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/users" || r.URL.Query().Get("select") != "email" {
			t.Errorf("request = %s", r.URL)
		}
		if r.URL.Query().Get("nama") == "eq.Budi" {
			w.Write([]byte(`[{"email":"budi@gudang.id"}]`))
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	a := NewAuthClient(srv.URL, "anon")
	email, err := a.LookupEmailByName(context.Background(), "Budi")
	if err != nil || email != "budi@gudang.id" {
		t.Fatalf("LookupEmailByName = %q, %v", email, err)
	}
	if _, err := a.LookupEmailByName(context.Background(), "Siapa"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown name err = %v", err)
	}
}

func TestFetchProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		if r.URL.Query().Get("id") != "eq.u1" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Write([]byte(`[{"role":"admin","nama":"Budi","outlet":"Gudang Pusat"}]`))
	}))
	defer srv.Close()

	p, err := NewAuthClient(srv.URL, "anon").FetchProfile(context.Background(), "at", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if p.Role != "admin" || p.Nama != "Budi" || p.Outlet != "Gudang Pusat" {
		t.Errorf("profile = %+v", p)
	}
}
