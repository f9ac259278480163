package rest

import (
	"testing"

	"github.com/mailbridge/mailbridge/pkg/mailbox"
	"github.com/mailbridge/mailbridge/pkg/test"
)

const loginBody = `{
	"email": "ann@example.com",
	"password": "hunter2",
	"imap_host": "imap.example.com",
	"smtp_host": "smtp.example.com"
}`

func TestRestAuthLogin(t *testing.T) {
	mm := test.NewManager()
	setupWebServer(t, mm)

	w, err := testRestPost(baseURL+"/auth/login", "", loginBody)
	if err != nil {
		t.Fatal(err)
	}
	expectCode(t, w, 200)

	decoded := decodeBody(t, w)
	for _, key := range []string{"access_token", "refresh_token"} {
		val, msg := getDecodedPath(decoded, key)
		if msg != "" {
			t.Fatalf("JSON result%s", msg)
		}
		if s, ok := val.(string); !ok || s == "" {
			t.Errorf("JSON result/%s == %v, want non-empty string", key, val)
		}
	}
}

func TestRestAuthLoginBadCredentials(t *testing.T) {
	mm := test.NewManager()
	mm.LoginErr = mailbox.ErrAuthFailed
	setupWebServer(t, mm)

	w, err := testRestPost(baseURL+"/auth/login", "", loginBody)
	if err != nil {
		t.Fatal(err)
	}
	expectCode(t, w, 401)
}

func TestRestAuthLoginMalformedBody(t *testing.T) {
	mm := test.NewManager()
	setupWebServer(t, mm)

	w, err := testRestPost(baseURL+"/auth/login", "", `{"email": `)
	if err != nil {
		t.Fatal(err)
	}
	expectCode(t, w, 400)
}

func TestRestAuthLoginIncompleteProfile(t *testing.T) {
	mm := test.NewManager()
	setupWebServer(t, mm)

	// No IMAP host.
	w, err := testRestPost(baseURL+"/auth/login", "",
		`{"email": "ann@example.com", "password": "hunter2", "smtp_host": "smtp.example.com"}`)
	if err != nil {
		t.Fatal(err)
	}
	expectCode(t, w, 400)
}

func TestRestAuthRefresh(t *testing.T) {
	mm := test.NewManager()
	env := setupWebServer(t, mm)

	w, err := testRestPost(baseURL+"/auth/refresh", "",
		`{"refresh_token": "`+env.refresh+`"}`)
	if err != nil {
		t.Fatal(err)
	}
	expectCode(t, w, 200)

	decoded := decodeBody(t, w)
	val, msg := getDecodedPath(decoded, "access_token")
	if msg != "" {
		t.Fatalf("JSON result%s", msg)
	}
	if s, ok := val.(string); !ok || s == "" {
		t.Errorf("JSON result/access_token == %v, want non-empty string", val)
	}
}

func TestRestAuthRefreshRejectsAccessToken(t *testing.T) {
	mm := test.NewManager()
	env := setupWebServer(t, mm)

	// An access token is not valid for the refresh grant.
	w, err := testRestPost(baseURL+"/auth/refresh", "",
		`{"refresh_token": "`+env.access+`"}`)
	if err != nil {
		t.Fatal(err)
	}
	expectCode(t, w, 401)
}

func TestRestAuthRefreshGarbage(t *testing.T) {
	mm := test.NewManager()
	setupWebServer(t, mm)

	w, err := testRestPost(baseURL+"/auth/refresh", "",
		`{"refresh_token": "not-a-token"}`)
	if err != nil {
		t.Fatal(err)
	}
	expectCode(t, w, 401)

	w, err = testRestPost(baseURL+"/auth/refresh", "", `{}`)
	if err != nil {
		t.Fatal(err)
	}
	expectCode(t, w, 400)
}

func TestRestAuthValidate(t *testing.T) {
	mm := test.NewManager()
	setupWebServer(t, mm)

	w, err := testRestPost(baseURL+"/auth/validate", "", loginBody)
	if err != nil {
		t.Fatal(err)
	}
	expectCode(t, w, 200)

	mm.LoginErr = mailbox.ErrAuthFailed
	w, err = testRestPost(baseURL+"/auth/validate", "", loginBody)
	if err != nil {
		t.Fatal(err)
	}
	expectCode(t, w, 401)
}
