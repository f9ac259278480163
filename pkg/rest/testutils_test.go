package rest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mailbridge/mailbridge/pkg/config"
	"github.com/mailbridge/mailbridge/pkg/extension"
	"github.com/mailbridge/mailbridge/pkg/msghub"
	"github.com/mailbridge/mailbridge/pkg/profile"
	"github.com/mailbridge/mailbridge/pkg/server/web"
	"github.com/mailbridge/mailbridge/pkg/test"
	"github.com/mailbridge/mailbridge/pkg/token"
)

const baseURL = "http://localhost/api/v1"

// The shared router survives between tests; register routes once.
var routesSetup bool

// restEnv bundles the stubbed server state backing one test.
type restEnv struct {
	manager *test.ManagerStub
	codec   *token.Codec
	hub     *msghub.Hub
	access  string
	refresh string
}

func testProfile() profile.Profile {
	return profile.Profile{
		Address:  "ann@example.com",
		Secret:   "hunter2",
		IMAPHost: "imap.example.com",
		IMAPPort: 993,
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
	}
}

// setupWebServer wires the REST routes to a stub manager and returns the
// environment, including a minted access token for ann@example.com.
func setupWebServer(t *testing.T, mm *test.ManagerStub) *restEnv {
	t.Helper()
	conf := &config.Root{
		Web: config.Web{CORSOrigins: []string{"*"}},
		Token: config.Token{
			SigningKey:    "rest-test-signing-key",
			CredentialKey: "0123456789abcdef",
			AccessTTL:     time.Hour,
			RefreshTTL:    24 * time.Hour,
		},
	}
	codec := token.NewCodec(conf.Token)
	hub := msghub.New(extension.NewHost())
	if !routesSetup {
		SetupRoutes(web.Router.PathPrefix("/api/").Subrouter())
		routesSetup = true
	}
	web.NewServer(conf, make(chan bool), mm, hub, codec)

	pair, err := codec.Mint(testProfile())
	if err != nil {
		t.Fatalf("Failed to mint test tokens: %v", err)
	}
	return &restEnv{
		manager: mm,
		codec:   codec,
		hub:     hub,
		access:  pair.Access,
		refresh: pair.Refresh,
	}
}

func testRestRequest(method, url, token, body string) (*httptest.ResponseRecorder, error) {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Accept", "application/json")
	if token != "" {
		req.Header.Add("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	web.Router.ServeHTTP(w, req)
	return w, nil
}

func testRestGet(url, token string) (*httptest.ResponseRecorder, error) {
	return testRestRequest("GET", url, token, "")
}

func testRestPost(url, token, body string) (*httptest.ResponseRecorder, error) {
	return testRestRequest("POST", url, token, body)
}

func testRestPatch(url, token, body string) (*httptest.ResponseRecorder, error) {
	return testRestRequest("PATCH", url, token, body)
}

func testRestPut(url, token, body string) (*httptest.ResponseRecorder, error) {
	return testRestRequest("PUT", url, token, body)
}

func testRestDelete(url, token string) (*httptest.ResponseRecorder, error) {
	return testRestRequest("DELETE", url, token, "")
}

func expectCode(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Errorf("Expected code %v, got %v; body: %s", want, w.Code, w.Body.String())
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) interface{} {
	t.Helper()
	var decoded interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("Failed to decode JSON body: %v; body: %s", err, w.Body.String())
	}
	return decoded
}

func decodedBoolEquals(t *testing.T, json interface{}, path string, want bool) {
	t.Helper()
	els := strings.Split(path, "/")
	val, msg := getDecodedPath(json, els...)
	if msg != "" {
		t.Errorf("JSON result%s", msg)
		return
	}
	if got, ok := val.(bool); ok {
		if got == want {
			return
		}
	}
	t.Errorf("JSON result/%s == %v (%T), want: %v", path, val, val, want)
}

func decodedNumberEquals(t *testing.T, json interface{}, path string, want float64) {
	t.Helper()
	els := strings.Split(path, "/")
	val, msg := getDecodedPath(json, els...)
	if msg != "" {
		t.Errorf("JSON result%s", msg)
		return
	}
	got, ok := val.(float64)
	if ok {
		if got == want {
			return
		}
	}
	t.Errorf("JSON result/%s == %v (%T),\nwant: %v", path, val, val, want)
}

func decodedStringEquals(t *testing.T, json interface{}, path string, want string) {
	t.Helper()
	els := strings.Split(path, "/")
	val, msg := getDecodedPath(json, els...)
	if msg != "" {
		t.Errorf("JSON result%s", msg)
		return
	}
	if got, ok := val.(string); ok {
		if got == want {
			return
		}
	}
	t.Errorf("JSON result/%s == %v (%T), want: %v", path, val, val, want)
}

// getDecodedPath recursively navigates the specified path, returing the requested element.  If
// something goes wrong, the returned string will contain an explanation.
//
// Named path elements require the parent element to be a map[string]interface{}, numbers in square
// brackets require the parent element to be a []interface{}.
//
//	getDecodedPath(o, "users", "[1]", "name")
//
// is equivalent to the JavaScript:
//
//	o.users[1].name
func getDecodedPath(o interface{}, path ...string) (interface{}, string) {
	if len(path) == 0 {
		return o, ""
	}
	if o == nil {
		return nil, " is nil"
	}
	key := path[0]
	present := false
	var val interface{}
	if key[0] == '[' {
		// Expecting slice.
		index, err := strconv.Atoi(strings.Trim(key, "[]"))
		if err != nil {
			return nil, "/" + key + " is not a slice index"
		}
		oslice, ok := o.([]interface{})
		if !ok {
			return nil, " is not a slice"
		}
		if index >= len(oslice) {
			return nil, "/" + key + " is out of bounds"
		}
		val, present = oslice[index], true
	} else {
		// Expecting map.
		omap, ok := o.(map[string]interface{})
		if !ok {
			return nil, " is not a map"
		}
		val, present = omap[key]
	}
	if !present {
		return nil, "/" + key + " is missing"
	}
	result, msg := getDecodedPath(val, path[1:]...)
	if msg != "" {
		return nil, "/" + key + msg
	}
	return result, ""
}
