package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// 1. TestUnconfiguredGateway
// ---------------------------------------------------------------------------

func TestUnconfiguredGateway(t *testing.T) {
	g := NewGateway("", "", nil)

	if err := g.CreateInstance(context.Background(), "wa_x", uuid.Nil); !errors.Is(err, ErrUnavailable) {
		t.Errorf("CreateInstance: expected ErrUnavailable, got %v", err)
	}
	if _, err := g.Connect(context.Background(), "wa_x"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Connect: expected ErrUnavailable, got %v", err)
	}
	if _, err := g.CheckStatus(context.Background(), "wa_x"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("CheckStatus: expected ErrUnavailable, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// 2. TestConnectNormalizesArtifactShapes
//    The provider has shipped at least four response shapes for the same
//    endpoint. All of them must normalize to one artifact contract.
// ---------------------------------------------------------------------------

func TestConnectNormalizesArtifactShapes(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		kind     ArtifactKind
		payload  string
		pairing  string
	}{
		{
			name:    "flat code",
			body:    `{"code":"2@abc","count":1}`,
			kind:    ArtifactCode,
			payload: "2@abc",
		},
		{
			name:    "flat qrCode",
			body:    `{"qrCode":"2@def"}`,
			kind:    ArtifactCode,
			payload: "2@def",
		},
		{
			name:    "flat base64 image",
			body:    `{"base64":"data:image/png;base64,xyz","pairingCode":"ABCD-1234"}`,
			kind:    ArtifactImage,
			payload: "data:image/png;base64,xyz",
			pairing: "ABCD-1234",
		},
		{
			name:    "nested data envelope",
			body:    `{"data":{"code":"2@ghi","pairingCode":"WXYZ-5678","count":2}}`,
			kind:    ArtifactCode,
			payload: "2@ghi",
			pairing: "WXYZ-5678",
		},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("apikey") != "test-key" {
				t.Errorf("%s: missing apikey header", tc.name)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(tc.body))
		}))
		g := NewGateway(srv.URL, "test-key", nil)

		res, err := g.Connect(context.Background(), "wa_test")
		srv.Close()
		if err != nil {
			t.Errorf("%s: Connect: %v", tc.name, err)
			continue
		}
		if res.Artifact.Kind != tc.kind {
			t.Errorf("%s: expected kind %q, got %q", tc.name, tc.kind, res.Artifact.Kind)
		}
		if res.Artifact.Payload() != tc.payload {
			t.Errorf("%s: expected payload %q, got %q", tc.name, tc.payload, res.Artifact.Payload())
		}
		if res.PairingCode != tc.pairing {
			t.Errorf("%s: expected pairing code %q, got %q", tc.name, tc.pairing, res.PairingCode)
		}
	}
}

// ---------------------------------------------------------------------------
// 3. TestConnectWithoutArtifactFails
// ---------------------------------------------------------------------------

func TestConnectWithoutArtifactFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count":1}`))
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, "test-key", nil)
	if _, err := g.Connect(context.Background(), "wa_test"); err == nil {
		t.Fatal("expected an error when no artifact field is present")
	}
}

// ---------------------------------------------------------------------------
// 4. TestConnectRejected
//    Explicit provider errors surface as RejectedError with the message
//    preserved for the user.
// ---------------------------------------------------------------------------

func TestConnectRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"instance already connecting"}`))
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, "test-key", nil)
	_, err := g.Connect(context.Background(), "wa_test")

	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if rejected.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rejected.StatusCode)
	}
	if rejected.Message != "instance already connecting" {
		t.Errorf("expected provider message preserved, got %q", rejected.Message)
	}
}

// ---------------------------------------------------------------------------
// 5. TestCheckStatusShapes
// ---------------------------------------------------------------------------

func TestCheckStatusShapes(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		connected bool
	}{
		{"explicit isConnected true", http.StatusOK, `{"isConnected":true}`, true},
		{"explicit isConnected false", http.StatusOK, `{"isConnected":false}`, false},
		{"state open", http.StatusOK, `{"state":"open"}`, true},
		{"state connecting", http.StatusOK, `{"state":"connecting"}`, false},
		{"nested instance state", http.StatusOK, `{"instance":{"state":"connected"}}`, true},
		{"unknown instance is not connected", http.StatusNotFound, `{"error":"instance not found"}`, false},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))
		g := NewGateway(srv.URL, "test-key", nil)

		connected, err := g.CheckStatus(context.Background(), "wa_test")
		srv.Close()
		if err != nil {
			t.Errorf("%s: CheckStatus: %v", tc.name, err)
			continue
		}
		if connected != tc.connected {
			t.Errorf("%s: expected connected=%v, got %v", tc.name, tc.connected, connected)
		}
	}
}

// ---------------------------------------------------------------------------
// 6. TestCheckStatusAuthFailure
//    401/403 means the credentials are wrong, not that the link is down.
// ---------------------------------------------------------------------------

func TestCheckStatusAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, "wrong-key", nil)
	_, err := g.CheckStatus(context.Background(), "wa_test")

	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError on 401, got %v", err)
	}
	if rejected.Message != "invalid api key" {
		t.Errorf("expected provider message preserved, got %q", rejected.Message)
	}
}
