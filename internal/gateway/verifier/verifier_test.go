package verifier_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hookbill/hookbill/internal/config"
	"github.com/hookbill/hookbill/internal/gateway/adapters"
	"github.com/hookbill/hookbill/internal/gateway/adapters/paypal"
	"github.com/hookbill/hookbill/internal/gateway/domain"
	"github.com/hookbill/hookbill/internal/gateway/verifier"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	err = db.Exec(`CREATE TABLE payment_methods (
		id BIGINT PRIMARY KEY,
		provider TEXT NOT NULL,
		name TEXT NOT NULL,
		settings TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`).Error
	if err != nil {
		t.Fatalf("schema exec failed: %v", err)
	}
	return db
}

func seedMethod(t *testing.T, db *gorm.DB, id snowflake.ID, active bool, webhookID, apiBase string) {
	t.Helper()

	now := time.Now().UTC()
	settings := fmt.Sprintf(`{"client_id":"cid","secret":"sec","webhook_id":%q,"api_base":%q}`, webhookID, apiBase)
	err := db.Exec(
		"INSERT INTO payment_methods (id, provider, name, settings, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, "paypal", "PayPal "+webhookID, settings, active, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed method: %v", err)
	}
}

// verifyByWebhookID accepts deliveries only for one configured webhook id,
// so tests can route a delivery to a specific method.
func verifyByWebhookID(t *testing.T, accepted string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"tok"}`)
	})
	mux.HandleFunc("/v1/notifications/verify-webhook-signature", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			WebhookID string `json:"webhook_id"`
		}
		if err := jsonDecode(r, &req); err != nil || req.WebhookID != accepted {
			fmt.Fprint(w, `{"verification_status":"FAILURE"}`)
			return
		}
		fmt.Fprint(w, `{"verification_status":"SUCCESS"}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newVerifier(db *gorm.DB) *verifier.Verifier {
	return verifier.New(verifier.Params{
		DB:       db,
		Log:      zap.NewNop(),
		Registry: adapters.NewRegistry(paypal.NewFactory(5 * time.Second)),
		Cfg:      config.Config{VerifyTimeoutSeconds: 5},
	})
}

func deliveryHeaders() http.Header {
	h := http.Header{}
	h.Set("Paypal-Auth-Algo", "SHA256withRSA")
	h.Set("Paypal-Cert-Url", "https://api.paypal.com/cert")
	h.Set("Paypal-Transmission-Id", "tx-1")
	h.Set("Paypal-Transmission-Sig", "sig")
	h.Set("Paypal-Transmission-Time", "2026-01-02T03:04:05Z")
	return h
}

func TestVerifyPicksAuthenticatingMethod(t *testing.T) {
	db := setupTestDB(t)
	server := verifyByWebhookID(t, "wh-2")

	node, err := snowflake.NewNode(30)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	firstID := node.Generate()
	secondID := node.Generate()
	seedMethod(t, db, firstID, true, "wh-1", server.URL)
	seedMethod(t, db, secondID, true, "wh-2", server.URL)

	method, adapter, err := newVerifier(db).Verify(context.Background(), "paypal", []byte(`{"id":"WH-1"}`), deliveryHeaders())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if adapter == nil {
		t.Fatalf("expected adapter")
	}
	if method.ID != secondID {
		t.Fatalf("expected method %d, got %d", secondID, method.ID)
	}
}

func TestVerifySkipsInactiveMethods(t *testing.T) {
	db := setupTestDB(t)
	server := verifyByWebhookID(t, "wh-1")

	node, err := snowflake.NewNode(31)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	seedMethod(t, db, node.Generate(), false, "wh-1", server.URL)

	_, _, err = newVerifier(db).Verify(context.Background(), "paypal", []byte(`{"id":"WH-1"}`), deliveryHeaders())
	if !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestVerifyNoMethodsConfigured(t *testing.T) {
	db := setupTestDB(t)

	_, _, err := newVerifier(db).Verify(context.Background(), "paypal", []byte(`{"id":"WH-1"}`), deliveryHeaders())
	if !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestVerifyUnknownProvider(t *testing.T) {
	db := setupTestDB(t)

	_, _, err := newVerifier(db).Verify(context.Background(), "skrill", []byte(`{"id":"WH-1"}`), deliveryHeaders())
	if !errors.Is(err, domain.ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
}

func jsonDecode(r *http.Request, out any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}
