package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrwave/qrwave/internal"
	"github.com/qrwave/qrwave/internal/auth"
	"github.com/qrwave/qrwave/internal/billing"
	"github.com/qrwave/qrwave/internal/config"
	"github.com/qrwave/qrwave/internal/store"
)

type fakeStore struct {
	created []internal.QRCode
	codes   map[string]*internal.QRCode // keyed by id
	totals  map[string]int64
	daily   map[string][]internal.ScanDailyCount
}

func (f *fakeStore) Create(_ context.Context, qr *internal.QRCode) error {
	f.created = append(f.created, *qr)
	return nil
}

func (f *fakeStore) FindOwned(_ context.Context, id, ownerID string) (*internal.QRCode, error) {
	if qr, ok := f.codes[id]; ok && qr.OwnerID == ownerID {
		return qr, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) TotalScans(_ context.Context, qrCodeID string) (int64, error) {
	return f.totals[qrCodeID], nil
}

func (f *fakeStore) DailyCounts(_ context.Context, qrCodeID string, _ time.Time) ([]internal.ScanDailyCount, error) {
	return f.daily[qrCodeID], nil
}

type fakeProvider struct {
	lastReq *billing.OrderRequest
	ref     *billing.OrderRef
	err     error
}

func (f *fakeProvider) CreateOrder(_ context.Context, req billing.OrderRequest) (*billing.OrderRef, error) {
	f.lastReq = &req
	if f.err != nil {
		return nil, f.err
	}
	return f.ref, nil
}

func testConfig() *config.Config {
	return &config.Config{
		AppDomain: "https://qrw.example",
		Lifecycle: config.Lifecycle{TrialDays: 30, PaidDays: 365, PaidThresholdDays: 60},
	}
}

func newAPIApp(cfg *config.Config, st *fakeStore, provider billing.Provider) *fiber.App {
	orders := billing.NewService(st, provider, billing.Config{
		AmountMinor:   1000,
		Currency:      "USD",
		PaidThreshold: cfg.Lifecycle.PaidThreshold(),
	})

	app := fiber.New()
	api := app.Group("/api", auth.Middleware(auth.LocalDecoder{}))
	api.Post("/qrcodes", handleCreateQR(cfg, st))
	api.Post("/orders", handleCreateOrder(orders))
	api.Get("/qrcodes/:id/stats", handleStats(st))
	return app
}

func bearerFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: userID}).
		SignedString([]byte("test-key"))
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(t *testing.T, app *fiber.App, method, path, bearer string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Buffer = bytes.NewBuffer(nil)
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHandleCreateOrder(t *testing.T) {
	trialExpiry := time.Now().Add(20 * 24 * time.Hour)
	paidExpiry := time.Now().Add(300 * 24 * time.Hour)

	newStore := func() *fakeStore {
		return &fakeStore{codes: map[string]*internal.QRCode{
			"qr-trial": {ID: "qr-trial", OwnerID: "user-1", Status: internal.StatusActive, ExpiresAt: &trialExpiry},
			"qr-paid":  {ID: "qr-paid", OwnerID: "user-1", Status: internal.StatusActive, ExpiresAt: &paidExpiry},
		}}
	}

	t.Run("no credential is 401", func(t *testing.T) {
		app := newAPIApp(testConfig(), newStore(), &fakeProvider{})

		resp := doJSON(t, app, http.MethodPost, "/api/orders", "", map[string]string{"qr_code_id": "qr-trial"})
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing qr_code_id is 400", func(t *testing.T) {
		app := newAPIApp(testConfig(), newStore(), &fakeProvider{})

		resp := doJSON(t, app, http.MethodPost, "/api/orders", bearerFor(t, "user-1"), map[string]string{})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("someone else's code is 404 and no provider call", func(t *testing.T) {
		provider := &fakeProvider{ref: &billing.OrderRef{OrderID: "order_1"}}
		app := newAPIApp(testConfig(), newStore(), provider)

		resp := doJSON(t, app, http.MethodPost, "/api/orders", bearerFor(t, "user-2"), map[string]string{"qr_code_id": "qr-trial"})
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		assert.Nil(t, provider.lastReq)
	})

	t.Run("already-upgraded code is 400 and no provider call", func(t *testing.T) {
		provider := &fakeProvider{ref: &billing.OrderRef{OrderID: "order_1"}}
		app := newAPIApp(testConfig(), newStore(), provider)

		resp := doJSON(t, app, http.MethodPost, "/api/orders", bearerFor(t, "user-1"), map[string]string{"qr_code_id": "qr-paid"})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, decodeBody(t, resp)["error"], "already upgraded")
		assert.Nil(t, provider.lastReq)
	})

	t.Run("eligible code returns the minimal order reference", func(t *testing.T) {
		provider := &fakeProvider{ref: &billing.OrderRef{OrderID: "order_123", Amount: 1000, Currency: "USD"}}
		app := newAPIApp(testConfig(), newStore(), provider)

		resp := doJSON(t, app, http.MethodPost, "/api/orders", bearerFor(t, "user-1"), map[string]string{"qr_code_id": "qr-trial"})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "order_123", body["order_id"])
		assert.Equal(t, float64(1000), body["amount"])
		assert.Equal(t, "USD", body["currency"])
		assert.Len(t, body, 3, "response must stay a minimal order reference")

		require.NotNil(t, provider.lastReq)
		assert.Equal(t, "user-1", provider.lastReq.OwnerID)
		assert.Equal(t, "qr-trial", provider.lastReq.QRCodeID)
	})

	t.Run("provider failure is 500", func(t *testing.T) {
		app := newAPIApp(testConfig(), newStore(), &fakeProvider{err: errors.New("provider down")})

		resp := doJSON(t, app, http.MethodPost, "/api/orders", bearerFor(t, "user-1"), map[string]string{"qr_code_id": "qr-trial"})
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	})
}

func TestHandleCreateQR(t *testing.T) {
	t.Run("dynamic code gets a short code and a trial window", func(t *testing.T) {
		st := &fakeStore{codes: map[string]*internal.QRCode{}}
		app := newAPIApp(testConfig(), st, &fakeProvider{})

		resp := doJSON(t, app, http.MethodPost, "/api/qrcodes", bearerFor(t, "user-1"), map[string]string{
			"destination_url": "https://example.com",
			"kind":            internal.KindDynamic,
		})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)

		require.Len(t, st.created, 1)
		qr := st.created[0]
		assert.Equal(t, "user-1", qr.OwnerID)
		assert.Equal(t, internal.KindDynamic, qr.Kind)
		assert.Equal(t, internal.StatusActive, qr.Status)
		assert.Len(t, qr.ShortCode, internal.ShortCodeLength)
		require.NotNil(t, qr.ExpiresAt)
		assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), *qr.ExpiresAt, time.Minute)
	})

	t.Run("static code carries no expiry", func(t *testing.T) {
		st := &fakeStore{codes: map[string]*internal.QRCode{}}
		app := newAPIApp(testConfig(), st, &fakeProvider{})

		resp := doJSON(t, app, http.MethodPost, "/api/qrcodes", bearerFor(t, "user-1"), map[string]string{
			"destination_url": "https://example.com",
			"kind":            internal.KindStatic,
		})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)

		require.Len(t, st.created, 1)
		assert.Nil(t, st.created[0].ExpiresAt)
	})

	t.Run("missing destination is 400", func(t *testing.T) {
		app := newAPIApp(testConfig(), &fakeStore{codes: map[string]*internal.QRCode{}}, &fakeProvider{})

		resp := doJSON(t, app, http.MethodPost, "/api/qrcodes", bearerFor(t, "user-1"), map[string]string{})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown kind is 400", func(t *testing.T) {
		app := newAPIApp(testConfig(), &fakeStore{codes: map[string]*internal.QRCode{}}, &fakeProvider{})

		resp := doJSON(t, app, http.MethodPost, "/api/qrcodes", bearerFor(t, "user-1"), map[string]string{
			"destination_url": "https://example.com",
			"kind":            "animated",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandleStats(t *testing.T) {
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	st := &fakeStore{
		codes:  map[string]*internal.QRCode{"qr-1": {ID: "qr-1", OwnerID: "user-1", ShortCode: "abc123", Status: internal.StatusActive}},
		totals: map[string]int64{"qr-1": 42},
		daily: map[string][]internal.ScanDailyCount{
			"qr-1": {{QRCodeID: "qr-1", Day: day, ScanCount: 7}},
		},
	}
	app := newAPIApp(testConfig(), st, &fakeProvider{})

	t.Run("owner sees totals", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/qrcodes/qr-1/stats", bearerFor(t, "user-1"), nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, float64(42), body["total_scans"])
		assert.Equal(t, "abc123", body["short_code"])
	})

	t.Run("non-owner gets 404", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/qrcodes/qr-1/stats", bearerFor(t, "user-2"), nil)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}
