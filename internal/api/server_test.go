package api

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/errors"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/logging"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/models"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/reconciler"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/rpc"
)

type fakeYieldReader struct {
	result *models.YieldResult
	err    error
}

func (f *fakeYieldReader) ClaimableYield(ctx context.Context, tokenID *big.Int) (*models.YieldResult, error) {
	return f.result, f.err
}

type fakeLeaderboardReader struct {
	rows []*models.LeaderboardRow
	err  error
}

func (f *fakeLeaderboardReader) Top(ctx context.Context, limit int) ([]*models.LeaderboardRow, error) {
	return f.rows, f.err
}

type fakePropertyGetter struct {
	snapshot *models.PropertySnapshot
	err      error
}

func (f *fakePropertyGetter) GetByTokenID(ctx context.Context, tokenID *big.Int) (*models.PropertySnapshot, error) {
	return f.snapshot, f.err
}

type fakeReconcilerStatus struct {
	status reconciler.Status
}

func (f *fakeReconcilerStatus) Status() reconciler.Status {
	return f.status
}

type serverFixture struct {
	yield       *fakeYieldReader
	leaderboard *fakeLeaderboardReader
	properties  *fakePropertyGetter
	rec         *fakeReconcilerStatus
	server      *Server
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	pool, err := rpc.NewEndpointPool([]string{"http://localhost:8545"})
	require.NoError(t, err)

	f := &serverFixture{
		yield:       &fakeYieldReader{},
		leaderboard: &fakeLeaderboardReader{},
		properties:  &fakePropertyGetter{},
		rec:         &fakeReconcilerStatus{},
	}
	f.server = NewServer(&ServerConfig{
		Host:         "127.0.0.1",
		Port:         "0",
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}, pool, f.rec, f.yield, f.leaderboard, f.properties, logging.NewLogger(logging.LevelError, logging.FormatText))
	return f
}

func (f *serverFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	f := newServerFixture(t)

	rr := f.get(t, "/health")

	assert.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestPoolStatusEndpoint(t *testing.T) {
	f := newServerFixture(t)

	rr := f.get(t, "/status/pool")

	assert.Equal(t, http.StatusOK, rr.Code)
	var status rpc.PoolStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.Equal(t, 1, status.TotalEndpoints)
}

func TestReconcilerStatusEndpoint(t *testing.T) {
	f := newServerFixture(t)
	f.rec.status = reconciler.Status{Cursor: 12345, Scanning: true}

	rr := f.get(t, "/status/reconciler")

	assert.Equal(t, http.StatusOK, rr.Code)
	var status reconciler.Status
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.Equal(t, uint64(12345), status.Cursor)
	assert.True(t, status.Scanning)
}

func TestLeaderboardEndpoint(t *testing.T) {
	f := newServerFixture(t)
	f.leaderboard.rows = []*models.LeaderboardRow{
		{UserAddress: "0xaaaa", PropertiesOwned: 3, Rank: 1},
	}

	rr := f.get(t, "/api/leaderboard?limit=10")

	assert.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Leaderboard []*models.LeaderboardRow `json:"leaderboard"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Leaderboard, 1)
	assert.Equal(t, "0xaaaa", body.Leaderboard[0].UserAddress)
}

func TestLeaderboardEmpty(t *testing.T) {
	f := newServerFixture(t)

	rr := f.get(t, "/api/leaderboard")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"leaderboard":[]`)
}

func TestGetYield(t *testing.T) {
	f := newServerFixture(t)
	f.yield.result = &models.YieldResult{
		PropertyID:  big.NewInt(7),
		AmountWei:   big.NewInt(1000),
		ComputedVia: models.YieldOnChain,
	}

	rr := f.get(t, "/api/properties/7/yield")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"amountWei":1000`)
}

func TestGetYieldChainUnavailable(t *testing.T) {
	f := newServerFixture(t)
	f.yield.err = &errors.AllEndpointsFailedError{Op: "eth_call", Attempts: 3}

	rr := f.get(t, "/api/properties/7/yield")

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "CHAIN_UNAVAILABLE")
}

func TestGetPropertyNotCached(t *testing.T) {
	f := newServerFixture(t)
	f.properties.err = errors.NewDatabaseError("get property", pgx.ErrNoRows)

	rr := f.get(t, "/api/properties/42")

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestInvalidTokenID(t *testing.T) {
	f := newServerFixture(t)

	for _, path := range []string{"/api/properties/abc/yield", "/api/properties/-5/yield"} {
		rr := f.get(t, path)
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
	}
}
