package unit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/evanofslack/go-dealer/internal/auth"
	"github.com/evanofslack/go-dealer/internal/cards"
	"github.com/evanofslack/go-dealer/internal/handlers"
	"github.com/evanofslack/go-dealer/internal/services"
	"github.com/evanofslack/go-dealer/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyAPIKey(t *testing.T) {
	hash, err := auth.HashAPIKey("operator-key")
	require.NoError(t, err)
	assert.NotEqual(t, "operator-key", hash)

	assert.NoError(t, auth.VerifyAPIKey("operator-key", hash))
	assert.Error(t, auth.VerifyAPIKey("wrong-key", hash))
}

func TestDealerRoutes_OperatorKeyGate(t *testing.T) {
	hash, err := auth.HashAPIKey("operator-key")
	require.NoError(t, err)

	dealer := services.NewDealerService(cards.NewGenerator(true), store.NewMemoryStore(storeMaxSeats), storeMaxSeats)
	router := handlers.NewDealerHandler(dealer, hash).Routes()

	dealBody := `{"tableId":"7","handId":"3","seatIndexes":[0,1]}`

	t.Run("deal is rejected without key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/deal", strings.NewReader(dealBody))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_API_KEY")
	})

	t.Run("deal is rejected with wrong key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/deal", strings.NewReader(dealBody))
		req.Header.Set("X-Api-Key", "wrong-key")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("deal succeeds with correct key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/deal", strings.NewReader(dealBody))
		req.Header.Set("X-Api-Key", "operator-key")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("commitments stay public", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/commitments?tableId=7&handId=3", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("reveal requires the key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/reveal?tableId=7&handId=3&seatIndex=0", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		req.Header.Set("X-Api-Key", "operator-key")
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"salt"`)
	})
}
