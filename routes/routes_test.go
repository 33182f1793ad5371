package routes

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/address-matcher/app/config"
	"github.com/address-matcher/app/controllers"
	"github.com/address-matcher/app/models"
	"github.com/address-matcher/app/responses"
	"github.com/address-matcher/app/services"
	"github.com/address-matcher/internal/parser"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T, rps float64) (*gin.Engine, *services.AddressService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	cfg := config.Default()

	p := parser.NewAddressParser(cfg, nil, logger)
	addrs := services.NewAddressService(p, services.NewCacheService(100, 0), 2, logger)
	ctrls := &Controllers{
		Address: controllers.NewAddressController(addrs, logger),
		Match:   controllers.NewMatchController(services.NewMatchService(cfg, p.Normalizer(), logger), logger),
		Admin:   controllers.NewAdminController(services.NewAdminService(addrs, nil, nil, logger), logger),
	}

	router := gin.New()
	SetupAllRoutes(router, ctrls, Options{VersionTag: addrs.VersionTag(), RateLimitRPS: rps, RateBurst: 1, Logger: logger})
	return router, addrs
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestParseAndNormalize(t *testing.T) {
	router, _ := newTestRouter(t, 0)

	w := doJSON(router, http.MethodPost, "/v1/addresses/parse", map[string]string{
		"address": "Atatürk Mah. Lale Sok. No:12 Bornova/İzmir",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	var parsed responses.ParseAddressResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	assert.False(t, parsed.CacheHit)
	assert.Equal(t, "12", parsed.Result.Parts[models.FieldNo])
	assert.Equal(t, "bornova", parsed.Result.Parts[models.FieldIlce])

	w = doJSON(router, http.MethodPost, "/v1/addresses/parse", map[string]string{
		"address": "Atatürk Mah. Lale Sok. No:12 Bornova/İzmir",
	})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	assert.True(t, parsed.CacheHit)

	w = doJSON(router, http.MethodPost, "/v1/addresses/normalize", map[string]interface{}{
		"addresses": []string{"Lale Sok. No:5", "  "},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var norm responses.NormalizeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &norm))
	require.Len(t, norm.Normalized, 2)
	assert.Equal(t, "", norm.Normalized[1])
}

func TestErrors(t *testing.T) {
	router, _ := newTestRouter(t, 0)

	testCases := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"blank address", http.MethodPost, "/v1/addresses/parse", map[string]string{"address": "  "}, http.StatusBadRequest, "EMPTY_INPUT"},
		{"missing address", http.MethodPost, "/v1/addresses/parse", map[string]string{}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"empty normalize", http.MethodPost, "/v1/addresses/normalize", map[string]string{}, http.StatusBadRequest, "EMPTY_INPUT"},
		{"unknown job", http.MethodGet, "/v1/addresses/jobs/nope/status", nil, http.StatusNotFound, "JOB_NOT_FOUND"},
		{"bad method", http.MethodPost, "/v1/match", map[string]interface{}{
			"left": []models.Record{{ID: "1", Text: "a"}}, "right": []models.Record{{ID: "2", Text: "a"}}, "method": "exact",
		}, http.StatusBadRequest, "INVALID_MATCH_CONFIG"},
		{"no search index", http.MethodPost, "/v1/admin/gazetteer/seed", nil, http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE"},
		{"unknown route", http.MethodGet, "/v2/nothing", nil, http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(router, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, w.Code)
			var er responses.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &er))
			assert.Equal(t, tc.code, er.Error)
			assert.Equal(t, w.Header().Get(requestIDHeader), er.RequestID)
		})
	}
}

func TestRequestIDPassthrough(t *testing.T) {
	router, _ := newTestRouter(t, 0)
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestMatchAndScore(t *testing.T) {
	router, _ := newTestRouter(t, 0)

	w := doJSON(router, http.MethodPost, "/v1/match", map[string]interface{}{
		"left": []models.Record{
			{ID: "L1", Text: "Lale Sokak No 5 Bornova İzmir"},
			{ID: "L2", Text: "Menekşe Caddesi No 40 Çankaya Ankara"},
		},
		"right": []models.Record{
			{ID: "R1", Text: "lale sk no 5 bornova izmir"},
			{ID: "R2", Text: "gül sokak no 77 konak izmir"},
		},
		"normalize": true,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var mr responses.MatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mr))
	assert.Equal(t, "fuzzy", mr.Method)
	require.Len(t, mr.Pairs, 1)
	assert.Equal(t, "L1", mr.Pairs[0].LeftID)
	assert.Equal(t, "R1", mr.Pairs[0].RightID)
	assert.Equal(t, []string{"L2"}, mr.UnmatchedLeft)
	assert.Equal(t, []string{"R2"}, mr.UnmatchedRight)
	assert.Equal(t, 4, mr.Compared)

	w = doJSON(router, http.MethodPost, "/v1/score", map[string]interface{}{
		"left":   models.Record{ID: "a", Text: "Lale Sokak 5"},
		"right":  models.Record{ID: "b", Text: "lale sokak 5"},
		"scorer": "ratio",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var sr responses.ScoreResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sr))
	assert.Equal(t, 100.0, sr.Score)
	assert.Equal(t, "ratio", sr.Scorer)
}

func TestBatchJob(t *testing.T) {
	router, _ := newTestRouter(t, 0)

	w := doJSON(router, http.MethodPost, "/v1/addresses/jobs", map[string]interface{}{
		"addresses": []string{"Lale Sok. No:1 Bornova İzmir", "Gül Sok. No:2 Konak İzmir"},
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	var br responses.BatchParseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &br))
	require.NotEmpty(t, br.JobID)

	require.Eventually(t, func() bool {
		w := doJSON(router, http.MethodGet, "/v1/addresses/jobs/"+br.JobID+"/status", nil)
		var st responses.JobStatusResponse
		return json.Unmarshal(w.Body.Bytes(), &st) == nil && st.Status == responses.JobStatusDone
	}, 5*time.Second, 10*time.Millisecond)

	w = doJSON(router, http.MethodGet, "/v1/addresses/jobs/"+br.JobID+"/results?format=ndjson&gzip=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)

	var first models.AddressResult
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "1", first.Parts[models.FieldNo])
}

func TestAdminEndpoints(t *testing.T) {
	router, addrs := newTestRouter(t, 0)

	doJSON(router, http.MethodPost, "/v1/addresses/parse", map[string]string{"address": "Lale Sok. No:1"})

	w := doJSON(router, http.MethodGet, "/v1/admin/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats responses.AdminStatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalCached)
	assert.Equal(t, addrs.VersionTag(), stats.VersionTag)

	w = doJSON(router, http.MethodPost, "/v1/admin/cache/invalidate", map[string]bool{"all": true})
	require.Equal(t, http.StatusOK, w.Code)
	var inv responses.CacheInvalidateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inv))
	assert.Equal(t, int64(1), inv.Removed)

	w = doJSON(router, http.MethodPost, "/v1/admin/gazetteer/seed", map[string]bool{"dry_run": true})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var hc responses.HealthCheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hc))
	assert.Equal(t, "healthy", hc.Status)
	assert.Equal(t, "healthy", hc.Services["cache"])
}

func TestRateLimit(t *testing.T) {
	router, _ := newTestRouter(t, 0.001)

	w := doJSON(router, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(router, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
