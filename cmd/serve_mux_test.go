//go:build !integration

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lbd-works/gazetteer-cli/internal/gazetteer"
)

const servedSample = `case_id,trade_nm,legal_name,street_addr_1_txt,cty_nm,st_cd,zip_cd,naic_cd,entity_id,confidence_score,id
100,acme cleaners,"acme cleaners, llc",123 main st,springfield,il,62701,812320,lbd-establishment/aaa,0.912345,0
300,zebra books,zebra books llc,900 oak ave,springfield,il,62701,451211,lbd-establishment/bbb,1.000000,1
`

func newServeMux(t *testing.T) *http.ServeMux {
	t.Helper()

	store, err := gazetteer.NewSQLite(filepath.Join(t.TempDir(), "gazetteer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	p, err := gazetteer.Project(strings.NewReader(servedSample))
	require.NoError(t, err)
	require.NoError(t, store.Assemble(context.Background(), p))

	searcher := gazetteer.NewSearcher(store, 0.5, 5)
	return buildMux(store, searcher, cache.New(time.Minute, time.Minute))
}

func TestBuildMux_HealthEndpoint(t *testing.T) {
	mux := newServeMux(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	err := json.Unmarshal(rr.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, "ok", body["status"])
}

func TestBuildMux_Lookup_MissingName(t *testing.T) {
	mux := newServeMux(t)

	req := httptest.NewRequest(http.MethodGet, "/lookup?city=springfield", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "name is required")
}

func TestBuildMux_Lookup_Match(t *testing.T) {
	mux := newServeMux(t)

	req := httptest.NewRequest(http.MethodGet,
		"/lookup?name=acme+cleaners&city=springfield&state=il&zip=62701", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Matches []gazetteer.Match `json:"matches"`
	}
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Matches)
	assert.Equal(t, "lbd-establishment/aaa", resp.Matches[0].EntityID)
}

func TestBuildMux_Lookup_NoMatch(t *testing.T) {
	mux := newServeMux(t)

	req := httptest.NewRequest(http.MethodGet,
		"/lookup?name=totally+unknown&city=nowhere&state=tx&zip=00000", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Matches []gazetteer.Match `json:"matches"`
	}
	err := json.Unmarshal(rr.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Empty(t, resp.Matches)
}

func TestBuildMux_Lookup_CachedResponse(t *testing.T) {
	mux := newServeMux(t)

	url := "/lookup?name=acme+cleaners&city=springfield&state=il&zip=62701"
	first := httptest.NewRecorder()
	mux.ServeHTTP(first, httptest.NewRequest(http.MethodGet, url, nil))
	second := httptest.NewRecorder()
	mux.ServeHTTP(second, httptest.NewRequest(http.MethodGet, url, nil))

	assert.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}
