package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callsight/internal/transform"
	"callsight/internal/window"
)

func testWindow() window.Window {
	return window.Window{
		Start: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC),
	}
}

// vendorStub serves the token, query, and export endpoints.
type vendorStub struct {
	tokens     atomic.Int64
	rejectOnce atomic.Bool
	queryBody  string
	exportCSV  string
}

func (v *vendorStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		n := v.tokens.Add(1)
		fmt.Fprintf(w, `{"access_token": "token-%d"}`, n)
	})
	mux.HandleFunc("/v1/datasets/query/execute/ds-1", func(w http.ResponseWriter, r *http.Request) {
		if v.rejectOnce.CompareAndSwap(true, false) {
			http.Error(w, "expired", http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Authorization") == "" {
			http.Error(w, "no token", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, v.queryBody)
	})
	mux.HandleFunc("/v1/datasets/ds-1/export", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, v.exportCSV)
	})
	return mux
}

func newStubClient(t *testing.T, stub *vendorStub) *Client {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "id", "secret", "ds-1")
}

func TestQueryWindow(t *testing.T) {
	stub := &vendorStub{
		queryBody: `{"columns": ["Call Key", "Call Start", "Agent Name"],
			"rows": [["K-1", "2024-05-01 10:00:00", "Dana"], ["K-2", "2024-05-02 11:00:00", null]]}`,
	}
	c := newStubClient(t, stub)

	recs, err := c.Fetch(context.Background(), testWindow(), 0, false)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "K-1", recs[0][transform.ColCallKey])
	assert.Equal(t, "Dana", recs[0][transform.ColAgentName])
	_, present := recs[1][transform.ColAgentName]
	assert.False(t, present, "null columns are omitted, not stringified")
}

func TestReauthenticatesOnceOn401(t *testing.T) {
	stub := &vendorStub{queryBody: `{"columns": ["Call Key"], "rows": [["K-1"]]}`}
	stub.rejectOnce.Store(true)
	c := newStubClient(t, stub)

	recs, err := c.Fetch(context.Background(), testWindow(), 0, false)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, int64(2), stub.tokens.Load(), "one re-auth after the rejected token")
}

func TestAuthFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "id", "secret", "ds-1")
	_, err := c.Fetch(context.Background(), testWindow(), 0, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth failed")
}

func TestExportWindowFiltersAndLimits(t *testing.T) {
	stub := &vendorStub{
		exportCSV: "Call Key,Call Start,Conversation\n" +
			"K-0,2024-04-30 23:00:00,before window\n" +
			"K-1,2024-05-01 08:00:00,in window\n" +
			"K-2,2024-05-02 09:00:00,in window\n" +
			"K-3,2024-05-02 10:00:00,in window\n" +
			"K-4,2024-05-04 00:00:00,after window\n",
	}
	c := newStubClient(t, stub)

	recs, err := c.Fetch(context.Background(), testWindow(), 0, true)
	require.NoError(t, err)
	require.Len(t, recs, 3, "rows outside the window are filtered client-side")
	assert.Equal(t, "K-1", recs[0][transform.ColCallKey])

	limited, err := c.Fetch(context.Background(), testWindow(), 2, true)
	require.NoError(t, err)
	assert.Len(t, limited, 2, "stream stops at the record limit")
}

func TestExportWindowSkipsUndatedRows(t *testing.T) {
	stub := &vendorStub{
		exportCSV: "Call Key,Call Start\nK-1,\nK-2,2024-05-01 10:00:00\n",
	}
	c := newStubClient(t, stub)

	recs, err := c.Fetch(context.Background(), testWindow(), 0, true)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "K-2", recs[0][transform.ColCallKey])
}

func TestVendorErrorSurfacesImmediately(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token": "tok"}`)
	})
	mux.HandleFunc("/v1/datasets/query/execute/ds-1", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, "id", "secret", "ds-1")
	_, err := c.Fetch(context.Background(), testWindow(), 0, false)
	require.Error(t, err, "no fetch-level retry; that is the caller's call")
	assert.Contains(t, err.Error(), "status 500")
}
