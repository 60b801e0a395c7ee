package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/cases/{caseID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/cases/{caseID}", "418")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cases/"+id, nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	}

	assert.Equal(t, before+3, testutil.ToFloat64(counter))
}

func TestMiddleware_UnmatchedOutsideChi(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	counter := httpRequestsTotal.WithLabelValues(http.MethodPost, "unmatched", "200")
	before := testutil.ToFloat64(counter)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/anything", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestBusinessCounters(t *testing.T) {
	approved := interrogationDecisions.WithLabelValues("captain", "approved")
	rejected := interrogationDecisions.WithLabelValues("chief", "rejected")
	a, r := testutil.ToFloat64(approved), testutil.ToFloat64(rejected)

	RecordInterrogationDecision("captain", true)
	RecordInterrogationDecision("chief", false)

	assert.Equal(t, a+1, testutil.ToFloat64(approved))
	assert.Equal(t, r+1, testutil.ToFloat64(rejected))

	denied := authorizationDecisions.WithLabelValues("case.interrogation.chief_review", "deny")
	d := testutil.ToFloat64(denied)
	RecordAuthorizationDecision("case.interrogation.chief_review", false)
	assert.Equal(t, d+1, testutil.ToFloat64(denied))
}
