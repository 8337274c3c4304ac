package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(HTTP)
	r.Get("/collections/{name}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/chat", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})
	r.Post("/upload", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	return r
}

func TestHTTP_LabelsByRoutePattern(t *testing.T) {
	r := newRouter()

	tests := []struct {
		method, path string
		route        string
		status       string
	}{
		{http.MethodGet, "/collections/docs", "/collections/{name}", "200"},
		{http.MethodPost, "/chat", "/chat", "422"},
		{http.MethodPost, "/upload", "/upload", "500"},
		{http.MethodGet, "/wp-admin/setup.php", unmatchedRoute, "404"},
		{http.MethodDelete, "/chat", unmatchedRoute, "405"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			c := httpRequests.WithLabelValues(tt.method, tt.route, tt.status)
			before := testutil.ToFloat64(c)

			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tt.method, tt.path, http.NoBody))

			if got := testutil.ToFloat64(c); got != before+1 {
				t.Errorf("http_requests_total{%s,%s,%s} = %v, want %v", tt.method, tt.route, tt.status, got, before+1)
			}
		})
	}
}

func TestHTTP_IdPathsShareOneSeries(t *testing.T) {
	r := newRouter()
	c := httpRequests.WithLabelValues(http.MethodGet, "/collections/{name}", "200")
	before := testutil.ToFloat64(c)

	for _, name := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/collections/"+name, http.NoBody))
	}

	if got := testutil.ToFloat64(c); got != before+3 {
		t.Errorf("requests = %v, want %v", got, before+3)
	}
	if n := testutil.CollectAndCount(httpLatency); n == 0 {
		t.Error("expected latency observations")
	}
}

func TestHTTP_InFlight(t *testing.T) {
	var during float64
	r := chi.NewRouter()
	r.Use(HTTP)
	r.Get("/slow", func(http.ResponseWriter, *http.Request) {
		during = testutil.ToFloat64(httpInFlight)
	})

	before := testutil.ToFloat64(httpInFlight)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/slow", http.NoBody))

	if during != before+1 {
		t.Errorf("in flight while serving = %v, want %v", during, before+1)
	}
	if after := testutil.ToFloat64(httpInFlight); after != before {
		t.Errorf("in flight after = %v, want %v", after, before)
	}
}

func TestRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register: %v", err)
	}

	ChunksIngestedTotal.WithLabelValues("document").Add(2)
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "ragdex_chunks_ingested_total" {
			found = true
		}
	}
	if !found {
		t.Error("ragdex_chunks_ingested_total not exported")
	}
}

func TestRegister_Conflict(t *testing.T) {
	reg := prometheus.NewRegistry()
	clash := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "embedding_texts_total",
		Help:      "same name, different shape",
	})
	reg.MustRegister(clash)

	if err := Register(reg); err == nil {
		t.Fatal("expected error for a conflicting collector")
	}
}
