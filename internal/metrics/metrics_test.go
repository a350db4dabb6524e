package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mirror/internal/engine"
	"github.com/roach88/mirror/internal/ir"
)

func event(outcome engine.Outcome, kind ir.EnvelopeKind) engine.RelayEvent {
	return engine.RelayEvent{Node: "n", Outcome: outcome, Envelope: ir.Envelope{Kind: kind}}
}

func TestRelay_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRelay(reg)
	require.NoError(t, err)

	r.Observe(event(engine.OutcomeSent, ir.EnvelopeProperty))
	r.Observe(event(engine.OutcomeSent, ir.EnvelopeProperty))
	r.Observe(event(engine.OutcomeRejected, ir.EnvelopeCall))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.envelopes.WithLabelValues("sent", "property")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.envelopes.WithLabelValues("rejected", "call")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.envelopes))
}

func TestRelay_DoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewRelay(reg)
	require.NoError(t, err)

	_, err = NewRelay(reg)
	assert.Error(t, err)
}

func TestHandler_Serves(t *testing.T) {
	reg := NewRegistry()
	r, err := NewRelay(reg)
	require.NoError(t, err)
	r.Observe(event(engine.OutcomeApplied, ir.EnvelopeBatch))

	srv := httptest.NewServer(Handler(reg, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `mirror_envelopes_total{event="applied",kind="batch"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
