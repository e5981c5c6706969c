package webhooklog_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/trainriggo/internal/component"
	"github.com/vk/trainriggo/internal/config"
	"github.com/vk/trainriggo/modules/webhooklog"
)

func attr(t *testing.T, name, src string) *config.Node {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), "expression parsing failed: %s", diags.Error())
	return config.NewAttr(name, expr, src)
}

func newLogger(t *testing.T, url string, extra ...*config.Node) component.ExpLogger {
	t.Helper()
	attrs := append([]*config.Node{attr(t, "url", `"`+url+`"`)}, extra...)
	lg, err := webhooklog.New(context.Background(), config.NewMapping("webhook", attrs...))
	require.NoError(t, err)
	return lg
}

func TestLogMetrics_PostsJSONEvent(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	lg := newLogger(t, srv.URL, attr(t, "run_name", `"smoke"`))

	err := lg.LogMetrics(context.Background(), map[string]float64{"train/loss": 0.5}, 3)
	require.NoError(t, err)

	assert.Equal(t, "metrics", received["kind"])
	assert.Equal(t, "smoke", received["run"])
	assert.Equal(t, float64(3), received["step"])
	metrics := received["metrics"].(map[string]any)
	assert.Equal(t, 0.5, metrics["train/loss"])
}

func TestLogHyperparams_PostsJSONEvent(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
	}))
	defer srv.Close()

	lg := newLogger(t, srv.URL)

	err := lg.LogHyperparams(context.Background(), map[string]any{"seed": 42})
	require.NoError(t, err)

	assert.Equal(t, "hparams", received["kind"])
	hparams := received["hparams"].(map[string]any)
	assert.Equal(t, float64(42), hparams["seed"])
}

func TestErrorStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	lg := newLogger(t, srv.URL)

	err := lg.LogMetrics(context.Background(), map[string]float64{"x": 1}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook rejected")
}

func TestUnreachableEndpointIsAnError(t *testing.T) {
	lg := newLogger(t, "http://127.0.0.1:1",
		attr(t, "timeout_seconds", "1"),
	)
	err := lg.LogMetrics(context.Background(), map[string]float64{"x": 1}, 0)
	require.Error(t, err)
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := webhooklog.New(context.Background(), config.NewMapping("webhook"))
	require.Error(t, err)
}
