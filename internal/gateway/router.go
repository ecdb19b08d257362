// Router - route table and request handlers.
//
// ROUTES:
//
//	POST /filter/inlet             Open WebUI filter inlet (also /{pipeline}/filter/inlet)
//	POST /filter/outlet            Open WebUI filter outlet, returns the body unchanged
//	POST /api/chat                 Filter, then proxy to the Ollama upstream
//	     /api/tags, /api/show, ...  Other Ollama endpoints, proxied unchanged
//	GET  /health                   Liveness
//	GET  /stats                    Counters and active budget settings
//
// Malformed input is a 400. The filter itself never produces a 5xx.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/washu-tag/context-gateway/internal/monitoring"
	"github.com/washu-tag/context-gateway/internal/summarization"
)

var errMessagesNotArray = errors.New("messages must be an array")

// passthroughRoutes are Ollama endpoints a chat client needs besides
// /api/chat. They are proxied without filtering.
var passthroughRoutes = []string{
	"GET /api/tags",
	"GET /api/version",
	"GET /api/ps",
	"POST /api/show",
	"POST /api/generate",
	"POST /api/embed",
}

func (g *Gateway) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /filter/inlet", g.handleInlet)
	mux.HandleFunc("POST /{pipeline}/filter/inlet", g.handleInlet)
	mux.HandleFunc("POST /filter/outlet", g.handleOutlet)
	mux.HandleFunc("POST /{pipeline}/filter/outlet", g.handleOutlet)
	mux.HandleFunc("POST /api/chat", g.handleChat)
	for _, pattern := range passthroughRoutes {
		mux.Handle(pattern, g.proxy)
	}
	mux.HandleFunc("GET /health", g.handleHealth)
	mux.HandleFunc("GET /stats", g.handleStats)
	return mux
}

// =============================================================================
// FILTER ENDPOINTS
// =============================================================================

// handleInlet accepts either a pipelines envelope or a bare chat request and
// returns the chat request with its messages fitted to the budget.
func (g *Gateway) handleInlet(w http.ResponseWriter, r *http.Request) {
	body, ok := g.readBody(w, r)
	if !ok {
		return
	}

	chat, user := unwrapEnvelope(body)
	out, res, err := g.filterChat(r.Context(), chat, user, r.URL.Path)
	if err != nil {
		g.alerts.FlagInvalidRequest(monitoring.RequestIDFromContext(r.Context()), err.Error())
		g.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	setContextHeaders(w, res)
	g.writeRawJSON(w, out)
}

// handleOutlet returns the response body unchanged. Summarization only
// happens on the way in.
func (g *Gateway) handleOutlet(w http.ResponseWriter, r *http.Request) {
	body, ok := g.readBody(w, r)
	if !ok {
		return
	}
	chat, _ := unwrapEnvelope(body)
	g.writeRawJSON(w, chat)
}

// handleChat filters an Ollama chat request and proxies it upstream.
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	body, ok := g.readBody(w, r)
	if !ok {
		return
	}

	out, res, err := g.filterChat(r.Context(), body, nil, r.URL.Path)
	if err != nil {
		g.alerts.FlagInvalidRequest(monitoring.RequestIDFromContext(r.Context()), err.Error())
		g.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	setContextHeaders(w, res)

	r.Body = io.NopCloser(bytes.NewReader(out))
	r.ContentLength = int64(len(out))
	r.Header.Set("Content-Length", strconv.Itoa(len(out)))
	r.GetBody = nil

	g.requestLogger.LogProxied(monitoring.RequestIDFromContext(r.Context()), g.upstream.String(), len(out))
	g.proxy.ServeHTTP(w, r)
}

// unwrapEnvelope returns the chat request and user of a pipelines envelope,
// or body itself when it is a bare chat request.
func unwrapEnvelope(body []byte) (chat []byte, user json.RawMessage) {
	inner := gjson.GetBytes(body, "body")
	if !inner.IsObject() {
		return body, nil
	}
	if u := gjson.GetBytes(body, "user"); u.Exists() {
		user = json.RawMessage(u.Raw)
	}
	return []byte(inner.Raw), user
}

// filterChat runs the pipeline on a chat request and rewrites its messages.
// The input is returned as is when nothing changed.
func (g *Gateway) filterChat(ctx context.Context, chat []byte, user json.RawMessage, path string) ([]byte, summarization.Result, error) {
	req, err := decodeChatRequest(chat)
	if err != nil {
		return nil, summarization.Result{}, err
	}
	req.User = user

	res := g.runFilter(ctx, req, path)
	if !res.Changed {
		return chat, res, nil
	}

	raw, err := json.Marshal(res.Messages)
	if err != nil {
		return nil, res, fmt.Errorf("encode messages: %w", err)
	}
	out, err := sjson.SetRawBytes(chat, "messages", raw)
	if err != nil {
		return nil, res, fmt.Errorf("rewrite messages: %w", err)
	}
	return out, res, nil
}

// decodeChatRequest reads the model and messages of a chat request.
// A request without messages is valid and has nothing to filter.
func decodeChatRequest(chat []byte) (summarization.Request, error) {
	fields := gjson.GetManyBytes(chat, "model", "messages")
	req := summarization.Request{Model: fields[0].String()}

	messages := fields[1]
	if !messages.Exists() || messages.Type == gjson.Null {
		return req, nil
	}
	if !messages.IsArray() {
		return req, errMessagesNotArray
	}
	if err := json.Unmarshal([]byte(messages.Raw), &req.Messages); err != nil {
		return req, fmt.Errorf("invalid messages: %w", err)
	}
	return req, nil
}

func setContextHeaders(w http.ResponseWriter, res summarization.Result) {
	if res.Status != "" {
		w.Header().Set(HeaderContextStatus, res.Status)
	}
	if res.Action != summarization.ActionPassthroughEmpty {
		w.Header().Set(HeaderContextTokens, fmt.Sprintf("%d/%d", res.OriginalTokens, res.FinalTokens))
	}
}

// =============================================================================
// PROXY
// =============================================================================

func (g *Gateway) newProxy() *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(g.upstream)
			pr.SetXForwarded()
		},
		Transport:     g.transport,
		FlushInterval: proxyFlushInterval,
		ModifyResponse: func(resp *http.Response) error {
			if resp.StatusCode >= http.StatusInternalServerError {
				g.alerts.FlagUpstreamError(monitoring.RequestIDFromContext(resp.Request.Context()),
					g.upstream.String(), resp.StatusCode, nil)
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			g.alerts.FlagUpstreamError(monitoring.RequestIDFromContext(r.Context()),
				g.upstream.String(), http.StatusBadGateway, err)
			g.writeError(w, "upstream unavailable", http.StatusBadGateway)
		},
	}
}

// =============================================================================
// INFO ENDPOINTS
// =============================================================================

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	g.writeJSON(w, HealthResponse{Status: "ok", Time: time.Now().UTC()}, http.StatusOK)
}

func (g *Gateway) handleStats(w http.ResponseWriter, _ *http.Request) {
	cfg := g.filter.Config()
	g.writeJSON(w, StatsResponse{
		Metrics: g.metrics.Stats(),
		Config: StatsConfig{
			TokenThreshold:           cfg.TokenThreshold,
			MessagesToKeep:           cfg.MessagesToKeep,
			MinMessagesToKeep:        cfg.MinMessagesToKeep,
			ToolResultTokenThreshold: cfg.ToolResultTokenThreshold,
			SummarizerProvider:       cfg.Summarizer.Provider,
			SummarizerModel:          cfg.Summarizer.Model,
		},
		Estimated: g.filter.Counter().Estimated(),
		Last:      g.lastStatus.Load(),
	}, http.StatusOK)
}

// =============================================================================
// HELPERS
// =============================================================================

// readBody reads a size-limited JSON body, replying 413 or 400 on failure.
func (g *Gateway) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			g.writeError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		g.writeError(w, "failed to read request body", http.StatusBadRequest)
		return nil, false
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		g.writeError(w, "request body must be a JSON object", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

func (g *Gateway) writeRawJSON(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (g *Gateway) writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Warn().Err(err).Msg("failed to write response")
	}
}

func (g *Gateway) writeError(w http.ResponseWriter, msg string, status int) {
	errType := "invalid_request_error"
	switch {
	case status == http.StatusBadGateway:
		errType = "upstream_error"
	case status >= http.StatusInternalServerError:
		errType = "server_error"
	}
	g.writeJSON(w, ErrorResponse{Error: ErrorDetail{Message: msg, Type: errType}}, status)
}
