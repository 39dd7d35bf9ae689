package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/iwvelando/diet-optimizer/internal/config"
	"github.com/iwvelando/diet-optimizer/internal/metrics"
	"github.com/iwvelando/diet-optimizer/internal/scenario"
	"github.com/iwvelando/diet-optimizer/pkg/constants"
	"github.com/iwvelando/diet-optimizer/pkg/optimization"
	"github.com/iwvelando/diet-optimizer/pkg/output"
)

type handler struct {
	logger         *zap.Logger
	maxUploadSize  int64
	version        string
	recorder       *metrics.Recorder
	requestTimeout time.Duration
}

type optimizeOptions struct {
	BestOnly bool
}

// Option configures the handler.
type Option func(*handler)

// WithRecorder instruments optimization runs and serves the registry on /metrics.
func WithRecorder(r *metrics.Recorder) Option {
	return func(h *handler) { h.recorder = r }
}

// WithRequestTimeout bounds each optimization request.
func WithRequestTimeout(d time.Duration) Option {
	return func(h *handler) { h.requestTimeout = d }
}

// NewHandler constructs the HTTP handler that serves the optimization API.
func NewHandler(logger *zap.Logger, maxUploadSize int64, version string, opts ...Option) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{logger: logger, maxUploadSize: maxUploadSize, version: trimmedVersion}
	for _, opt := range opts {
		opt(h)
	}

	mux := http.NewServeMux()

	// Optimization API endpoint (file upload)
	mux.HandleFunc("/api/optimize", h.handleOptimize)

	// Optimization API endpoint for editor-driven updates
	mux.HandleFunc("/api/editor/optimize", h.handleOptimizeEditor)

	// Config serialization endpoint for editor downloads
	mux.HandleFunc("/api/editor/export", h.handleConfigExport)

	mux.HandleFunc("/api/version", h.handleVersion)

	mux.Handle("/metrics", h.recorder.Handler())

	return mux
}

type optimizeResponse struct {
	Scenarios  []string                      `json:"scenarios"`
	Results    []optimization.ScenarioResult `json:"results"`
	Summaries  []optimization.Summary        `json:"summaries"`
	CSV        string                        `json:"csv"`
	Warnings   []string                      `json:"warnings,omitempty"`
	Duration   string                        `json:"duration"`
	Config     map[string]interface{}        `json:"config,omitempty"`
	ConfigYAML string                        `json:"configYaml,omitempty"`
}

func (h *handler) handleOptimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize))
			return
		}
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "missing configuration file")
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", "server.handleOptimize"),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read configuration: %v", err))
		return
	}

	configBytes := buf.Bytes()
	if _, err := decodeYAMLToMap(configBytes); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("error reading config data, %v", err))
		return
	}

	opts := optimizeOptions{BestOnly: coerceBool(r.FormValue("bestOnly"))}
	h.runOptimize(r.Context(), w, configBytes, start, "server.handleOptimize", opts)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleOptimizeEditor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode configuration: %v", err), "server.handleOptimizeEditor")
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	configPayload := payload
	if rawConfig, ok := payload["config"]; ok {
		cfgMap, ok := rawConfig.(map[string]interface{})
		if !ok {
			h.respondErrorWithOp(w, http.StatusBadRequest, "invalid config payload: expected object", "server.handleOptimizeEditor")
			return
		}
		configPayload = cfgMap
	}

	options := optimizeOptions{}
	if rawOptions, ok := payload["options"]; ok {
		optsMap, ok := rawOptions.(map[string]interface{})
		if !ok {
			h.respondErrorWithOp(w, http.StatusBadRequest, "invalid options payload: expected object", "server.handleOptimizeEditor")
			return
		}
		if bestVal, ok := optsMap["bestOnly"]; ok {
			options.BestOnly = coerceBool(bestVal)
		}
	}

	configBytes, err := yaml.Marshal(configPayload)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), "server.handleOptimizeEditor")
		return
	}

	h.runOptimize(r.Context(), w, configBytes, start, "server.handleOptimizeEditor", options)
}

func (h *handler) handleConfigExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode configuration: %v", err), "server.handleConfigExport")
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	yamlBytes, err := marshalOrderedConfigYAML(payload)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), "server.handleConfigExport")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"configYaml": string(yamlBytes),
	})
}

// exportKeyOrder lists the top-level sections in the order a hand-written
// configuration file presents them. Unknown keys follow alphabetically.
var exportKeyOrder = []string{"logging", "output", "solver", "ingredients", "feedScenarios", "batches", "scenarios"}

func marshalOrderedConfigYAML(payload map[string]interface{}) ([]byte, error) {
	items := make([]orderedItem, 0, len(payload))
	seen := make(map[string]struct{})

	for _, key := range exportKeyOrder {
		if value, ok := payload[key]; ok {
			items = append(items, orderedItem{key: key, value: value})
			seen[key] = struct{}{}
		}
	}

	remainingKeys := make([]string, 0, len(payload))
	for key := range payload {
		if _, already := seen[key]; already {
			continue
		}
		remainingKeys = append(remainingKeys, key)
	}
	sort.Strings(remainingKeys)
	for _, key := range remainingKeys {
		items = append(items, orderedItem{key: key, value: payload[key]})
	}

	ordered := orderedConfig{items: items}
	return yaml.Marshal(ordered)
}

type orderedConfig struct {
	items []orderedItem
}

type orderedItem struct {
	key   string
	value interface{}
}

func (o orderedConfig) MarshalYAML() (interface{}, error) {
	mapNode := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
	}

	for _, item := range o.items {
		keyNode := &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Value: item.key,
		}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(item.value); err != nil {
			return nil, err
		}
		mapNode.Content = append(mapNode.Content, keyNode, valueNode)
	}

	return mapNode, nil
}

func (h *handler) runOptimize(ctx context.Context, w http.ResponseWriter, configBytes []byte, start time.Time, op string, opts optimizeOptions) {
	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(configBytes))
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	cfg.Normalize()
	warnings := cfg.ValidateConfiguration()

	driver, err := scenario.NewDriver(h.logger, cfg, scenario.WithRecorder(h.recorder))
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to initialize optimizer: %v", err), op)
		return
	}

	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}
	result, err := driver.Run(ctx)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		h.respondErrorWithOp(w, status, fmt.Sprintf("optimization failed: %v", err), op)
		return
	}

	// echo the normalized configuration so the caller sees applied defaults
	normalized, err := yaml.Marshal(cfg)
	if err != nil {
		h.logger.Warn("failed to marshal normalized configuration",
			zap.String("op", op),
			zap.Error(err),
		)
		normalized = configBytes
	}
	configMap, err := decodeYAMLToMap(normalized)
	if err != nil {
		h.logger.Warn("failed to decode normalized configuration map",
			zap.String("op", op),
			zap.Error(err),
		)
		configMap = make(map[string]interface{})
	}

	elapsed := time.Since(start)

	response := optimizeResponse{
		Scenarios:  scenarioNames(result.Scenarios),
		Results:    result.Scenarios,
		Summaries:  result.Summaries,
		CSV:        output.CsvString(result.Scenarios, opts.BestOnly || cfg.Output.BestOnly),
		Warnings:   warnings,
		Duration:   elapsed.String(),
		Config:     configMap,
		ConfigYAML: string(normalized),
	}

	h.logger.Info("optimization computed",
		zap.String("op", op),
		zap.Int("scenarios", len(response.Scenarios)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func decodeYAMLToMap(data []byte) (map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return make(map[string]interface{}), nil
	}

	var result map[string]interface{}
	if err := yaml.Unmarshal(trimmed, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = make(map[string]interface{})
	}
	return result, nil
}

func (h *handler) respondError(w http.ResponseWriter, status int, msg string) {
	h.respondErrorWithOp(w, status, msg, "server.handleOptimize")
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("optimization request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func scenarioNames(results []optimization.ScenarioResult) []string {
	names := make([]string, 0, len(results))
	for _, r := range results {
		name := r.Identifier
		if name == "" {
			name = r.ID
		}
		names = append(names, name)
	}
	return names
}

func coerceBool(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false
		}
		if parsed, err := strconv.ParseBool(trimmed); err == nil {
			return parsed
		}
	case float64:
		return v != 0
	case int:
		return v != 0
	case json.Number:
		if parsed, err := strconv.ParseFloat(v.String(), 64); err == nil {
			return parsed != 0
		}
	}
	return false
}
