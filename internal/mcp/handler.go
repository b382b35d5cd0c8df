package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	Logger *slog.Logger

	// ErrorHints maps a tool name to guidance appended to its error
	// results. Nil selects DefaultErrorHints.
	ErrorHints map[string]string

	// Now is the clock used for date defaults.
	Now func() time.Time
}

// Handler validates tool calls, routes them to the backend services and
// renders the outcome as text.
type Handler struct {
	services Services
	logger   *slog.Logger
	hints    map[string]string
	now      func() time.Time

	tools []*registeredTool
	index map[string]*registeredTool
}

type registeredTool struct {
	spec       toolSpec
	root       *jsonschema.Resolved
	properties map[string]*jsonschema.Resolved
}

// NewHandler creates a new MCP handler. It panics if a catalog schema
// does not resolve, which is a programming error.
func NewHandler(services Services, opts HandlerOptions) *Handler {
	h := &Handler{
		services: services,
		logger:   opts.Logger,
		hints:    opts.ErrorHints,
		now:      opts.Now,
		index:    map[string]*registeredTool{},
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.hints == nil {
		h.hints = DefaultErrorHints
	}
	if h.now == nil {
		h.now = time.Now
	}

	for _, spec := range buildToolCatalog(h) {
		tool, err := resolveTool(spec)
		if err != nil {
			panic(err)
		}
		h.tools = append(h.tools, tool)
		h.index[spec.Name] = tool
	}
	return h
}

func resolveTool(spec toolSpec) (*registeredTool, error) {
	root, err := spec.Schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolving schema of %s: %w", spec.Name, err)
	}
	tool := &registeredTool{spec: spec, root: root, properties: map[string]*jsonschema.Resolved{}}
	for name, property := range spec.Schema.Properties {
		resolved, err := property.Resolve(nil)
		if err != nil {
			return nil, fmt.Errorf("resolving schema of %s.%s: %w", spec.Name, name, err)
		}
		tool.properties[name] = resolved
	}
	return tool, nil
}

// Tools lists the catalog in registration order.
func (h *Handler) Tools() []*sdkmcp.Tool {
	tools := make([]*sdkmcp.Tool, 0, len(h.tools))
	for _, tool := range h.tools {
		tools = append(tools, &sdkmcp.Tool{
			Name:        tool.spec.Name,
			Description: tool.spec.Description,
			InputSchema: tool.spec.Schema,
		})
	}
	return tools
}

// Dispatch runs one tool call. Every failure, including a panic in the
// tool body, comes back as an error result rather than a Go error.
func (h *Handler) Dispatch(ctx context.Context, name string, args json.RawMessage) (result *sdkmcp.CallToolResult) {
	callID := uuid.NewString()
	logger := h.logger.With("call_id", callID, "tool", name)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("tool panicked", "panic", r, "duration_ms", time.Since(start).Milliseconds(), "stack", string(debug.Stack()))
			result = h.errorResult(name, &APIError{Code: CodeInternalError, Message: fmt.Sprintf("panic: %v", r)})
		}
	}()

	text, err := h.call(ctx, name, args)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		apiErr := MapError(err)
		logger.Warn("tool call failed", "code", apiErr.Code, "duration_ms", duration, "error", err)
		return h.errorResult(name, apiErr)
	}
	logger.Info("tool call", "duration_ms", duration)
	return textResult(text)
}

func (h *Handler) call(ctx context.Context, name string, args json.RawMessage) (string, error) {
	tool, ok := h.index[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if err := tool.validate(args); err != nil {
		return "", err
	}
	text, err := tool.spec.Run(ctx, args)
	var validation *ValidationError
	if errors.As(err, &validation) && validation.Tool == "" {
		validation.Tool = name
	}
	return text, err
}

// validate checks args against the tool schema. Required fields and each
// present property are checked on their own first so the error can name
// the field.
func (t *registeredTool) validate(args json.RawMessage) error {
	var instance map[string]any
	if trimmed := bytes.TrimSpace(args); len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &instance); err != nil {
			return &ValidationError{Tool: t.spec.Name, Reason: "arguments must be a JSON object"}
		}
	}
	if instance == nil {
		instance = map[string]any{}
	}

	for _, field := range t.spec.Schema.Required {
		if _, ok := instance[field]; !ok {
			return &ValidationError{Tool: t.spec.Name, Field: field, Reason: "is required"}
		}
	}

	fields := make([]string, 0, len(instance))
	for field := range instance {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		property, ok := t.properties[field]
		if !ok {
			continue
		}
		if err := property.Validate(instance[field]); err != nil {
			return &ValidationError{Tool: t.spec.Name, Field: field, Reason: err.Error()}
		}
	}

	if err := t.root.Validate(instance); err != nil {
		return &ValidationError{Tool: t.spec.Name, Reason: err.Error()}
	}
	return nil
}

func (h *Handler) errorResult(name string, apiErr *APIError) *sdkmcp.CallToolResult {
	var b strings.Builder
	fmt.Fprintf(&b, "Error executing %s: %s\nCode: %s", name, apiErr.Message, apiErr.Code)
	if apiErr.RecoveryHint != "" {
		fmt.Fprintf(&b, "\nHint: %s", apiErr.RecoveryHint)
	}
	if guidance := h.hints[name]; guidance != "" {
		fmt.Fprintf(&b, "\n%s", guidance)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: b.String()}},
		IsError: true,
	}
}

func textResult(text string) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: text}},
	}
}

// bind adapts a typed tool body to raw JSON arguments.
func bind[P any](run func(context.Context, P) (string, error)) func(context.Context, json.RawMessage) (string, error) {
	return func(ctx context.Context, args json.RawMessage) (string, error) {
		var params P
		if err := decodeParams(args, &params); err != nil {
			return "", &ValidationError{Reason: err.Error()}
		}
		return run(ctx, params)
	}
}

func decodeParams(params json.RawMessage, out any) error {
	trimmed := bytes.TrimSpace(params)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return json.Unmarshal(trimmed, out)
}
