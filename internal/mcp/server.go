package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"adcp-sales-agent/internal/auth"
	"adcp-sales-agent/internal/metrics"
	"adcp-sales-agent/internal/repository"
	"adcp-sales-agent/internal/services"
)

// Server exposes the sales agent tool surface over MCP. Every handler
// resolves the tenant and principal from the request context before touching
// any service; discovery tools tolerate anonymous callers, mutating tools do
// not.
type Server struct {
	mcpServer *server.MCPServer
	resolver  *auth.Resolver
	workflows *services.WorkflowService
	products  *services.ProductService
	formats   *services.FormatRegistry
	mediaBuys *services.MediaBuyService
	logger    services.Logger
}

// NewServer creates the MCP server and registers all tools.
func NewServer(resolver *auth.Resolver, workflows *services.WorkflowService, products *services.ProductService, formats *services.FormatRegistry, mediaBuys *services.MediaBuyService, logger services.Logger) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"AdCP Sales Agent",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		resolver:  resolver,
		workflows: workflows,
		products:  products,
		formats:   formats,
		mediaBuys: mediaBuys,
		logger:    logger,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_products",
			mcp.WithDescription("List the advertising products available to the caller"),
			mcp.WithString("brief", mcp.Description("Free-text description of the campaign, used for context only")),
		),
		s.handleGetProducts,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_creative_formats",
			mcp.WithDescription("List supported creative formats, optionally filtered"),
			mcp.WithString("type", mcp.Description("Format type: display, video, or audio")),
			mcp.WithString("name_search", mcp.Description("Case-insensitive substring match on format name")),
			mcp.WithArray("format_ids", mcp.Description("Restrict to specific format IDs, e.g. from a product's format list")),
			mcp.WithBoolean("is_responsive", mcp.Description("Only responsive (true) or fixed-size (false) formats")),
			mcp.WithNumber("min_width", mcp.Description("Minimum width in pixels")),
			mcp.WithNumber("max_width", mcp.Description("Maximum width in pixels")),
			mcp.WithNumber("min_height", mcp.Description("Minimum height in pixels")),
			mcp.WithNumber("max_height", mcp.Description("Maximum height in pixels")),
		),
		s.handleListCreativeFormats,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"create_media_buy",
			mcp.WithDescription("Create a media buy from one or more products"),
			mcp.WithArray("product_ids", mcp.Required(), mcp.Description("Product IDs to include in the buy")),
			mcp.WithNumber("total_budget", mcp.Required(), mcp.Description("Total budget in the tenant currency")),
			mcp.WithString("start_date", mcp.Required(), mcp.Description("Flight start date (YYYY-MM-DD)")),
			mcp.WithString("end_date", mcp.Required(), mcp.Description("Flight end date (YYYY-MM-DD)")),
			mcp.WithString("order_name", mcp.Description("Human-readable order name")),
			mcp.WithString("po_number", mcp.Description("Purchase order number")),
		),
		s.handleCreateMediaBuy,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"update_media_buy",
			mcp.WithDescription("Update an existing media buy owned by the caller"),
			mcp.WithString("media_buy_id", mcp.Required(), mcp.Description("ID of the media buy")),
			mcp.WithString("order_name", mcp.Description("New order name")),
			mcp.WithNumber("budget", mcp.Description("New total budget")),
			mcp.WithBoolean("paused", mcp.Description("Pause (true) or resume (false) delivery")),
			mcp.WithString("end_date", mcp.Description("New flight end date (YYYY-MM-DD)")),
		),
		s.handleUpdateMediaBuy,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_tasks",
			mcp.WithDescription("List workflow tasks for the caller's tenant, newest first"),
			mcp.WithString("status", mcp.Description("Filter by task status")),
			mcp.WithString("object_type", mcp.Description("Filter by associated object type, e.g. media_buy")),
			mcp.WithString("object_id", mcp.Description("Filter by associated object ID; requires object_type")),
			mcp.WithNumber("limit", mcp.Description("Page size, max 100")),
			mcp.WithNumber("offset", mcp.Description("Number of tasks to skip")),
		),
		s.handleListTasks,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_task",
			mcp.WithDescription("Get the full record of one workflow task"),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("ID of the task")),
		),
		s.handleGetTask,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"complete_task",
			mcp.WithDescription("Drive a workflow task to a terminal status"),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("ID of the task")),
			mcp.WithString("status", mcp.DefaultString("completed"), mcp.Description("Terminal status: completed (default) or failed")),
			mcp.WithObject("response_data", mcp.Description("Result payload to record on completion")),
			mcp.WithString("error_message", mcp.Description("Failure reason when status is failed")),
		),
		s.handleCompleteTask,
	)
}

func (s *Server) handleGetProducts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	principalID, tenant, err := s.resolver.Resolve(ctx, false)
	if err != nil {
		metrics.ObserveTool("get_products", err)
		return toolError(err), nil
	}

	products, err := s.products.GetProducts(ctx, tenant, principalID)
	metrics.ObserveTool("get_products", err)
	if err != nil {
		return toolError(err), nil
	}

	return toolJSON(map[string]any{"products": products})
}

func (s *Server) handleListCreativeFormats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, _, err := s.resolver.Resolve(ctx, false)
	if err != nil {
		metrics.ObserveTool("list_creative_formats", err)
		return toolError(err), nil
	}

	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	params := services.ListFormatsParams{
		Type:         stringArg(args, "type"),
		NameSearch:   stringArg(args, "name_search"),
		FormatIDs:    stringSliceArg(args, "format_ids"),
		IsResponsive: boolArg(args, "is_responsive"),
		MinWidth:     intArg(args, "min_width"),
		MaxWidth:     intArg(args, "max_width"),
		MinHeight:    intArg(args, "min_height"),
		MaxHeight:    intArg(args, "max_height"),
	}
	formats := s.formats.ListFormats(params)
	metrics.ObserveTool("list_creative_formats", nil)

	return toolJSON(map[string]any{"formats": formats, "total": len(formats)})
}

func (s *Server) handleCreateMediaBuy(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	principalID, tenant, err := s.resolver.Resolve(ctx, true)
	if err != nil {
		metrics.ObserveTool("create_media_buy", err)
		return toolError(err), nil
	}

	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	productIDs := stringSliceArg(args, "product_ids")
	if len(productIDs) == 0 {
		return mcp.NewToolResultError("Missing required parameter: product_ids"), nil
	}
	budget, ok := args["total_budget"].(float64)
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: total_budget"), nil
	}
	startDate, err := dateArg(args, "start_date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	endDate, err := dateArg(args, "end_date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	receipt, err := s.mediaBuys.CreateMediaBuy(ctx, tenant, principalID, services.CreateMediaBuyParams{
		OrderName:   stringArg(args, "order_name"),
		PONumber:    stringArg(args, "po_number"),
		ProductIDs:  productIDs,
		TotalBudget: budget,
		StartDate:   startDate,
		EndDate:     endDate,
	})
	metrics.ObserveTool("create_media_buy", err)
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(receipt)
}

func (s *Server) handleUpdateMediaBuy(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	principalID, tenant, err := s.resolver.Resolve(ctx, true)
	if err != nil {
		metrics.ObserveTool("update_media_buy", err)
		return toolError(err), nil
	}

	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	mediaBuyID := stringArg(args, "media_buy_id")
	if mediaBuyID == "" {
		return mcp.NewToolResultError("Missing required parameter: media_buy_id"), nil
	}

	params := services.UpdateMediaBuyParams{MediaBuyID: mediaBuyID}
	if v, ok := args["order_name"].(string); ok {
		params.OrderName = &v
	}
	if v, ok := args["budget"].(float64); ok {
		params.Budget = &v
	}
	if v, ok := args["paused"].(bool); ok {
		params.Paused = &v
	}
	if _, present := args["end_date"]; present {
		endDate, err := dateArg(args, "end_date")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		params.EndDate = &endDate
	}

	receipt, err := s.mediaBuys.UpdateMediaBuy(ctx, tenant, principalID, params)
	metrics.ObserveTool("update_media_buy", err)
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(receipt)
}

func (s *Server) handleListTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, tenant, err := s.resolver.Resolve(ctx, true)
	if err != nil {
		metrics.ObserveTool("list_tasks", err)
		return toolError(err), nil
	}

	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	params := services.ListTasksParams{
		Status:     stringArg(args, "status"),
		ObjectType: stringArg(args, "object_type"),
		ObjectID:   stringArg(args, "object_id"),
	}
	if v := intArg(args, "limit"); v != nil {
		params.Limit = *v
	}
	if v := intArg(args, "offset"); v != nil {
		params.Offset = *v
	}

	page, err := s.workflows.ListTasks(ctx, tenant, params)
	metrics.ObserveTool("list_tasks", err)
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(page)
}

func (s *Server) handleGetTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, tenant, err := s.resolver.Resolve(ctx, true)
	if err != nil {
		metrics.ObserveTool("get_task", err)
		return toolError(err), nil
	}

	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}
	taskID := stringArg(args, "task_id")
	if taskID == "" {
		return mcp.NewToolResultError("Missing required parameter: task_id"), nil
	}

	detail, err := s.workflows.GetTask(ctx, tenant, taskID)
	metrics.ObserveTool("get_task", err)
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(detail)
}

func (s *Server) handleCompleteTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	principalID, tenant, err := s.resolver.Resolve(ctx, true)
	if err != nil {
		metrics.ObserveTool("complete_task", err)
		return toolError(err), nil
	}

	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}
	taskID := stringArg(args, "task_id")
	if taskID == "" {
		return mcp.NewToolResultError("Missing required parameter: task_id"), nil
	}
	params := services.CompleteTaskParams{
		TaskID:       taskID,
		Status:       stringArg(args, "status"),
		ErrorMessage: stringArg(args, "error_message"),
	}
	if v, ok := args["response_data"].(map[string]interface{}); ok {
		params.ResponseData = v
	}

	receipt, err := s.workflows.CompleteTask(ctx, tenant, principalID, params)
	metrics.ObserveTool("complete_task", err)
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(receipt)
}

// toolError maps service and store errors onto tool results without leaking
// internals. Auth failures and not-found conditions get stable messages.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrNoTenant):
		return mcp.NewToolResultError(err.Error())
	case errors.Is(err, repository.ErrNotFound):
		return mcp.NewToolResultError("Not found")
	case errors.Is(err, services.ErrInvalidArgument), errors.Is(err, repository.ErrInvalidTransition):
		return mcp.NewToolResultError(err.Error())
	default:
		return mcp.NewToolResultError(fmt.Sprintf("Internal error: %v", err))
	}
}

func toolJSON(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

func boolArg(args map[string]interface{}, key string) *bool {
	if v, ok := args[key].(bool); ok {
		return &v
	}
	return nil
}

func intArg(args map[string]interface{}, key string) *int {
	if v, ok := args[key].(float64); ok {
		i := int(v)
		return &i
	}
	return nil
}

func stringSliceArg(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// dateArg parses a date parameter, accepting both plain dates and RFC 3339
// timestamps.
func dateArg(args map[string]interface{}, key string) (time.Time, error) {
	raw := stringArg(args, key)
	if raw == "" {
		return time.Time{}, fmt.Errorf("Missing required parameter: %s", key)
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("Invalid %s %q, expected YYYY-MM-DD", key, raw)
}

// MountHTTPHandlers wires the MCP transports onto mux under /mcp. The
// context func captures the auth headers before the transport strips the
// request, so tool handlers can resolve the tenant from the context alone.
func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	withAuth := func(ctx context.Context, r *http.Request) context.Context {
		return auth.WithRequestInfo(ctx, auth.RequestInfoFromRequest(r))
	}

	sseServer := server.NewSSEServer(mcpServer,
		server.WithStaticBasePath("/mcp"),
		server.WithSSEContextFunc(withAuth),
	)

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
