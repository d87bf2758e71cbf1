package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewPlanMCPServer creates an MCP server with the account-planning tools
// registered.
func NewPlanMCPServer(svc *PlanService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "planweave",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "chat_turn",
		Description: "Send one user message to the planning agent. Runs the full turn including any approved research steps, and returns the agent's reply plus the resulting plan version.",
	}, svc.ChatTurn)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_plan",
		Description: "Fetch an account plan by ID, both as structured sections and rendered markdown.",
	}, svc.GetPlan)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "diff_plan",
		Description: "Compare two stored versions of a plan and return a line diff of the rendered documents.",
	}, svc.DiffPlan)

	return server
}

// RunMCPServer starts an HTTP server exposing the planning MCP tools.
func RunMCPServer(ctx context.Context, svc *PlanService, addr string) error {
	server := NewPlanMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
