package mcpserver

import (
	"context"
	"io"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"mend/internal/healing"
)

// PolicyProvider returns the healing policy and context applied to a
// heal_failure call. It is read per call, not at construction, so config
// reloads take effect on the running server.
type PolicyProvider func() (healing.Config, healing.Context)

// Server exposes the healing engine as MCP tools over stdio transport.
type Server struct {
	coordinator *healing.Coordinator
	classifier  *healing.Classifier
	policy      PolicyProvider
	mcpServer   *server.MCPServer
}

// NewServer creates an MCP server bound to the given coordinator. policy is
// consulted on every heal_failure call.
func NewServer(coordinator *healing.Coordinator, policy PolicyProvider, version string) *Server {
	mcpServer := server.NewMCPServer(
		"mend",
		version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		coordinator: coordinator,
		classifier:  healing.NewClassifier(),
		policy:      policy,
		mcpServer:   mcpServer,
	}
	s.registerTools()
	return s
}

// Start serves MCP over stdio until the client closes the connection or ctx
// is cancelled.
func (s *Server) Start(ctx context.Context) error {
	return s.listen(ctx, os.Stdin, os.Stdout)
}

func (s *Server) listen(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcpServer).Listen(ctx, in, out)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	healFailureTool := mcp.NewTool("heal_failure",
		mcp.WithDescription("Run the healing pipeline for a test failure and return the healing result"),
		mcp.WithString("test_id",
			mcp.Required(),
			mcp.Description("Identifier of the failing test"),
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("Raw failure message to classify and heal"),
		),
		mcp.WithString("failure_type",
			mcp.Description("Pre-classified failure type (assertion_failed, timeout, element_not_found, network_error); omit to classify from the message"),
		),
	)
	s.mcpServer.AddTool(healFailureTool, s.handleHealFailure)

	classifyTool := mcp.NewTool("classify_failure",
		mcp.WithDescription("Classify a raw failure message into a categorical failure type"),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("Raw failure message to classify"),
		),
	)
	s.mcpServer.AddTool(classifyTool, s.handleClassifyFailure)

	listStrategiesTool := mcp.NewTool("list_strategies",
		mcp.WithDescription("List registered healing strategies with their versions and supported failure types"),
	)
	s.mcpServer.AddTool(listStrategiesTool, s.handleListStrategies)

	healingStatsTool := mcp.NewTool("healing_stats",
		mcp.WithDescription("Get aggregate healing statistics and registry counts"),
	)
	s.mcpServer.AddTool(healingStatsTool, s.handleHealingStats)
}
