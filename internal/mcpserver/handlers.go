package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"mend/internal/healing"
)

// handleHealFailure builds a TestFailure from the tool arguments and runs the
// full healing pipeline on it.
func (s *Server) handleHealFailure(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	testID, err := request.RequireString("test_id")
	if err != nil {
		return mcp.NewToolResultError("test_id argument is required"), nil
	}
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("message argument is required"), nil
	}

	failureType := healing.FailureUnknown
	if raw := request.GetString("failure_type", ""); raw != "" {
		failureType = healing.FailureType(raw)
		if !slices.Contains(healing.FailureTypes(), failureType) {
			return mcp.NewToolResultError(fmt.Sprintf("Unknown failure_type: %s", raw)), nil
		}
	}

	failure := healing.TestFailure{
		ID:        uuid.NewString(),
		TestID:    testID,
		Type:      failureType,
		Message:   message,
		Timestamp: time.Now(),
	}

	policy, hctx := s.policy()
	result := s.coordinator.Heal(ctx, failure, hctx, policy)
	return jsonResult(result)
}

func (s *Server) handleClassifyFailure(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("message argument is required"), nil
	}

	return jsonResult(map[string]string{
		"failureType": string(s.classifier.Classify(message)),
	})
}

// strategyInfo is the JSON shape of one list_strategies entry.
type strategyInfo struct {
	Name         string                `json:"name"`
	Version      string                `json:"version"`
	FailureTypes []healing.FailureType `json:"failureTypes"`
}

func (s *Server) handleListStrategies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	strategies := s.coordinator.Registry().Strategies()

	infos := make([]strategyInfo, 0, len(strategies))
	for _, strat := range strategies {
		infos = append(infos, strategyInfo{
			Name:         strat.Name(),
			Version:      strat.Version(),
			FailureTypes: strat.SupportedFailureTypes(),
		})
	}
	return jsonResult(infos)
}

func (s *Server) handleHealingStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]interface{}{
		"healing":  s.coordinator.Stats(),
		"registry": s.coordinator.Registry().Statistics(),
	})
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
