package mcp

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/ppiankov/hazardwatch/internal/audit"
	"github.com/ppiankov/hazardwatch/internal/monitor"
	"github.com/ppiankov/hazardwatch/internal/policy"
	"github.com/ppiankov/hazardwatch/internal/report"
)

// Config holds MCP server configuration.
type Config struct {
	ConfigPath   string
	AuditLogPath string
	Version      string
	Logger       *zap.Logger
}

// Server exposes the hazard engine as MCP tools.
type Server struct {
	mcpServer *mcpsdk.Server
	live      *policy.Live
	auditLog  *audit.Log
	logger    *zap.Logger
	sessionID string
	calls     atomic.Int64
}

// New creates an MCP server with the loaded config and tools.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	live, err := policy.NewLive(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var auditLog *audit.Log
	if cfg.AuditLogPath != "" {
		auditLog, err = audit.Open(cfg.AuditLogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		live:      live,
		auditLog:  auditLog,
		logger:    logger,
		sessionID: "mcp-" + uuid.New().String(),
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "hazardwatch",
			Version: version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Live exposes the hot-reloadable engine, e.g. for a policy.Reloader.
func (s *Server) Live() *policy.Live {
	return s.live
}

// Close closes the audit log if configured.
func (s *Server) Close() error {
	if s.auditLog != nil {
		return s.auditLog.Close()
	}
	return nil
}

// recordAudit logs an assessment under this session's run ID. Each call
// takes the next step number so the chain verifies per run.
func (s *Server) recordAudit(step monitor.Step, hash string) {
	if s.auditLog == nil {
		return
	}
	entry := report.AuditEntry(step, s.sessionID, hash)
	if err := s.auditLog.Record(entry); err != nil {
		s.logger.Error("audit write failed", zap.Error(err))
	}
}

// registerTools adds all hazardwatch tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hazard_assess",
		Description: "Score one categorical observation: returns the danger probability, the fuzzy risk label with memberships, and the alarm flag.",
	}, s.handleAssess)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hazard_classify",
		Description: "Classify a danger probability in [0,1] into Safe/Caution/High/Critical with membership degrees.",
	}, s.handleClassify)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hazard_schema",
		Description: "List the observed variables with their allowed states and weights, plus the fuzzy set control points.",
	}, s.handleSchema)
}
