package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/questionbank/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DBPinger is satisfied by *mongo.Client.
type DBPinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// BackendPinger is satisfied by *libraryapi.Client.
type BackendPinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	DB      DBPinger
	Backend BackendPinger
	Log     *zap.Logger
}

// NewHandler constructs a health Handler.
func NewHandler(db DBPinger, backend BackendPinger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:      db,
		Backend: backend,
		Log:     logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string   `json:"status"`
	Database string   `json:"database"`
	Backend  string   `json:"backend"`
	Message  string   `json:"message,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "backend":"reachable" }
//
// When either check fails: 503 and
//
//	{ "status":"error", "database":"disconnected", "backend":"reachable",
//	  "message":"Database unavailable", "errors":["…"] }
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	var dbErr, backendErr error
	var g errgroup.Group
	g.Go(func() error {
		dbErr = h.DB.Ping(ctx, readpref.Primary())
		return nil
	})
	g.Go(func() error {
		backendErr = h.Backend.Ping(ctx)
		return nil
	})
	_ = g.Wait()

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
		Backend:  "reachable",
	}
	if dbErr != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(dbErr))
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Errors = append(resp.Errors, dbErr.Error())
	}
	if backendErr != nil {
		h.Log.Error("health-check: backend ping failed", zap.Error(backendErr))
		resp.Status = "error"
		resp.Backend = "unreachable"
		if resp.Message == "" {
			resp.Message = "Library backend unavailable"
		}
		resp.Errors = append(resp.Errors, backendErr.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	if resp.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
