package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/epd-matcher/internal/config"
	"github.com/jonathan/epd-matcher/internal/pipeline"
)

// MatchRequest represents the request body for /match and /match/stream.
// Document is the bill of quantities JSON ({"Gruppen": [...]}); the optional
// fields override the server's matching configuration for this run.
type MatchRequest struct {
	Document   json.RawMessage `json:"document"`
	NoBatch    bool            `json:"no_batch,omitempty"`
	MaxResults int             `json:"max_results,omitempty"`
	ModelTier  string          `json:"model_tier,omitempty"`
}

// MatchResponse represents the response for /match
type MatchResponse struct {
	Status    string `json:"status"`
	Materials int    `json:"materials"`
}

// decodeMatchRequest reads and validates the request body. It returns the
// decoded input document together with the per-run configuration.
func (s *Server) decodeMatchRequest(r *http.Request) (*pipeline.GroupsDocument, config.Config, error) {
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, config.Config{}, &ErrValidation{Field: "body", Message: "invalid request body: " + err.Error()}
	}
	if len(req.Document) == 0 {
		return nil, config.Config{}, &ErrValidation{Field: "document", Message: "document is required"}
	}

	doc, err := pipeline.DecodeGroups(req.Document)
	if err != nil {
		return nil, config.Config{}, &ErrValidation{Field: "document", Message: err.Error()}
	}

	cfg := s.cfg
	if req.NoBatch {
		cfg.UseBatchMode = false
	}
	if req.MaxResults > 0 {
		cfg.MaxResults = req.MaxResults
	}
	if req.ModelTier != "" {
		cfg.ModelTier = req.ModelTier
	}
	return doc, cfg, nil
}

// handleMatch starts a new matching run in the background. Results land in
// the database and are retrieved via the run inspection endpoints.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	doc, cfg, err := s.decodeMatchRequest(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	log.Printf("Starting matching run (%d materials)", len(doc.Items))

	go func() {
		ctx := context.Background()
		if _, err := pipeline.Run(ctx, pipeline.RunOptions{
			Items:     doc.Items,
			InputFile: "http:match",
			Config:    cfg,
		}); err != nil {
			log.Printf("Matching run failed: %v", err)
		}
	}()

	s.jsonResponse(w, http.StatusAccepted, MatchResponse{
		Status:    "started",
		Materials: len(doc.Items),
	})
}

// handleMatchStream runs the matching pipeline synchronously and streams
// progress via SSE. The final result event carries the enriched document.
func (s *Server) handleMatchStream(w http.ResponseWriter, r *http.Request) {
	doc, cfg, err := s.decodeMatchRequest(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("Starting streaming matching run (%d materials)", len(doc.Items))

	result, err := pipeline.Run(r.Context(), pipeline.RunOptions{
		Items:     doc.Items,
		InputFile: "http:match/stream",
		Config:    cfg,
		OnProgress: func(event pipeline.ProgressEvent) {
			if err := sse.WriteEvent(EventStep, event); err != nil {
				log.Printf("Error writing SSE event: %v", err)
			}
		},
	})
	if err != nil {
		log.Printf("Matching run failed: %v", err)
		sse.WriteError(err.Error())
		return
	}

	enriched, err := doc.Encode(result.Reports)
	if err != nil {
		sse.WriteError(err.Error())
		return
	}
	if err := sse.WriteEvent(EventResult, json.RawMessage(enriched)); err != nil {
		log.Printf("Error writing result event: %v", err)
	}

	runID := ""
	if result.RunID != uuid.Nil {
		runID = result.RunID.String()
	}
	sse.WriteComplete(runID, "completed")
	log.Printf("Streaming matching run completed (%d matched, %d failed)",
		result.MatchedCount(), result.FailedCount())
}
