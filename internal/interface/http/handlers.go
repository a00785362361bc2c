// Package http implements the REST API for the peer-help marketplace.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/suilotion/peerhelp-hub/internal/application/command"
	"github.com/suilotion/peerhelp-hub/internal/application/query"
	"github.com/suilotion/peerhelp-hub/internal/domain/help"
	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
	"github.com/suilotion/peerhelp-hub/internal/infrastructure/external/intra"
	"github.com/suilotion/peerhelp-hub/pkg/circuitbreaker"
	"github.com/suilotion/peerhelp-hub/pkg/logger"
)

// identityHeader carries the authenticated caller. The gateway in front of
// this service is responsible for authentication; the API trusts the header.
const identityHeader = "X-Identity"

// maxBodyBytes caps request body size.
const maxBodyBytes = 1 << 20 // 1 MB

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "Peer Help Hub API",
		"version":     "v1",
		"description": "REST API for the peer-help mentorship marketplace",
		"endpoints": map[string]string{
			"health":   "/health",
			"profiles": "/api/v1/profiles/{identity}",
			"requests": "/api/v1/requests",
			"stats":    "/api/v1/stats",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthCheck != nil {
		if err := s.deps.HealthCheck(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": err.Error(),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// CreateProfileRequest is the payload for POST /api/v1/profiles.
type CreateProfileRequest struct {
	DisplayName   string `json:"display_name"`
	ExternalLogin string `json:"external_login"`
}

// handleCreateProfile handles POST /api/v1/profiles
func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerIdentity(w, r)
	if !ok {
		return
	}

	var body CreateProfileRequest
	if !s.decodeBody(w, r, &body) {
		return
	}

	displayName := body.DisplayName
	externalLogin := body.ExternalLogin

	// Verify the login against the platform when a verifier is wired. The
	// platform is also the source of truth for the display name.
	if s.deps.LoginVerifier != nil {
		identity, err := s.deps.LoginVerifier.VerifyLogin(r.Context(), externalLogin)
		if err != nil {
			s.writeVerifierError(w, r, externalLogin, err)
			return
		}
		externalLogin = identity.Login
		if displayName == "" {
			displayName = identity.DisplayName
		}
	}

	result, err := s.deps.CreateProfile.Handle(r.Context(), command.CreateProfileCommand{
		Caller:        caller,
		DisplayName:   displayName,
		ExternalLogin: externalLogin,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"owner":          result.Profile.Owner.String(),
		"display_name":   result.Profile.DisplayName,
		"external_login": result.Profile.ExternalLogin,
	})
}

// handleGetProfile handles GET /api/v1/profiles/{identity}
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	identity, err := shared.NewIdentity(r.PathValue("identity"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid identity")
		return
	}

	result, err := s.deps.GetProfile.Handle(r.Context(), query.GetProfileQuery{
		Identity:      identity,
		IncludeBadges: getQueryParamBool(r, "include_badges"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// CreateRequestRequest is the payload for POST /api/v1/requests.
type CreateRequestRequest struct {
	Topic             int    `json:"topic"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	InitialDifficulty int    `json:"initial_difficulty"`
}

// handleCreateRequest handles POST /api/v1/requests
func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerIdentity(w, r)
	if !ok {
		return
	}

	var body CreateRequestRequest
	if !s.decodeBody(w, r, &body) {
		return
	}

	result, err := s.deps.CreateRequest.Handle(r.Context(), command.CreateRequestCommand{
		Caller:            caller,
		Topic:             help.Topic(body.Topic),
		Title:             body.Title,
		Description:       body.Description,
		InitialDifficulty: help.Difficulty(body.InitialDifficulty),
		CorrelationID:     getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":     result.Request.ID.String(),
		"topic":  result.Request.Topic.Name(),
		"title":  result.Request.Title,
		"status": int(result.Request.Status),
	})
}

// handleListOpenRequests handles GET /api/v1/requests
func (s *Server) handleListOpenRequests(w http.ResponseWriter, r *http.Request) {
	q := query.ListOpenRequestsQuery{
		Limit: getQueryParamInt(r, "limit", 50),
	}

	if raw := r.URL.Query().Get("topic"); raw != "" {
		topic := help.Topic(getQueryParamInt(r, "topic", -1))
		if !topic.IsValid() {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "Unknown topic")
			return
		}
		q.Topic = &topic
	}

	result, err := s.deps.ListOpenRequests.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"requests": result,
		"count":    len(result),
	})
}

// handleGetRequest handles GET /api/v1/requests/{id}
func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := s.pathEntityID(w, r, "id")
	if !ok {
		return
	}

	result, err := s.deps.GetRequest.Handle(r.Context(), query.GetRequestQuery{
		RequestID:     requestID,
		IncludeOffers: getQueryParamBool(r, "include_offers"),
		IncludeMatch:  getQueryParamBool(r, "include_match"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// VoteRequest is the payload for POST /api/v1/requests/{id}/votes.
type VoteRequest struct {
	Vote int `json:"vote"`
}

// handleVoteDifficulty handles POST /api/v1/requests/{id}/votes
func (s *Server) handleVoteDifficulty(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerIdentity(w, r)
	if !ok {
		return
	}

	requestID, ok := s.pathEntityID(w, r, "id")
	if !ok {
		return
	}

	var body VoteRequest
	if !s.decodeBody(w, r, &body) {
		return
	}

	result, err := s.deps.VoteDifficulty.Handle(r.Context(), command.VoteDifficultyCommand{
		Caller:        caller,
		RequestID:     requestID,
		Vote:          help.Difficulty(body.Vote),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"request_id":     result.Request.ID.String(),
		"new_difficulty": result.NewDifficulty.Int(),
		"vote_count":     result.Request.DifficultyVoteCount,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// OFFER & MATCH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// CreateOfferRequest is the payload for POST /api/v1/requests/{id}/offers.
type CreateOfferRequest struct {
	Message         string `json:"message"`
	CompetencyLevel int    `json:"competency_level"`
}

// handleCreateOffer handles POST /api/v1/requests/{id}/offers
func (s *Server) handleCreateOffer(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerIdentity(w, r)
	if !ok {
		return
	}

	requestID, ok := s.pathEntityID(w, r, "id")
	if !ok {
		return
	}

	var body CreateOfferRequest
	if !s.decodeBody(w, r, &body) {
		return
	}

	result, err := s.deps.CreateOffer.Handle(r.Context(), command.CreateOfferCommand{
		Caller:          caller,
		RequestID:       requestID,
		Message:         body.Message,
		CompetencyLevel: help.CompetencyLevel(body.CompetencyLevel),
		CorrelationID:   getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":         result.Offer.ID.String(),
		"request_id": result.Offer.RequestID.String(),
		"mentor":     result.Offer.Mentor.String(),
	})
}

// AcceptOfferRequest is the payload for POST /api/v1/requests/{id}/accept.
type AcceptOfferRequest struct {
	OfferID string `json:"offer_id"`
}

// handleAcceptOffer handles POST /api/v1/requests/{id}/accept
func (s *Server) handleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerIdentity(w, r)
	if !ok {
		return
	}

	requestID, ok := s.pathEntityID(w, r, "id")
	if !ok {
		return
	}

	var body AcceptOfferRequest
	if !s.decodeBody(w, r, &body) {
		return
	}

	offerID, err := shared.NewEntityID(body.OfferID)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid offer_id")
		return
	}

	result, err := s.deps.AcceptOffer.Handle(r.Context(), command.AcceptOfferCommand{
		Caller:        caller,
		RequestID:     requestID,
		OfferID:       offerID,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"match_id":   result.Match.ID.String(),
		"request_id": result.Match.RequestID.String(),
		"mentor":     result.Match.Mentor.String(),
		"mentee":     result.Match.Mentee.String(),
	})
}

// handleConfirmCompletion handles POST /api/v1/matches/{id}/confirm
func (s *Server) handleConfirmCompletion(w http.ResponseWriter, r *http.Request) {
	s.completeMatch(w, r, true)
}

// handleRejectCompletion handles POST /api/v1/matches/{id}/reject
func (s *Server) handleRejectCompletion(w http.ResponseWriter, r *http.Request) {
	s.completeMatch(w, r, false)
}

// completeMatch delivers the mentee's verdict on a match.
func (s *Server) completeMatch(w http.ResponseWriter, r *http.Request, confirmed bool) {
	caller, ok := s.callerIdentity(w, r)
	if !ok {
		return
	}

	matchID, ok := s.pathEntityID(w, r, "id")
	if !ok {
		return
	}

	result, err := s.deps.CompleteHelp.Handle(r.Context(), command.CompleteHelpCommand{
		Caller:        caller,
		MatchID:       matchID,
		Confirmed:     confirmed,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"match_id":  result.Match.ID.String(),
		"confirmed": confirmed,
	})
}

// handleClaimReward handles POST /api/v1/requests/{id}/claim
func (s *Server) handleClaimReward(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerIdentity(w, r)
	if !ok {
		return
	}

	requestID, ok := s.pathEntityID(w, r, "id")
	if !ok {
		return
	}

	result, err := s.deps.ClaimReward.Handle(r.Context(), command.ClaimRewardCommand{
		Caller:        caller,
		RequestID:     requestID,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result.Outcome)
}

// ══════════════════════════════════════════════════════════════════════════════
// STATS HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// handleGetStats handles GET /api/v1/stats
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetRegistryStats.Handle(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleAdminEvents handles GET /api/v1/admin/events
// Streams stored event envelopes in sequence order for replay consumers.
func (s *Server) handleAdminEvents(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetEventsSince == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Event log not configured")
		return
	}

	q := query.GetEventsSinceQuery{
		AfterSequence: getQueryParamInt64(r, "after", 0),
		Limit:         getQueryParamInt(r, "limit", 100),
		EventType:     shared.EventType(r.URL.Query().Get("type")),
	}

	envelopes, err := s.deps.GetEventsSince.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	var lastSequence int64
	if len(envelopes) > 0 {
		lastSequence = envelopes[len(envelopes)-1].Sequence
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events":        envelopes,
		"count":         len(envelopes),
		"last_sequence": lastSequence,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST PARSING & ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// callerIdentity extracts the authenticated caller from the identity header.
func (s *Server) callerIdentity(w http.ResponseWriter, r *http.Request) (shared.Identity, bool) {
	identity, err := shared.NewIdentity(r.Header.Get(identityHeader))
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "X-Identity header is required")
		return "", false
	}
	return identity, true
}

// pathEntityID extracts and validates an entity ID path parameter.
func (s *Server) pathEntityID(w http.ResponseWriter, r *http.Request, name string) (shared.EntityID, bool) {
	id, err := shared.NewEntityID(r.PathValue(name))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid "+name)
		return "", false
	}
	return id, true
}

// decodeBody decodes a JSON request body into dst.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return false
	}

	return true
}

// writeDomainError maps a domain error to an HTTP status and writes it.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())

	case shared.IsAlreadyExists(err):
		writeJSONError(w, http.StatusConflict, "already_exists", err.Error())

	case errors.Is(err, shared.ErrUnauthorized), errors.Is(err, shared.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, "forbidden", err.Error())

	case shared.IsPrecondition(err):
		writeJSONError(w, http.StatusConflict, "precondition_failed", err.Error())

	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())

	default:
		// Command-level Validate() errors are plain errors, not domain
		// errors; everything else is an internal fault.
		if msg := err.Error(); containsValidationHint(msg) {
			writeJSONError(w, http.StatusBadRequest, "validation_error", msg)
			return
		}
		s.logger.Error("request failed",
			logger.Err(err),
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Request failed")
	}
}

// containsValidationHint reports whether an error message came from command
// validation ("<op>: ... is required" / "invalid ...").
func containsValidationHint(msg string) bool {
	return strings.Contains(msg, "validation failed") ||
		strings.Contains(msg, "is required") ||
		strings.Contains(msg, "invalid")
}

// writeVerifierError maps login-verification failures to HTTP statuses.
func (s *Server) writeVerifierError(w http.ResponseWriter, r *http.Request, login string, err error) {
	switch {
	case errors.Is(err, intra.ErrLoginNotFound):
		writeJSONError(w, http.StatusUnprocessableEntity, "login_not_found", "Login does not exist on the platform")

	case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		writeJSONError(w, http.StatusServiceUnavailable, "verifier_unavailable", "Login verification temporarily unavailable")

	default:
		s.logger.Error("login verification failed",
			logger.Err(err),
			logger.String("login", login),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusBadGateway, "verifier_error", "Login verification failed")
	}
}
