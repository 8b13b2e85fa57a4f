package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/maya/opportunity-hub/internal/ai"
	"github.com/maya/opportunity-hub/internal/auth"
	"github.com/maya/opportunity-hub/internal/canvas"
	"github.com/maya/opportunity-hub/internal/chat"
	"github.com/maya/opportunity-hub/internal/db"
	"github.com/maya/opportunity-hub/internal/models"
)

// Auth

func (s *Server) handleSignup(c echo.Context) error {
	var req auth.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Signup(c.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, auth.ErrInvalidEmail):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
	}

	return c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Login(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCreds) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, resp)
}

// Generation

type generateRequest struct {
	UserInput string       `json:"userInput"`
	Messages  []ai.Message `json:"messages"`
}

func (s *Server) handleGenerate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(req.UserInput) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "userInput is required"})
	}

	opportunity, err := s.AI.GenerateOpportunity(c.Request().Context(), req.UserInput, req.Messages)
	if err != nil {
		switch {
		case errors.Is(err, ai.ErrNotConfigured):
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "OpenAI API key not configured"})
		case errors.Is(err, ai.ErrQuotaExceeded):
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "Service temporarily unavailable. Please try again later."})
		case errors.Is(err, ai.ErrMalformedResponse):
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to parse opportunity data"})
		default:
			c.Logger().Errorf("Generation failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to generate opportunity"})
		}
	}

	return c.JSON(http.StatusOK, opportunity)
}

// Opportunities

type opportunityRequest struct {
	Title       string                    `json:"title"`
	Description string                    `json:"description"`
	Content     string                    `json:"content"`
	Sections    map[string]models.Section `json:"sections"`
	Tags        []string                  `json:"tags"`
	Status      string                    `json:"status"`
}

// normalize applies the canvas rules shared by create and update: title
// required, tags deduplicated, content sanitized, and whichever of
// content/description is missing derived from the other.
func (r *opportunityRequest) normalize() (*models.Opportunity, error) {
	if err := canvas.ValidateTitle(r.Title); err != nil {
		return nil, err
	}

	status := r.Status
	if status == "" {
		status = models.StatusDraft
	}
	if status != models.StatusDraft && status != models.StatusPublished {
		return nil, errors.New("status must be draft or published")
	}

	o := &models.Opportunity{
		Title:       strings.TrimSpace(r.Title),
		Description: strings.TrimSpace(r.Description),
		Content:     canvas.Sanitize(r.Content),
		Sections:    r.Sections,
		Tags:        canvas.NormalizeTags(r.Tags),
		Status:      status,
	}
	if o.Sections == nil {
		o.Sections = map[string]models.Section{}
	}
	if o.Content == "" {
		o.Content = canvas.RenderContent(o.Description, o.Sections)
	} else if len(o.Sections) == 0 {
		// The body was edited directly; recover the structured sections
		// from the headings.
		for key, heading := range canvas.DefaultHeadings {
			if items := canvas.ExtractSectionItems(o.Content, heading); len(items) > 0 {
				o.Sections[key] = models.Section{Heading: heading, Items: items}
			}
		}
	}
	if o.Description == "" {
		o.Description = canvas.DeriveDescription(o.Content)
	}

	return o, nil
}

func (s *Server) handleCreateOpportunity(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var req opportunityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	o, err := req.normalize()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	o.CreatedBy = userID

	o.ID, err = s.Store.CreateOpportunity(c.Request().Context(), o)
	if err != nil {
		c.Logger().Errorf("Failed to create opportunity: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save opportunity"})
	}

	if o.Status == models.StatusPublished {
		s.refreshEmbedding(c.Request().Context(), o)
	}

	saved, err := s.Store.GetOpportunity(c.Request().Context(), o.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load opportunity"})
	}
	return c.JSON(http.StatusCreated, saved)
}

func (s *Server) handleUpdateOpportunity(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid opportunity ID"})
	}

	existing, err := s.Store.GetOpportunity(c.Request().Context(), id)
	if err != nil || existing.CreatedBy != userID {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}

	var req opportunityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if req.Status == "" {
		req.Status = existing.Status
	}

	o, err := req.normalize()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if !models.ValidStatusTransition(existing.Status, o.Status) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid status change"})
	}
	o.ID = id
	o.CreatedBy = userID

	if err := s.Store.UpdateOpportunity(c.Request().Context(), o); err != nil {
		c.Logger().Errorf("Failed to update opportunity: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save opportunity"})
	}

	if o.Status == models.StatusPublished {
		s.refreshEmbedding(c.Request().Context(), o)
	}

	saved, err := s.Store.GetOpportunity(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load opportunity"})
	}
	return c.JSON(http.StatusOK, saved)
}

func (s *Server) handleGetOpportunity(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid opportunity ID"})
	}

	o, err := s.Store.GetOpportunity(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}

	if o.Status != models.StatusPublished {
		// Drafts are visible to their creator only. The route is public,
		// so the token is optional here.
		if header := c.Request().Header.Get("Authorization"); header != "" {
			if userID, err := auth.ParseBearer(header); err == nil && userID == o.CreatedBy {
				return c.JSON(http.StatusOK, o)
			}
		}
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}

	return c.JSON(http.StatusOK, o)
}

func (s *Server) setStatus(c echo.Context, to string) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid opportunity ID"})
	}

	o, err := s.Store.GetOpportunity(c.Request().Context(), id)
	if err != nil || o.CreatedBy != userID {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	if !models.ValidStatusTransition(o.Status, to) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid status change"})
	}
	if to == models.StatusPublished {
		if err := canvas.ValidateTitle(o.Title); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
	}

	if err := s.Store.SetStatus(c.Request().Context(), id, userID, to); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update status"})
	}

	if to == models.StatusPublished {
		s.refreshEmbedding(c.Request().Context(), o)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": to})
}

func (s *Server) handlePublish(c echo.Context) error {
	return s.setStatus(c, models.StatusPublished)
}

func (s *Server) handleUnpublish(c echo.Context) error {
	return s.setStatus(c, models.StatusDraft)
}

// refreshEmbedding recomputes the similarity vector after a publish or
// published edit. Best effort: the write already succeeded, so failures
// only degrade semantic search for this document.
func (s *Server) refreshEmbedding(ctx context.Context, o *models.Opportunity) {
	if !s.AI.Configured() {
		return
	}

	aiCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	vec, err := s.AI.GenerateEmbedding(aiCtx, o.Title+"\n"+o.Description)
	if err != nil {
		s.Echo.Logger.Errorf("Failed to generate embedding for %s: %v", o.ID, err)
		return
	}
	if err := s.Store.UpdateEmbedding(aiCtx, o.ID, vec); err != nil {
		s.Echo.Logger.Errorf("Failed to store embedding for %s: %v", o.ID, err)
	}
}

func (s *Server) handleLike(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid opportunity ID"})
	}

	if err := s.Store.IncrementLike(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}

	return c.NoContent(http.StatusOK)
}

func (s *Server) handleMyOpportunities(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	status := c.QueryParam("status")
	if status != "" && status != models.StatusDraft && status != models.StatusPublished {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid status filter"})
	}

	opps, err := s.Store.ListByCreator(c.Request().Context(), userID, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch opportunities"})
	}

	return c.JSON(http.StatusOK, opps)
}

// Feed

func (s *Server) handleFeed(c echo.Context) error {
	params := db.FeedParams{
		Tag:    c.QueryParam("tag"),
		Cursor: c.QueryParam("cursor"),
	}

	if q := strings.TrimSpace(c.QueryParam("q")); q != "" && s.AI.Configured() {
		aiCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		vec, err := s.AI.GenerateEmbedding(aiCtx, q)
		if err != nil {
			// Fall back to the chronological feed.
			c.Logger().Errorf("Failed to generate query embedding: %v", err)
		} else {
			params.QueryEmbedding = vec
		}
	}

	result, err := s.Store.ListFeed(c.Request().Context(), params)
	if err != nil {
		if params.Cursor != "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid cursor"})
		}
		c.Logger().Errorf("Failed to list feed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetStats(c echo.Context) error {
	stats, err := s.Store.GetStats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}

// Responses

type responseRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleAddResponse(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	oppID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid opportunity ID"})
	}

	var req responseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Message is required"})
	}

	email, err := s.AuthService.GetUserEmail(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to resolve user"})
	}

	response := &models.Response{
		OpportunityID:  oppID,
		ResponderID:    userID,
		ResponderEmail: email,
		Message:        message,
	}
	response.ID, err = s.Store.AddResponse(c.Request().Context(), response)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Published opportunity not found"})
	}

	return c.JSON(http.StatusCreated, response)
}

func (s *Server) handleListResponses(c echo.Context) error {
	oppID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid opportunity ID"})
	}

	responses, err := s.Store.ListResponses(c.Request().Context(), oppID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch responses"})
	}

	return c.JSON(http.StatusOK, responses)
}

// Chat threads

type sendMessageRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleSendMessage(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid thread ID"})
	}

	if thread, err := s.Store.GetThread(c.Request().Context(), threadID); err == nil && thread.UserID != userID {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Thread not found"})
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	result, err := s.Chat.Send(c.Request().Context(), threadID, userID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Message is required"})
		case errors.Is(err, chat.ErrBusy):
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			c.Logger().Errorf("Failed to send message: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to send message"})
		}
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleListThreads(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	threads, err := s.Store.ListThreads(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch threads"})
	}

	return c.JSON(http.StatusOK, threads)
}

func (s *Server) handleListMessages(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid thread ID"})
	}

	thread, err := s.Store.GetThread(c.Request().Context(), threadID)
	if err != nil || thread.UserID != userID {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Thread not found"})
	}

	messages, err := s.Store.ListMessages(c.Request().Context(), threadID, 0)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch messages"})
	}

	return c.JSON(http.StatusOK, messages)
}
