package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"nftcache.app/config"
	nfterr "nftcache.app/errors"
	"nftcache.app/listing"
	"nftcache.app/metadata"
	"nftcache.app/models"
)

// MetadataResolver is the resolution surface the server exposes to clients.
type MetadataResolver interface {
	Resolve(ctx context.Context, contractAddress, tokenID string) (*models.Metadata, error)
	ResolveMany(ctx context.Context, items []models.MetadataRequest) []metadata.Result
	ResolveInline(ctx context.Context, contractAddress, tokenID, payload string) (*models.Metadata, error)
}

// ListingProvider reads the materialized listing view.
type ListingProvider interface {
	LoadSnapshot(ctx context.Context) *listing.Snapshot
	Stats(ctx context.Context) *models.ListingStats
}

// Server represents the HTTP server and API handler
type Server struct {
	router   *gin.Engine
	config   *config.Config
	resolver MetadataResolver
	listings ListingProvider
}

// NewServer creates and configures a new HTTP server
func NewServer(cfg *config.Config, resolver MetadataResolver, listings ListingProvider) *Server {
	router := gin.Default()
	router.Use(requestIDMiddleware())

	server := &Server{
		router:   router,
		config:   cfg,
		resolver: resolver,
		listings: listings,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/metadata", s.getMetadata)
		api.POST("/metadata/batch", s.batchMetadata)
		api.POST("/metadata/inline", s.inlineMetadata)
		api.GET("/listings", s.getListings)
		api.GET("/listings/stats", s.getListingStats)
	}

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Start begins the HTTP server
func (s *Server) Start() error {
	return s.router.Run(fmt.Sprintf(":%d", s.config.Server.Port))
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

func (s *Server) getMetadata(c *gin.Context) {
	var req models.MetadataRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		s.handleError(c, nfterr.NewValidationError("contract and tokenId parameters are required"))
		return
	}

	slog.Debug("Resolving metadata", "contract", req.ContractAddress, "token_id", req.TokenID)
	meta, err := s.resolver.Resolve(c.Request.Context(), req.ContractAddress, req.TokenID)
	if err != nil {
		slog.Error("Metadata resolution error", "error", err,
			"contract", req.ContractAddress, "token_id", req.TokenID)
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, meta)
}

func (s *Server) batchMetadata(c *gin.Context) {
	var req models.BatchMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, nfterr.NewValidationError("invalid request format"))
		return
	}

	results := s.resolver.ResolveMany(c.Request.Context(), req.Items)

	// Per-item failure isolation: one token's error never fails the batch.
	type itemResult struct {
		ContractAddress string           `json:"contract_address"`
		TokenID         string           `json:"token_id"`
		Metadata        *models.Metadata `json:"metadata,omitempty"`
		Error           string           `json:"error,omitempty"`
	}

	out := make([]itemResult, len(results))
	for i, r := range results {
		out[i] = itemResult{
			ContractAddress: r.Request.ContractAddress,
			TokenID:         r.Request.TokenID,
			Metadata:        r.Metadata,
		}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}

	c.JSON(http.StatusOK, gin.H{"items": out})
}

func (s *Server) inlineMetadata(c *gin.Context) {
	var req struct {
		ContractAddress string `json:"contract_address" binding:"required"`
		TokenID         string `json:"token_id" binding:"required"`
		Payload         string `json:"payload" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, nfterr.NewValidationError("invalid request format"))
		return
	}

	meta, err := s.resolver.ResolveInline(c.Request.Context(), req.ContractAddress, req.TokenID, req.Payload)
	if err != nil {
		slog.Error("Inline decode error", "error", err,
			"contract", req.ContractAddress, "token_id", req.TokenID)
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, meta)
}

func (s *Server) getListings(c *gin.Context) {
	snapshot := s.listings.LoadSnapshot(c.Request.Context())
	if snapshot == nil {
		s.handleError(c, nfterr.NewNotFoundError("no listing snapshot available"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"active_listings":    snapshot.ActiveListings,
		"last_scanned_block": snapshot.LastScannedBlock,
		"updated_at":         snapshot.UpdatedAt,
	})
}

func (s *Server) getListingStats(c *gin.Context) {
	stats := s.listings.Stats(c.Request.Context())
	if stats == nil {
		s.handleError(c, nfterr.NewNotFoundError("no listing snapshot available"))
		return
	}

	c.JSON(http.StatusOK, stats)
}

// handleError handles different types of application errors
func (s *Server) handleError(c *gin.Context, err error) {
	var appErr *nfterr.AppError
	var statusCode int
	var message string

	if errors.As(err, &appErr) {
		switch appErr.Type {
		case nfterr.ValidationError:
			statusCode = http.StatusBadRequest
			message = appErr.Message
		case nfterr.NotFoundError:
			statusCode = http.StatusNotFound
			message = appErr.Message
		case nfterr.FetchError:
			statusCode = http.StatusServiceUnavailable
			message = "Metadata source unavailable"
		case nfterr.DecodeError:
			statusCode = http.StatusUnprocessableEntity
			message = appErr.Message
		case nfterr.PersistenceError, nfterr.DatabaseError:
			statusCode = http.StatusInternalServerError
			message = "Internal server error"
		default:
			statusCode = http.StatusInternalServerError
			message = "Internal server error"
		}
	} else {
		statusCode = http.StatusInternalServerError
		message = "Internal server error"
	}

	c.JSON(statusCode, models.ErrorResponse{Error: message})
}
