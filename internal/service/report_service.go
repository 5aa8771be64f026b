package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lifegpa-api/internal/dto"
	"github.com/noah-isme/lifegpa-api/internal/observability"
	"github.com/noah-isme/lifegpa-api/internal/repository"
)

// ReportService lists stored report cards.
type ReportService interface {
	ReportCacheInvalidator
	ListForUser(ctx context.Context, userID string) ([]dto.ReportCardResponse, error)
}

type reportService struct {
	reports  repository.ReportCardRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewReportService builds the report listing service.
func NewReportService(reports repository.ReportCardRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ReportService {
	return &reportService{
		reports:  reports,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "report_service").Logger(),
	}
}

func reportCacheKey(userID string) string {
	return "reports:user:" + userID
}

func (s *reportService) ListForUser(ctx context.Context, userID string) ([]dto.ReportCardResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, &AuthorizationError{Op: "list reports", Reason: "no authenticated user"}
	}

	cacheKey := reportCacheKey(userID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response []dto.ReportCardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				observability.ReportCacheLookups().WithLabelValues("hit").Inc()
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read report cache")
		}
		observability.ReportCacheLookups().WithLabelValues("miss").Inc()
	}

	rows, err := s.reports.ListByUser(ctx, userID)
	if err != nil {
		return nil, ClassifyBackendError("list reports", err)
	}

	response := make([]dto.ReportCardResponse, 0, len(rows))
	for _, model := range rows {
		item, err := dto.NewReportCardResponse(model)
		if err != nil {
			s.logger.Warn().Err(err).Uint("report_id", model.ID).Msg("skipping report with unreadable data")
			continue
		}
		response = append(response, item)
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store report cache")
			}
		}
	}

	return response, nil
}

func (s *reportService) Invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, reportCacheKey(strings.TrimSpace(userID))).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate report cache")
	}
}
