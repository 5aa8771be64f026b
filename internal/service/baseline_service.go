package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lifegpa-api/internal/dto"
	"github.com/noah-isme/lifegpa-api/internal/observability"
	"github.com/noah-isme/lifegpa-api/internal/repository"
)

const releaseLockScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) end return 0`

// BaselineService keeps one baseline step per user between requests.
type BaselineService interface {
	Mount(ctx context.Context, userID string) (dto.BaselineStepView, error)
	View(ctx context.Context, userID string) (dto.BaselineStepView, error)
	Reload(ctx context.Context, userID string) (dto.BaselineStepView, error)
	SetGrade(ctx context.Context, userID string, categoryID uint, grade string) (dto.BaselineStepView, error)
	SetDescription(ctx context.Context, userID string, categoryID uint, description string) (dto.BaselineStepView, error)
	Submit(ctx context.Context, userID, idempotencyKey string) (dto.BaselineStepView, error)
	Back(ctx context.Context, userID string) (dto.BaselineStepView, error)
	Unmount(ctx context.Context, userID string) error
	Watch(ctx context.Context, userID string) (<-chan dto.BaselineStepView, func(), error)
	Start(ctx context.Context)
}

// ReportCacheInvalidator drops cached report listings for a user.
type ReportCacheInvalidator interface {
	Invalidate(ctx context.Context, userID string)
}

// BaselineServiceOptions configures the step registry.
type BaselineServiceOptions struct {
	Routes        Routes
	SessionTTL    time.Duration
	SubmitLockTTL time.Duration
}

type stepEntry struct {
	step     *BaselineStep
	lastSeen time.Time
}

type baselineService struct {
	categories  repository.CategoryRepository
	reports     repository.ReportCardRepository
	cache       *redis.Client
	publisher   ReportPublisher
	invalidator ReportCacheInvalidator
	routes      Routes
	sessionTTL  time.Duration
	lockTTL     time.Duration
	logger      zerolog.Logger
	now         func() time.Time

	mu    sync.Mutex
	steps map[string]*stepEntry
}

// NewBaselineService constructs the baseline step registry.
func NewBaselineService(categories repository.CategoryRepository, reports repository.ReportCardRepository, cache *redis.Client, publisher ReportPublisher, invalidator ReportCacheInvalidator, opts BaselineServiceOptions, logger zerolog.Logger) BaselineService {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * time.Minute
	}
	if opts.SubmitLockTTL <= 0 {
		opts.SubmitLockTTL = 30 * time.Second
	}

	return &baselineService{
		categories:  categories,
		reports:     reports,
		cache:       cache,
		publisher:   publisher,
		invalidator: invalidator,
		routes:      opts.Routes.withDefaults(),
		sessionTTL:  opts.SessionTTL,
		lockTTL:     opts.SubmitLockTTL,
		logger:      logger.With().Str("component", "baseline_service").Logger(),
		now:         time.Now,
		steps:       make(map[string]*stepEntry),
	}
}

func (s *baselineService) Mount(ctx context.Context, userID string) (dto.BaselineStepView, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		step := s.newStep()
		step.Mount(ctx, nil)
		return step.View(), &AuthorizationError{Op: "mount baseline", Reason: "no authenticated user"}
	}

	step := s.acquire(userID)
	step.Mount(ctx, &User{ID: userID})
	return step.View(), nil
}

func (s *baselineService) View(ctx context.Context, userID string) (dto.BaselineStepView, error) {
	step, ok := s.lookup(userID)
	if !ok {
		return s.Mount(ctx, userID)
	}
	return step.View(), nil
}

func (s *baselineService) Reload(ctx context.Context, userID string) (dto.BaselineStepView, error) {
	step, ok := s.lookup(userID)
	if !ok {
		return s.Mount(ctx, userID)
	}
	if err := step.Reload(ctx); err != nil {
		return step.View(), err
	}
	return step.View(), nil
}

func (s *baselineService) SetGrade(_ context.Context, userID string, categoryID uint, grade string) (dto.BaselineStepView, error) {
	step, ok := s.lookup(userID)
	if !ok {
		return dto.BaselineStepView{}, ErrStepNotMounted
	}
	if err := step.SetGrade(categoryID, grade); err != nil {
		return step.View(), err
	}
	return step.View(), nil
}

func (s *baselineService) SetDescription(_ context.Context, userID string, categoryID uint, description string) (dto.BaselineStepView, error) {
	step, ok := s.lookup(userID)
	if !ok {
		return dto.BaselineStepView{}, ErrStepNotMounted
	}
	if err := step.SetDescription(categoryID, description); err != nil {
		return step.View(), err
	}
	return step.View(), nil
}

func (s *baselineService) Submit(ctx context.Context, userID, idempotencyKey string) (dto.BaselineStepView, error) {
	step, ok := s.lookup(userID)
	if !ok {
		return dto.BaselineStepView{}, ErrStepNotMounted
	}

	release, err := s.lockSubmit(ctx, userID)
	if err != nil {
		return step.View(), err
	}
	defer release()

	if _, err := step.Submit(ctx, SubmitOptions{IdempotencyKey: idempotencyKey}); err != nil {
		return step.View(), err
	}

	view := step.View()
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, userID)
	}
	s.remove(userID)
	step.Unmount()

	return view, nil
}

func (s *baselineService) Back(_ context.Context, userID string) (dto.BaselineStepView, error) {
	step, ok := s.lookup(userID)
	if !ok {
		return dto.BaselineStepView{Status: string(StepUnmounted), Redirect: s.routes.Previous}, nil
	}

	s.remove(userID)
	step.Back()
	return step.View(), nil
}

func (s *baselineService) Unmount(_ context.Context, userID string) error {
	step, ok := s.lookup(userID)
	if !ok {
		return nil
	}
	s.remove(userID)
	step.Unmount()
	return nil
}

func (s *baselineService) Watch(ctx context.Context, userID string) (<-chan dto.BaselineStepView, func(), error) {
	if _, err := s.View(ctx, userID); err != nil {
		return nil, nil, err
	}
	step, ok := s.lookup(userID)
	if !ok {
		return nil, nil, ErrStepNotMounted
	}
	ch, cancel := step.Watch()
	return ch, cancel, nil
}

// Start unmounts idle steps until ctx is done.
func (s *baselineService) Start(ctx context.Context) {
	interval := s.sessionTTL / 2
	if interval < time.Second {
		interval = time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if expired := s.sweep(); expired > 0 {
					s.logger.Info().Int("expired", expired).Msg("expired idle baseline steps")
				}
			}
		}
	}()
}

func (s *baselineService) sweep() int {
	cutoff := s.now().Add(-s.sessionTTL)

	s.mu.Lock()
	expired := make([]*BaselineStep, 0)
	for userID, entry := range s.steps {
		if entry.lastSeen.Before(cutoff) {
			expired = append(expired, entry.step)
			delete(s.steps, userID)
		}
	}
	observability.BaselineStepsActive().Set(float64(len(s.steps)))
	s.mu.Unlock()

	for _, step := range expired {
		step.Unmount()
	}
	return len(expired)
}

func (s *baselineService) lockSubmit(ctx context.Context, userID string) (func(), error) {
	if s.cache == nil {
		return func() {}, nil
	}

	key := "baseline:submit:lock:" + userID
	token := uuid.NewString()
	acquired, err := s.cache.SetNX(ctx, key, token, s.lockTTL).Result()
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("submit lock unavailable, continuing without it")
		return func() {}, nil
	}
	if !acquired {
		return nil, ErrSubmitInProgress
	}

	return func() {
		if err := s.cache.Eval(context.WithoutCancel(ctx), releaseLockScript, []string{key}, token).Err(); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to release submit lock")
		}
	}, nil
}

func (s *baselineService) newStep() *BaselineStep {
	logger := s.logger
	return NewBaselineStep(StepDependencies{
		Categories: s.categories,
		Reports:    s.reports,
		Routes:     s.routes,
		Publisher:  s.publisher,
		Logger:     logger,
		Navigator: NavigatorFunc(func(route string) {
			logger.Debug().Str("route", route).Msg("baseline step navigated")
		}),
	})
}

func (s *baselineService) acquire(userID string) *BaselineStep {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.steps[userID]
	if !ok {
		entry = &stepEntry{step: s.newStep()}
		s.steps[userID] = entry
		observability.BaselineStepsActive().Set(float64(len(s.steps)))
	}
	entry.lastSeen = s.now()
	return entry.step
}

func (s *baselineService) lookup(userID string) (*BaselineStep, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.steps[strings.TrimSpace(userID)]
	if !ok {
		return nil, false
	}
	entry.lastSeen = s.now()
	return entry.step, true
}

func (s *baselineService) remove(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.steps, strings.TrimSpace(userID))
	observability.BaselineStepsActive().Set(float64(len(s.steps)))
}
