package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/noah-isme/lifegpa-api/internal/dto"
	"github.com/noah-isme/lifegpa-api/internal/models"
	"github.com/noah-isme/lifegpa-api/internal/observability"
	"github.com/noah-isme/lifegpa-api/internal/repository"
)

const watchBufferSize = 16

// StepStatus is the lifecycle state of a baseline step.
type StepStatus string

const (
	StepIdle       StepStatus = "idle"
	StepLoading    StepStatus = "loading"
	StepReady      StepStatus = "ready"
	StepSubmitting StepStatus = "submitting"
	StepNavigated  StepStatus = "navigated"
	StepUnmounted  StepStatus = "unmounted"
)

// User identifies the authenticated owner of a step.
type User struct {
	ID string
}

// Navigator moves the user to another route.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

// Navigate calls f(route).
func (f NavigatorFunc) Navigate(route string) { f(route) }

// Routes are the destinations a baseline step can navigate to.
type Routes struct {
	Login    string
	Home     string
	Previous string
}

// DefaultRoutes returns the routes used by the web client.
func DefaultRoutes() Routes {
	return Routes{
		Login:    "/login",
		Home:     "/life-gpa/home",
		Previous: "/onboarding/categories",
	}
}

func (r Routes) withDefaults() Routes {
	defaults := DefaultRoutes()
	if r.Login == "" {
		r.Login = defaults.Login
	}
	if r.Home == "" {
		r.Home = defaults.Home
	}
	if r.Previous == "" {
		r.Previous = defaults.Previous
	}
	return r
}

// ReportPublisher announces stored baseline reports to other services.
type ReportPublisher interface {
	PublishBaselineSubmitted(ctx context.Context, event dto.BaselineSubmittedEvent) error
}

// StepDependencies are the collaborators injected into a BaselineStep.
type StepDependencies struct {
	Categories repository.CategoryRepository
	Reports    repository.ReportCardRepository
	Navigator  Navigator
	Routes     Routes
	Publisher  ReportPublisher
	Logger     zerolog.Logger
}

// SubmitOptions tunes a single submission.
type SubmitOptions struct {
	// IdempotencyKey, when set, makes retries of the same submission return
	// the originally stored report instead of inserting another row.
	IdempotencyKey string
}

// SubmitResult describes a stored report.
type SubmitResult struct {
	ReportID  uint
	Duplicate bool
}

// BaselineStep collects baseline grades for one user's categories and stores
// them as a single report card.
type BaselineStep struct {
	categoryRepo repository.CategoryRepository
	reportRepo   repository.ReportCardRepository
	navigator    Navigator
	routes       Routes
	publisher    ReportPublisher
	logger       zerolog.Logger
	tracer       trace.Tracer
	form         *FormState
	flight       singleflight.Group

	mu         sync.Mutex
	user       *User
	mounted    bool
	generation uint64
	status     StepStatus
	categories []Category
	ready      bool
	errMessage string
	loadErr    string
	redirect   string
	reportID   *uint

	watchMu  sync.RWMutex
	watchers map[chan dto.BaselineStepView]struct{}
}

// NewBaselineStep builds an idle step. Call Mount to load categories.
func NewBaselineStep(deps StepDependencies) *BaselineStep {
	navigator := deps.Navigator
	if navigator == nil {
		navigator = NavigatorFunc(func(string) {})
	}

	s := &BaselineStep{
		categoryRepo: deps.Categories,
		reportRepo:   deps.Reports,
		navigator:    navigator,
		routes:       deps.Routes.withDefaults(),
		publisher:    deps.Publisher,
		logger:       deps.Logger.With().Str("component", "baseline_step").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/lifegpa-api/internal/service/baseline"),
		form:         NewFormState(),
		status:       StepIdle,
		watchers:     make(map[chan dto.BaselineStepView]struct{}),
	}
	s.form.Subscribe(s.onFormChange)

	return s
}

// Mount loads the categories of user. A nil user redirects to the login route
// without touching the backend. Mounting again with the same user is a no-op;
// a different user resets the form and loads that user's categories.
func (s *BaselineStep) Mount(ctx context.Context, user *User) {
	if user == nil || strings.TrimSpace(user.ID) == "" {
		s.logger.Warn().Msg("user is not defined, redirecting to login")
		s.mu.Lock()
		s.redirect = s.routes.Login
		s.mu.Unlock()
		s.navigator.Navigate(s.routes.Login)
		s.broadcast()
		return
	}

	s.mu.Lock()
	if s.mounted && s.user != nil && s.user.ID == user.ID {
		s.mu.Unlock()
		return
	}
	identityChanged := s.user != nil && s.user.ID != user.ID
	s.user = &User{ID: user.ID}
	s.mounted = true
	s.generation++
	generation := s.generation
	s.status = StepLoading
	s.categories = nil
	s.ready = false
	s.errMessage = ""
	s.loadErr = ""
	s.redirect = ""
	s.reportID = nil
	s.mu.Unlock()

	if identityChanged {
		s.form.Reset()
	}
	s.broadcast()

	s.load(ctx, generation, user.ID)
}

// Reload re-runs the category loader for the mounted user. It is refused while
// a submission is in flight and does nothing once the report is stored.
func (s *BaselineStep) Reload(ctx context.Context) error {
	s.mu.Lock()
	if !s.mounted || s.user == nil {
		s.mu.Unlock()
		return ErrStepNotMounted
	}
	switch s.status {
	case StepSubmitting:
		s.mu.Unlock()
		return ErrSubmitInProgress
	case StepNavigated:
		s.mu.Unlock()
		return nil
	}
	userID := s.user.ID
	generation := s.generation
	s.status = StepLoading
	s.mu.Unlock()

	s.broadcast()
	s.load(ctx, generation, userID)
	return nil
}

func (s *BaselineStep) load(ctx context.Context, generation uint64, userID string) {
	ctx, span := s.tracer.Start(ctx, "baseline.load_categories", trace.WithAttributes(
		attribute.String("baseline.user_id", userID),
	))
	defer span.End()

	key := fmt.Sprintf("load:%s:%d", userID, generation)
	result, err, _ := s.flight.Do(key, func() (interface{}, error) {
		return s.categoryRepo.ListByUser(ctx, userID)
	})

	s.mu.Lock()
	if !s.mounted || s.generation != generation {
		s.mu.Unlock()
		observability.BaselineLoads().WithLabelValues("discarded").Inc()
		s.logger.Debug().Str("user_id", userID).Msg("discarding category load for inactive step")
		return
	}

	if err != nil {
		classified := ClassifyBackendError("load categories", err)
		span.RecordError(classified)
		span.SetStatus(codes.Error, "load failed")
		s.logger.Error().Err(classified).Str("user_id", userID).Msg("error fetching categories")
		observability.BaselineLoads().WithLabelValues("error").Inc()

		s.categories = []Category{}
		s.loadErr = loadErrorMessage(classified)
	} else {
		rows, _ := result.([]models.GPACategory)
		categories := make([]Category, 0, len(rows))
		for _, row := range rows {
			categories = append(categories, Category{ID: row.ID, Name: row.CategoryName})
		}
		span.SetAttributes(attribute.Int("baseline.categories", len(categories)))
		observability.BaselineLoads().WithLabelValues("ok").Inc()

		s.categories = categories
		s.loadErr = ""
	}
	if s.status == StepLoading {
		s.status = StepReady
	}
	s.ready = SubmissionReady(s.categories, s.form.Grades())
	s.mu.Unlock()

	s.broadcast()
}

// SetGrade selects a grade for a loaded category.
func (s *BaselineStep) SetGrade(categoryID uint, raw string) error {
	grade, err := models.ParseGrade(raw)
	if err != nil {
		return &ValidationError{Field: "grade", Reason: "grade must be one of " + gradeList()}
	}
	if err := s.requireCategory(categoryID); err != nil {
		return err
	}
	return s.form.SetGrade(categoryID, grade)
}

// SetDescription stores optional free text for a loaded category.
func (s *BaselineStep) SetDescription(categoryID uint, text string) error {
	if err := s.requireCategory(categoryID); err != nil {
		return err
	}
	s.form.SetDescription(categoryID, text)
	return nil
}

func (s *BaselineStep) requireCategory(categoryID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mounted {
		return ErrStepNotMounted
	}
	for _, category := range s.categories {
		if category.ID == categoryID {
			return nil
		}
	}
	return &ValidationError{Field: "category_id", Reason: fmt.Sprintf("category %d is not part of this baseline", categoryID)}
}

// Ready reports whether the submission gate is open.
func (s *BaselineStep) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Status returns the current lifecycle state.
func (s *BaselineStep) Status() StepStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Categories returns the loaded categories in backend order.
func (s *BaselineStep) Categories() []Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// ErrorMessage returns the user-visible submit error, if any.
func (s *BaselineStep) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMessage
}

// Form exposes the step's form state.
func (s *BaselineStep) Form() *FormState {
	return s.form
}

// Payload builds the report entries that a submission would store.
func (s *BaselineStep) Payload() []models.ReportEntry {
	categories := s.Categories()
	return BuildReport(categories, s.form.Grades(), s.form.Descriptions())
}

// Submit stores the report when every category is graded. Concurrent calls
// share a single write. On failure the form is kept and an error message is
// set; nothing is retried.
func (s *BaselineStep) Submit(ctx context.Context, opts SubmitOptions) (SubmitResult, error) {
	s.mu.Lock()
	if !s.mounted || s.user == nil {
		s.mu.Unlock()
		return SubmitResult{}, ErrStepNotMounted
	}
	if s.status == StepNavigated && s.reportID != nil {
		stored := *s.reportID
		s.mu.Unlock()
		return SubmitResult{ReportID: stored, Duplicate: true}, nil
	}
	grades := s.form.Grades()
	if !SubmissionReady(s.categories, grades) {
		s.mu.Unlock()
		observability.BaselineSubmissions().WithLabelValues("rejected").Inc()
		return SubmitResult{}, &ValidationError{Field: "grades", Reason: "select a grade for every category before submitting"}
	}
	entries := BuildReport(s.categories, grades, s.form.Descriptions())
	userID := s.user.ID
	generation := s.generation
	s.status = StepSubmitting
	s.mu.Unlock()

	s.broadcast()

	key := strings.TrimSpace(opts.IdempotencyKey)
	value, err, _ := s.flight.Do("submit:"+userID, func() (interface{}, error) {
		return s.write(ctx, userID, entries, key)
	})

	s.mu.Lock()
	active := s.mounted && s.generation == generation
	if err != nil {
		classified := ClassifyBackendError("insert report", err)
		s.logger.Error().Err(classified).Str("user_id", userID).Msg("error saving baseline report")
		observability.BaselineSubmissions().WithLabelValues("failure").Inc()
		if active {
			s.errMessage = UserMessage(classified)
			s.status = StepReady
		}
		s.mu.Unlock()

		s.broadcast()
		return SubmitResult{}, classified
	}

	result, _ := value.(SubmitResult)
	navigate := active && s.status == StepSubmitting
	if navigate {
		reportID := result.ReportID
		s.status = StepNavigated
		s.errMessage = ""
		s.redirect = s.routes.Home
		s.reportID = &reportID
	}
	s.mu.Unlock()

	if navigate {
		s.navigator.Navigate(s.routes.Home)
	}
	s.broadcast()

	return result, nil
}

func (s *BaselineStep) write(ctx context.Context, userID string, entries []models.ReportEntry, key string) (SubmitResult, error) {
	ctx, span := s.tracer.Start(ctx, "baseline.submit", trace.WithAttributes(
		attribute.String("baseline.user_id", userID),
		attribute.Int("baseline.entries", len(entries)),
		attribute.Bool("baseline.idempotent", key != ""),
	))
	defer span.End()

	if key != "" {
		existing, err := s.reportRepo.FindByIdempotencyKey(ctx, userID, key)
		if err == nil {
			span.SetAttributes(attribute.Bool("baseline.duplicate", true))
			observability.BaselineSubmissions().WithLabelValues("duplicate").Inc()
			s.logger.Info().Uint("report_id", existing.ID).Str("user_id", userID).Msg("baseline report already stored for idempotency key")
			return SubmitResult{ReportID: existing.ID, Duplicate: true}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "idempotency lookup failed")
			return SubmitResult{}, err
		}
	}

	report, err := models.NewReportCard(userID, entries)
	if err != nil {
		return SubmitResult{}, err
	}
	if key != "" {
		report.IdempotencyKey = &key
	}

	if err := s.reportRepo.Create(ctx, &report); err != nil {
		if key != "" {
			// A concurrent request with the same key may have won the insert.
			if existing, lookupErr := s.reportRepo.FindByIdempotencyKey(ctx, userID, key); lookupErr == nil {
				observability.BaselineSubmissions().WithLabelValues("duplicate").Inc()
				return SubmitResult{ReportID: existing.ID, Duplicate: true}, nil
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return SubmitResult{}, err
	}

	observability.BaselineSubmissions().WithLabelValues("success").Inc()
	s.logger.Info().Uint("report_id", report.ID).Str("user_id", userID).Msg("baseline report saved")

	if s.publisher != nil {
		event := dto.BaselineSubmittedEvent{
			ReportID:    report.ID,
			UserID:      userID,
			Entries:     dto.NewReportEntryResponses(entries),
			SubmittedAt: report.CreatedAt,
		}
		if err := s.publisher.PublishBaselineSubmitted(ctx, event); err != nil {
			s.logger.Warn().Err(err).Uint("report_id", report.ID).Msg("failed to publish baseline report event")
		}
	}

	span.SetStatus(codes.Ok, "stored")
	return SubmitResult{ReportID: report.ID}, nil
}

// Back navigates to the previous onboarding step and unmounts.
func (s *BaselineStep) Back() {
	s.mu.Lock()
	s.redirect = s.routes.Previous
	s.mu.Unlock()

	s.navigator.Navigate(s.routes.Previous)
	s.Unmount()
}

// Unmount discards all state. Results of loads or submits still in flight are
// dropped when they arrive.
func (s *BaselineStep) Unmount() {
	s.mu.Lock()
	if s.status == StepUnmounted {
		s.mu.Unlock()
		return
	}
	s.mounted = false
	s.generation++
	s.status = StepUnmounted
	s.categories = nil
	s.ready = false
	s.errMessage = ""
	s.loadErr = ""
	s.mu.Unlock()

	s.form.Reset()
	s.broadcast()
	s.closeWatchers()
}

// View snapshots the step for clients.
func (s *BaselineStep) View() dto.BaselineStepView {
	s.mu.Lock()
	view := dto.BaselineStepView{
		Status:     string(s.status),
		Categories: make([]dto.CategoryResponse, 0, len(s.categories)),
		Ready:      s.ready,
		Error:      s.errMessage,
		LoadError:  s.loadErr,
		Redirect:   s.redirect,
	}
	for _, category := range s.categories {
		view.Categories = append(view.Categories, dto.CategoryResponse{ID: category.ID, Name: category.Name})
	}
	if s.reportID != nil {
		reportID := *s.reportID
		view.ReportID = &reportID
	}
	s.mu.Unlock()

	grades := s.form.Grades()
	view.Grades = make(map[uint]string, len(grades))
	for id, grade := range grades {
		view.Grades[id] = string(grade)
	}
	view.Descriptions = s.form.Descriptions()

	return view
}

// Watch streams a view after every change. The channel is closed on Unmount
// or when the returned cancel func runs.
func (s *BaselineStep) Watch() (<-chan dto.BaselineStepView, func()) {
	ch := make(chan dto.BaselineStepView, watchBufferSize)
	ch <- s.View()

	s.watchMu.Lock()
	s.watchers[ch] = struct{}{}
	s.watchMu.Unlock()

	cancel := func() {
		s.watchMu.Lock()
		defer s.watchMu.Unlock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
	}

	// Unmount sets the status before closing watchers, so a channel registered
	// after that close is caught here.
	if s.Status() == StepUnmounted {
		cancel()
		return ch, func() {}
	}
	return ch, cancel
}

func (s *BaselineStep) onFormChange() {
	s.mu.Lock()
	s.ready = SubmissionReady(s.categories, s.form.Grades())
	s.mu.Unlock()

	s.broadcast()
}

func (s *BaselineStep) broadcast() {
	s.watchMu.RLock()
	if len(s.watchers) == 0 {
		s.watchMu.RUnlock()
		return
	}
	s.watchMu.RUnlock()

	view := s.View()

	s.watchMu.RLock()
	defer s.watchMu.RUnlock()
	for ch := range s.watchers {
		select {
		case ch <- view:
		default:
		}
	}
}

func (s *BaselineStep) closeWatchers() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for ch := range s.watchers {
		close(ch)
		delete(s.watchers, ch)
	}
}

func loadErrorMessage(err error) string {
	var (
		networkErr *NetworkError
		authErr    *AuthorizationError
	)
	if errors.As(err, &networkErr) || errors.As(err, &authErr) {
		return UserMessage(err)
	}
	return "We could not load your categories. Please try again."
}
