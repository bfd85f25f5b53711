package enrollments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/fitrackhq/fitrack/internal/auth"
	"github.com/fitrackhq/fitrack/internal/fitness/workouts"
	"github.com/fitrackhq/fitrack/internal/telemetry/metrics"
	"github.com/fitrackhq/fitrack/internal/telemetry/tracing"
	"github.com/fitrackhq/fitrack/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type enrollmentsService interface {
	Enroll(ctx context.Context, userID string, workoutID int) (*Enrollment, error)
	SetStatus(ctx context.Context, userID string, workoutID int, newStatus Status) (*Enrollment, error)
	CompleteExercise(ctx context.Context, userID string, workoutID, exerciseID int) (*Completion, error)
	History(ctx context.Context, userID string) ([]HistoryEntry, error)
	ProgressMetrics(ctx context.Context, userID string) (*ProgressMetrics, error)
}

type scheduleResolver interface {
	ResolveToday(ctx context.Context, userID string, page, size int) ([]TodayWorkout, error)
}

type EnrollRequest struct {
	WorkoutID int `json:"workoutId"`
}

type SetStatusRequest struct {
	CompletionStatus string `json:"completionStatus"`
}

type TodayResponse struct {
	TodaysWorkouts []TodayWorkout `json:"todaysWorkouts"`
}

type HistoryResponse struct {
	History []HistoryEntry `json:"history"`
}

type Handler struct {
	service  enrollmentsService
	resolver scheduleResolver
	metrics  *metrics.Manager
}

func NewHandler(service enrollmentsService, resolver scheduleResolver, metrics *metrics.Manager) *Handler {
	return &Handler{
		service:  service,
		resolver: resolver,
		metrics:  metrics,
	}
}

func (handler *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.enrollments.enroll")
	defer span.End()

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var enrollReq EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&enrollReq); err != nil {
		log.Errorf("enroll, unmarshal json params: %s", err)
		http.Error(w, "add enrollment failed", http.StatusBadRequest)
		return
	}
	if enrollReq.WorkoutID <= 0 {
		http.Error(w, "error, workout id empty", http.StatusBadRequest)
		return
	}

	span.SetAttributes(attribute.Int("workout.id", enrollReq.WorkoutID))

	enrollment, err := handler.service.Enroll(ctx, user.ID, enrollReq.WorkoutID)
	if err != nil {
		switch {
		case errors.Is(err, workouts.ErrWorkoutNotFound):
			http.Error(w, "workout not found", http.StatusNotFound)
		case errors.Is(err, ErrEnrollmentExists):
			http.Error(w, "already enrolled", http.StatusConflict)
		default:
			log.Errorf("enroll user %s to workout %d: %s", user.ID, enrollReq.WorkoutID, err)
			http.Error(w, "add enrollment failed", http.StatusInternalServerError)
		}
		return
	}

	handler.metrics.CounterEnrollments.Inc()

	enrollmentJson, err := json.Marshal(enrollment)
	if err != nil {
		log.Errorf("marshal enrollment: %s", err)
		http.Error(w, "add enrollment failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, enrollmentJson, http.StatusCreated)
}

func (handler *Handler) HandleToday(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.enrollments.today")
	defer span.End()

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	todaysWorkouts, err := handler.resolver.ResolveToday(ctx, user.ID, page, limit)
	if err != nil {
		log.Errorf("resolve todays workouts [%s]: %s", user.ID, err)
		http.Error(w, "failed to get todays workouts", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(TodayResponse{TodaysWorkouts: todaysWorkouts})
	if err != nil {
		log.Errorf("marshal todays workouts: %s", err)
		http.Error(w, "failed to get todays workouts", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.enrollments.complete")
	defer span.End()

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	workoutID, err := strconv.Atoi(vars["workoutId"])
	if err != nil {
		http.Error(w, "parse workout id", http.StatusBadRequest)
		return
	}
	exerciseID, err := strconv.Atoi(vars["exerciseId"])
	if err != nil {
		http.Error(w, "parse exercise id", http.StatusBadRequest)
		return
	}

	span.SetAttributes(attribute.Int("workout.id", workoutID))
	span.SetAttributes(attribute.Int("exercise.id", exerciseID))

	completion, err := handler.service.CompleteExercise(ctx, user.ID, workoutID, exerciseID)
	if err != nil {
		switch {
		case errors.Is(err, ErrEnrollmentNotFound):
			http.Error(w, "enrollment not found", http.StatusNotFound)
		case errors.Is(err, ErrAlreadyCompletedToday):
			http.Error(w, "exercise already completed today", http.StatusConflict)
		default:
			log.Errorf("complete exercise %d in workout %d [%s]: %s", exerciseID, workoutID, user.ID, err)
			http.Error(w, "complete exercise failed", http.StatusInternalServerError)
		}
		return
	}

	handler.metrics.CounterCompletions.Inc()

	completionJson, err := json.Marshal(completion)
	if err != nil {
		log.Errorf("marshal completion: %s", err)
		http.Error(w, "complete exercise failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, completionJson)
}

func (handler *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.enrollments.setstatus")
	defer span.End()

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	workoutID, err := strconv.Atoi(vars["workoutId"])
	if err != nil {
		http.Error(w, "parse workout id", http.StatusBadRequest)
		return
	}

	var statusReq SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&statusReq); err != nil {
		log.Errorf("set status, unmarshal json params: %s", err)
		http.Error(w, "set status failed", http.StatusBadRequest)
		return
	}

	span.SetAttributes(attribute.Int("workout.id", workoutID))
	span.SetAttributes(attribute.String("status", statusReq.CompletionStatus))

	enrollment, err := handler.service.SetStatus(ctx, user.ID, workoutID, Status(statusReq.CompletionStatus))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidStatus):
			http.Error(w, fmt.Sprintf("invalid status: %s", statusReq.CompletionStatus), http.StatusBadRequest)
		case errors.Is(err, ErrEnrollmentCompleted):
			http.Error(w, "enrollment already completed", http.StatusBadRequest)
		case errors.Is(err, ErrEnrollmentNotFound):
			http.Error(w, "enrollment not found", http.StatusNotFound)
		default:
			log.Errorf("set status of workout %d [%s]: %s", workoutID, user.ID, err)
			http.Error(w, "set status failed", http.StatusInternalServerError)
		}
		return
	}

	enrollmentJson, err := json.Marshal(enrollment)
	if err != nil {
		log.Errorf("marshal enrollment: %s", err)
		http.Error(w, "set status failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, enrollmentJson)
}

func (handler *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.enrollments.history")
	defer span.End()

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	history, err := handler.service.History(ctx, user.ID)
	if err != nil {
		log.Errorf("get workout history [%s]: %s", user.ID, err)
		http.Error(w, "failed to get workout history", http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []HistoryEntry{}
	}

	historyJson, err := json.Marshal(HistoryResponse{History: history})
	if err != nil {
		log.Errorf("marshal workout history: %s", err)
		http.Error(w, "failed to get workout history", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, historyJson)
}

func (handler *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.enrollments.stats")
	defer span.End()

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	progress, err := handler.service.ProgressMetrics(ctx, user.ID)
	if err != nil {
		log.Errorf("get progress metrics [%s]: %s", user.ID, err)
		http.Error(w, "failed to get workout stats", http.StatusInternalServerError)
		return
	}

	progressJson, err := json.Marshal(progress)
	if err != nil {
		log.Errorf("marshal progress metrics: %s", err)
		http.Error(w, "failed to get workout stats", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, progressJson)
}
