package workouts

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/fitrackhq/fitrack/internal/telemetry/tracing"
	"github.com/fitrackhq/fitrack/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type workoutsService interface {
	Create(ctx context.Context, workout Workout) (*Workout, error)
	Get(ctx context.Context, id int) (*Workout, error)
	List(ctx context.Context, page, size int) (_ []Workout, total int, err error)
	Update(ctx context.Context, id int, params UpdateParams, days *[]DaySchedule) error
	AddExercise(ctx context.Context, workoutID int, day string, exerciseID int) error
	RemoveExercise(ctx context.Context, workoutID int, day string, exerciseID int) error
}

// catalogCascader deletes a workout together with the enrollments and
// completions hanging off it. Implemented by the consistency service.
type catalogCascader interface {
	DeleteWorkout(ctx context.Context, id int) error
}

type ListResponse struct {
	Workouts   []Workout `json:"workouts"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	TotalPages int       `json:"totalPages"`
}

type UpdateWorkoutRequest struct {
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	Goals       *[]string      `json:"goals"`
	Benefits    *[]string      `json:"benefits"`
	Frequency   *string        `json:"frequency"`
	Difficulty  *string        `json:"difficulty"`
	Days        *[]DaySchedule `json:"days"`
}

type AddExerciseRequest struct {
	Day        string `json:"day"`
	ExerciseID int    `json:"exerciseId"`
}

type DeleteWorkoutResponse struct {
	DeletedID int `json:"deletedId"`
}

type Handler struct {
	service workoutsService
	cascade catalogCascader
}

func NewHandler(service workoutsService, cascade catalogCascader) *Handler {
	return &Handler{
		service: service,
		cascade: cascade,
	}
}

func (handler *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.create")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var workout Workout
	if err := json.NewDecoder(r.Body).Decode(&workout); err != nil {
		log.Tracef("new workout, unmarshal json params: %s", err)
		http.Error(w, "create workout failed", http.StatusBadRequest)
		return
	}

	if workout.Name == "" {
		http.Error(w, "error, workout name empty", http.StatusBadRequest)
		return
	}
	for _, day := range workout.Days {
		if !IsValidDay(day.Day) {
			http.Error(w, "error, invalid day: "+day.Day, http.StatusBadRequest)
			return
		}
	}

	created, err := handler.service.Create(ctx, workout)
	if err != nil {
		switch {
		case errors.Is(err, ErrWorkoutExists):
			http.Error(w, "workout name taken", http.StatusConflict)
		case errors.Is(err, ErrDuplicateExerciseInDay):
			http.Error(w, "exercise duplicated within a day", http.StatusConflict)
		case errors.Is(err, ErrUnknownExercise):
			http.Error(w, "referenced exercise not found", http.StatusBadRequest)
		default:
			log.Errorf("failed to create workout [%s]: %s", workout.Name, err)
			http.Error(w, "error, failed to create workout", http.StatusInternalServerError)
		}
		return
	}

	createdJson, err := json.Marshal(created)
	if err != nil {
		log.Errorf("failed to marshal created workout: %s", err)
		http.Error(w, "error, failed to create workout", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, createdJson, http.StatusCreated)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	page, size := 1, 10
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p < 1 {
			http.Error(w, "invalid page", http.StatusBadRequest)
			return
		}
		page = p
	}
	if sizeStr := r.URL.Query().Get("size"); sizeStr != "" {
		s, err := strconv.Atoi(sizeStr)
		if err != nil || s < 1 {
			http.Error(w, "invalid size", http.StatusBadRequest)
			return
		}
		size = s
	}

	workouts, total, err := handler.service.List(ctx, page, size)
	if err != nil {
		log.Errorf("list workouts: %s", err)
		http.Error(w, "failed to list workouts", http.StatusInternalServerError)
		return
	}
	if workouts == nil {
		workouts = []Workout{}
	}

	respJson, err := json.Marshal(ListResponse{
		Workouts:   workouts,
		Total:      total,
		Page:       page,
		TotalPages: int(math.Ceil(float64(total) / float64(size))),
	})
	if err != nil {
		log.Errorf("marshal workouts list response: %s", err)
		http.Error(w, "failed to list workouts", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.get")
	defer span.End()

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid workout id", http.StatusBadRequest)
		return
	}

	workout, err := handler.service.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrWorkoutNotFound) {
			http.Error(w, "workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("get workout %d: %s", id, err)
		http.Error(w, "failed to get workout", http.StatusInternalServerError)
		return
	}

	workoutJson, err := json.Marshal(workout)
	if err != nil {
		log.Errorf("marshal workout %d: %s", id, err)
		http.Error(w, "failed to get workout", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, workoutJson)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.update")
	defer span.End()

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid workout id", http.StatusBadRequest)
		return
	}

	var req UpdateWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("update workout, unmarshal json params: %s", err)
		http.Error(w, "update workout failed", http.StatusBadRequest)
		return
	}

	if req.Days != nil {
		for _, day := range *req.Days {
			if !IsValidDay(day.Day) {
				http.Error(w, "error, invalid day: "+day.Day, http.StatusBadRequest)
				return
			}
		}
	}

	params := UpdateParams{
		Name:        req.Name,
		Description: req.Description,
		Goals:       req.Goals,
		Benefits:    req.Benefits,
		Frequency:   req.Frequency,
		Difficulty:  req.Difficulty,
	}

	if err := handler.service.Update(ctx, id, params, req.Days); err != nil {
		switch {
		case errors.Is(err, ErrWorkoutNotFound):
			http.Error(w, "workout not found", http.StatusNotFound)
		case errors.Is(err, ErrWorkoutExists):
			http.Error(w, "workout name taken", http.StatusConflict)
		case errors.Is(err, ErrDuplicateExerciseInDay):
			http.Error(w, "exercise duplicated within a day", http.StatusConflict)
		case errors.Is(err, ErrUnknownExercise):
			http.Error(w, "referenced exercise not found", http.StatusBadRequest)
		default:
			log.Errorf("update workout %d: %s", id, err)
			http.Error(w, "failed to update workout", http.StatusInternalServerError)
		}
		return
	}

	updated, err := handler.service.Get(ctx, id)
	if err != nil {
		log.Errorf("get updated workout %d: %s", id, err)
		http.Error(w, "failed to update workout", http.StatusInternalServerError)
		return
	}

	updatedJson, err := json.Marshal(updated)
	if err != nil {
		log.Errorf("marshal updated workout %d: %s", id, err)
		http.Error(w, "failed to update workout", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, updatedJson)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.delete")
	defer span.End()

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid workout id", http.StatusBadRequest)
		return
	}

	if err := handler.cascade.DeleteWorkout(ctx, id); err != nil {
		if errors.Is(err, ErrWorkoutNotFound) {
			http.Error(w, "workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete workout %d: %s", id, err)
		http.Error(w, "failed to delete workout", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(DeleteWorkoutResponse{DeletedID: id})
	if err != nil {
		log.Errorf("marshal delete workout response: %s", err)
		http.Error(w, "failed to delete workout", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) HandleAddExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.addexercise")
	defer span.End()

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid workout id", http.StatusBadRequest)
		return
	}

	var req AddExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("add exercise to workout, unmarshal json params: %s", err)
		http.Error(w, "add exercise failed", http.StatusBadRequest)
		return
	}

	if !IsValidDay(req.Day) {
		http.Error(w, "error, invalid day: "+req.Day, http.StatusBadRequest)
		return
	}

	if err := handler.service.AddExercise(ctx, id, req.Day, req.ExerciseID); err != nil {
		switch {
		case errors.Is(err, ErrWorkoutNotFound), errors.Is(err, ErrDayNotFound):
			http.Error(w, "workout day not found", http.StatusNotFound)
		case errors.Is(err, ErrDuplicateExerciseInDay):
			http.Error(w, "exercise already in workout day", http.StatusConflict)
		case errors.Is(err, ErrUnknownExercise):
			http.Error(w, "referenced exercise not found", http.StatusBadRequest)
		default:
			log.Errorf("add exercise %d to workout %d: %s", req.ExerciseID, id, err)
			http.Error(w, "failed to add exercise to workout", http.StatusInternalServerError)
		}
		return
	}

	updated, err := handler.service.Get(ctx, id)
	if err != nil {
		log.Errorf("get workout %d after exercise add: %s", id, err)
		http.Error(w, "failed to add exercise to workout", http.StatusInternalServerError)
		return
	}

	updatedJson, err := json.Marshal(updated)
	if err != nil {
		log.Errorf("marshal workout %d: %s", id, err)
		http.Error(w, "failed to add exercise to workout", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, updatedJson)
}

func (handler *Handler) HandleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.removeexercise")
	defer span.End()

	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "invalid workout id", http.StatusBadRequest)
		return
	}
	exerciseID, err := strconv.Atoi(vars["exerciseId"])
	if err != nil {
		http.Error(w, "invalid exercise id", http.StatusBadRequest)
		return
	}

	day := r.URL.Query().Get("day")
	if !IsValidDay(day) {
		http.Error(w, "error, invalid day: "+day, http.StatusBadRequest)
		return
	}

	if err := handler.service.RemoveExercise(ctx, id, day, exerciseID); err != nil {
		switch {
		case errors.Is(err, ErrWorkoutNotFound),
			errors.Is(err, ErrDayNotFound),
			errors.Is(err, ErrExerciseNotInDay):
			http.Error(w, "workout day exercise not found", http.StatusNotFound)
		default:
			log.Errorf("remove exercise %d from workout %d: %s", exerciseID, id, err)
			http.Error(w, "failed to remove exercise from workout", http.StatusInternalServerError)
		}
		return
	}

	updated, err := handler.service.Get(ctx, id)
	if err != nil {
		log.Errorf("get workout %d after exercise remove: %s", id, err)
		http.Error(w, "failed to remove exercise from workout", http.StatusInternalServerError)
		return
	}

	updatedJson, err := json.Marshal(updated)
	if err != nil {
		log.Errorf("marshal workout %d: %s", id, err)
		http.Error(w, "failed to remove exercise from workout", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, updatedJson)
}
