package stats

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fitrackhq/fitrack/internal/auth"
	"github.com/fitrackhq/fitrack/internal/fitness/users"
	"github.com/fitrackhq/fitrack/internal/telemetry/tracing"
	"github.com/fitrackhq/fitrack/pkg"

	log "github.com/sirupsen/logrus"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) HandleHealthStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.stats.health")
	defer span.End()

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	healthStats, err := handler.service.HealthStatsFor(ctx, user.ID)
	if err != nil {
		if errors.Is(err, users.ErrProfileNotFound) {
			http.Error(w, "profile not found", http.StatusNotFound)
			return
		}
		log.Errorf("get health stats [%s]: %s", user.ID, err)
		http.Error(w, "failed to get health stats", http.StatusInternalServerError)
		return
	}

	statsJson, err := json.Marshal(healthStats)
	if err != nil {
		log.Errorf("marshal health stats [%s]: %s", user.ID, err)
		http.Error(w, "failed to get health stats", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, statsJson)
}
