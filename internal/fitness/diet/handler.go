package diet

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fitrackhq/fitrack/internal/auth"
	"github.com/fitrackhq/fitrack/internal/telemetry/tracing"
	"github.com/fitrackhq/fitrack/pkg"

	log "github.com/sirupsen/logrus"
)

type dietRepo interface {
	Add(ctx context.Context, entry Entry) (*Entry, error)
	List(ctx context.Context, userID string) ([]Entry, error)
}

type Handler struct {
	repo dietRepo
}

func NewHandler(repo dietRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.diet.add")
	defer span.End()

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var entry Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		log.Tracef("new diet entry, unmarshal json params: %s", err)
		http.Error(w, "add diet entry failed", http.StatusBadRequest)
		return
	}

	entry.UserID = user.ID
	if entry.EntryDate.IsZero() {
		entry.EntryDate = time.Now()
	}
	entry.CreatedAt = time.Now()

	added, err := handler.repo.Add(ctx, entry)
	if err != nil {
		log.Errorf("add diet entry [%s]: %s", user.ID, err)
		http.Error(w, "failed to add diet entry", http.StatusInternalServerError)
		return
	}

	addedJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("marshal diet entry: %s", err)
		http.Error(w, "failed to add diet entry", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedJson, http.StatusCreated)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.diet.list")
	defer span.End()

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	entries, err := handler.repo.List(ctx, user.ID)
	if err != nil {
		log.Errorf("list diet entries [%s]: %s", user.ID, err)
		http.Error(w, "failed to list diet entries", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}

	entriesJson, err := json.Marshal(entries)
	if err != nil {
		log.Errorf("marshal diet entries: %s", err)
		http.Error(w, "failed to list diet entries", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, entriesJson)
}
