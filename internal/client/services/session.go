package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wesigned/wesigned/internal/client/api"
	"github.com/wesigned/wesigned/internal/client/models"
	"github.com/wesigned/wesigned/internal/client/monitor"
	"github.com/wesigned/wesigned/internal/client/queue"
	"github.com/wesigned/wesigned/internal/client/store"
	"github.com/wesigned/wesigned/internal/logging"
)

// CreateSessionRequest carries the lecturer's input for a new attendance
// session.
type CreateSessionRequest struct {
	Name      string
	Lecturer  string
	Duration  int
	Unit      string
	Range     string
	Latitude  float64
	Longitude float64
}

type SessionService struct {
	client  api.Client
	queue   *queue.Queue
	store   *store.Store
	monitor *monitor.Monitor
	log     logging.Logger
}

func NewSessionService(c api.Client, q *queue.Queue, s *store.Store, m *monitor.Monitor, log logging.Logger) *SessionService {
	return &SessionService{client: c, queue: q, store: s, monitor: m, log: log}
}

// Create creates an attendance session. Online, the server assigns the
// specialId and any failure is surfaced to the caller. Offline, the draft
// is queued into the sessions channel and reported queued=true; it reaches
// the server on the next successful drain.
func (s *SessionService) Create(ctx context.Context, req CreateSessionRequest) (*models.SessionDraft, bool, error) {
	draft := &models.SessionDraft{
		Name:      req.Name,
		Duration:  req.Duration,
		Unit:      req.Unit,
		Range:     req.Range,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		ClientRef: uuid.NewString(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	if s.monitor.Online() {
		created, err := s.client.CreateSession(ctx, draft)
		if err != nil {
			return nil, false, fmt.Errorf("session creation failed: %w", err)
		}
		s.saveCard(ctx, req, created.SpecialID, models.StatusOnline, created.CreatedAt)
		return created, false, nil
	}

	if _, err := s.queue.SaveSession(ctx, draft); err != nil {
		return nil, false, fmt.Errorf("failed to queue session: %w", err)
	}
	s.saveCard(ctx, req, "", models.StatusOffline, draft.CreatedAt)

	s.log.Info(ctx, "session queued offline, will sync when online",
		"name", req.Name, "clientRef", draft.ClientRef)
	return draft, true, nil
}

func (s *SessionService) saveCard(ctx context.Context, req CreateSessionRequest, specialID, status, date string) {
	card := models.LecturerCard{
		Title:     req.Name,
		Lecturer:  req.Lecturer,
		Date:      date,
		SpecialID: specialID,
		Status:    status,
	}
	if _, err := s.store.Put(ctx, store.CollectionLecturerView, 0, card); err != nil {
		s.log.Warn(ctx, "failed to save lecturer card", "error", err)
	}
}

// Cards lists the locally cached lecturer cards.
func (s *SessionService) Cards(ctx context.Context) ([]models.LecturerCard, error) {
	records, err := s.store.GetAll(ctx, store.CollectionLecturerView)
	if err != nil {
		return nil, err
	}

	cards := make([]models.LecturerCard, 0, len(records))
	for _, rec := range records {
		var c models.LecturerCard
		if err := rec.Decode(&c); err != nil {
			return nil, fmt.Errorf("corrupt lecturer card %d: %w", rec.ID, err)
		}
		cards = append(cards, c)
	}
	return cards, nil
}
