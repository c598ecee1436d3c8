package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/wesigned/wesigned/internal/client/api"
	"github.com/wesigned/wesigned/internal/client/models"
	"github.com/wesigned/wesigned/internal/client/monitor"
	"github.com/wesigned/wesigned/internal/client/queue"
	"github.com/wesigned/wesigned/internal/client/store"
	"github.com/wesigned/wesigned/internal/logging"
)

// gradients are the card accent tags a new attendance card picks from.
var gradients = []string{
	"from-indigo-500 to-sky-400",
	"from-purple-500 to-pink-400",
	"from-green-500 to-emerald-400",
	"from-orange-500 to-yellow-400",
	"from-rose-500 to-red-400",
	"from-teal-500 to-cyan-400",
}

// SignRequest carries the student's input for one sign-in.
type SignRequest struct {
	SessionID   string
	RegNo       string
	SessionName string
}

type AttendanceService struct {
	client  api.Client
	queue   *queue.Queue
	store   *store.Store
	monitor *monitor.Monitor
	profile *ProfileService
	log     logging.Logger
}

func NewAttendanceService(c api.Client, q *queue.Queue, s *store.Store, m *monitor.Monitor, p *ProfileService, log logging.Logger) *AttendanceService {
	return &AttendanceService{client: c, queue: q, store: s, monitor: m, profile: p, log: log}
}

// Sign records an attendance sign-in. While online it submits live and any
// failure is surfaced to the caller, never silently queued: the user
// expects synchronous confirmation. While offline it queues the sign-in
// for the agent to drain later and reports queued=true.
//
// The clientRef is assigned here, once; resubmissions of the queued record
// carry the same ref so the server can deduplicate.
func (s *AttendanceService) Sign(ctx context.Context, req SignRequest) (queued bool, err error) {
	profile, err := s.profile.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("no signed-in identity: %w", err)
	}
	studentID, err := s.profile.StudentID(ctx)
	if err != nil {
		return false, err
	}

	now := time.Now()
	signin := &models.SignIn{
		SessionID:   req.SessionID,
		RegNo:       req.RegNo,
		SessionName: req.SessionName,
		FullName:    profile.DisplayName(),
		StudentID:   studentID,
		ClientRef:   uuid.NewString(),
		SignedAt:    now.UnixMilli(),
		Timestamp:   now.UTC().Format(time.RFC3339),
		Synced:      false,
	}

	card := models.AttendanceCard{
		Title:    req.SessionName,
		Date:     signin.Timestamp,
		Gradient: gradients[rand.Intn(len(gradients))],
	}

	if s.monitor.Online() {
		if err := s.client.SignAttendance(ctx, req.SessionID, signin); err != nil {
			return false, fmt.Errorf("attendance submission failed: %w", err)
		}
		card.Status = models.StatusOnline
		if _, err := s.store.Put(ctx, store.CollectionStudentAttendances, 0, card); err != nil {
			s.log.Warn(ctx, "signed on server but failed to save card", "error", err)
		}
		return false, nil
	}

	if err := s.queue.SaveSignIn(ctx, signin); err != nil {
		return false, fmt.Errorf("failed to queue sign-in: %w", err)
	}
	card.Status = models.StatusOffline
	if _, err := s.store.Put(ctx, store.CollectionStudentAttendances, 0, card); err != nil {
		s.log.Warn(ctx, "queued sign-in but failed to save card", "error", err)
	}

	s.log.Info(ctx, "signed offline, will sync when online",
		"session", req.SessionID, "clientRef", signin.ClientRef)
	return true, nil
}

// Cards lists the locally cached attendance cards, newest last.
func (s *AttendanceService) Cards(ctx context.Context) ([]models.AttendanceCard, error) {
	records, err := s.store.GetAll(ctx, store.CollectionStudentAttendances)
	if err != nil {
		return nil, err
	}

	cards := make([]models.AttendanceCard, 0, len(records))
	for _, rec := range records {
		var c models.AttendanceCard
		if err := rec.Decode(&c); err != nil {
			return nil, fmt.Errorf("corrupt attendance card %d: %w", rec.ID, err)
		}
		cards = append(cards, c)
	}
	return cards, nil
}
