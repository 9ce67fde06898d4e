package order

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"strings"

	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/events"
	orderrepo "storefront-checkout/internal/repository/order"
)

// Service applies ownership rules and status transitions on top of the order repository.
type Service struct {
	repo      orderrepo.Repository
	publisher events.Publisher
	logger    *log.Logger
}

func New(repo orderrepo.Repository, publisher events.Publisher, logger *log.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, publisher: publisher, logger: logger}
}

// Create stores a draft for its owner. Blank colors default to domain.DefaultColor,
// a missing date to today, and the status always starts at pending.
func (s *Service) Create(ctx context.Context, caller domain.User, draft domain.Order) (*domain.Order, error) {
	if draft.OwnerID == 0 {
		draft.OwnerID = caller.ID
	}
	if draft.OwnerID != caller.ID && !caller.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if draft.Date.IsZero() {
		draft.Date = domain.Today()
	}
	draft.ID = 0
	draft.Status = domain.StatusPending
	lines := make([]domain.OrderLine, len(draft.Lines))
	for i, l := range draft.Lines {
		l.OrderID = 0
		l.Color = strings.TrimSpace(l.Color)
		if l.Color == "" {
			l.Color = domain.DefaultColor
		}
		lines[i] = l
	}
	draft.Lines = lines
	draft.Total = draft.Total.Round(2)
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if err := s.publisher.PublishOrderCreated(ctx, *created); err != nil {
		s.logger.Printf("order service: publish order created id=%d err=%v", created.ID, err)
	}
	return created, nil
}

// ListByUser returns every order of userID, newest first.
func (s *Service) ListByUser(ctx context.Context, caller domain.User, userID int64) ([]domain.Order, error) {
	if userID != caller.ID && !caller.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) Get(ctx context.Context, caller domain.User, id int64) (*domain.Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := visibleTo(caller, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) Lines(ctx context.Context, caller domain.User, id int64) ([]domain.OrderLine, error) {
	o, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return o.Lines, nil
}

// Cancel moves a pending or processing order to cancelled.
func (s *Service) Cancel(ctx context.Context, caller domain.User, id int64) (*domain.Order, error) {
	o, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !o.Status.Cancellable() {
		return nil, fmt.Errorf("cancel order %d in status %s: %w", id, o.Status, domain.ErrInvalidTransition)
	}
	return s.repo.SetStatus(ctx, id, domain.StatusCancelled)
}

// UpdateStatus is restricted to admins.
func (s *Service) UpdateStatus(ctx context.Context, caller domain.User, id int64, status domain.Status) (*domain.Order, error) {
	if !caller.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	status = domain.Status(strings.ToLower(strings.TrimSpace(string(status))))
	if !status.Valid() {
		return nil, &domain.ValidationError{Subject: "status", Problems: []string{fmt.Sprintf("unknown status %q", status)}}
	}
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == domain.StatusCancelled && status != domain.StatusCancelled {
		return nil, fmt.Errorf("reopen cancelled order %d: %w", id, domain.ErrInvalidTransition)
	}
	return s.repo.SetStatus(ctx, id, status)
}

func (s *Service) Summary(ctx context.Context, caller domain.User) (domain.OrderSummary, error) {
	return s.repo.Summary(ctx, caller.ID)
}

// RequestDeliveryNoteEmail queues the delivery note of a visible order for emailing.
func (s *Service) RequestDeliveryNoteEmail(ctx context.Context, caller domain.User, req domain.DeliveryNoteEmailRequest) error {
	var problems []string
	if req.Order.ID <= 0 {
		problems = append(problems, "pedido.id is required")
	}
	pdf, err := base64.StdEncoding.DecodeString(req.PDFBase64)
	switch {
	case strings.TrimSpace(req.PDFBase64) == "":
		problems = append(problems, "pdfBase64 is required")
	case err != nil:
		problems = append(problems, "pdfBase64 is not valid base64")
	case !strings.HasPrefix(string(pdf), "%PDF"):
		problems = append(problems, "pdfBase64 is not a PDF document")
	}
	email := strings.TrimSpace(req.User.Email)
	if email == "" {
		email = caller.Email
	}
	if email == "" {
		problems = append(problems, "usuario.email is required")
	}
	if len(problems) > 0 {
		return &domain.ValidationError{Subject: "delivery note email", Problems: problems}
	}

	o, err := s.Get(ctx, caller, req.Order.ID)
	if err != nil {
		return err
	}
	name := req.User.Name
	if name == "" {
		name = caller.Name
	}
	ev := events.DeliveryNoteEmail{
		OrderID:   o.ID,
		UserID:    o.OwnerID,
		Email:     email,
		Name:      name,
		Filename:  fmt.Sprintf("albaran-%d.pdf", o.ID),
		PDFBase64: req.PDFBase64,
	}
	if err := s.publisher.PublishDeliveryNoteEmail(ctx, ev); err != nil {
		s.logger.Printf("order service: publish delivery note email order=%d err=%v", o.ID, err)
		return fmt.Errorf("queue delivery note email: %w", err)
	}
	return nil
}

func visibleTo(caller domain.User, o *domain.Order) error {
	if o.OwnerID == caller.ID || caller.IsAdmin() {
		return nil
	}
	return domain.ErrForbidden
}
