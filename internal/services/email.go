package services

import (
	"context"
	"fmt"

	"felicityevents/internal/domain"
)

type emailService struct {
	renderer domain.EmailTemplateRenderer
	mailer   domain.Mailer
}

// NewEmailService creates an EmailService backed by the given renderer and
// mailer.
func NewEmailService(renderer domain.EmailTemplateRenderer, mailer domain.Mailer) domain.EmailService {
	return &emailService{renderer: renderer, mailer: mailer}
}

func (s *emailService) SendTicket(ctx context.Context, data *domain.TicketEmailData) error {
	return s.send("ticket", data.Email, data)
}

func (s *emailService) SendOrderReceived(ctx context.Context, data *domain.OrderEmailData) error {
	return s.send("order_received", data.Email, data)
}

func (s *emailService) SendOrderApproved(ctx context.Context, data *domain.OrderReviewEmailData) error {
	return s.send("order_approved", data.Email, data)
}

func (s *emailService) SendOrderRejected(ctx context.Context, data *domain.OrderReviewEmailData) error {
	return s.send("order_rejected", data.Email, data)
}

func (s *emailService) SendOrganizerWelcome(ctx context.Context, data *domain.OrganizerWelcomeEmailData) error {
	return s.send("organizer_welcome", data.Email, data)
}

func (s *emailService) send(templateName, to string, data any) error {
	subject, html, text, err := s.renderer.Render(templateName, data)
	if err != nil {
		return fmt.Errorf("render %s email: %w", templateName, err)
	}
	if err := s.mailer.Send(to, subject, html, text); err != nil {
		return fmt.Errorf("send %s email: %w", templateName, err)
	}
	return nil
}
