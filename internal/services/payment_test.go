package services

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"felicityevents/internal/domain"
)

type paymentFixture struct {
	*registrationFixture
	payments domain.PaymentService
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	f := newRegistrationFixture(t)
	return &paymentFixture{
		registrationFixture: f,
		payments:            NewPaymentService(f.events, f.regs, f.participants, f.emails, f.notifier, nil, testLogger()),
	}
}

// placeOrder runs a participant through a paid merchandise registration and
// proof upload, returning the awaiting-approval registration.
func (f *paymentFixture) placeOrder(t *testing.T, event *domain.Event, p *domain.Participant, variantID string, qty int) *domain.Registration {
	t.Helper()
	reg, err := f.svc.Register(context.Background(), p.ID, event.ID, domain.RegistrationIntent{
		VariantID: variantID,
		Quantity:  qty,
	})
	require.NoError(t, err)
	require.Equal(t, domain.RegistrationPending, reg.Status)

	reg, err = f.payments.UploadProof(context.Background(), p.ID, reg.ID, "https://img.example/upi.png", "paid via UPI")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentAwaitingApproval, reg.PaymentStatus)
	return reg
}

func TestApproveConfirmsAndDeductsStock(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.addParticipant(domain.ParticipantIIIT)
	event := f.addPublishedEvent(merchEvent(250, domain.Variant{ID: "variant-1", Name: "Tee", Stock: 5}))
	reg := f.placeOrder(t, event, p, "variant-1", 2)

	reviewer := domain.ActorRef{Kind: domain.ActorOrganizer, ID: "org-1"}
	approved, err := f.payments.Approve(context.Background(), reviewer, event.ID, reg.ID, "")
	require.NoError(t, err)

	assert.Equal(t, domain.RegistrationConfirmed, approved.Status)
	assert.Equal(t, domain.PaymentCompleted, approved.PaymentStatus)
	assert.Equal(t, "Payment approved", approved.PaymentApproval.Comment)
	assert.Equal(t, reviewer, *approved.PaymentApproval.ReviewedBy)
	assert.True(t, strings.HasPrefix(approved.QRCode, "data:image/png;base64,"))

	// Approval is the moment stock and the counter move.
	assert.Equal(t, 3, event.FindVariant("variant-1").Stock)
	assert.Equal(t, 1, event.CurrentRegistrations)
	assert.Contains(t, f.emails.sent, "order_approved")
	assert.Contains(t, f.notifier.names(), domain.NotifyPaymentApproved)
}

func TestApproveOversoldOrder(t *testing.T) {
	f := newPaymentFixture(t)
	event := f.addPublishedEvent(merchEvent(250, domain.Variant{ID: "variant-1", Name: "Tee", Stock: 3}))

	first := f.addParticipant(domain.ParticipantIIIT)
	second := &domain.Participant{Email: "lee@example.org", FirstName: "Lee", ParticipantType: domain.ParticipantIIIT}
	require.NoError(t, f.participants.Create(context.Background(), second))

	regA := f.placeOrder(t, event, first, "variant-1", 2)
	regB := f.placeOrder(t, event, second, "variant-1", 2)

	reviewer := domain.ActorRef{Kind: domain.ActorOrganizer, ID: "org-1"}
	_, err := f.payments.Approve(context.Background(), reviewer, event.ID, regA.ID, "")
	require.NoError(t, err)

	// First approved wins; the second order no longer fits in stock.
	_, err = f.payments.Approve(context.Background(), reviewer, event.ID, regB.ID, "")
	assert.ErrorIs(t, err, domain.ErrOversold)
	assert.Equal(t, 1, event.FindVariant("variant-1").Stock)
}

func TestApproveAuthorization(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.addParticipant(domain.ParticipantIIIT)
	event := f.addPublishedEvent(merchEvent(250, domain.Variant{ID: "variant-1", Name: "Tee", Stock: 5}))
	reg := f.placeOrder(t, event, p, "variant-1", 1)

	_, err := f.payments.Approve(context.Background(), domain.ActorRef{Kind: domain.ActorOrganizer, ID: "someone-else"}, event.ID, reg.ID, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// Admins may review any event's payments.
	_, err = f.payments.Approve(context.Background(), domain.ActorRef{Kind: domain.ActorAdmin, ID: "admin-1"}, event.ID, reg.ID, "")
	assert.NoError(t, err)
}

func TestApproveWrongEvent(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.addParticipant(domain.ParticipantIIIT)
	event := f.addPublishedEvent(merchEvent(250, domain.Variant{ID: "variant-1", Name: "Tee", Stock: 5}))
	other := f.addPublishedEvent(nil)
	reg := f.placeOrder(t, event, p, "variant-1", 1)

	_, err := f.payments.Approve(context.Background(), domain.ActorRef{Kind: domain.ActorAdmin, ID: "admin-1"}, other.ID, reg.ID, "")
	assert.ErrorIs(t, err, domain.ErrWrongEvent)
}

func TestRejectLeavesInventoryAlone(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.addParticipant(domain.ParticipantIIIT)
	event := f.addPublishedEvent(merchEvent(250, domain.Variant{ID: "variant-1", Name: "Tee", Stock: 5}))
	reg := f.placeOrder(t, event, p, "variant-1", 2)

	reviewer := domain.ActorRef{Kind: domain.ActorOrganizer, ID: "org-1"}
	rejected, err := f.payments.Reject(context.Background(), reviewer, event.ID, reg.ID, "blurry screenshot")
	require.NoError(t, err)

	assert.Equal(t, domain.RegistrationRejected, rejected.Status)
	assert.Equal(t, domain.PaymentFailed, rejected.PaymentStatus)
	assert.Equal(t, "blurry screenshot", rejected.PaymentApproval.Comment)
	assert.Equal(t, 5, event.FindVariant("variant-1").Stock)
	assert.Equal(t, 0, event.CurrentRegistrations)
	assert.Contains(t, f.emails.sent, "order_rejected")
}

func TestApproveTwice(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.addParticipant(domain.ParticipantIIIT)
	event := f.addPublishedEvent(merchEvent(250, domain.Variant{ID: "variant-1", Name: "Tee", Stock: 5}))
	reg := f.placeOrder(t, event, p, "variant-1", 1)

	reviewer := domain.ActorRef{Kind: domain.ActorOrganizer, ID: "org-1"}
	_, err := f.payments.Approve(context.Background(), reviewer, event.ID, reg.ID, "")
	require.NoError(t, err)

	_, err = f.payments.Approve(context.Background(), reviewer, event.ID, reg.ID, "")
	assert.ErrorIs(t, err, domain.ErrNotAwaitingApproval)
	assert.Equal(t, 4, event.FindVariant("variant-1").Stock, "stock deducted exactly once")
}

func TestUploadProofGuards(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.addParticipant(domain.ParticipantIIIT)
	event := f.addPublishedEvent(merchEvent(250, domain.Variant{ID: "variant-1", Name: "Tee", Stock: 5}))

	reg, err := f.svc.Register(context.Background(), p.ID, event.ID, domain.RegistrationIntent{VariantID: "variant-1"})
	require.NoError(t, err)

	_, err = f.payments.UploadProof(context.Background(), p.ID, reg.ID, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.payments.UploadProof(context.Background(), "someone-else", reg.ID, "https://img.example/x.png", "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// After approval the proof can no longer be replaced.
	_, err = f.payments.UploadProof(context.Background(), p.ID, reg.ID, "https://img.example/x.png", "")
	require.NoError(t, err)
	_, err = f.payments.Approve(context.Background(), domain.ActorRef{Kind: domain.ActorOrganizer, ID: "org-1"}, event.ID, reg.ID, "")
	require.NoError(t, err)
	_, err = f.payments.UploadProof(context.Background(), p.ID, reg.ID, "https://img.example/y.png", "")
	assert.ErrorIs(t, err, domain.ErrPaymentCompleted)
}

func TestListPending(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.addParticipant(domain.ParticipantIIIT)
	event := f.addPublishedEvent(merchEvent(250, domain.Variant{ID: "variant-1", Name: "Tee", Stock: 5}))
	f.placeOrder(t, event, p, "variant-1", 1)

	pending, err := f.payments.ListPending(context.Background(), "org-1", event.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = f.payments.ListPending(context.Background(), "someone-else", event.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestOrderAmountSurvivesReview(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.addParticipant(domain.ParticipantIIIT)
	event := f.addPublishedEvent(merchEvent(250, domain.Variant{ID: "variant-1", Name: "Tee", Stock: 5, PriceModifier: decimal.NewFromInt(50)}))
	reg := f.placeOrder(t, event, p, "variant-1", 2)

	assert.True(t, reg.PaymentAmount.Equal(decimal.NewFromInt(600)))
}
