package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/envasesysoluciones/cotizaciones-backend/internal/cart"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/db/models"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/enums"
	pkgerrors "github.com/envasesysoluciones/cotizaciones-backend/pkg/errors"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/logger"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/mailer"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/metrics"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/outbox"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/outbox/payloads"
)

const (
	EmptyCartMessage  = "Agrega al menos un producto a tu cotización"
	ProcessingMessage = "Error al procesar la cotización"
	InFlightMessage   = "Ya hay una cotización en proceso"

	pdfContentType = "application/pdf"
)

// Dispatcher delivers the packaged quote.
type Dispatcher interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type quoteStore interface {
	CreateTx(ctx context.Context, tx *gorm.DB, record *models.QuoteRequest) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type archiver interface {
	Upload(ctx context.Context, bucket, object, contentType string, data []byte) (string, error)
}

type PipelineParams struct {
	Dispatcher Dispatcher
	From       string
	Recipients []string
	Document   DocumentOptions

	// Optional bookkeeping; each step is skipped when its collaborator is nil.
	Tx            txRunner
	Store         quoteStore
	Outbox        eventEmitter
	Archive       archiver
	ArchivePrefix string
	Metrics       *metrics.QuoteMetrics

	Logger *logger.Logger
	Now    func() time.Time
}

// SubmitInput is one quote request. SessionID is empty for stateless submissions.
type SubmitInput struct {
	SessionID string
	Contact   ContactInfo
	Items     []cart.LineItem
	OnSuccess func(ctx context.Context) error
}

// Receipt describes a dispatched quote.
type Receipt struct {
	QuoteID        uuid.UUID       `json:"quoteId"`
	AttachmentName string          `json:"attachmentName"`
	TotalItems     int             `json:"totalItems"`
	Total          decimal.Decimal `json:"total"`
	SubmittedAt    time.Time       `json:"submittedAt"`
	ArchivePath    string          `json:"archivePath,omitempty"`
}

// Pipeline validates, renders and dispatches quote requests.
type Pipeline struct {
	params PipelineParams
	now    func() time.Time
	logg   *logger.Logger

	mu     sync.Mutex
	states map[string]sessionState
}

type sessionState struct {
	state enums.SubmissionState
	at    time.Time
}

func NewPipeline(params PipelineParams) (*Pipeline, error) {
	if params.Dispatcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "quote dispatcher required")
	}
	if len(params.Recipients) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one quote recipient required")
	}
	if params.From == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote sender required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		params: params,
		now:    now,
		logg:   params.Logger,
		states: make(map[string]sessionState),
	}, nil
}

// State reports the submission state of a cart session.
func (p *Pipeline) State(sessionID string) enums.SubmissionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st, ok := p.states[sessionID]; ok {
		return st.state
	}
	return enums.SubmissionIdle
}

// Prune forgets finished submissions that settled more than idle ago. Their
// sessions read as idle again.
func (p *Pipeline) Prune(idle time.Duration) int {
	cutoff := p.now().Add(-idle)
	p.mu.Lock()
	defer p.mu.Unlock()
	pruned := 0
	for id, st := range p.states {
		if st.state.IsTerminal() && st.at.Before(cutoff) {
			delete(p.states, id)
			pruned++
		}
	}
	return pruned
}

// Submit runs the full pipeline. Every call dispatches; there is no dedup.
func (p *Pipeline) Submit(ctx context.Context, in SubmitInput) (*Receipt, error) {
	contact, err := p.guard(in)
	if err != nil {
		p.params.Metrics.IncSubmission(metrics.OutcomeRejected)
		return nil, err
	}
	if err := p.begin(in.SessionID); err != nil {
		p.params.Metrics.IncSubmission(metrics.OutcomeConflict)
		return nil, err
	}
	if p.logg != nil && in.SessionID != "" {
		ctx = p.logg.WithSessionID(ctx, in.SessionID)
	}

	now := p.now().Truncate(time.Millisecond)
	doc := BuildDocument(contact, in.Items, now, p.params.Document)
	msg, attachment, err := p.packageMessage(doc, now)
	if err != nil {
		return nil, p.fail(ctx, in.SessionID, err, "quote.render_failed")
	}

	started := time.Now()
	if err := p.params.Dispatcher.Send(ctx, msg); err != nil {
		return nil, p.fail(ctx, in.SessionID, err, "quote.dispatch_failed")
	}
	p.params.Metrics.ObserveDispatch(time.Since(started), doc.TotalItems)
	p.params.Metrics.IncSubmission(metrics.OutcomeSuccess)
	p.setState(in.SessionID, enums.SubmissionSuccess)

	receipt := &Receipt{
		QuoteID:        uuid.New(),
		AttachmentName: attachment.Filename,
		TotalItems:     doc.TotalItems,
		Total:          doc.Total,
		SubmittedAt:    now,
	}
	if p.logg != nil {
		ctx = p.logg.WithQuoteID(ctx, receipt.QuoteID.String())
	}

	if in.OnSuccess != nil {
		if err := in.OnSuccess(ctx); err != nil {
			p.bookkeepingFailed(ctx, "on_success", err)
		}
	}

	p.bookkeep(context.WithoutCancel(ctx), in, contact, attachment, receipt)

	if p.logg != nil {
		p.logg.Info(p.logg.WithFields(ctx, map[string]any{
			"total_items": receipt.TotalItems,
			"total":       receipt.Total.String(),
			"attachment":  receipt.AttachmentName,
		}), "quote.dispatched")
	}
	return receipt, nil
}

func (p *Pipeline) guard(in SubmitInput) (ContactInfo, error) {
	if len(in.Items) == 0 {
		return ContactInfo{}, pkgerrors.New(pkgerrors.CodeValidation, EmptyCartMessage)
	}
	for i, item := range in.Items {
		if item.VariantCode == "" || item.Quantity < 1 {
			return ContactInfo{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid products").
				WithDetails(map[string]any{"index": i, "variantCode": item.VariantCode, "quantity": item.Quantity})
		}
		if item.Price.IsNegative() || (item.DiscountPrice != nil && item.DiscountPrice.IsNegative()) {
			return ContactInfo{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid products").
				WithDetails(map[string]any{"index": i, "variantCode": item.VariantCode, "price": "must not be negative"})
		}
	}
	return NormalizeContact(in.Contact)
}

func (p *Pipeline) begin(sessionID string) error {
	if sessionID == "" {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if st, ok := p.states[sessionID]; ok && !st.state.CanSubmit() {
		return pkgerrors.New(pkgerrors.CodeConflict, InFlightMessage)
	}
	p.states[sessionID] = sessionState{state: enums.SubmissionSubmitting, at: p.now()}
	return nil
}

func (p *Pipeline) setState(sessionID string, st enums.SubmissionState) {
	if sessionID == "" {
		return
	}
	p.mu.Lock()
	p.states[sessionID] = sessionState{state: st, at: p.now()}
	p.mu.Unlock()
}

func (p *Pipeline) fail(ctx context.Context, sessionID string, err error, event string) error {
	p.setState(sessionID, enums.SubmissionError)
	p.params.Metrics.IncSubmission(metrics.OutcomeFailed)
	if p.logg != nil {
		p.logg.Error(ctx, event, err)
	}
	return pkgerrors.Wrap(pkgerrors.CodeProcessing, err, ProcessingMessage)
}

// AttachmentName is cotizacion-<first name slug>-<unix millis>.pdf.
func AttachmentName(firstName string, at time.Time) string {
	slug := Slug(firstName)
	if slug == "" {
		slug = "cliente"
	}
	return fmt.Sprintf("cotizacion-%s-%d.pdf", slug, at.UnixMilli())
}

func (p *Pipeline) packageMessage(doc Document, now time.Time) (mailer.Message, mailer.Attachment, error) {
	pdf, err := RenderPDF(doc)
	if err != nil {
		return mailer.Message{}, mailer.Attachment{}, err
	}
	html, err := RenderHTML(doc)
	if err != nil {
		return mailer.Message{}, mailer.Attachment{}, err
	}
	attachment := mailer.Attachment{
		Filename:    AttachmentName(doc.Contact.FirstName, now),
		ContentType: pdfContentType,
		Content:     pdf,
	}
	msg := mailer.Message{
		From:        p.params.From,
		To:          append([]string(nil), p.params.Recipients...),
		ReplyTo:     doc.Contact.Email,
		Subject:     fmt.Sprintf("Nueva Cotización - %s %s", doc.Contact.FirstName, doc.Contact.LastName),
		Text:        RenderText(doc),
		HTML:        html,
		Attachments: []mailer.Attachment{attachment},
	}
	return msg, attachment, nil
}

// bookkeep archives and records a dispatched quote. Failures are logged only.
func (p *Pipeline) bookkeep(ctx context.Context, in SubmitInput, contact ContactInfo, attachment mailer.Attachment, receipt *Receipt) {
	if p.params.Archive != nil {
		object := path.Join(p.params.ArchivePrefix, receipt.SubmittedAt.UTC().Format("2006/01"), receipt.QuoteID.String()+".pdf")
		archived, err := p.params.Archive.Upload(ctx, "", object, pdfContentType, attachment.Content)
		if err != nil {
			p.bookkeepingFailed(ctx, "archive", err)
		} else {
			receipt.ArchivePath = archived
		}
	}

	if p.params.Tx == nil || p.params.Store == nil {
		return
	}
	itemsJSON, err := json.Marshal(in.Items)
	if err != nil {
		p.bookkeepingFailed(ctx, "record", err)
		return
	}
	record := &models.QuoteRequest{
		ID:                receipt.QuoteID,
		FirstName:         contact.FirstName,
		LastName:          contact.LastName,
		Email:             contact.Email,
		Phone:             contact.Phone,
		ContactPreference: contact.Preference,
		Items:             itemsJSON,
		TotalItems:        receipt.TotalItems,
		TotalAmount:       receipt.Total,
		AttachmentName:    receipt.AttachmentName,
		SubmittedAt:       receipt.SubmittedAt.UTC(),
	}
	if in.SessionID != "" {
		sid := in.SessionID
		record.SessionID = &sid
	}
	if receipt.ArchivePath != "" {
		ap := receipt.ArchivePath
		record.ArchivePath = &ap
	}

	err = p.params.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := p.params.Store.CreateTx(ctx, tx, record); err != nil {
			return err
		}
		if p.params.Outbox == nil {
			return nil
		}
		return p.params.Outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventQuoteSubmitted,
			AggregateType: enums.AggregateQuoteRequest,
			AggregateID:   record.ID,
			Actor:         &outbox.ActorRef{SessionID: in.SessionID, Email: contact.Email},
			OccurredAt:    record.SubmittedAt,
			Data: payloads.QuoteSubmittedEvent{
				QuoteID:           record.ID,
				SessionID:         in.SessionID,
				ClientName:        contact.FullName(),
				Email:             contact.Email,
				Phone:             contact.Phone,
				ContactPreference: contact.Preference,
				LineCount:         len(in.Items),
				TotalItems:        record.TotalItems,
				TotalAmount:       record.TotalAmount.StringFixed(2),
				ArchivePath:       receipt.ArchivePath,
				SubmittedAt:       record.SubmittedAt,
			},
		})
	})
	if err != nil {
		p.bookkeepingFailed(ctx, "record", err)
	}
}

func (p *Pipeline) bookkeepingFailed(ctx context.Context, step string, err error) {
	p.params.Metrics.IncBookkeepingFailure(step)
	if p.logg != nil {
		p.logg.Warn(p.logg.WithFields(ctx, map[string]any{"step": step, "error": err.Error()}), "quote.bookkeeping_failed")
	}
}
