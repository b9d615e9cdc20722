package paymentgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	gatewaydm "github.com/altayar/tourism-backend/internal/core/datamodel/paymentgateway"
	"github.com/altayar/tourism-backend/internal/payment"
)

// InvoiceJob is one fabricated invoice waiting for its simulated outcome.
type InvoiceJob struct {
	InvoiceID   string
	InvoiceKey  string
	ReferenceID string
	AmountCents int64
}

type sandboxWorker struct {
	ID         int
	WorkerPool chan chan InvoiceJob
	JobChannel chan InvoiceJob
	Logger     *slog.Logger
}

func newSandboxWorker(id int, workerPool chan chan InvoiceJob, logger *slog.Logger) *sandboxWorker {
	return &sandboxWorker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan InvoiceJob),
		Logger:     logger,
	}
}

func (w *sandboxWorker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(InvoiceJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.WorkerPool <- w.JobChannel

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("sandbox worker processing invoice", "worker_id", w.ID, "invoice_id", job.InvoiceID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("sandbox worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

// Sandbox is a local stand-in for the provider. It fabricates invoices and a
// worker pool later delivers correctly signed webhook callbacks for them.
// Every outcome is delivered at least twice on purpose: the processing path
// must hold up under the provider's real at-least-once behavior.
type Sandbox struct {
	webhookURL   string
	signer       *payment.SignatureVerifier
	successRatio float32
	logger       *slog.Logger

	invoiceSeq atomic.Int64

	jobQueue   chan InvoiceJob
	workerPool chan chan InvoiceJob
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

type SandboxConfig struct {
	WebhookURL   string
	VendorKey    string
	SuccessRatio float32
	MaxWorkers   int
	JobQueueSize int
}

func NewSandbox(config SandboxConfig, logger *slog.Logger) *Sandbox {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}
	successRatio := config.SuccessRatio
	if successRatio <= 0 {
		successRatio = 0.9
	}

	s := &Sandbox{
		webhookURL:   config.WebhookURL,
		signer:       payment.NewSignatureVerifier(config.VendorKey),
		successRatio: successRatio,
		logger:       logger,

		maxWorkers: maxWorkers,
		jobQueue:   make(chan InvoiceJob, jobQueueSize),
		workerPool: make(chan chan InvoiceJob, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}

	s.startWorkerPool()
	return s
}

func (s *Sandbox) startWorkerPool() {
	s.once.Do(func() {
		for i := 0; i < s.maxWorkers; i++ {
			worker := newSandboxWorker(i, s.workerPool, s.logger)
			worker.Start(s.ctx, &s.wg, s.processInvoiceJob)
		}

		go s.dispatch()

		s.logger.Info("sandbox gateway worker pool started",
			"max_workers", s.maxWorkers,
			"queue_size", cap(s.jobQueue))
	})
}

func (s *Sandbox) dispatch() {
	s.wg.Add(1)
	defer s.wg.Done()

	for {
		select {
		case job := <-s.jobQueue:
			select {
			case jobChannel := <-s.workerPool:
				select {
				case jobChannel <- job:
				case <-s.ctx.Done():
					return
				}
			case <-s.ctx.Done():
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Sandbox) Shutdown() {
	s.logger.Info("shutting down sandbox gateway")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("sandbox gateway shutdown complete")
}

// CreateInvoice fabricates an invoice and queues its outcome delivery.
func (s *Sandbox) CreateInvoice(ctx context.Context, req *gatewaydm.InvoiceRequest) (*gatewaydm.Invoice, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invoice request validation: %w", err)
	}

	invoice := &gatewaydm.Invoice{
		InvoiceID:  fmt.Sprintf("%d", 100000+s.invoiceSeq.Add(1)),
		InvoiceKey: uuid.NewString(),
		PaymentURL: fmt.Sprintf("https://sandbox.invalid/pay/%s", uuid.NewString()),
	}

	job := InvoiceJob{
		InvoiceID:   invoice.InvoiceID,
		InvoiceKey:  invoice.InvoiceKey,
		ReferenceID: req.IdempotencyKey,
		AmountCents: req.AmountCents,
	}

	select {
	case s.jobQueue <- job:
		s.logger.Info("sandbox invoice queued",
			"invoice_id", invoice.InvoiceID,
			"amount_cents", req.AmountCents,
			"queue_length", len(s.jobQueue))
	default:
		return nil, fmt.Errorf("sandbox queue full, please try again later")
	}

	return invoice, nil
}

func (s *Sandbox) CheckStatus(ctx context.Context, invoiceID string) (gatewaydm.InvoiceStatus, error) {
	return gatewaydm.InvoiceStatusPending, nil
}

func (s *Sandbox) processInvoiceJob(job InvoiceJob) {
	delay := time.Duration(1+rand.Intn(3)) * time.Second

	select {
	case <-time.After(delay):
	case <-s.ctx.Done():
		s.logger.Info("sandbox invoice cancelled", "invoice_id", job.InvoiceID)
		return
	}

	payload := &gatewaydm.WebhookPayload{
		InvoiceID:     job.InvoiceID,
		InvoiceKey:    job.InvoiceKey,
		ReferenceID:   job.ReferenceID,
		PaymentMethod: "card",
		AmountCents:   job.AmountCents,
	}

	if rand.Float32() < s.successRatio {
		payload.InvoiceStatus = string(gatewaydm.InvoiceStatusPaid)
	} else {
		payload.InvoiceStatus = string(gatewaydm.InvoiceStatusFailed)
		payload.FailureReason = "insufficient funds"
	}

	payload.HashKey = s.signer.Sign(payload)

	// deliberate duplicate delivery
	for attempt := 1; attempt <= 2; attempt++ {
		s.deliverWebhook(payload, attempt)
	}
}

func (s *Sandbox) deliverWebhook(payload *gatewaydm.WebhookPayload, attempt int) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("sandbox: failed to marshal webhook", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(data))
	if err != nil {
		s.logger.Error("sandbox: failed to create webhook request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		s.logger.Error("sandbox: webhook delivery failed",
			"invoice_id", payload.InvoiceID,
			"attempt", attempt,
			"error", err)
		return
	}
	defer resp.Body.Close()

	s.logger.Info("sandbox: webhook delivered",
		"invoice_id", payload.InvoiceID,
		"invoice_status", payload.InvoiceStatus,
		"attempt", attempt,
		"status_code", resp.StatusCode)
}
