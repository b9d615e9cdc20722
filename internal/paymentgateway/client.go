package paymentgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/altayar/tourism-backend/internal"
	gatewaydm "github.com/altayar/tourism-backend/internal/core/datamodel/paymentgateway"
)

const defaultTimeout = 30 * time.Second

// Client talks to the Fawaterk invoice API. It only creates and reads
// invoices; payment outcomes arrive through webhooks, never through polling.
type Client struct {
	baseURL    string
	apiKey     string
	successURL string
	failURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg internal.PaymentConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		successURL: cfg.SuccessURL,
		failURL:    cfg.FailURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// invoiceInitPayRequest is the provider wire format. cartTotal is a decimal
// string in major units; our amounts are cents.
type invoiceInitPayRequest struct {
	CartTotal string                `json:"cartTotal"`
	Currency  string                `json:"currency"`
	Customer  invoiceCustomer       `json:"customer"`
	Redirects invoiceRedirectionURL `json:"redirectionUrls"`
	CartItems []invoiceCartItem     `json:"cartItems"`
}

type invoiceCustomer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type invoiceRedirectionURL struct {
	SuccessURL string `json:"successUrl"`
	FailURL    string `json:"failUrl"`
	PendingURL string `json:"pendingUrl"`
}

type invoiceCartItem struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

type invoiceInitPayResponse struct {
	Status string `json:"status"`
	Data   struct {
		InvoiceID   int64  `json:"invoiceId"`
		InvoiceKey  string `json:"invoiceKey"`
		PaymentData struct {
			RedirectTo string `json:"redirectTo"`
		} `json:"payment_data"`
		URL string `json:"url"`
	} `json:"data"`
}

func centsToDecimal(cents int64) string {
	return strconv.FormatFloat(float64(cents)/100, 'f', 2, 64)
}

func (c *Client) CreateInvoice(ctx context.Context, req *gatewaydm.InvoiceRequest) (*gatewaydm.Invoice, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invoice request validation: %w", err)
	}

	body := invoiceInitPayRequest{
		CartTotal: centsToDecimal(req.AmountCents),
		Currency:  req.Currency,
		Customer: invoiceCustomer{
			FirstName: req.CustomerName,
			Email:     req.CustomerEmail,
			Phone:     req.CustomerPhone,
		},
		Redirects: invoiceRedirectionURL{
			SuccessURL: req.SuccessURL,
			FailURL:    req.FailURL,
			PendingURL: req.SuccessURL,
		},
		CartItems: []invoiceCartItem{{
			Name:     req.Description,
			Price:    centsToDecimal(req.AmountCents),
			Quantity: "1",
		}},
	}

	var resp invoiceInitPayResponse
	if err := c.post(ctx, "/api/v2/invoiceInitPay", body, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("provider rejected invoice: status=%s", resp.Status)
	}

	paymentURL := resp.Data.PaymentData.RedirectTo
	if paymentURL == "" {
		paymentURL = resp.Data.URL
	}

	invoice := &gatewaydm.Invoice{
		InvoiceID:  strconv.FormatInt(resp.Data.InvoiceID, 10),
		InvoiceKey: resp.Data.InvoiceKey,
		PaymentURL: paymentURL,
	}

	c.logger.Info("gateway invoice created",
		"invoice_id", invoice.InvoiceID,
		"amount_cents", req.AmountCents,
		"currency", req.Currency)

	return invoice, nil
}

type getInvoiceDataResponse struct {
	Status string `json:"status"`
	Data   struct {
		InvoiceStatus string `json:"invoice_status"`
	} `json:"data"`
}

func (c *Client) CheckStatus(ctx context.Context, invoiceID string) (gatewaydm.InvoiceStatus, error) {
	var resp getInvoiceDataResponse
	if err := c.get(ctx, "/api/v2/getInvoiceData/"+invoiceID, &resp); err != nil {
		return "", err
	}
	if resp.Status != "success" {
		return "", fmt.Errorf("provider rejected status lookup: status=%s", resp.Status)
	}
	return gatewaydm.InvoiceStatus(resp.Data.InvoiceStatus), nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(httpReq, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(httpReq, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("provider returned error",
			"status_code", resp.StatusCode,
			"path", req.URL.Path,
			"body", string(snippet))
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}
