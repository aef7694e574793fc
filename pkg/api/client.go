package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sarathss100/eve-client/internal/models"
)

const apiPrefix = "/api/v1"

// Client talks to the Eve backend REST API. All methods decode the standard
// response envelope and translate failures into the package error taxonomy;
// nothing here retries or polls, callers own that.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.Named("api"),
	}
}

// do issues one request and returns the decoded envelope. Non-2xx statuses
// become *HTTPError (404 maps to ErrNotFound), transport failures become
// *NetworkError.
func (c *Client) do(ctx context.Context, method, path, token string, body interface{}) (*models.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}

	var envelope models.Response
	if len(raw) > 0 {
		// A non-JSON body is tolerated; the status code still decides the
		// outcome below.
		_ = json.Unmarshal(raw, &envelope)
	}

	c.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, Message: envelope.Reason()}
	}

	return &envelope, nil
}

func decodeData(envelope *models.Response, out interface{}) error {
	if len(envelope.Data) == 0 {
		return fmt.Errorf("response envelope has no data")
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// --- Auth ---

func (c *Client) SignIn(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	envelope, err := c.do(ctx, http.MethodPost, "/auth/signin", "", req)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := decodeData(envelope, &user); err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: envelope.Token, User: user}, nil
}

func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	envelope, err := c.do(ctx, http.MethodPost, "/auth/register", "", req)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := decodeData(envelope, &user); err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: envelope.Token, User: user}, nil
}

func (c *Client) SignOut(ctx context.Context, token string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/signout", token, nil)
	return err
}

// --- Events ---

func (c *Client) ListEvents(ctx context.Context) ([]models.Event, error) {
	envelope, err := c.do(ctx, http.MethodGet, "/events", "", nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		Events []models.Event `json:"events"`
	}
	if err := decodeData(envelope, &data); err != nil {
		return nil, err
	}
	return data.Events, nil
}

func (c *Client) GetEvent(ctx context.Context, eventID, token string) (*models.Event, error) {
	envelope, err := c.do(ctx, http.MethodGet, "/events/"+eventID, token, nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		Event *models.Event `json:"event"`
	}
	if err := decodeData(envelope, &data); err != nil {
		return nil, err
	}
	if data.Event == nil || data.Event.EventID == "" {
		return nil, ErrNotFound
	}
	return data.Event, nil
}

// --- Tickets ---

func (c *Client) ListUserTickets(ctx context.Context, token string) ([]models.Ticket, error) {
	envelope, err := c.do(ctx, http.MethodGet, "/tickets", token, nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		TicketDetails []models.Ticket `json:"ticketDetails"`
	}
	if err := decodeData(envelope, &data); err != nil {
		return nil, err
	}
	return data.TicketDetails, nil
}

// TicketBySession looks up the ticket issued for a payment session. While
// the backend is still processing the payment it answers without a record;
// that case is reported as ErrNotFound so callers can keep polling.
func (c *Client) TicketBySession(ctx context.Context, sessionID, token string) (*models.Ticket, error) {
	envelope, err := c.do(ctx, http.MethodGet, "/tickets/by-session/"+sessionID, token, nil)
	if err != nil {
		return nil, err
	}
	if !envelope.Success || len(envelope.Data) == 0 {
		return nil, ErrNotFound
	}
	var ticket models.Ticket
	if err := json.Unmarshal(envelope.Data, &ticket); err != nil {
		return nil, fmt.Errorf("decode ticket: %w", err)
	}
	if ticket.TicketID == "" {
		return nil, ErrNotFound
	}
	return &ticket, nil
}

// --- Payments ---

func (c *Client) InitiatePayment(ctx context.Context, req models.PaymentInitiateRequest, token string) (*models.CheckoutSession, error) {
	envelope, err := c.do(ctx, http.MethodPost, "/payments/initiate", token, req)
	if err != nil {
		return nil, err
	}
	var session models.CheckoutSession
	if err := decodeData(envelope, &session); err != nil {
		return nil, err
	}
	if session.CheckOutURL == "" {
		return nil, fmt.Errorf("payment session has no checkout URL")
	}
	return &session, nil
}

func (c *Client) ReportFailedPayment(ctx context.Context, report models.PaymentFailureReport, token string) error {
	_, err := c.do(ctx, http.MethodPost, "/payments/failed", token, report)
	return err
}

// --- Organizer ---

func (c *Client) OrganizerEvents(ctx context.Context, token string) ([]models.Event, error) {
	envelope, err := c.do(ctx, http.MethodGet, "/organizer/events", token, nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		Events []models.Event `json:"events"`
	}
	if err := decodeData(envelope, &data); err != nil {
		return nil, err
	}
	return data.Events, nil
}

func (c *Client) CreateEvent(ctx context.Context, payload models.EventPayload, token string) (*models.Event, error) {
	envelope, err := c.do(ctx, http.MethodPost, "/organizer/events", token, payload)
	if err != nil {
		return nil, err
	}
	return decodeEvent(envelope)
}

func (c *Client) UpdateEvent(ctx context.Context, eventID string, payload models.EventPayload, token string) (*models.Event, error) {
	envelope, err := c.do(ctx, http.MethodPatch, "/organizer/events/"+eventID, token, payload)
	if err != nil {
		return nil, err
	}
	return decodeEvent(envelope)
}

func (c *Client) DeleteEvent(ctx context.Context, eventID, token string) error {
	_, err := c.do(ctx, http.MethodDelete, "/organizer/events/"+eventID, token, nil)
	return err
}

func (c *Client) ListUsers(ctx context.Context, token string) ([]models.User, error) {
	envelope, err := c.do(ctx, http.MethodGet, "/organizer/users", token, nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		Users []models.User `json:"users"`
	}
	if err := decodeData(envelope, &data); err != nil {
		return nil, err
	}
	return data.Users, nil
}

func (c *Client) UpdateUserRole(ctx context.Context, userID string, role models.Role, token string) (*models.User, error) {
	envelope, err := c.do(ctx, http.MethodPut, "/organizer/users/role/"+userID, token, models.UpdateRoleRequest{NewRole: role})
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := decodeData(envelope, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func decodeEvent(envelope *models.Response) (*models.Event, error) {
	var data struct {
		Event *models.Event `json:"event"`
	}
	if err := decodeData(envelope, &data); err != nil {
		return nil, err
	}
	if data.Event == nil {
		return nil, fmt.Errorf("response envelope has no event")
	}
	return data.Event, nil
}
