package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/loopintegra/boleto-notifier/internal/notifier_service/domain"
)

// DigisacProvider submits messages through a Digisac-style chat gateway:
// one POST with bearer-token auth carrying number, message text and the
// service (channel) id.
type DigisacProvider struct {
	logger     *slog.Logger
	httpClient *http.Client
	apiURL     string
	apiToken   string
}

func NewDigisacProvider(logger *slog.Logger, apiURL, apiToken string, httpClient *http.Client) *DigisacProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &DigisacProvider{
		logger:     logger.With("provider", "digisac"),
		httpClient: httpClient,
		apiURL:     apiURL,
		apiToken:   apiToken,
	}
}

type digisacSendRequestBody struct {
	Number    string `json:"number"`
	Message   string `json:"message"`
	ServiceID string `json:"serviceId"`
}

type digisacSendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (p *DigisacProvider) GetName() string {
	return "digisac"
}

// Send submits one message. Missing provider configuration is a hard error;
// delivery failures come back as a structured SendResponseDetails with
// Success=false and a nil error.
func (p *DigisacProvider) Send(ctx context.Context, request SendRequestDetails) (*SendResponseDetails, error) {
	if p.apiURL == "" || p.apiToken == "" {
		return nil, fmt.Errorf("messaging provider url/token not configured: %w", domain.ErrConfiguration)
	}

	reqBody := digisacSendRequestBody{
		Number:    request.Recipient,
		Message:   request.Content,
		ServiceID: request.ServiceID,
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal provider request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewBuffer(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create provider request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiToken)

	p.logger.DebugContext(ctx, "Submitting message to provider", "delivery_id", request.DeliveryID, "recipient", request.Recipient)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.logger.WarnContext(ctx, "Provider request failed at network level", "delivery_id", request.DeliveryID, "error", err)
		return &SendResponseDetails{
			Success: false,
			Detail:  err.Error(),
		}, nil
	}
	defer httpResp.Body.Close()

	respBody, readErr := io.ReadAll(httpResp.Body)
	if readErr != nil {
		p.logger.WarnContext(ctx, "Failed to read provider response body", "delivery_id", request.DeliveryID, "status_code", httpResp.StatusCode, "error", readErr)
		return &SendResponseDetails{
			Success:    false,
			StatusCode: httpResp.StatusCode,
			Detail:     fmt.Sprintf("failed to read provider response (status %d): %v", httpResp.StatusCode, readErr),
		}, nil
	}

	if httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 {
		var parsed digisacSendResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			// Some deployments answer 2xx with plain text; still a success.
			p.logger.WarnContext(ctx, "Provider accepted message but response was not JSON", "delivery_id", request.DeliveryID, "status_code", httpResp.StatusCode)
			return &SendResponseDetails{
				Success:    true,
				StatusCode: httpResp.StatusCode,
			}, nil
		}
		p.logger.InfoContext(ctx, "Message accepted by provider", "delivery_id", request.DeliveryID, "provider_message_id", parsed.ID)
		return &SendResponseDetails{
			ProviderMessageID: parsed.ID,
			Success:           true,
			StatusCode:        httpResp.StatusCode,
		}, nil
	}

	// Non-2xx: prefer the provider's structured message, fall back to the
	// raw (truncated) body.
	detail := domain.Excerpt(string(respBody))
	var parsed digisacSendResponse
	if err := json.Unmarshal(respBody, &parsed); err == nil && parsed.Message != "" {
		detail = parsed.Message
	}

	p.logger.WarnContext(ctx, "Provider rejected message", "delivery_id", request.DeliveryID, "status_code", httpResp.StatusCode, "detail", detail)
	return &SendResponseDetails{
		Success:    false,
		StatusCode: httpResp.StatusCode,
		Detail:     detail,
	}, nil
}
