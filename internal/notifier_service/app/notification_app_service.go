package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loopintegra/boleto-notifier/internal/notifier_service/adapters/messaging"
	"github.com/loopintegra/boleto-notifier/internal/notifier_service/domain"
)

const (
	// ListarContasReceber paging parameters for the scan strategy. The page
	// ceiling bounds worst-case latency and API cost at 6000 records.
	listPageSize = 100
	maxScanPages = 60

	LookupStrategyDirect = "direct"
	LookupStrategyScan   = "scan"
)

// tituloIDAliases are the webhook payload fields that may carry the document
// identifier, in priority order. The surrogate code (nCodTitulo /
// codigo_lancamento_omie) is canonical; the integration code and the human
// document number are deprecated aliases kept for older webhook configs.
var tituloIDAliases = []string{
	"nCodTitulo",
	"codigo_lancamento_omie",
	"codigo_lancamento_integracao",
	"numero_documento",
}

// ERPClient is the slice of the Omie API this pipeline consumes.
type ERPClient interface {
	ConsultarContaReceber(ctx context.Context, tituloID string) (*domain.ContaReceber, error)
	ListarContasReceber(ctx context.Context, pagina, registrosPorPagina int) (*domain.ContasReceberPage, error)
	ObterBoleto(ctx context.Context, codigoLancamento int64) (*domain.Boleto, error)
	ConsultarCliente(ctx context.Context, codigoCliente int64) (*domain.ClienteRecord, error)
}

// Result is the structured outcome reported back to the webhook caller.
// Every "handled" shape (ignored subject, no boleto, no usable contact,
// dispatch failed, dispatch succeeded) is a 200 at the HTTP boundary.
type Result struct {
	OK         bool   `json:"ok"`
	Ignored    bool   `json:"ignored,omitempty"`
	Boleto     *bool  `json:"boleto,omitempty"`
	Sent       bool   `json:"sent,omitempty"`
	DeliveryID string `json:"delivery_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// ReasonNoUsableContact marks the customer-has-no-phone outcome, which is
// distinct from any remote failure.
const ReasonNoUsableContact = "recipient has no usable contact phone"

// Options carries the static pipeline settings taken from configuration.
type Options struct {
	SubjectFilter      string
	LookupStrategy     string
	MessagingServiceID string
}

// NotificationAppService runs the whole pipeline for one webhook event:
// intake filter, document resolution, recipient resolution, dispatch.
type NotificationAppService struct {
	erp    ERPClient
	sender messaging.Sender
	logger *slog.Logger
	opts   Options
}

func NewNotificationAppService(erp ERPClient, sender messaging.Sender, logger *slog.Logger, opts Options) *NotificationAppService {
	if opts.LookupStrategy == "" {
		opts.LookupStrategy = LookupStrategyDirect
	}
	return &NotificationAppService{
		erp:    erp,
		sender: sender,
		logger: logger.With("service", "notification_app"),
		opts:   opts,
	}
}

// ExtractEvent validates the decoded webhook payload and pulls out the
// subject and the document identifier. The alias list is first-match-wins;
// no match at all is a validation failure.
func ExtractEvent(assunto string, dados map[string]interface{}) (domain.WebhookEvent, error) {
	for _, alias := range tituloIDAliases {
		if value, ok := stringifyField(dados[alias]); ok {
			return domain.WebhookEvent{Subject: assunto, TituloID: value}, nil
		}
	}
	return domain.WebhookEvent{}, fmt.Errorf("%w: no document identifier in payload (expected one of %s)",
		domain.ErrValidation, strings.Join(tituloIDAliases, ", "))
}

// stringifyField carries identifiers as opaque strings whether the ERP sent
// them as JSON numbers or strings. Decode the payload with UseNumber so
// surrogate codes keep their full precision.
func stringifyField(v interface{}) (string, bool) {
	switch value := v.(type) {
	case nil:
		return "", false
	case string:
		trimmed := strings.TrimSpace(value)
		return trimmed, trimmed != ""
	case json.Number:
		return value.String(), value.String() != ""
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), true
	default:
		return "", false
	}
}

// HandleWebhook is the intake entrypoint for one decoded webhook payload.
// The subject filter runs before identifier validation: an unrelated event
// is acknowledged and ignored even when it carries no identifier at all.
func (s *NotificationAppService) HandleWebhook(ctx context.Context, assunto string, dados map[string]interface{}) (*Result, error) {
	if !strings.Contains(assunto, s.opts.SubjectFilter) {
		s.logger.InfoContext(ctx, "Ignoring webhook with unrelated subject", "subject", assunto)
		eventsProcessedCounter.WithLabelValues("ignored").Inc()
		return &Result{OK: true, Ignored: true}, nil
	}

	event, err := ExtractEvent(assunto, dados)
	if err != nil {
		eventsProcessedCounter.WithLabelValues("validation_error").Inc()
		return nil, err
	}
	return s.Process(ctx, event)
}

// Process handles one extracted event end to end.
func (s *NotificationAppService) Process(ctx context.Context, event domain.WebhookEvent) (*Result, error) {
	start := time.Now()
	defer func() {
		pipelineDuration.Observe(time.Since(start).Seconds())
	}()

	if !strings.Contains(event.Subject, s.opts.SubjectFilter) {
		s.logger.InfoContext(ctx, "Ignoring webhook with unrelated subject", "subject", event.Subject)
		eventsProcessedCounter.WithLabelValues("ignored").Inc()
		return &Result{OK: true, Ignored: true}, nil
	}

	conta, err := s.resolveConta(ctx, event.TituloID)
	if err != nil {
		eventsProcessedCounter.WithLabelValues("resolve_error").Inc()
		return nil, err
	}
	logger := s.logger.With("titulo_id", event.TituloID, "codigo_lancamento", conta.CodigoLancamentoOmie)

	if !conta.BoletoGerado {
		logger.InfoContext(ctx, "Titulo has no boleto yet, nothing to notify")
		eventsProcessedCounter.WithLabelValues("no_boleto").Inc()
		return &Result{OK: true, Boleto: boolPtr(false)}, nil
	}

	boleto, err := s.erp.ObterBoleto(ctx, conta.CodigoLancamentoOmie)
	if err != nil {
		eventsProcessedCounter.WithLabelValues("resolve_error").Inc()
		return nil, err
	}

	clienteRecord, err := s.erp.ConsultarCliente(ctx, conta.CodigoClienteFornecedor)
	if err != nil {
		eventsProcessedCounter.WithLabelValues("resolve_error").Inc()
		return nil, err
	}
	cliente := ResolveCliente(clienteRecord)

	if cliente.Telefone == "" {
		logger.WarnContext(ctx, "Customer has no usable phone, skipping dispatch", "codigo_cliente", clienteRecord.CodigoClienteOmie)
		eventsProcessedCounter.WithLabelValues("no_contact").Inc()
		return &Result{OK: false, Boleto: boolPtr(true), Reason: ReasonNoUsableContact}, nil
	}

	message := domain.OutboundMessage{
		DeliveryID: uuid.NewString(),
		Phone:      cliente.Telefone,
		Body:       RenderBoletoMessage(cliente.Nome, conta, boleto),
		ServiceID:  s.opts.MessagingServiceID,
	}

	sendResp, err := s.sender.Send(ctx, messaging.SendRequestDetails{
		DeliveryID: message.DeliveryID,
		Recipient:  message.Phone,
		Content:    message.Body,
		ServiceID:  message.ServiceID,
	})
	if err != nil {
		// Only configuration/request-building problems surface here;
		// delivery failures come back inside sendResp.
		eventsProcessedCounter.WithLabelValues("dispatch_error").Inc()
		return nil, err
	}

	if !sendResp.Success {
		logger.WarnContext(ctx, "Provider did not accept the message", "delivery_id", message.DeliveryID, "detail", sendResp.Detail)
		dispatchCounter.WithLabelValues(s.sender.GetName(), "failure").Inc()
		eventsProcessedCounter.WithLabelValues("dispatch_failed").Inc()
		return &Result{
			OK:         false,
			Boleto:     boolPtr(true),
			DeliveryID: message.DeliveryID,
			Detail:     sendResp.Detail,
		}, nil
	}

	logger.InfoContext(ctx, "Boleto notification dispatched", "delivery_id", message.DeliveryID, "provider_message_id", sendResp.ProviderMessageID)
	dispatchCounter.WithLabelValues(s.sender.GetName(), "success").Inc()
	eventsProcessedCounter.WithLabelValues("sent").Inc()
	return &Result{
		OK:         true,
		Boleto:     boolPtr(true),
		Sent:       true,
		DeliveryID: message.DeliveryID,
	}, nil
}

// resolveConta picks the configured lookup strategy.
func (s *NotificationAppService) resolveConta(ctx context.Context, tituloID string) (*domain.ContaReceber, error) {
	if s.opts.LookupStrategy == LookupStrategyScan {
		return s.resolveContaByScan(ctx, tituloID)
	}
	return s.erp.ConsultarContaReceber(ctx, tituloID)
}

// resolveContaByScan pages through ListarContasReceber until the target
// identifier shows up, the provider reports no more pages, a page comes back
// empty, or the page ceiling is hit.
func (s *NotificationAppService) resolveContaByScan(ctx context.Context, tituloID string) (*domain.ContaReceber, error) {
	pagesFetched := 0
	for pagina := 1; pagina <= maxScanPages; pagina++ {
		page, err := s.erp.ListarContasReceber(ctx, pagina, listPageSize)
		if err != nil {
			return nil, err
		}
		pagesFetched++

		for i := range page.Registros {
			if contaMatchesID(&page.Registros[i], tituloID) {
				conta := page.Registros[i]
				return &conta, nil
			}
		}

		if len(page.Registros) == 0 {
			break
		}
		if page.TotalDePaginas > 0 && pagina >= page.TotalDePaginas {
			break
		}
	}
	return nil, domain.NewRemoteCallError(domain.ErrNotFound, "ListarContasReceber", 0,
		fmt.Sprintf("titulo %s not found after scanning %d page(s)", tituloID, pagesFetched))
}

// contaMatchesID compares the target against every identifier alias the
// record exposes.
func contaMatchesID(conta *domain.ContaReceber, tituloID string) bool {
	if strconv.FormatInt(conta.CodigoLancamentoOmie, 10) == tituloID {
		return true
	}
	if conta.CodigoLancamentoIntegracao != "" && conta.CodigoLancamentoIntegracao == tituloID {
		return true
	}
	return conta.NumeroDocumento != "" && conta.NumeroDocumento == tituloID
}

// ResolveCliente derives the display name (first non-empty of razão social,
// nome fantasia, contato) and the canonical phone from a raw ERP record.
func ResolveCliente(record *domain.ClienteRecord) domain.Cliente {
	nome := record.RazaoSocial
	if nome == "" {
		nome = record.NomeFantasia
	}
	if nome == "" {
		nome = record.Contato
	}
	return domain.Cliente{
		CodigoClienteOmie: record.CodigoClienteOmie,
		Nome:              nome,
		Telefone:          domain.CanonicalPhone(record.Telefone1DDD, record.Telefone1Numero),
	}
}

func boolPtr(b bool) *bool { return &b }
