package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strconv"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/loopintegra/boleto-notifier/internal/notifier_service/adapters/messaging"
	"github.com/loopintegra/boleto-notifier/internal/notifier_service/domain"
)

// MockERPClient mocks the Omie client consumed by the pipeline.
type MockERPClient struct {
	mock.Mock
}

func (m *MockERPClient) ConsultarContaReceber(ctx context.Context, tituloID string) (*domain.ContaReceber, error) {
	args := m.Called(ctx, tituloID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContaReceber), args.Error(1)
}

func (m *MockERPClient) ListarContasReceber(ctx context.Context, pagina, registrosPorPagina int) (*domain.ContasReceberPage, error) {
	args := m.Called(ctx, pagina, registrosPorPagina)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContasReceberPage), args.Error(1)
}

func (m *MockERPClient) ObterBoleto(ctx context.Context, codigoLancamento int64) (*domain.Boleto, error) {
	args := m.Called(ctx, codigoLancamento)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Boleto), args.Error(1)
}

func (m *MockERPClient) ConsultarCliente(ctx context.Context, codigoCliente int64) (*domain.ClienteRecord, error) {
	args := m.Called(ctx, codigoCliente)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ClienteRecord), args.Error(1)
}

// MockSender mocks the messaging provider adapter.
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, request messaging.SendRequestDetails) (*messaging.SendResponseDetails, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.SendResponseDetails), args.Error(1)
}

func (m *MockSender) GetName() string {
	return "mock"
}

func newService(erp *MockERPClient, sender *MockSender, opts Options) *NotificationAppService {
	if opts.SubjectFilter == "" {
		opts.SubjectFilter = "ContaReceber"
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewNotificationAppService(erp, sender, logger, opts)
}

func contaComBoleto(codigo int64) *domain.ContaReceber {
	return &domain.ContaReceber{
		CodigoLancamentoOmie:    codigo,
		NumeroDocumento:         "NF-42",
		CodigoClienteFornecedor: 777,
		DataVencimento:          "10/09/2026",
		ValorDocumento:          150.0,
		StatusTitulo:            "ABERTO",
		BoletoGerado:            true,
	}
}

func boletoDetalhe() *domain.Boleto {
	return &domain.Boleto{
		DataVencimento: "10/09/2026",
		Valor:          150.0,
		LinhaDigitavel: "23793.38128 60007.827136 95000.063305 9 84660000015000",
		LinkBoleto:     "https://boletos.example/42.pdf",
	}
}

func clienteComTelefone() *domain.ClienteRecord {
	return &domain.ClienteRecord{
		CodigoClienteOmie: 777,
		RazaoSocial:       "ACME Comércio LTDA",
		Telefone1DDD:      "11",
		Telefone1Numero:   "987654321",
	}
}

func TestProcess_UnrelatedSubjectIsIgnoredWithoutRemoteCalls(t *testing.T) {
	erp := new(MockERPClient)
	sender := new(MockSender)
	service := newService(erp, sender, Options{})

	result, err := service.Process(context.Background(), domain.WebhookEvent{
		Subject:  "Estoque.Produto.Alterado",
		TituloID: "5001",
	})

	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.True(t, result.Ignored)
	erp.AssertNotCalled(t, "ConsultarContaReceber", mock.Anything, mock.Anything)
	erp.AssertNotCalled(t, "ListarContasReceber", mock.Anything, mock.Anything, mock.Anything)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestProcess_NoBoletoStopsBeforeRecipientResolution(t *testing.T) {
	erp := new(MockERPClient)
	sender := new(MockSender)
	service := newService(erp, sender, Options{})

	conta := contaComBoleto(5001)
	conta.BoletoGerado = false
	erp.On("ConsultarContaReceber", mock.Anything, "5001").Return(conta, nil).Once()

	result, err := service.Process(context.Background(), domain.WebhookEvent{
		Subject:  "Financas.ContaReceber.Alterado",
		TituloID: "5001",
	})

	require.NoError(t, err)
	assert.True(t, result.OK)
	require.NotNil(t, result.Boleto)
	assert.False(t, *result.Boleto)
	erp.AssertNotCalled(t, "ObterBoleto", mock.Anything, mock.Anything)
	erp.AssertNotCalled(t, "ConsultarCliente", mock.Anything, mock.Anything)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	erp.AssertExpectations(t)
}

func TestProcess_NoUsablePhoneSkipsDispatch(t *testing.T) {
	erp := new(MockERPClient)
	sender := new(MockSender)
	service := newService(erp, sender, Options{})

	erp.On("ConsultarContaReceber", mock.Anything, "5001").Return(contaComBoleto(5001), nil).Once()
	erp.On("ObterBoleto", mock.Anything, int64(5001)).Return(boletoDetalhe(), nil).Once()
	erp.On("ConsultarCliente", mock.Anything, int64(777)).Return(&domain.ClienteRecord{
		CodigoClienteOmie: 777,
		RazaoSocial:       "Sem Telefone SA",
	}, nil).Once()

	result, err := service.Process(context.Background(), domain.WebhookEvent{
		Subject:  "Financas.ContaReceber.Alterado",
		TituloID: "5001",
	})

	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, ReasonNoUsableContact, result.Reason)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	erp.AssertExpectations(t)
}

func TestProcess_DispatchFailureIsInBandResult(t *testing.T) {
	erp := new(MockERPClient)
	sender := new(MockSender)
	service := newService(erp, sender, Options{MessagingServiceID: "svc-1"})

	erp.On("ConsultarContaReceber", mock.Anything, "5001").Return(contaComBoleto(5001), nil).Once()
	erp.On("ObterBoleto", mock.Anything, int64(5001)).Return(boletoDetalhe(), nil).Once()
	erp.On("ConsultarCliente", mock.Anything, int64(777)).Return(clienteComTelefone(), nil).Once()
	sender.On("Send", mock.Anything, mock.Anything).Return(&messaging.SendResponseDetails{
		Success:    false,
		StatusCode: 422,
		Detail:     "invalid number",
	}, nil).Once()

	result, err := service.Process(context.Background(), domain.WebhookEvent{
		Subject:  "Financas.ContaReceber.Alterado",
		TituloID: "5001",
	})

	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, "invalid number", result.Detail)
	assert.NotEmpty(t, result.DeliveryID)
	sender.AssertExpectations(t)
}

func TestProcess_SuccessfulDispatch(t *testing.T) {
	erp := new(MockERPClient)
	sender := new(MockSender)
	service := newService(erp, sender, Options{MessagingServiceID: "svc-1"})

	erp.On("ConsultarContaReceber", mock.Anything, "5001").Return(contaComBoleto(5001), nil).Once()
	erp.On("ObterBoleto", mock.Anything, int64(5001)).Return(boletoDetalhe(), nil).Once()
	erp.On("ConsultarCliente", mock.Anything, int64(777)).Return(clienteComTelefone(), nil).Once()

	var captured messaging.SendRequestDetails
	sender.On("Send", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(1).(messaging.SendRequestDetails)
	}).Return(&messaging.SendResponseDetails{Success: true, ProviderMessageID: "msg-1", StatusCode: 200}, nil).Once()

	result, err := service.Process(context.Background(), domain.WebhookEvent{
		Subject:  "Financas.ContaReceber.Alterado",
		TituloID: "5001",
	})

	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.True(t, result.Sent)
	require.NotNil(t, result.Boleto)
	assert.True(t, *result.Boleto)

	assert.Equal(t, "5511987654321", captured.Recipient)
	assert.Equal(t, "svc-1", captured.ServiceID)
	assert.Contains(t, captured.Content, "ACME Comércio LTDA")
	assert.Contains(t, captured.Content, "NF-42")
	assert.Contains(t, captured.Content, "R$ 150,00")
	assert.Contains(t, captured.Content, boletoDetalhe().LinhaDigitavel)
	assert.Contains(t, captured.Content, "https://boletos.example/42.pdf")
	erp.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestProcess_ResolverErrorPropagates(t *testing.T) {
	erp := new(MockERPClient)
	sender := new(MockSender)
	service := newService(erp, sender, Options{})

	remoteErr := domain.NewRemoteCallError(domain.ErrPermissionDenied, "ConsultarContaReceber", 403, "denied")
	erp.On("ConsultarContaReceber", mock.Anything, "5001").Return(nil, remoteErr).Once()

	_, err := service.Process(context.Background(), domain.WebhookEvent{
		Subject:  "Financas.ContaReceber.Alterado",
		TituloID: "5001",
	})
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func makePage(pagina, totalPaginas int, codigos ...int64) *domain.ContasReceberPage {
	page := &domain.ContasReceberPage{Pagina: pagina, TotalDePaginas: totalPaginas}
	for _, codigo := range codigos {
		page.Registros = append(page.Registros, domain.ContaReceber{
			CodigoLancamentoOmie: codigo,
			NumeroDocumento:      "DOC-" + strconv.FormatInt(codigo, 10),
			BoletoGerado:         false,
		})
	}
	return page
}

func TestProcess_ScanFindsTargetOnPageThree(t *testing.T) {
	erp := new(MockERPClient)
	sender := new(MockSender)
	service := newService(erp, sender, Options{LookupStrategy: LookupStrategyScan})

	erp.On("ListarContasReceber", mock.Anything, 1, 100).Return(makePage(1, 10, 1, 2, 3), nil).Once()
	erp.On("ListarContasReceber", mock.Anything, 2, 100).Return(makePage(2, 10, 4, 5, 6), nil).Once()
	erp.On("ListarContasReceber", mock.Anything, 3, 100).Return(makePage(3, 10, 7, 5001, 9), nil).Once()

	result, err := service.Process(context.Background(), domain.WebhookEvent{
		Subject:  "Financas.ContaReceber.Alterado",
		TituloID: "5001",
	})

	// The matched record has no boleto, so the pipeline stops there.
	require.NoError(t, err)
	assert.True(t, result.OK)
	require.NotNil(t, result.Boleto)
	assert.False(t, *result.Boleto)
	erp.AssertNumberOfCalls(t, "ListarContasReceber", 3)
}

func TestProcess_ScanExhaustsReportedPagesThenNotFound(t *testing.T) {
	erp := new(MockERPClient)
	sender := new(MockSender)
	service := newService(erp, sender, Options{LookupStrategy: LookupStrategyScan})

	erp.On("ListarContasReceber", mock.Anything, 1, 100).Return(makePage(1, 2, 1, 2), nil).Once()
	erp.On("ListarContasReceber", mock.Anything, 2, 100).Return(makePage(2, 2, 3, 4), nil).Once()

	_, err := service.Process(context.Background(), domain.WebhookEvent{
		Subject:  "Financas.ContaReceber.Alterado",
		TituloID: "9999",
	})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	erp.AssertNumberOfCalls(t, "ListarContasReceber", 2)
}

func TestProcess_ScanStopsOnEmptyPage(t *testing.T) {
	erp := new(MockERPClient)
	sender := new(MockSender)
	service := newService(erp, sender, Options{LookupStrategy: LookupStrategyScan})

	erp.On("ListarContasReceber", mock.Anything, 1, 100).Return(makePage(1, 0, 1, 2), nil).Once()
	erp.On("ListarContasReceber", mock.Anything, 2, 100).Return(makePage(2, 0), nil).Once()

	_, err := service.Process(context.Background(), domain.WebhookEvent{
		Subject:  "Financas.ContaReceber.Alterado",
		TituloID: "9999",
	})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	erp.AssertNumberOfCalls(t, "ListarContasReceber", 2)
}

func TestProcess_ScanMatchesAliasIdentifiers(t *testing.T) {
	erp := new(MockERPClient)
	sender := new(MockSender)
	service := newService(erp, sender, Options{LookupStrategy: LookupStrategyScan})

	page := makePage(1, 1, 1)
	page.Registros = append(page.Registros, domain.ContaReceber{
		CodigoLancamentoOmie:       5002,
		CodigoLancamentoIntegracao: "FAT-2026-01",
		NumeroDocumento:            "NF-7",
	})
	erp.On("ListarContasReceber", mock.Anything, 1, 100).Return(page, nil).Once()

	result, err := service.Process(context.Background(), domain.WebhookEvent{
		Subject:  "Financas.ContaReceber.Alterado",
		TituloID: "FAT-2026-01",
	})

	require.NoError(t, err)
	require.NotNil(t, result.Boleto)
	assert.False(t, *result.Boleto)
}

func pipelineDurationSampleCount(t *testing.T) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, pipelineDuration.Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestProcess_RecordsDurationForEveryOutcome(t *testing.T) {
	erp := new(MockERPClient)
	sender := new(MockSender)
	service := newService(erp, sender, Options{})

	conta := contaComBoleto(5001)
	conta.BoletoGerado = false
	erp.On("ConsultarContaReceber", mock.Anything, "5001").Return(conta, nil).Once()

	before := pipelineDurationSampleCount(t)

	// An ignored event and a no-boleto event both record a duration, not
	// just events that reach dispatch.
	_, err := service.Process(context.Background(), domain.WebhookEvent{Subject: "Estoque.Produto.Alterado", TituloID: "1"})
	require.NoError(t, err)
	_, err = service.Process(context.Background(), domain.WebhookEvent{Subject: "Financas.ContaReceber.Alterado", TituloID: "5001"})
	require.NoError(t, err)

	assert.Equal(t, before+2, pipelineDurationSampleCount(t))
}

func TestHandleWebhook_SubjectFilterRunsBeforeIdentifierValidation(t *testing.T) {
	erp := new(MockERPClient)
	sender := new(MockSender)
	service := newService(erp, sender, Options{})

	// Unrelated subject with no identifier at all: still acknowledged.
	result, err := service.HandleWebhook(context.Background(), "Estoque.Produto.Alterado", map[string]interface{}{})
	require.NoError(t, err)
	assert.True(t, result.Ignored)

	// Relevant subject without any identifier alias: validation failure
	// before any remote call.
	_, err = service.HandleWebhook(context.Background(), "Financas.ContaReceber.Incluido", map[string]interface{}{})
	assert.ErrorIs(t, err, domain.ErrValidation)
	erp.AssertNotCalled(t, "ConsultarContaReceber", mock.Anything, mock.Anything)
	erp.AssertNotCalled(t, "ListarContasReceber", mock.Anything, mock.Anything, mock.Anything)
}

func TestExtractEvent_AliasPriorityAndFallback(t *testing.T) {
	event, err := ExtractEvent("Financas.ContaReceber.Incluido", map[string]interface{}{
		"nCodTitulo":       json.Number("5001"),
		"numero_documento": "NF-42",
	})
	require.NoError(t, err)
	assert.Equal(t, "5001", event.TituloID)

	event, err = ExtractEvent("Financas.ContaReceber.Incluido", map[string]interface{}{
		"numero_documento": "NF-42",
	})
	require.NoError(t, err)
	assert.Equal(t, "NF-42", event.TituloID)
}

func TestExtractEvent_MissingIdentifierIsValidationError(t *testing.T) {
	_, err := ExtractEvent("Financas.ContaReceber.Incluido", map[string]interface{}{
		"outro_campo": "x",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	// Blank values don't count either.
	_, err = ExtractEvent("Financas.ContaReceber.Incluido", map[string]interface{}{
		"nCodTitulo": "  ",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
