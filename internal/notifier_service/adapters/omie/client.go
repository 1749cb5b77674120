package omie

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

	"github.com/loopintegra/boleto-notifier/internal/notifier_service/domain"
)

const (
	contaReceberPath       = "/financas/contareceber/"
	contaReceberBoletoPath = "/financas/contareceberboleto/"
	clientesPath           = "/geral/clientes/"

	// Omie operation names, also used in error details so a 403 in the logs
	// identifies which call was denied.
	OpConsultarContaReceber = "ConsultarContaReceber"
	OpListarContasReceber   = "ListarContasReceber"
	OpObterBoleto           = "ObterBoleto"
	OpConsultarCliente      = "ConsultarCliente"
)

// Client talks to the Omie ERP API. All operations share one envelope:
// POST {base}{path} with {"call", "app_key", "app_secret", "param": [{...}]}.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	appKey     string
	appSecret  string
}

func NewClient(logger *slog.Logger, baseURL, appKey, appSecret string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		logger:     logger.With("adapter", "omie"),
		httpClient: httpClient,
		baseURL:    baseURL,
		appKey:     appKey,
		appSecret:  appSecret,
	}
}

// call posts one envelope and decodes the 2xx response into out, applying
// the shared error taxonomy: 403 -> permission denied, other non-2xx or a
// network failure -> upstream error with status and truncated body.
func (c *Client) call(ctx context.Context, path, op string, param interface{}, out interface{}) error {
	envelope := callEnvelope{
		Call:      op,
		AppKey:    c.appKey,
		AppSecret: c.appSecret,
		Param:     []interface{}{param},
	}

	reqBytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(reqBytes))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.ErrorContext(ctx, "Omie request failed at network level", "operation", op, "error", err)
		return domain.NewRemoteCallError(domain.ErrUpstream, op, 0, err.Error())
	}
	defer httpResp.Body.Close()

	respBody, readErr := io.ReadAll(httpResp.Body)
	if readErr != nil {
		c.logger.ErrorContext(ctx, "Failed to read Omie response body", "operation", op, "status_code", httpResp.StatusCode, "error", readErr)
		return domain.NewRemoteCallError(domain.ErrUpstream, op, httpResp.StatusCode, readErr.Error())
	}

	if httpResp.StatusCode == http.StatusForbidden {
		c.logger.WarnContext(ctx, "Omie denied credentials/permissions", "operation", op, "status_code", httpResp.StatusCode)
		return domain.NewRemoteCallError(domain.ErrPermissionDenied, op, httpResp.StatusCode, string(respBody))
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		c.logger.WarnContext(ctx, "Omie returned non-2xx", "operation", op, "status_code", httpResp.StatusCode)
		return domain.NewRemoteCallError(domain.ErrUpstream, op, httpResp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		c.logger.ErrorContext(ctx, "Failed to decode Omie response", "operation", op, "error", err)
		return domain.NewRemoteCallError(domain.ErrUpstream, op, httpResp.StatusCode, string(respBody))
	}
	return nil
}

// ConsultarContaReceber performs a point lookup of one receivable. Numeric
// identifiers query by surrogate code; anything else is treated as the
// integration code alias.
func (c *Client) ConsultarContaReceber(ctx context.Context, tituloID string) (*domain.ContaReceber, error) {
	param := consultarContaReceberParam{}
	if n, err := strconv.ParseInt(tituloID, 10, 64); err == nil {
		param.NCodTitulo = n
	} else {
		param.CCodIntTitulo = tituloID
	}

	var dto contaReceberDTO
	if err := c.call(ctx, contaReceberPath, OpConsultarContaReceber, param, &dto); err != nil {
		return nil, err
	}
	if dto.CodigoLancamentoOmie == 0 && dto.NumeroDocumento == "" {
		return nil, domain.NewRemoteCallError(domain.ErrNotFound, OpConsultarContaReceber, 0,
			fmt.Sprintf("titulo %s not found", tituloID))
	}
	return dto.toDomain(), nil
}

// ListarContasReceber fetches one page of the receivable listing.
func (c *Client) ListarContasReceber(ctx context.Context, pagina, registrosPorPagina int) (*domain.ContasReceberPage, error) {
	param := listarContasReceberParam{
		Pagina:             pagina,
		RegistrosPorPagina: registrosPorPagina,
		ApenasImportadoAPI: "N",
	}

	var resp listarContasReceberResponse
	if err := c.call(ctx, contaReceberPath, OpListarContasReceber, param, &resp); err != nil {
		return nil, err
	}

	page := &domain.ContasReceberPage{
		Pagina:         resp.Pagina,
		TotalDePaginas: resp.TotalDePaginas,
		Registros:      make([]domain.ContaReceber, 0, len(resp.ContaReceber)),
	}
	for _, dto := range resp.ContaReceber {
		page.Registros = append(page.Registros, *dto.toDomain())
	}
	return page, nil
}

// ObterBoleto fetches the payment-slip detail for a receivable that reports
// a generated boleto.
func (c *Client) ObterBoleto(ctx context.Context, codigoLancamento int64) (*domain.Boleto, error) {
	var resp obterBoletoResponse
	if err := c.call(ctx, contaReceberBoletoPath, OpObterBoleto, obterBoletoParam{NCodTitulo: codigoLancamento}, &resp); err != nil {
		return nil, err
	}
	return &domain.Boleto{
		DataVencimento: resp.DDtVenc,
		Valor:          resp.NValorBoleto,
		LinhaDigitavel: resp.CLinhaDigitavel,
		LinkBoleto:     resp.CLinkBoleto,
	}, nil
}

// ConsultarCliente fetches the raw customer record for the receivable's
// codigo_cliente_fornecedor.
func (c *Client) ConsultarCliente(ctx context.Context, codigoCliente int64) (*domain.ClienteRecord, error) {
	var dto clienteDTO
	if err := c.call(ctx, clientesPath, OpConsultarCliente, consultarClienteParam{CodigoClienteOmie: codigoCliente}, &dto); err != nil {
		return nil, err
	}
	if dto.CodigoClienteOmie == 0 {
		return nil, domain.NewRemoteCallError(domain.ErrNotFound, OpConsultarCliente, 0,
			fmt.Sprintf("cliente %d not found", codigoCliente))
	}
	return &domain.ClienteRecord{
		CodigoClienteOmie: dto.CodigoClienteOmie,
		RazaoSocial:       dto.RazaoSocial,
		NomeFantasia:      dto.NomeFantasia,
		Contato:           dto.Contato,
		Telefone1DDD:      dto.Telefone1DDD,
		Telefone1Numero:   dto.Telefone1Numero,
	}, nil
}

func (d *contaReceberDTO) toDomain() *domain.ContaReceber {
	return &domain.ContaReceber{
		CodigoLancamentoOmie:       d.CodigoLancamentoOmie,
		CodigoLancamentoIntegracao: d.CodigoLancamentoIntegracao,
		NumeroDocumento:            d.NumeroDocumento,
		CodigoClienteFornecedor:    d.CodigoClienteFornecedor,
		DataVencimento:             d.DataVencimento,
		ValorDocumento:             d.ValorDocumento,
		StatusTitulo:               d.StatusTitulo,
		BoletoGerado:               d.Boleto.CGerado == "S",
	}
}
