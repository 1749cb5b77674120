package domain

// All entities here are transient: built for one webhook delivery, read
// downstream, never persisted.

// WebhookEvent is the distilled inbound notification: the event subject
// ("assunto") plus the one document identifier extracted from "dados".
type WebhookEvent struct {
	Subject string
	// TituloID is an opaque identifier for the receivable: canonically the
	// Omie surrogate code (nCodTitulo / codigo_lancamento_omie), but
	// deprecated aliases (integration code, document number) are accepted.
	TituloID string
}

// ContaReceber is a read-only view of one Omie receivable (título) as it
// stood when the webhook was handled.
type ContaReceber struct {
	CodigoLancamentoOmie       int64
	CodigoLancamentoIntegracao string
	NumeroDocumento            string
	CodigoClienteFornecedor    int64
	DataVencimento             string // dd/mm/yyyy as Omie reports it
	ValorDocumento             float64
	StatusTitulo               string
	BoletoGerado               bool
}

// Boleto carries the payment-slip details fetched once the receivable
// reports a generated boleto.
type Boleto struct {
	DataVencimento string
	Valor          float64
	LinhaDigitavel string
	LinkBoleto     string
}

// ContasReceberPage is one page of an Omie ListarContasReceber scan.
type ContasReceberPage struct {
	Pagina         int
	TotalDePaginas int
	Registros      []ContaReceber
}

// ClienteRecord is the raw Omie customer record; name and phone still need
// to be derived from its alias fields.
type ClienteRecord struct {
	CodigoClienteOmie int64
	RazaoSocial       string
	NomeFantasia      string
	Contato           string
	Telefone1DDD      string
	Telefone1Numero   string
}

// Cliente is the resolved recipient: display name plus a canonical phone.
type Cliente struct {
	CodigoClienteOmie int64
	Nome              string
	// Telefone is digits-only and prefixed with the country calling code,
	// or empty when the ERP record has no usable phone data.
	Telefone string
}

// OutboundMessage is what gets submitted to the messaging provider.
type OutboundMessage struct {
	DeliveryID string // internal correlation id for this dispatch
	Phone      string
	Body       string
	ServiceID  string
}
