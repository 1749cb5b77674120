package omie

// Request/response shapes for the Omie API. Every operation is a POST with
// the same envelope; only "call", the endpoint path and "param" vary.

type callEnvelope struct {
	Call      string        `json:"call"`
	AppKey    string        `json:"app_key"`
	AppSecret string        `json:"app_secret"`
	Param     []interface{} `json:"param"`
}

// consultarContaReceberParam supports both lookup keys Omie accepts: the
// surrogate code (canonical) or the integration code (deprecated alias).
type consultarContaReceberParam struct {
	NCodTitulo    int64  `json:"nCodTitulo,omitempty"`
	CCodIntTitulo string `json:"cCodIntTitulo,omitempty"`
}

type listarContasReceberParam struct {
	Pagina             int    `json:"pagina"`
	RegistrosPorPagina int    `json:"registros_por_pagina"`
	ApenasImportadoAPI string `json:"apenas_importado_api"`
}

type contaReceberDTO struct {
	CodigoLancamentoOmie       int64      `json:"codigo_lancamento_omie"`
	CodigoLancamentoIntegracao string     `json:"codigo_lancamento_integracao"`
	NumeroDocumento            string     `json:"numero_documento"`
	CodigoClienteFornecedor    int64      `json:"codigo_cliente_fornecedor"`
	DataVencimento             string     `json:"data_vencimento"`
	ValorDocumento             float64    `json:"valor_documento"`
	StatusTitulo               string     `json:"status_titulo"`
	Boleto                     boletoFlag `json:"boleto"`
}

type boletoFlag struct {
	CGerado string `json:"cGerado"` // "S" when a boleto exists for the título
}

type listarContasReceberResponse struct {
	Pagina           int               `json:"pagina"`
	TotalDePaginas   int               `json:"total_de_paginas"`
	Registros        int               `json:"registros"`
	TotalDeRegistros int               `json:"total_de_registros"`
	ContaReceber     []contaReceberDTO `json:"conta_receber"`
}

type obterBoletoParam struct {
	NCodTitulo int64 `json:"nCodTitulo"`
}

type obterBoletoResponse struct {
	CLinkBoleto     string  `json:"cLinkBoleto"`
	CLinhaDigitavel string  `json:"cLinhaDigitavel"`
	DDtVenc         string  `json:"dDtVenc"`
	NValorBoleto    float64 `json:"nValorBoleto"`
	CCodStatus      string  `json:"cCodStatus"`
	CDescStatus     string  `json:"cDescStatus"`
}

type consultarClienteParam struct {
	CodigoClienteOmie int64 `json:"codigo_cliente_omie"`
}

type clienteDTO struct {
	CodigoClienteOmie int64  `json:"codigo_cliente_omie"`
	RazaoSocial       string `json:"razao_social"`
	NomeFantasia      string `json:"nome_fantasia"`
	Contato           string `json:"contato"`
	Telefone1DDD      string `json:"telefone1_ddd"`
	Telefone1Numero   string `json:"telefone1_numero"`
}
