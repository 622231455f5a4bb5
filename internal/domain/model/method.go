package model

// Payment method codes known to the checkout.
const (
	MethodBase               = "unzer"
	MethodBankTransfer       = "unzer_bank_transfer"
	MethodCards              = "unzer_cards"
	MethodCardsVault         = "unzer_cards_vault"
	MethodDirectDebit        = "unzer_direct_debit"
	MethodDirectDebitSecured = "unzer_direct_debit_secured"
	MethodEPS                = "unzer_eps"
	MethodGiropay            = "unzer_giropay"
	MethodIdeal              = "unzer_ideal"
	MethodInvoice            = "unzer_invoice"
	MethodInvoiceSecured     = "unzer_invoice_secured"
	MethodInvoiceSecuredB2B  = "unzer_invoice_secured_b2b"
	MethodPaylaterInvoice    = "unzer_paylater_invoice"
	MethodPaylaterInvoiceB2B = "unzer_paylater_invoice_b2b"
	MethodPaypal             = "unzer_paypal"
	MethodPaypalVault        = "unzer_paypal_vault"
	MethodSofort             = "unzer_sofort"
	MethodAlipay             = "unzer_alipay"
	MethodWechatpay          = "unzer_wechatpay"
	MethodPrzelewy24         = "unzer_przelewy24"
	MethodBancontact         = "unzer_bancontact"
	MethodPrepayment         = "unzer_prepayment"
	MethodApplepay           = "unzer_applepay"
)

// Method describes checkout capabilities of a payment method.
type Method struct {
	Code  string
	Title string
	// HasRiskData methods send fraud-prevention data with the authorization.
	HasRiskData bool
	// CanVault methods may store the payment type for one-click reuse.
	CanVault bool
	// Vault marks the stored-token variant of another method.
	Vault bool
}

var methods = []Method{
	{Code: MethodBankTransfer, Title: "Bank Transfer"},
	{Code: MethodCards, Title: "Credit Card / Debit Card", CanVault: true},
	{Code: MethodCardsVault, Title: "Stored Cards", Vault: true},
	{Code: MethodDirectDebit, Title: "Direct Debit"},
	{Code: MethodDirectDebitSecured, Title: "Direct Debit Secured"},
	{Code: MethodEPS, Title: "EPS"},
	{Code: MethodGiropay, Title: "Giropay"},
	{Code: MethodIdeal, Title: "iDEAL"},
	{Code: MethodInvoice, Title: "Invoice"},
	{Code: MethodInvoiceSecured, Title: "Invoice Secured"},
	{Code: MethodInvoiceSecuredB2B, Title: "Invoice Secured B2B"},
	{Code: MethodPaylaterInvoice, Title: "Invoice", HasRiskData: true},
	{Code: MethodPaylaterInvoiceB2B, Title: "Invoice B2B", HasRiskData: true},
	{Code: MethodPaypal, Title: "PayPal", CanVault: true},
	{Code: MethodPaypalVault, Title: "Stored PayPal Accounts", Vault: true},
	{Code: MethodSofort, Title: "Sofort"},
	{Code: MethodAlipay, Title: "Alipay"},
	{Code: MethodWechatpay, Title: "WeChat Pay"},
	{Code: MethodPrzelewy24, Title: "Przelewy24"},
	{Code: MethodBancontact, Title: "Bancontact"},
	{Code: MethodPrepayment, Title: "Prepayment"},
	{Code: MethodApplepay, Title: "Apple Pay"},
}

// Methods returns all known methods in checkout display order.
func Methods() []Method {
	out := make([]Method, len(methods))
	copy(out, methods)
	return out
}

func LookupMethod(code string) (Method, bool) {
	for _, m := range methods {
		if m.Code == code {
			return m, true
		}
	}
	return Method{}, false
}

// RequiresFraudScript reports whether selecting the method needs the device
// fingerprint script on the checkout page.
func RequiresFraudScript(code string) bool {
	return code == MethodPaylaterInvoice || code == MethodPaylaterInvoiceB2B
}

// ShowsBankInstructions reports whether the customer has to transfer money to an
// account named by the provider.
func ShowsBankInstructions(code string) bool {
	switch code {
	case MethodInvoice, MethodInvoiceSecured, MethodInvoiceSecuredB2B, MethodPrepayment:
		return true
	}
	return false
}
