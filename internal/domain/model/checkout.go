package model

import (
	"fmt"
	"time"
)

// CheckoutSession is state kept per customer checkout, replacing page-global flags.
type CheckoutSession struct {
	ID                  string    `json:"id"`
	StoreCode           string    `json:"store_code"`
	SelectedMethod      string    `json:"selected_method"`
	ThreatMetrixID      string    `json:"threat_metrix_id"`
	FraudScriptInjected bool      `json:"fraud_script_injected"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// SelectMethod records the chosen method and reports whether the fraud script must be
// injected now. It returns true at most once per session.
func (s *CheckoutSession) SelectMethod(code string) bool {
	s.SelectedMethod = code
	s.UpdatedAt = time.Now().UTC()
	if s.FraudScriptInjected || s.ThreatMetrixID == "" || !RequiresFraudScript(code) {
		return false
	}
	s.FraudScriptInjected = true
	return true
}

// FraudScriptURLs returns the fingerprint script and noscript iframe urls.
func FraudScriptURLs(orgID, sessionID string) (script, iframe string) {
	script = fmt.Sprintf("https://h.online-metrix.net/fp/tags.js?org_id=%s&session_id=%s", orgID, sessionID)
	iframe = fmt.Sprintf("https://h.online-metrix.net/fp/tags?org_id=%s&session_id=%s", orgID, sessionID)
	return script, iframe
}

var assignableInfoKeys = []string{
	InfoCustomerID,
	InfoResourceID,
	InfoBirthDate,
	InfoSalutation,
	InfoThreatMetrixID,
}

// AssignAdditionalData copies whitelisted checkout fields into the payment. Other keys
// are ignored. Non-string scalars are formatted.
func AssignAdditionalData(p *OrderPayment, data map[string]any) int {
	n := 0
	for _, key := range assignableInfoKeys {
		v, ok := data[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			p.SetInfo(key, val)
		case float64, bool, int, int64:
			p.SetInfo(key, fmt.Sprint(val))
		default:
			continue
		}
		n++
	}
	return n
}
