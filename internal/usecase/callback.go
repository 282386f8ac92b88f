package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kileldylan/afrinet-project/internal/domain"
)

// CallbackResult is the flattened content of an STK push result callback.
type CallbackResult struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Amount            decimal.Decimal
	Receipt           string
	Phone             string
	TransactionDate   string
}

func (c *CallbackResult) Succeeded() bool { return c.ResultCode == 0 }

type stkCallback struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        json.RawMessage
	ResultDesc        string
	CallbackMetadata  *struct {
		Item []struct {
			Name  string
			Value json.RawMessage
		}
	}
}

// ParseSTKCallback decodes {Body:{stkCallback:{...}}}. The inner key has been
// seen as stkCallback, StkCallback and stk_callback; ResultCode arrives either
// as a number or a numeric string.
func ParseSTKCallback(raw []byte) (*CallbackResult, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedCallback, err)
	}
	body, ok := pickKey(envelope, "Body", "body")
	if !ok {
		return nil, fmt.Errorf("%w: missing Body", domain.ErrMalformedCallback)
	}
	var inner map[string]json.RawMessage
	if err := json.Unmarshal(body, &inner); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedCallback, err)
	}
	cbRaw, ok := pickKey(inner, "stkCallback", "StkCallback", "stk_callback")
	if !ok {
		return nil, fmt.Errorf("%w: missing stkCallback", domain.ErrMalformedCallback)
	}

	var cb stkCallback
	if err := json.Unmarshal(cbRaw, &cb); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedCallback, err)
	}
	out := &CallbackResult{
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: strings.TrimSpace(cb.CheckoutRequestID),
		ResultDesc:        cb.ResultDesc,
	}
	if out.CheckoutRequestID == "" {
		return nil, fmt.Errorf("%w: missing CheckoutRequestID", domain.ErrMalformedCallback)
	}
	code, err := strconv.Atoi(scalar(cb.ResultCode))
	if err != nil {
		return nil, fmt.Errorf("%w: bad ResultCode", domain.ErrMalformedCallback)
	}
	out.ResultCode = code

	if cb.CallbackMetadata != nil {
		for _, it := range cb.CallbackMetadata.Item {
			v := scalar(it.Value)
			switch it.Name {
			case "Amount":
				if amt, err := decimal.NewFromString(v); err == nil {
					out.Amount = amt
				}
			case "MpesaReceiptNumber":
				out.Receipt = v
			case "PhoneNumber":
				out.Phone = v
			case "TransactionDate":
				out.TransactionDate = v
			}
		}
	}
	if out.Succeeded() && out.Receipt == "" {
		return nil, fmt.Errorf("%w: success without receipt", domain.ErrMalformedCallback)
	}
	return out, nil
}

func pickKey(m map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && len(v) > 0 && !bytes.Equal(v, []byte("null")) {
			return v, true
		}
	}
	return nil, false
}

// scalar renders a JSON string or number as plain text.
func scalar(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return ""
	}
	if v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	return string(v)
}
