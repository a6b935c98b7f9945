package mpesa

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// ErrUnrecognizedPayload is returned when a callback body matches no
// known Daraja shape
var ErrUnrecognizedPayload = errors.New("mpesa: unrecognized callback payload")

// CallbackData is one parsed gateway callback, normalized across the
// payload shapes Daraja sends: the STK push result, the Result-wrapped
// transaction notification, and the C2B paybill confirmation.
type CallbackData struct {
	ExternalID string
	Amount     decimal.Decimal
	Phone      string // raw MSISDN as sent by the gateway
	Reference  string
	ResultCode int
	ResultDesc string
	RawPayload string
}

// Successful reports whether the callback carries a completed payment.
// Failed STK pushes (payer cancelled, timeout, insufficient funds) arrive
// with a non-zero result code and no transaction details.
func (d *CallbackData) Successful() bool {
	return d.ResultCode == 0
}

// stkCallbackEnvelope is the STK push result shape
type stkCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string `json:"Name"`
					Value any    `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// resultEnvelope is the transaction notification shape: a Result wrapper
// carrying flat transaction fields. TransAmount arrives as a string or a
// number depending on the gateway version.
type resultEnvelope struct {
	Result struct {
		TransactionID string `json:"TransactionID"`
		TransAmount   any    `json:"TransAmount"`
		MSISDN        any    `json:"MSISDN"`
		TransRef      string `json:"TransRef"`
		ResultCode    int    `json:"ResultCode"`
		ResultDesc    string `json:"ResultDesc"`
	} `json:"Result"`
}

// c2bConfirmation is the paybill confirmation shape
type c2bConfirmation struct {
	TransID       string `json:"TransID"`
	TransAmount   string `json:"TransAmount"`
	MSISDN        string `json:"MSISDN"`
	BillRefNumber string `json:"BillRefNumber"`
	TransTime     string `json:"TransTime"`
	FirstName     string `json:"FirstName"`
}

// ParseCallback parses a Daraja callback body into normalized CallbackData.
// All three shapes are accepted; anything else is ErrUnrecognizedPayload.
func ParseCallback(payload []byte) (*CallbackData, error) {
	var stk stkCallbackEnvelope
	if err := json.Unmarshal(payload, &stk); err == nil && stk.Body.StkCallback.CheckoutRequestID != "" {
		return parseSTKCallback(&stk, payload)
	}

	var result resultEnvelope
	if err := json.Unmarshal(payload, &result); err == nil && result.Result.TransactionID != "" {
		return parseResultEnvelope(&result, payload)
	}

	var c2b c2bConfirmation
	if err := json.Unmarshal(payload, &c2b); err == nil && c2b.TransID != "" {
		return parseC2BConfirmation(&c2b, payload)
	}

	return nil, ErrUnrecognizedPayload
}

func parseSTKCallback(stk *stkCallbackEnvelope, payload []byte) (*CallbackData, error) {
	cb := stk.Body.StkCallback
	data := &CallbackData{
		ResultCode: cb.ResultCode,
		ResultDesc: cb.ResultDesc,
		RawPayload: string(payload),
	}

	// A failed push carries no metadata; the caller drops it after logging
	if cb.ResultCode != 0 {
		data.ExternalID = cb.CheckoutRequestID
		return data, nil
	}

	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "MpesaReceiptNumber":
			if s, ok := item.Value.(string); ok {
				data.ExternalID = s
			}
		case "Amount":
			amount, err := decimalFromAny(item.Value)
			if err != nil {
				return nil, fmt.Errorf("mpesa: bad amount in callback: %w", err)
			}
			data.Amount = amount
		case "PhoneNumber":
			data.Phone = stringFromAny(item.Value)
		case "AccountReference":
			if s, ok := item.Value.(string); ok {
				data.Reference = s
			}
		}
	}

	if data.ExternalID == "" {
		return nil, errors.New("mpesa: successful stk callback missing receipt number")
	}
	return data, nil
}

func parseResultEnvelope(env *resultEnvelope, payload []byte) (*CallbackData, error) {
	res := env.Result
	data := &CallbackData{
		ExternalID: res.TransactionID,
		Phone:      stringFromAny(res.MSISDN),
		Reference:  res.TransRef,
		ResultCode: res.ResultCode,
		ResultDesc: res.ResultDesc,
		RawPayload: string(payload),
	}

	if res.ResultCode != 0 {
		return data, nil
	}

	amount, err := decimalFromAny(res.TransAmount)
	if err != nil {
		return nil, fmt.Errorf("mpesa: bad amount in notification: %w", err)
	}
	data.Amount = amount
	return data, nil
}

func parseC2BConfirmation(c2b *c2bConfirmation, payload []byte) (*CallbackData, error) {
	amount, err := decimal.NewFromString(c2b.TransAmount)
	if err != nil {
		return nil, fmt.Errorf("mpesa: bad amount in confirmation: %w", err)
	}

	return &CallbackData{
		ExternalID: c2b.TransID,
		Amount:     amount,
		Phone:      c2b.MSISDN,
		Reference:  c2b.BillRefNumber,
		RawPayload: string(payload),
	}, nil
}

// decimalFromAny converts the loosely typed JSON values Daraja sends for
// amounts: sometimes a number, sometimes a string
func decimalFromAny(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val), nil
	case string:
		return decimal.NewFromString(val)
	case json.Number:
		return decimal.NewFromString(val.String())
	default:
		return decimal.Zero, fmt.Errorf("unsupported value type %T", v)
	}
}

func stringFromAny(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}
