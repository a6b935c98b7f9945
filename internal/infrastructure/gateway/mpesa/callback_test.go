package mpesa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallback_STKSuccess(t *testing.T) {
	payload := []byte(`{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResultCode": 0,
				"ResultDesc": "The service request is processed successfully.",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": 15000.00},
						{"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
						{"Name": "TransactionDate", "Value": 20191219102115},
						{"Name": "PhoneNumber", "Value": 254712345678}
					]
				}
			}
		}
	}`)

	data, err := ParseCallback(payload)
	require.NoError(t, err)

	assert.True(t, data.Successful())
	assert.Equal(t, "NLJ7RT61SV", data.ExternalID)
	assert.Equal(t, "15000", data.Amount.String())
	assert.Equal(t, "254712345678", data.Phone)
	assert.Equal(t, string(payload), data.RawPayload)
}

func TestParseCallback_STKFailed(t *testing.T) {
	payload := []byte(`{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResultCode": 1032,
				"ResultDesc": "Request cancelled by user."
			}
		}
	}`)

	data, err := ParseCallback(payload)
	require.NoError(t, err)

	assert.False(t, data.Successful())
	assert.Equal(t, 1032, data.ResultCode)
	assert.Equal(t, "Request cancelled by user.", data.ResultDesc)
	assert.Equal(t, "ws_CO_191220191020363925", data.ExternalID)
}

func TestParseCallback_STKAmountAsString(t *testing.T) {
	payload := []byte(`{
		"Body": {
			"stkCallback": {
				"CheckoutRequestID": "ws_CO_1",
				"ResultCode": 0,
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": "2500.50"},
						{"Name": "MpesaReceiptNumber", "Value": "QFX1234ABC"},
						{"Name": "PhoneNumber", "Value": "254700000001"}
					]
				}
			}
		}
	}`)

	data, err := ParseCallback(payload)
	require.NoError(t, err)
	assert.Equal(t, "2500.5", data.Amount.String())
	assert.Equal(t, "254700000001", data.Phone)
}

func TestParseCallback_STKMissingReceipt(t *testing.T) {
	payload := []byte(`{
		"Body": {
			"stkCallback": {
				"CheckoutRequestID": "ws_CO_1",
				"ResultCode": 0,
				"CallbackMetadata": {"Item": [{"Name": "Amount", "Value": 100}]}
			}
		}
	}`)

	_, err := ParseCallback(payload)
	assert.Error(t, err)
}

func TestParseCallback_ResultEnvelope(t *testing.T) {
	payload := []byte(`{
		"Result": {
			"TransactionID": "QKX1TX9ABC",
			"TransAmount": "4950.00",
			"MSISDN": "254712345678",
			"TransRef": "ADM-2024-0042"
		}
	}`)

	data, err := ParseCallback(payload)
	require.NoError(t, err)

	assert.True(t, data.Successful())
	assert.Equal(t, "QKX1TX9ABC", data.ExternalID)
	assert.Equal(t, "4950", data.Amount.String())
	assert.Equal(t, "254712345678", data.Phone)
	assert.Equal(t, "ADM-2024-0042", data.Reference)
	assert.Equal(t, string(payload), data.RawPayload)
}

func TestParseCallback_ResultEnvelopeNumericFields(t *testing.T) {
	payload := []byte(`{
		"Result": {
			"TransactionID": "QKX1TX9DEF",
			"TransAmount": 1200,
			"MSISDN": 254700000001,
			"TransRef": "ADM-2024-0007"
		}
	}`)

	data, err := ParseCallback(payload)
	require.NoError(t, err)
	assert.Equal(t, "1200", data.Amount.String())
	assert.Equal(t, "254700000001", data.Phone)
}

func TestParseCallback_ResultEnvelopeFailed(t *testing.T) {
	payload := []byte(`{
		"Result": {
			"TransactionID": "QKX1TX9GHI",
			"ResultCode": 2001,
			"ResultDesc": "The initiator information is invalid."
		}
	}`)

	data, err := ParseCallback(payload)
	require.NoError(t, err)
	assert.False(t, data.Successful())
	assert.Equal(t, "QKX1TX9GHI", data.ExternalID)
}

func TestParseCallback_ResultEnvelopeBadAmount(t *testing.T) {
	payload := []byte(`{"Result": {"TransactionID": "QKX1TX9JKL", "TransAmount": "oops"}}`)

	_, err := ParseCallback(payload)
	assert.Error(t, err)
}

func TestParseCallback_C2BConfirmation(t *testing.T) {
	payload := []byte(`{
		"TransactionType": "Pay Bill",
		"TransID": "RKTQDM7W6S",
		"TransTime": "20240229113342",
		"TransAmount": "25000.00",
		"BusinessShortCode": "600638",
		"BillRefNumber": "ADM-2024-0042",
		"MSISDN": "254708374149",
		"FirstName": "JANE"
	}`)

	data, err := ParseCallback(payload)
	require.NoError(t, err)

	assert.True(t, data.Successful())
	assert.Equal(t, "RKTQDM7W6S", data.ExternalID)
	assert.Equal(t, "25000", data.Amount.String())
	assert.Equal(t, "254708374149", data.Phone)
	assert.Equal(t, "ADM-2024-0042", data.Reference)
}

func TestParseCallback_C2BBadAmount(t *testing.T) {
	payload := []byte(`{"TransID": "RKTQDM7W6S", "TransAmount": "not-a-number", "MSISDN": "254708374149"}`)

	_, err := ParseCallback(payload)
	assert.Error(t, err)
}

func TestParseCallback_Unrecognized(t *testing.T) {
	_, err := ParseCallback([]byte(`{"hello": "world"}`))
	assert.ErrorIs(t, err, ErrUnrecognizedPayload)

	_, err = ParseCallback([]byte(`not json`))
	assert.ErrorIs(t, err, ErrUnrecognizedPayload)
}
