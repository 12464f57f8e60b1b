package mpesa

import (
	"encoding/json"
	"fmt"
	"io"
)

// Callback is the normalized form of the gateway's out-of-band result for a
// push payment.
type Callback struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        string
	ResultDesc        string
	ReceiptNumber     string
	Amount            float64
	Phone             string
}

// The gateway wraps everything in Body.stkCallback and reports metadata as a
// Name/Value item list. ResultCode arrives as a JSON number here even though
// the query endpoint returns it as a string.
type callbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string      `json:"MerchantRequestID"`
			CheckoutRequestID string      `json:"CheckoutRequestID"`
			ResultCode        json.Number `json:"ResultCode"`
			ResultDesc        string      `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string `json:"Name"`
					Value any    `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// ParseCallback decodes the gateway-shaped JSON body of the async callback.
func ParseCallback(r io.Reader) (Callback, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var env callbackEnvelope
	if err := dec.Decode(&env); err != nil {
		return Callback{}, fmt.Errorf("decode callback: %w", err)
	}
	sc := env.Body.StkCallback
	if sc.CheckoutRequestID == "" {
		return Callback{}, fmt.Errorf("callback missing CheckoutRequestID")
	}
	cb := Callback{
		MerchantRequestID: sc.MerchantRequestID,
		CheckoutRequestID: sc.CheckoutRequestID,
		ResultCode:        sc.ResultCode.String(),
		ResultDesc:        sc.ResultDesc,
	}
	for _, item := range sc.CallbackMetadata.Item {
		switch item.Name {
		case "MpesaReceiptNumber":
			if s, ok := item.Value.(string); ok {
				cb.ReceiptNumber = s
			}
		case "Amount":
			if n, ok := item.Value.(json.Number); ok {
				cb.Amount, _ = n.Float64()
			}
		case "PhoneNumber":
			if n, ok := item.Value.(json.Number); ok {
				cb.Phone = n.String()
			}
		}
	}
	return cb, nil
}
