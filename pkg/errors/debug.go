package errors

import (
	"errors"
	"fmt"
)

// GatewayCoder is implemented by errors that carry a payment-gateway code.
type GatewayCoder interface {
	GatewayCode() string
}

type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	GatewayCode string `json:"gateway_code,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var gw GatewayCoder
	if errors.As(err, &gw) {
		d.GatewayCode = gw.GatewayCode()
	}

	return d
}
