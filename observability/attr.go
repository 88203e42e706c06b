package observability

import (
	"go.opentelemetry.io/otel/attribute"

	"github.com/photon-ccm/photon/types"
)

const (
	OpHashKey    attribute.Key = "op.hash"
	ProtocolKey  attribute.Key = "protocol"
	OperationKey attribute.Key = "operation"
	StatusKey    attribute.Key = "status"
)

func OpHash(h types.Hash) attribute.KeyValue {
	return OpHashKey.String(h.Hex())
}

func Protocol(id types.ProtocolID) attribute.KeyValue {
	return ProtocolKey.String(id.String())
}

func Operation(name string) attribute.KeyValue {
	return OperationKey.String(name)
}

/*
ErrStatus returns attribute named "status" with value "ok" if the param
err is nil and "err" when it is not.
*/
func ErrStatus(err error) attribute.KeyValue {
	if err != nil {
		return StatusKey.String("err")
	}
	return StatusKey.String("ok")
}

/*
ErrCode returns "status" attribute with the name of the endpoint error
"err" wraps, "ok" for nil and "err" for errors without code. Unlike error
messages the names have bounded cardinality so they are safe to use as
metric attribute.
*/
func ErrCode(err error) attribute.KeyValue {
	if e, ok := types.CodeOf(err); ok {
		return StatusKey.String(e.Name)
	}
	return ErrStatus(err)
}
