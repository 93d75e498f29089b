package api

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/aresapp/ares-server/internal/http/response"
)

// EnvelopeTransformer wraps huma response bodies in the same envelope the
// plain chi handlers write. Error bodies keep their code and details.
func EnvelopeTransformer(_ huma.Context, _ string, v any) (any, error) {
	switch body := v.(type) {
	case response.Envelope, *response.Envelope:
		return v, nil
	case *APIError:
		return response.Envelope{
			Version: response.Version,
			Error:   body.Message,
			Code:    body.Code,
			Details: body.Details,
		}, nil
	default:
		return response.Envelope{Version: response.Version, Success: true, Data: v}, nil
	}
}
