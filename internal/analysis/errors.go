package analysis

import (
	"context"
	"errors"
	"net"
	"net/url"
)

// User-facing messages. These are the only strings an analysis failure may show.
const (
	MsgRateLimited = "El servicio está temporalmente saturado. Por favor, intente nuevamente en unos minutos."
	MsgAuth        = "Error de configuración del servicio. Contacte al administrador."
	MsgUnavailable = "El servicio no está disponible temporalmente."
	MsgConnection  = "Error de conexión. Verifique su conexión a internet e intente nuevamente."
	MsgTimeout     = "El análisis tardó demasiado tiempo. Por favor, intente con un archivo más pequeño."
	MsgGeneric     = "Ocurrió un error al procesar el documento. Por favor, intente nuevamente."
	// MsgUnexpected is shown for failures that did not come through the analysis client.
	MsgUnexpected = "Ocurrió un error inesperado. Por favor, intente nuevamente."
)

// Kind classifies an analysis failure.
type Kind string

const (
	KindRateLimited Kind = "rate_limited"
	KindAuth        Kind = "auth"
	KindUnavailable Kind = "unavailable"
	KindConnection  Kind = "connection"
	KindTimeout     Kind = "timeout"
	KindGeneric     Kind = "generic"
)

var kindMessages = map[Kind]string{
	KindRateLimited: MsgRateLimited,
	KindAuth:        MsgAuth,
	KindUnavailable: MsgUnavailable,
	KindConnection:  MsgConnection,
	KindTimeout:     MsgTimeout,
	KindGeneric:     MsgGeneric,
}

// Error is a sanitized analysis failure. Error() returns only the user message;
// the upstream detail stays in Cause for logging.
type Error struct {
	Kind        Kind
	UserMessage string
	Cause       error
}

func (e *Error) Error() string {
	return e.UserMessage
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, UserMessage: kindMessages[kind], Cause: cause}
}

// UserMessage returns the text safe to show for err: the sanitized message of an
// *Error, or the generic unexpected-error text for anything else.
func UserMessage(err error) string {
	var aerr *Error
	if errors.As(err, &aerr) && aerr.UserMessage != "" {
		return aerr.UserMessage
	}
	return MsgUnexpected
}

// fromStatus maps a non-2xx HTTP status. upstream is the endpoint's own message,
// used only for 503.
func fromStatus(status int, upstream string, cause error) *Error {
	switch {
	case status == 429:
		return newError(KindRateLimited, cause)
	case status == 401 || status == 403:
		return newError(KindAuth, cause)
	case status == 503:
		e := newError(KindUnavailable, cause)
		if upstream != "" {
			e.UserMessage = upstream
		}
		return e
	default:
		return newError(KindGeneric, cause)
	}
}

// fromTransport maps a failure that happened before a status code was received,
// or while reading the body.
func fromTransport(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(KindTimeout, err)
	}

	var (
		urlErr *url.Error
		opErr  *net.OpError
		dnsErr *net.DNSError
	)
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) || errors.As(err, &urlErr) {
		return newError(KindConnection, err)
	}
	return newError(KindGeneric, err)
}
