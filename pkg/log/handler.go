package log

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"

	tberrors "github.com/YuminosukeSato/treebench/pkg/errors"
)

// ErrFmtHandler is a slog handler that expands errors carried under
// ErrAttrKey into a stacktrace attribute and an error.type attribute.
type ErrFmtHandler struct {
	handler slog.Handler
}

// WrapByErrFmtHandler wraps handler with ErrFmtHandler.
func WrapByErrFmtHandler(handler slog.Handler) slog.Handler {
	return &ErrFmtHandler{handler: handler}
}

func (eh *ErrFmtHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return eh.handler.Enabled(ctx, l)
}

func (eh *ErrFmtHandler) Handle(ctx context.Context, r slog.Record) error {
	var found error
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key != ErrAttrKey {
			return true
		}
		if err, ok := attr.Value.Any().(error); ok {
			found = err
		}
		return false
	})
	if found != nil {
		if stacktrace := extractStacktrace(found); stacktrace != "" {
			r.AddAttrs(slog.String(StacktraceAttrKey, stacktrace))
		}
		r.AddAttrs(slog.String(ErrorTypeKey, ErrorType(found)))
	}
	return eh.handler.Handle(ctx, r)
}

func (eh *ErrFmtHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithAttrs(attrs)}
}

func (eh *ErrFmtHandler) WithGroup(g string) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithGroup(g)}
}

// ErrorType names the outermost harness error type found in err's chain.
func ErrorType(err error) string {
	var (
		loadErr    *tberrors.LoadError
		impErr     *tberrors.ImputationError
		fitErr     *tberrors.FitError
		predictErr *tberrors.PredictError
		valErr     *tberrors.ValidationError
		valueErr   *tberrors.ValueError
		panicErr   *tberrors.PanicError
	)
	switch {
	case errors.As(err, &loadErr):
		return "LoadError"
	case errors.As(err, &impErr):
		return "ImputationError"
	case errors.As(err, &fitErr):
		return "FitError"
	case errors.As(err, &predictErr):
		return "PredictError"
	case errors.As(err, &valErr):
		return "ValidationError"
	case errors.As(err, &valueErr):
		return "ValueError"
	case errors.As(err, &panicErr):
		return "PanicError"
	default:
		return fmt.Sprintf("%T", err)
	}
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}
