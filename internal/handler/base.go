package handler

import (
	"reflect"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/deppfellow/readlog/internal/middleware"
	"github.com/deppfellow/readlog/internal/server"
	"github.com/deppfellow/readlog/internal/validation"
)

// Handler is embedded by every handler for access to the shared server.
type Handler struct {
	server *server.Server
}

func NewHandler(s *server.Server) Handler {
	return Handler{server: s}
}

// HandlerFunc is a typed endpoint: it receives a bound and validated
// request and returns the response body or an error.
type HandlerFunc[Req validation.Validatable, Res any] func(c echo.Context, req Req) (Res, error)

// Handle adapts a typed handler into an echo.HandlerFunc answering with
// status on success. req only fixes the request type; each call binds
// into a fresh value.
//
//	r.POST("/post-read", handler.Handle(h.Handler, h.CreateRead, http.StatusCreated, &model.CreateReadPayload{}))
func Handle[Req validation.Validatable, Res any](
	h Handler,
	fn HandlerFunc[Req, Res],
	status int,
	req Req,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		return serve(c, newRequest(req), fn, status)
	}
}

// newRequest returns a zero value of the same type as proto. Pointer types
// get a fresh allocation so concurrent requests never share a payload.
func newRequest[Req any](proto Req) Req {
	t := reflect.TypeOf(proto)
	if t != nil && t.Kind() == reflect.Pointer {
		return reflect.New(t.Elem()).Interface().(Req)
	}
	var zero Req
	return zero
}

func serve[Req validation.Validatable, Res any](c echo.Context, req Req, fn HandlerFunc[Req, Res], status int) error {
	trace := newRequestTrace(c)
	trace.log.Debug().Msg("handling request")

	if err := validation.BindAndValidate(c, req); err != nil {
		trace.fail("validation", err, zerolog.WarnLevel)
		return err
	}
	trace.pass("validation")

	result, err := fn(c, req)
	if err != nil {
		trace.fail("handler", err, zerolog.ErrorLevel)
		return err
	}
	trace.pass("handler")
	trace.done(result)

	return c.JSON(status, result)
}

// requestTrace times the validation and handler phases of one request and
// reports them to the log and, when present, the New Relic transaction.
type requestTrace struct {
	txn        *newrelic.Transaction
	log        zerolog.Logger
	start      time.Time
	phaseStart time.Time
}

func newRequestTrace(c echo.Context) *requestTrace {
	route := c.Path()

	txn := newrelic.FromContext(c.Request().Context())
	if txn != nil {
		txn.AddAttribute("handler.name", route)
	}

	now := time.Now()
	return &requestTrace{
		txn:        txn,
		log:        middleware.GetLogger(c).With().Str("route", route).Logger(),
		start:      now,
		phaseStart: now,
	}
}

func (t *requestTrace) pass(phase string) {
	elapsed := time.Since(t.phaseStart)
	t.phaseStart = time.Now()

	if t.txn != nil {
		t.txn.AddAttribute(phase+".status", "success")
		t.txn.AddAttribute(phase+".duration_ms", elapsed.Milliseconds())
	}
}

func (t *requestTrace) fail(phase string, err error, level zerolog.Level) {
	elapsed := time.Since(t.phaseStart)

	t.log.WithLevel(level).
		Err(err).
		Str("phase", phase).
		Dur("phase_duration", elapsed).
		Dur("total_duration", time.Since(t.start)).
		Msg("request failed")

	if t.txn != nil {
		t.txn.NoticeError(nrpkgerrors.Wrap(err))
		t.txn.AddAttribute(phase+".status", "failed")
		t.txn.AddAttribute(phase+".duration_ms", elapsed.Milliseconds())
	}
}

func (t *requestTrace) done(result any) {
	total := time.Since(t.start)

	if t.txn != nil {
		t.txn.AddAttribute("total.duration_ms", total.Milliseconds())
		if v := reflect.ValueOf(result); v.Kind() == reflect.Slice {
			t.txn.AddAttribute("response.items", v.Len())
		}
	}

	t.log.Debug().Dur("total_duration", total).Msg("request completed")
}
