package telemetry_test

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/freekieb7/calendar/internal/config"
	"github.com/freekieb7/calendar/internal/telemetry"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestNew_Disabled(t *testing.T) {
	tel, err := telemetry.New(context.Background(), config.TelemetryConfig{Enabled: false, ServiceName: "calendar"})
	require.NoError(t, err)
	assert.False(t, tel.IsEnabled())
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestFiberMiddleware_RecordsServerSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	app := fiber.New()
	app.Use(telemetry.FiberMiddleware("calendar-test"))

	var traced bool
	app.Get("/events/:id", func(c *fiber.Ctx) error {
		traced = trace.SpanContextFromContext(c.UserContext()).IsValid()
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/events/42", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, traced)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /events/:id", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	assert.Contains(t, spans[0].Attributes(), attribute.String("http.route", "/events/:id"))
	assert.Contains(t, spans[0].Attributes(), attribute.Int("http.status_code", fiber.StatusOK))
}

func TestOTelHandler_Levels(t *testing.T) {
	h := telemetry.NewOTelHandler(&slog.HandlerOptions{Level: slog.LevelWarn})
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))

	// emitting through the no-op provider must not fail
	log := slog.New(h).WithGroup("calendar").With("event_id", "42")
	log.Error("failed to load event", "error", "boom")
}
