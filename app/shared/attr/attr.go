package attr

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type correlationIDKey struct{}

// WithCorrelationID stores a correlation ID on the context so log lines across
// a single request can be stitched together.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// ExtractCorrelationID returns a slog attribute for the correlation ID stored
// on the context, or an empty one when none is present.
func ExtractCorrelationID(ctx context.Context) slog.Attr {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok && id != "" {
		return slog.String("correlation_id", id)
	}
	return slog.String("correlation_id", "")
}

func String(key, value string) slog.Attr { return slog.String(key, value) }

func Int(key string, value int) slog.Attr { return slog.Int(key, value) }

func Int64(key string, value int64) slog.Attr { return slog.Int64(key, value) }

func Bool(key string, value bool) slog.Attr { return slog.Bool(key, value) }

func Time(key string, value time.Time) slog.Attr { return slog.Time(key, value) }

func Duration(key string, value time.Duration) slog.Attr { return slog.Duration(key, value) }

func Any(key string, value any) slog.Attr { return slog.Any(key, value) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

func UUID(key string, id uuid.UUID) slog.Attr { return slog.String(key, id.String()) }

func EntryID(id uuid.UUID) slog.Attr { return UUID("entry_id", id) }

func VerificationID(id uuid.UUID) slog.Attr { return UUID("verification_id", id) }

func CompetitionID(id uuid.UUID) slog.Attr { return UUID("competition_id", id) }

func PlayerID(id uuid.UUID) slog.Attr { return UUID("player_id", id) }
