package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	"github.com/google/uuid"

	"github.com/citypd/platform/internal/shared/config"
)

// Bus publishes events to KurrentDB, one stream per case
type Bus struct {
	client *esdb.Client
}

// NewBus creates a new event bus connected to KurrentDB
func NewBus(cfg config.KurrentDBConfig) (*Bus, error) {
	settings, err := esdb.ParseConnectionString(buildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	client, err := esdb.NewClient(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create KurrentDB client: %w", err)
	}

	return &Bus{client: client}, nil
}

// buildConnectionString creates the esdb:// connection string
func buildConnectionString(cfg config.KurrentDBConfig) string {
	var auth string
	if cfg.Username != "" && cfg.Password != "" {
		auth = fmt.Sprintf("%s:%s@", cfg.Username, cfg.Password)
	}

	params := ""
	if cfg.Insecure {
		params = "?tls=false&tlsVerifyCert=false" +
			"&keepAliveInterval=10000&keepAliveTimeout=10000&discoveryInterval=100&maxDiscoverAttempts=3&gossipTimeout=5"
	}

	return fmt.Sprintf("esdb://%s%s:%d%s", auth, cfg.Host, cfg.Port, params)
}

// Publish appends events to their streams. Events of the same stream are
// appended in one call.
func (b *Bus) Publish(ctx context.Context, events ...Event) error {
	var order []string
	byStream := make(map[string][]esdb.EventData)

	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}

		eventID, err := uuid.Parse(event.ID)
		if err != nil {
			eventID = uuid.New()
		}

		if _, ok := byStream[event.Stream]; !ok {
			order = append(order, event.Stream)
		}
		byStream[event.Stream] = append(byStream[event.Stream], esdb.EventData{
			EventType:   event.Type,
			ContentType: esdb.ContentTypeJson,
			Data:        data,
			EventID:     eventID,
		})
	}

	for _, stream := range order {
		_, err := b.client.AppendToStream(ctx, stream, esdb.AppendToStreamOptions{
			ExpectedRevision: esdb.Any{},
		}, byStream[stream]...)
		if err != nil {
			return fmt.Errorf("failed to publish to %s: %w", stream, err)
		}
	}
	return nil
}

// ReadStream returns up to count events of a stream, oldest first. A
// missing stream reads as empty.
func (b *Bus) ReadStream(ctx context.Context, stream string, count uint64) ([]Event, error) {
	rs, err := b.client.ReadStream(ctx, stream, esdb.ReadStreamOptions{
		From:      esdb.Start{},
		Direction: esdb.Forwards,
	}, count)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read stream: %w", err)
	}
	defer rs.Close()

	var out []Event
	for {
		resolved, err := rs.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if isNotFound(err) {
				break
			}
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		if resolved.Event == nil {
			continue
		}

		var event Event
		if err := json.Unmarshal(resolved.Event.Data, &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		if event.ID == "" {
			event.ID = resolved.Event.EventID.String()
		}
		out = append(out, event)
	}
	return out, nil
}

func isNotFound(err error) bool {
	var esdbErr *esdb.Error
	return errors.As(err, &esdbErr) && esdbErr.Code() == esdb.ErrorCodeResourceNotFound
}

// Close closes the event bus connection
func (b *Bus) Close() {
	if b.client != nil {
		b.client.Close()
	}
}

// Health checks the KurrentDB connection
func (b *Bus) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	stream, err := b.client.ReadStream(ctx, "$streams", esdb.ReadStreamOptions{
		From:      esdb.Start{},
		Direction: esdb.Forwards,
	}, 1)
	if err != nil {
		return fmt.Errorf("KurrentDB health check failed: %w", err)
	}
	defer stream.Close()

	return nil
}

var _ Publisher = (*Bus)(nil)
var _ Publisher = (*Recorder)(nil)
