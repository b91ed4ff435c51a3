package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestProducer_PublishEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := newProducer(mockProducer)

	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != TopicEntityEvents {
			t.Errorf("unexpected topic %s", msg.Topic)
		}
		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var envelope Envelope
		if err := json.Unmarshal(value, &envelope); err != nil {
			return err
		}
		if envelope.EntityID != "7" {
			t.Errorf("expected entity id 7, got %s", envelope.EntityID)
		}
		return nil
	})

	err := producer.PublishEvent(context.Background(), TopicEntityEvents, "order:7", Envelope{
		ID:         "evt-1",
		EntityType: "order",
		EntityID:   "7",
		Payload:    json.RawMessage(`{}`),
	}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := newProducer(mockProducer)

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := producer.PublishEvent(context.Background(), TopicEntityEvents, "order:1", Envelope{ID: "evt-2"}, nil)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_CancelledContext(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := newProducer(mockProducer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := producer.PublishEvent(ctx, TopicEntityEvents, "k", Envelope{}, nil); err == nil {
		t.Fatal("expected context error")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestHeaderCarrier_InjectsTraceContext(t *testing.T) {
	provider := sdktrace.NewTracerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()

	ctx, span := provider.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	var headers []sarama.RecordHeader
	carrier := headerCarrier{headers: &headers}
	propagation.TraceContext{}.Inject(ctx, carrier)

	if got := carrier.Get("traceparent"); got == "" {
		t.Fatal("expected traceparent header")
	}

	carrier.Set("traceparent", "replaced")
	if len(headers) != 1 || carrier.Get("traceparent") != "replaced" {
		t.Fatalf("expected header to be replaced, got %v", carrier.Keys())
	}
}
