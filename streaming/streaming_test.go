package streaming

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/kdimentionaltree/sol-trace-go/cache"
	"github.com/kdimentionaltree/sol-trace-go/index"
	"github.com/kdimentionaltree/sol-trace-go/trace"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	testProgram   trace.ProgramId = "Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS"
	systemProgram trace.ProgramId = "11111111111111111111111111111111"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func summary(signature string, success bool, programs ...trace.ProgramId) index.TransactionLogs {
	return index.TransactionLogs{
		Signature: index.SignatureType(signature),
		TraceSummary: index.TraceSummary{
			TraceState: index.TraceStateOk,
			IsSuccess:  &success,
			Programs:   programs,
		},
	}
}

func TestSubscription_InterestedIn(t *testing.T) {
	tests := []struct {
		name       string
		programs   []trace.ProgramId
		onlyFailed bool
		event      index.TransactionLogs
		want       bool
	}{
		{"empty subscription", nil, false, summary("a", true, testProgram), false},
		{"matching program", []trace.ProgramId{testProgram}, false, summary("a", true, systemProgram, testProgram), true},
		{"other program", []trace.ProgramId{testProgram}, false, summary("a", true, systemProgram), false},
		{"only failed skips success", []trace.ProgramId{testProgram}, true, summary("a", true, testProgram), false},
		{"only failed keeps failure", []trace.ProgramId{testProgram}, true, summary("a", false, testProgram), true},
		{"only failed skips malformed", []trace.ProgramId{testProgram}, true, index.TransactionLogs{
			TraceSummary: index.TraceSummary{TraceState: index.TraceStateMalformed, Programs: []trace.ProgramId{testProgram}},
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Subscription{Programs: mapset.NewSet[trace.ProgramId]()}
			s.Replace(tt.programs, tt.onlyFailed)
			if got := s.InterestedIn(&tt.event); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSubscription_Unsubscribe(t *testing.T) {
	s := Subscription{}
	s.Replace([]trace.ProgramId{testProgram, systemProgram}, false)
	s.Unsubscribe([]trace.ProgramId{testProgram})

	event := summary("a", true, testProgram)
	if s.InterestedIn(&event) {
		t.Error("expected no interest after unsubscribe")
	}
	event = summary("b", true, systemProgram)
	if !s.InterestedIn(&event) {
		t.Error("expected remaining program to match")
	}
}

func TestValidatePrograms(t *testing.T) {
	got, err := validatePrograms([]string{string(testProgram)}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != testProgram {
		t.Errorf("unexpected programs: %v", got)
	}

	for name, programs := range map[string][]string{
		"empty":    {},
		"invalid":  {"not-base58!"},
		"too many": {string(testProgram), string(systemProgram)},
	} {
		if _, err := validatePrograms(programs, 1); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

// registerClient adds a client that collects sent messages.
func registerClient(manager *ClientManager, id string, programs ...trace.ProgramId) chan []byte {
	received := make(chan []byte, 8)
	client := &Client{
		ID:        id,
		Connected: true,
		SendEvent: func(b []byte) error {
			received <- b
			return nil
		},
	}
	client.Subscription.Replace(programs, false)
	manager.register <- client
	return received
}

func TestSubscribeToSummaries(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	channel := cache.NewChannel(cache.Options[index.TransactionLogs]{
		Client:  client,
		Encoder: cache.JSONEncoder[index.TransactionLogs](),
		Decoder: cache.JSONDecoder[index.TransactionLogs](),
		Prefix:  "trace_summaries",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	manager := NewClientManager(testLogger())
	go manager.Run(ctx)

	interested := registerClient(manager, "interested", testProgram)
	other := registerClient(manager, "other", systemProgram)

	go SubscribeToSummaries(ctx, channel, manager)

	// wait until the forwarder has subscribed
	deadline := time.Now().Add(2 * time.Second)
	for len(mr.PubSubChannels("")) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("forwarder did not subscribe")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := channel.Publish(ctx, summary("sig1", false, testProgram)); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case msg := <-interested:
		var event TraceEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("invalid event: %v", err)
		}
		if event.Type != EventTrace || event.Signature != "sig1" {
			t.Errorf("unexpected event: %s", msg)
		}
		if event.IsSuccess == nil || *event.IsSuccess {
			t.Errorf("expected failed summary, got %s", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	select {
	case msg := <-other:
		t.Errorf("unexpected event for other client: %s", msg)
	case <-time.After(100 * time.Millisecond):
	}

	if n := manager.ClientCount(); n != 2 {
		t.Errorf("expected 2 clients, got %d", n)
	}
}
