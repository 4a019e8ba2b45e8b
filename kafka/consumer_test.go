package kafka

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/tnunnink/LogixHelper/config"
	"github.com/tnunnink/LogixHelper/namespace"
	"github.com/tnunnink/LogixHelper/publish"
)

func request(member string, value interface{}, at time.Time, offset int64) pendingWrite {
	return pendingWrite{
		request: WriteRequest{
			WriteRequest: publish.WriteRequest{Member: member, Value: value},
			RequestID:    member + "-" + string(rune('a'+offset)),
		},
		messageTime: at,
		offset:      offset,
	}
}

func TestWriteBatch_Dedup(t *testing.T) {
	now := time.Now()
	b := newWriteBatch()
	b.add("", request("Pump1.Speed", 1.0, now, 0))
	b.add("", request("Pump1.Status", 2.0, now, 1))
	b.add("", request("Pump1.Speed", 3.0, now, 2))

	if len(b.pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(b.pending))
	}
	if len(b.discarded) != 1 || b.discarded[0].offset != 0 {
		t.Fatalf("expected first Speed request discarded, got %+v", b.discarded)
	}

	var writes []string
	handler := func(member, text string) error {
		writes = append(writes, member+"="+text)
		return nil
	}
	responses := b.resolve(handler, time.Second, now)

	if len(responses) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(responses))
	}
	if !responses[0].Deduplicated || responses[0].Success {
		t.Errorf("expected deduplicated failure first, got %+v", responses[0])
	}
	if len(writes) != 2 || writes[0] != "Pump1.Speed=3" || writes[1] != "Pump1.Status=2" {
		t.Errorf("unexpected writes: %v", writes)
	}
	for _, resp := range responses[1:] {
		if !resp.Success {
			t.Errorf("expected success for %s: %s", resp.Member, resp.Error)
		}
	}
}

func TestWriteBatch_MessageKey(t *testing.T) {
	now := time.Now()
	b := newWriteBatch()
	b.add("k1", request("Pump1.Speed", 1.0, now, 0))
	b.add("k2", request("Pump1.Speed", 2.0, now, 1))

	if len(b.pending) != 2 || len(b.discarded) != 0 {
		t.Errorf("distinct message keys should not dedup: pending=%d discarded=%d", len(b.pending), len(b.discarded))
	}
}

func TestWriteBatch_Stale(t *testing.T) {
	now := time.Now()
	b := newWriteBatch()
	b.add("", request("Pump1.Speed", 1.0, now.Add(-5*time.Second), 0))

	called := false
	responses := b.resolve(func(string, string) error {
		called = true
		return nil
	}, 2*time.Second, now)

	if called {
		t.Error("stale request should not be applied")
	}
	if len(responses) != 1 || !responses[0].Skipped || responses[0].Success {
		t.Errorf("expected skipped response, got %+v", responses)
	}
}

func TestWriteBatch_HandlerError(t *testing.T) {
	now := time.Now()
	b := newWriteBatch()
	b.add("", request("Pump1.Status", 1.0, now, 0))

	responses := b.resolve(func(string, string) error {
		return errors.New("member not writable: Pump1.Status (Read Only)")
	}, time.Second, now)

	if len(responses) != 1 || responses[0].Success {
		t.Fatalf("expected failure, got %+v", responses)
	}
	if responses[0].Error != "member not writable: Pump1.Status (Read Only)" {
		t.Errorf("unexpected error: %s", responses[0].Error)
	}
	if responses[0].RequestID == "" {
		t.Error("expected request id to be carried to the response")
	}
}

func TestWriteRequest_JSON(t *testing.T) {
	var req WriteRequest
	payload := `{"member":"Pump1.Speed","value":12.5,"request_id":"r1"}`
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if req.Member != "Pump1.Speed" || req.Value.(float64) != 12.5 || req.RequestID != "r1" {
		t.Errorf("unexpected request: %+v", req)
	}

	data, err := json.Marshal(WriteResponse{
		WriteResponse: publish.WriteResponse{Member: "Pump1.Speed", Success: true},
		RequestID:     "r1",
	})
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if decoded["member"] != "Pump1.Speed" || decoded["request_id"] != "r1" || decoded["success"] != true {
		t.Errorf("unexpected response payload: %s", data)
	}
	if _, ok := decoded["skipped"]; ok {
		t.Error("skipped should be omitted when false")
	}
}

func TestConsumer_Group(t *testing.T) {
	builder := namespace.New("l5x", "line4")
	c := NewConsumer(&config.KafkaConfig{Name: "plant"}, nil, builder)
	if got := c.ConsumerGroup(); got != "l5x-line4-writer" {
		t.Errorf("expected default group, got %q", got)
	}

	c = NewConsumer(&config.KafkaConfig{Name: "plant", ConsumerGroup: "custom"}, nil, builder)
	if got := c.ConsumerGroup(); got != "custom" {
		t.Errorf("expected custom group, got %q", got)
	}
	if c.IsRunning() {
		t.Error("new consumer should not be running")
	}
	c.Stop()
}
