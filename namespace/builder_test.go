package namespace

import "testing"

func TestBuilder(t *testing.T) {
	tests := []struct {
		name string
		got  func(*Builder) string
		want string
		sel  string
	}{
		{"mqtt tag", func(b *Builder) string { return b.MQTTTagTopic("Pump1.Delay.PRE") }, "l5x/tags/Pump1/Delay/PRE", ""},
		{"mqtt tag selector", func(b *Builder) string { return b.MQTTTagTopic("Counts[2]") }, "l5x/line4/tags/Counts[2]", "line4"},
		{"mqtt wildcard", (*Builder).MQTTTagWildcard, "l5x/tags/#", ""},
		{"mqtt write", (*Builder).MQTTWriteTopic, "l5x/line4/write", "line4"},
		{"mqtt write response", (*Builder).MQTTWriteResponseTopic, "l5x/write/response", ""},
		{"valkey tag", func(b *Builder) string { return b.ValkeyTagKey("Pump1.Speed") }, "l5x:line4:tags:Pump1.Speed", "line4"},
		{"valkey changes", func(b *Builder) string { return b.ValkeyChangesChannel("Pump1") }, "l5x:Pump1:changes", ""},
		{"valkey all changes", (*Builder).ValkeyAllChangesChannel, "l5x:_all:changes", ""},
		{"valkey writes", (*Builder).ValkeyWriteQueue, "l5x:line4:writes", "line4"},
		{"valkey write responses", (*Builder).ValkeyWriteResponseChannel, "l5x:write:responses", ""},
		{"kafka topic", (*Builder).KafkaTagTopic, "l5x", ""},
		{"kafka topic selector", (*Builder).KafkaTagTopic, "l5x-line4", "line4"},
		{"kafka writes", (*Builder).KafkaWriteTopic, "l5x-writes", ""},
		{"kafka write responses", (*Builder).KafkaWriteResponseTopic, "l5x-line4-write-responses", "line4"},
		{"kafka consumer group", (*Builder).KafkaConsumerGroup, "l5x-writer", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("l5x", tt.sel)
			if got := tt.got(b); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
