package serializer

import (
	"github.com/ValentinKolb/goporto/rpc/common"
	"testing"
)

// benchmarkMessages returns a set of messages for targeted benchmarking
func benchmarkMessages() map[string]common.Message {
	names := make([]string, 0, 64)
	entries := make([]*common.GetEntry, 0, 64)
	for i := 0; i < 64; i++ {
		name := "benchmark/container-" + string(rune('a'+i%26))
		names = append(names, name)
		entries = append(entries, &common.GetEntry{
			Name: name,
			KeyVal: []*common.GetValue{
				{Variable: "state", Value: "running"},
				{Variable: "memory_usage", Value: "1048576"},
			},
		})
	}

	return map[string]common.Message{
		"Create":      common.NewCreateRequest("benchmark/container"),
		"SetProperty": common.NewSetPropertyRequest("benchmark/container", "command", "sleep 1000"),
		"Get":         common.NewGetRequest(names, []string{"state", "memory_usage"}),
		"GetResponse": &common.Response{Get: &common.GetResponse{List: entries}},
		"Error":       common.NewErrorResponse(common.ContainerDoesNotExist, "container benchmark/container not found"),
	}
}

// BenchmarkSerialize benchmarks serialization for all implementations with various message types
func BenchmarkSerialize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					if _, err := serializer.Serialize(msg); err != nil {
						b.Fatalf("Failed to serialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkDeserialize benchmarks deserialization of responses
func BenchmarkDeserialize(b *testing.B) {
	for name, factory := range testSerializers {
		serializer := factory()
		data, err := serializer.Serialize(benchmarkMessages()["GetResponse"])
		if err != nil {
			b.Fatalf("Failed to serialize: %v", err)
		}

		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				var resp common.Response
				if err := serializer.Deserialize(data, &resp); err != nil {
					b.Fatalf("Failed to deserialize: %v", err)
				}
			}
		})
	}
}
