package serializer

import (
	"bytes"
	"github.com/ValentinKolb/goporto/rpc/common"
	"google.golang.org/protobuf/encoding/protowire"
	"reflect"
	"testing"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":     NewJSONSerializer,
	"Protobuf": NewProtobufSerializer,
}

func uint32Ptr(v uint32) *uint32 {
	return &v
}

// TestRequestsSurviveEncoding checks representative requests with each serializer
func TestRequestsSurviveEncoding(t *testing.T) {
	requests := []*common.Request{
		common.NewCreateRequest("a/b"),
		common.NewStopRequest("a", 0),
		common.NewKillRequest("a", -1),
		common.NewWaitRequest([]string{"a", "b/***"}, []string{"TEST.done"}, 1500),
		{CreateVolume: &common.CreateVolumeRequest{
			Properties: []*common.VolumeProperty{{Name: "backend", Value: "plain"}, {Name: "read_only", Value: "false"}},
		}},
		{ListLayers: &common.ListLayersRequest{Place: "/place", Mask: "ubuntu*"}},
	}

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			s := factory()
			for _, req := range requests {
				data, err := s.Serialize(req)
				if err != nil {
					t.Fatalf("%s: serialize failed: %v", req.Kind(), err)
				}
				var result common.Request
				if err := s.Deserialize(data, &result); err != nil {
					t.Fatalf("%s: deserialize failed: %v", req.Kind(), err)
				}
				if !reflect.DeepEqual(req, &result) {
					t.Errorf("%s changed:\nOriginal: %+v\nResult: %+v", req.Kind(), req, &result)
				}
			}
		})
	}
}

// TestProtobufKnownBytes pins the wire layout of simple messages
func TestProtobufKnownBytes(t *testing.T) {
	s := NewProtobufSerializer()

	testCases := []struct {
		name string
		msg  common.Message
		want []byte
	}{
		{
			name: "create",
			msg:  common.NewCreateRequest("t"),
			want: []byte{0x0a, 0x03, 0x0a, 0x01, 't'},
		},
		{
			name: "stop with zero timeout keeps presence",
			msg:  &common.Request{Stop: &common.StopRequest{Name: "t", TimeoutMs: uint32Ptr(0)}},
			want: []byte{0x42, 0x05, 0x0a, 0x01, 't', 0x10, 0x00},
		},
		{
			name: "field number above 15",
			msg:  &common.Request{ListVolumeProperties: &common.ListVolumePropertiesRequest{}},
			want: []byte{0xba, 0x06, 0x00},
		},
		{
			name: "error response",
			msg:  common.NewErrorResponse(common.ContainerDoesNotExist, "no"),
			want: []byte{0x08, 0x04, 0x12, 0x02, 'n', 'o'},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("serialize failed: %v", err)
			}
			if !bytes.Equal(got, tc.want) {
				t.Errorf("encoding = %x, want %x", got, tc.want)
			}
		})
	}
}

// TestProtobufNestedResponse decodes repeated nested messages
func TestProtobufNestedResponse(t *testing.T) {
	s := NewProtobufSerializer()

	resp := &common.Response{
		Get: &common.GetResponse{List: []*common.GetEntry{
			{Name: "a", KeyVal: []*common.GetValue{
				{Variable: "state", Value: "running"},
				{Variable: "bogus", Error: common.InvalidProperty, ErrorMsg: "unknown"},
			}},
			{Name: "b", KeyVal: []*common.GetValue{{Variable: "state", Value: ""}}},
		}},
	}

	data, err := s.Serialize(resp)
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	var result common.Response
	if err := s.Deserialize(data, &result); err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}
	if !reflect.DeepEqual(resp, &result) {
		t.Errorf("response changed:\nOriginal: %+v\nResult: %+v", resp.Get.List, result.Get.List)
	}
}

// TestProtobufSkipsUnknownFields makes sure answers of newer daemons stay readable
func TestProtobufSkipsUnknownFields(t *testing.T) {
	s := NewProtobufSerializer()

	data, err := s.Serialize(&common.Response{GetProperty: &common.GetPropertyResponse{Value: "dead"}})
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	data = protowire.AppendTag(data, 999, protowire.VarintType)
	data = protowire.AppendVarint(data, 12345)
	data = protowire.AppendTag(data, 998, protowire.BytesType)
	data = protowire.AppendString(data, "future")
	data = protowire.AppendTag(data, 997, protowire.Fixed64Type)
	data = protowire.AppendFixed64(data, 7)

	var result common.Response
	if err := s.Deserialize(data, &result); err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}
	if result.GetProperty == nil || result.GetProperty.Value != "dead" {
		t.Errorf("unexpected result %+v", result)
	}
}

// TestProtobufResetsTarget checks that stale fields do not leak into a reused message
func TestProtobufResetsTarget(t *testing.T) {
	s := NewProtobufSerializer()

	result := common.Response{Error: common.Busy, ErrorMsg: "old"}
	data, _ := s.Serialize(&common.Response{List: &common.ListResponse{Names: []string{"x"}}})
	if err := s.Deserialize(data, &result); err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}
	if result.Error != common.Success || result.ErrorMsg != "" {
		t.Errorf("stale fields survived: %+v", result)
	}
}

func TestProtobufMalformedInput(t *testing.T) {
	s := NewProtobufSerializer()

	testCases := map[string][]byte{
		"truncated tag":    {0x80},
		"truncated length": {0x0a, 0x05, 0x01},
		"wrong wire type":  {0x0d, 0x00, 0x00, 0x00, 0x00},
		"string as varint": {0x10, 0x01},
		"nested overflow":  {0x1a, 0x05, 0x0a},
	}

	for name, data := range testCases {
		t.Run(name, func(t *testing.T) {
			var result common.Response
			if err := s.Deserialize(data, &result); err == nil {
				t.Errorf("expected error for %x, got %+v", data, result)
			}
		})
	}
}

func TestRequestKind(t *testing.T) {
	if kind := common.NewDestroyRequest("x").Kind(); kind != "destroy" {
		t.Errorf("Kind() = %q", kind)
	}
	if kind := (&common.Request{RemoveMetaStorage: &common.MetaStorageRequest{}}).Kind(); kind != "removeMetaStorage" {
		t.Errorf("Kind() = %q", kind)
	}
	if kind := (&common.Request{}).Kind(); kind != "" {
		t.Errorf("Kind() of empty request = %q", kind)
	}
}
