package serializer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/goporto/rpc/common"
)

// NewJSONSerializer returns the JSON codec. The daemon only speaks protobuf;
// JSON frames are readable in socket dumps, which helps when debugging test daemons.
func NewJSONSerializer() IRPCSerializer {
	return jsonSerializer{}
}

// jsonSerializer encodes envelopes through their json tags. HTML escaping is off so
// paths and shell commands appear verbatim.
type jsonSerializer struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (jsonSerializer) Serialize(msg common.Message) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(msg); err != nil {
		return nil, fmt.Errorf("json: encode %T: %w", msg, err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

func (jsonSerializer) Deserialize(b []byte, msg common.Message) error {
	if err := json.Unmarshal(b, msg); err != nil {
		return fmt.Errorf("json: decode %T: %w", msg, err)
	}
	return nil
}
