package forecasts

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"weatheralert/internal/types"
)

// codecVersion prefixes every encoded snapshot so the format can change
// without misreading old cache rows.
const codecVersion byte = 1

// Codec encodes snapshots as zstd-compressed JSON for the forecast cache.
type Codec struct {
	encoder     *zstd.Encoder
	decoderPool sync.Pool
}

// NewCodec creates a Codec.
func NewCodec() (*Codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return &Codec{
		encoder: enc,
		decoderPool: sync.Pool{
			New: func() any {
				d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
				if err != nil {
					panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
				}
				return d
			},
		},
	}, nil
}

// Encode serializes snap.
func (c *Codec) Encode(snap *types.ForecastSnapshot) ([]byte, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	out := make([]byte, 1, len(raw)/4+1)
	out[0] = codecVersion
	return c.encoder.EncodeAll(raw, out), nil
}

// Decode parses data produced by Encode.
func (c *Codec) Decode(data []byte) (*types.ForecastSnapshot, error) {
	if len(data) == 0 || data[0] != codecVersion {
		return nil, types.NewAppError(types.ErrCodeInternalCacheCorrupt, "unknown forecast cache encoding", nil)
	}

	dec := c.decoderPool.Get().(*zstd.Decoder)
	defer c.decoderPool.Put(dec)

	raw, err := dec.DecodeAll(data[1:], nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalCacheCorrupt, "failed to decompress forecast", err)
	}
	var snap types.ForecastSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalCacheCorrupt, "failed to unmarshal forecast", err)
	}
	return &snap, nil
}
