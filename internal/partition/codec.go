package partition

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/klauspost/compress/zstd"

	"github.com/rcampos/macrodesk/internal/contracts"
)

// Segment blobs hold one chunk's rows for one series, zstd-compressed JSON,
// ordered observation-date descending (then revision descending) so recent
// rows decode first.

var (
	segmentEncoder *zstd.Encoder
	segmentDecoder *zstd.Decoder
)

func init() {
	// EncodeAll/DecodeAll on shared codecs are safe for concurrent use.
	segmentEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	segmentDecoder, _ = zstd.NewReader(nil)
}

// encodeSegment sorts rows into segment order and compresses them.
// Returns the blob and the uncompressed size.
func encodeSegment(rows []contracts.Observation) ([]byte, int, error) {
	sortSegment(rows)

	raw, err := json.Marshal(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode segment: %w", err)
	}
	return segmentEncoder.EncodeAll(raw, make([]byte, 0, len(raw)/4)), len(raw), nil
}

// decodeSegment decompresses a segment blob back into rows.
func decodeSegment(blob []byte) ([]contracts.Observation, error) {
	raw, err := segmentDecoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress segment: %w", err)
	}

	var rows []contracts.Observation
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode segment: %w", err)
	}
	return rows, nil
}

func sortSegment(rows []contracts.Observation) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].ObservationDate.Equal(rows[j].ObservationDate) {
			return rows[i].ObservationDate.After(rows[j].ObservationDate)
		}
		return rows[i].Revision > rows[j].Revision
	})
}
