// reed_solomon.go implements Reed-Solomon erasure coding over GF(2^16),
// adapted from the column-sampling DAS encoder: data shards are treated
// as polynomial coefficients and evaluated at totalShards distinct points
// in GF(2^16) to produce an extended codeword. Recovery uses Lagrange
// interpolation from any recoveryThreshold evaluations.
package avidm

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidShardConfig  = errors.New("avidm/rs: invalid shard configuration")
	ErrEmptyPayload        = errors.New("avidm/rs: empty payload")
	ErrShardCountMismatch  = errors.New("avidm/rs: shard count mismatch")
	ErrTooFewShardsToRecover = errors.New("avidm/rs: insufficient shards for reconstruction")
)

// MaxGF16Shards is the maximum number of total shards for GF(2^16).
const MaxGF16Shards = gfOrder

// rsEncoder encodes a payload split into dataShards coefficients into
// totalShards codeword chunks via polynomial evaluation.
type rsEncoder struct {
	dataShards  int
	totalShards int
	evalPoints  []GF216
}

func newRSEncoder(dataShards, totalShards int) (*rsEncoder, error) {
	if dataShards <= 0 || totalShards < dataShards {
		return nil, fmt.Errorf("%w: dataShards=%d, totalShards=%d", ErrInvalidShardConfig, dataShards, totalShards)
	}
	if totalShards > MaxGF16Shards {
		return nil, fmt.Errorf("%w: total shards %d exceeds max %d", ErrInvalidShardConfig, totalShards, MaxGF16Shards)
	}
	initGFTables()
	evalPoints := make([]GF216, totalShards)
	for i := 0; i < totalShards; i++ {
		evalPoints[i] = GFExp(i)
	}
	return &rsEncoder{dataShards: dataShards, totalShards: totalShards, evalPoints: evalPoints}, nil
}

// encode takes dataShards byte slices of equal (even) length and produces
// totalShards codeword chunks of the same length.
func (enc *rsEncoder) encode(data [][]byte) ([][]byte, error) {
	if len(data) != enc.dataShards {
		return nil, fmt.Errorf("%w: got %d data shards, want %d", ErrShardCountMismatch, len(data), enc.dataShards)
	}
	if len(data) == 0 || len(data[0]) == 0 {
		return nil, ErrEmptyPayload
	}
	shardSize := len(data[0])
	for i, d := range data {
		if len(d) != shardSize {
			return nil, fmt.Errorf("%w: shard %d has size %d, want %d", ErrInvalidShardConfig, i, len(d), shardSize)
		}
	}
	symbolSize := shardSize
	if symbolSize%2 != 0 {
		symbolSize++
	}
	numSymbols := symbolSize / 2

	output := make([][]byte, enc.totalShards)
	for i := range output {
		output[i] = make([]byte, symbolSize)
	}

	for col := 0; col < numSymbols; col++ {
		byteOff := col * 2
		coeffs := make([]GF216, enc.dataShards)
		for i := 0; i < enc.dataShards; i++ {
			coeffs[i] = symbolAt(data[i], byteOff)
		}
		for si := 0; si < enc.totalShards; si++ {
			val := GFPolyEval(coeffs, enc.evalPoints[si])
			output[si][byteOff] = byte(val >> 8)
			if byteOff+1 < symbolSize {
				output[si][byteOff+1] = byte(val & 0xFF)
			}
		}
	}
	return output, nil
}

func symbolAt(shard []byte, byteOff int) GF216 {
	var hi, lo uint16
	if byteOff < len(shard) {
		hi = uint16(shard[byteOff])
	}
	if byteOff+1 < len(shard) {
		lo = uint16(shard[byteOff+1])
	}
	return GF216(hi<<8 | lo)
}

// rsRecoverData reconstructs the original dataShards chunks from any
// dataShards (or more) available chunks identified by shardIndices
// (the evaluation point index each was produced at).
func rsRecoverData(shardData [][]byte, shardIndices []int, dataShards int) ([][]byte, error) {
	if len(shardData) != len(shardIndices) {
		return nil, fmt.Errorf("%w: data/indices length mismatch", ErrShardCountMismatch)
	}
	if len(shardData) < dataShards {
		return nil, fmt.Errorf("%w: have %d shards, need %d", ErrTooFewShardsToRecover, len(shardData), dataShards)
	}
	initGFTables()

	shardSize := 0
	for _, d := range shardData {
		if len(d) > 0 {
			shardSize = len(d)
			break
		}
	}
	if shardSize == 0 {
		return nil, ErrEmptyPayload
	}
	symbolSize := shardSize
	if symbolSize%2 != 0 {
		symbolSize++
	}
	numSymbols := symbolSize / 2

	n := dataShards
	xs := make([]GF216, n)
	for i := 0; i < n; i++ {
		xs[i] = GFExp(shardIndices[i])
	}

	result := make([][]byte, dataShards)
	for i := range result {
		result[i] = make([]byte, symbolSize)
	}

	for col := 0; col < numSymbols; col++ {
		byteOff := col * 2
		ys := make([]GF216, n)
		for i := 0; i < n; i++ {
			ys[i] = symbolAt(shardData[i], byteOff)
		}
		poly := GFInterpolate(xs, ys)
		for si := 0; si < dataShards; si++ {
			val := poly[si]
			result[si][byteOff] = byte(val >> 8)
			if byteOff+1 < symbolSize {
				result[si][byteOff+1] = byte(val & 0xFF)
			}
		}
	}
	return result, nil
}
