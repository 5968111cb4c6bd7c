package backup

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionStats describes one encoded artifact
type CompressionStats struct {
	OriginalSize     int64           `json:"original_size"`
	CompressedSize   int64           `json:"compressed_size"`
	CompressionRatio float64         `json:"compression_ratio"`
	Algorithm        CompressionType `json:"algorithm"`
	Level            int             `json:"level"`
	Duration         time.Duration   `json:"duration"`
}

// codec binds an artifact encoding to its framing and level range
type codec struct {
	magic                   []byte
	extension, contentType  string
	minLevel, maxLevel, def int
	encode                  func(data []byte, level int) ([]byte, error)
	decode                  func(data []byte) ([]byte, error)
}

var codecs = map[CompressionType]codec{
	CompressionTypeGzip: {
		magic:       []byte{0x1f, 0x8b},
		extension:   ".json.gz",
		contentType: "application/gzip",
		minLevel:    gzip.BestSpeed, maxLevel: gzip.BestCompression, def: 6,
		encode: encodeGzip,
		decode: decodeGzip,
	},
	CompressionTypeZstd: {
		magic:       []byte{0x28, 0xb5, 0x2f, 0xfd},
		extension:   ".json.zst",
		contentType: "application/zstd",
		minLevel:    1, maxLevel: 22, def: 3,
		encode: encodeZstd,
		decode: decodeZstd,
	},
	CompressionTypeLZ4: {
		magic:       []byte{0x04, 0x22, 0x4d, 0x18},
		extension:   ".json.lz4",
		contentType: "application/x-lz4",
		minLevel:    1, maxLevel: 12, def: 1,
		encode: encodeLZ4,
		decode: decodeLZ4,
	},
}

// detectOrder is fixed so detection never depends on map iteration
var detectOrder = []CompressionType{CompressionTypeGzip, CompressionTypeZstd, CompressionTypeLZ4}

// CompressionManager encodes export documents and decodes uploaded artifacts
type CompressionManager struct {
	now func() time.Time
}

// NewCompressionManager creates a new compression manager
func NewCompressionManager() *CompressionManager {
	return &CompressionManager{now: time.Now}
}

// Compress encodes data with algorithm. A level outside the algorithm's
// range falls back to its default.
func (cm *CompressionManager) Compress(data []byte, algorithm CompressionType, level int) ([]byte, *CompressionStats, error) {
	size := int64(len(data))
	if algorithm == CompressionTypeNone || algorithm == "" {
		return data, &CompressionStats{OriginalSize: size, CompressedSize: size, CompressionRatio: 1.0, Algorithm: CompressionTypeNone}, nil
	}

	c, ok := codecs[algorithm]
	if !ok {
		return nil, nil, NewCompressionError(fmt.Sprintf("unsupported compression algorithm: %s", algorithm), nil)
	}
	if level < c.minLevel || level > c.maxLevel {
		level = c.def
	}

	start := cm.now()
	out, err := c.encode(data, level)
	if err != nil {
		return nil, nil, NewCompressionError(fmt.Sprintf("failed to encode %s artifact", algorithm), err)
	}

	return out, &CompressionStats{
		OriginalSize:     size,
		CompressedSize:   int64(len(out)),
		CompressionRatio: CalculateCompressionRatio(size, int64(len(out))),
		Algorithm:        algorithm,
		Level:            level,
		Duration:         cm.now().Sub(start),
	}, nil
}

// Decompress reverses Compress for a known algorithm
func (cm *CompressionManager) Decompress(data []byte, algorithm CompressionType) ([]byte, error) {
	if algorithm == CompressionTypeNone || algorithm == "" {
		return data, nil
	}
	c, ok := codecs[algorithm]
	if !ok {
		return nil, NewCompressionError(fmt.Sprintf("unsupported compression algorithm: %s", algorithm), nil)
	}
	plain, err := c.decode(data)
	if err != nil {
		return nil, NewCompressionError(fmt.Sprintf("failed to decode %s artifact", algorithm), err)
	}
	return plain, nil
}

// Decode detects the encoding of data and returns the plain document bytes
func (cm *CompressionManager) Decode(data []byte) ([]byte, CompressionType, error) {
	algorithm := Detect(data)
	plain, err := cm.Decompress(data, algorithm)
	if err != nil {
		return nil, algorithm, err
	}
	return plain, algorithm, nil
}

// Detect identifies the encoding of data from its leading bytes. Anything
// unrecognised is treated as a plain JSON document.
func Detect(data []byte) CompressionType {
	for _, algorithm := range detectOrder {
		if bytes.HasPrefix(data, codecs[algorithm].magic) {
			return algorithm
		}
	}
	return CompressionTypeNone
}

// Extension returns the artifact file extension for an encoding
func Extension(algorithm CompressionType) string {
	if c, ok := codecs[algorithm]; ok {
		return c.extension
	}
	return ".json"
}

// ContentType returns the HTTP media type for an encoded artifact
func ContentType(algorithm CompressionType) string {
	if c, ok := codecs[algorithm]; ok {
		return c.contentType
	}
	return "application/json"
}

// CalculateCompressionRatio returns compressed/original, 1 for empty input
func CalculateCompressionRatio(originalSize, compressedSize int64) float64 {
	if originalSize == 0 {
		return 1.0
	}
	return float64(compressedSize) / float64(originalSize)
}

func encodeGzip(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	return finish(&buf, w, data)
}

func decodeGzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// zstd levels map onto the encoder's four speed presets
func encodeZstd(data []byte, level int) ([]byte, error) {
	preset := zstd.SpeedBestCompression
	switch {
	case level <= 1:
		preset = zstd.SpeedFastest
	case level <= 3:
		preset = zstd.SpeedDefault
	case level <= 6:
		preset = zstd.SpeedBetterCompression
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(preset))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

func decodeZstd(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

// lz4 only distinguishes fast from high compression
func encodeLZ4(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if level > 6 {
		if err := w.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
			return nil, err
		}
	}
	return finish(&buf, w, data)
}

func decodeLZ4(data []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
}

func finish(buf *bytes.Buffer, w io.WriteCloser, data []byte) ([]byte, error) {
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
