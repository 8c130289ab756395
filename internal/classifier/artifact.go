package classifier

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"stillopen-api/internal/features"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/zeebo/blake3"
)

// Kind names the model family stored in an artifact.
type Kind string

const (
	KindLogistic Kind = "logistic"
	KindForest   Kind = "forest"
)

// Artifact is the decoded content of a classifier artifact file.
type Artifact struct {
	ModelVersion string          `json:"model_version" yaml:"model_version"`
	Schema       features.Schema `json:"schema" yaml:"schema"`
	Kind         Kind            `json:"kind" yaml:"kind"`
	Logistic     *Logistic       `json:"logistic,omitempty" yaml:"logistic,omitempty"`
	Forest       *Forest         `json:"forest,omitempty" yaml:"forest,omitempty"`
}

// Logistic is a logistic regression over the feature vector. Means, when
// present, is the training mean of each feature and anchors contributions.
type Logistic struct {
	Intercept float64   `json:"intercept" yaml:"intercept"`
	Weights   []float64 `json:"weights" yaml:"weights"`
	Means     []float64 `json:"means,omitempty" yaml:"means,omitempty"`
}

// Forest is an ensemble of binary decision trees whose node values are the
// OPEN probability of the training samples reaching the node.
type Forest struct {
	Trees []Tree `json:"trees" yaml:"trees"`
}

// Tree is a flattened decision tree; Nodes[0] is the root.
type Tree struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
}

// Node is a split (Feature >= 0) or a leaf (Feature < 0). Samples with
// x[Feature] <= Threshold go Left.
type Node struct {
	Feature   int     `json:"feature" yaml:"feature"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Left      int     `json:"left" yaml:"left"`
	Right     int     `json:"right" yaml:"right"`
	Value     float64 `json:"value" yaml:"value"`
}

// Validate checks internal consistency against the artifact's own schema.
func (a *Artifact) Validate() error {
	n := a.Schema.Len()
	if n == 0 {
		return fmt.Errorf("classifier: artifact declares no features")
	}
	switch a.Kind {
	case KindLogistic:
		if a.Logistic == nil {
			return fmt.Errorf("classifier: logistic artifact has no logistic section")
		}
		if len(a.Logistic.Weights) != n {
			return fmt.Errorf("classifier: %d weights for %d features", len(a.Logistic.Weights), n)
		}
		if a.Logistic.Means != nil && len(a.Logistic.Means) != n {
			return fmt.Errorf("classifier: %d means for %d features", len(a.Logistic.Means), n)
		}
	case KindForest:
		if a.Forest == nil || len(a.Forest.Trees) == 0 {
			return fmt.Errorf("classifier: forest artifact has no trees")
		}
		for i, tree := range a.Forest.Trees {
			if err := tree.validate(n); err != nil {
				return fmt.Errorf("classifier: tree %d: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("classifier: unknown model kind %q", a.Kind)
	}
	return nil
}

// validate requires children to come after their parent so that every
// root-to-leaf walk terminates.
func (t Tree) validate(features int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("no nodes")
	}
	for i, node := range t.Nodes {
		if math.IsNaN(node.Value) || node.Value < 0 || node.Value > 1 {
			return fmt.Errorf("node %d value %f outside [0, 1]", i, node.Value)
		}
		if node.Feature < 0 {
			continue
		}
		if node.Feature >= features {
			return fmt.Errorf("node %d splits on feature %d of %d", i, node.Feature, features)
		}
		for _, child := range []int{node.Left, node.Right} {
			if child <= i || child >= len(t.Nodes) {
				return fmt.Errorf("node %d has child %d out of order", i, child)
			}
		}
	}
	return nil
}

// Container layout:
//
//	magic "SOMA" | format version (1) | compression tag (1) |
//	uncompressed length (4, big endian) | BLAKE3-256 of payload (32) |
//	payload (CBOR, core deterministic encoding, compressed per tag)
var magic = [4]byte{'S', 'O', 'M', 'A'}

const (
	formatVersion = 1
	headerSize    = 4 + 1 + 1 + 4 + 32

	// maxPayloadSize bounds the decoded payload a header may declare.
	maxPayloadSize = 64 << 20
	// maxCompressionRatio bounds the declared size relative to the body.
	maxCompressionRatio = 256
)

// CompressionTag identifies how an artifact payload is compressed.
type CompressionTag uint8

const (
	CompressionNone CompressionTag = 0
	CompressionLZ4  CompressionTag = 1
	CompressionZstd CompressionTag = 2
)

// String returns the name used on the command line.
func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

// ParseCompressionTag parses a compression name.
func ParseCompressionTag(name string) (CompressionTag, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression tag: %q", name)
	}
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("classifier: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("classifier: CBOR decoder initialization failed: " + err.Error())
	}
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("classifier: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxPayloadSize))
	if err != nil {
		panic("classifier: zstd decoder initialization failed: " + err.Error())
	}
}

// Encode serializes an artifact. Incompressible payloads are stored
// uncompressed whatever tag was requested.
func Encode(a *Artifact, tag CompressionTag) ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	payload, err := encMode.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("classifier: encode artifact: %w", err)
	}

	body, tag, err := compress(payload, tag)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(headerSize + len(body))
	buf.Write(magic[:])
	buf.WriteByte(formatVersion)
	buf.WriteByte(byte(tag))
	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(payload)))
	buf.Write(size[:])
	sum := blake3.Sum256(payload)
	buf.Write(sum[:])
	buf.Write(body)
	return buf.Bytes(), nil
}

// Decode parses and verifies an artifact container.
func Decode(data []byte) (*Artifact, error) {
	if len(data) < headerSize || !bytes.Equal(data[:4], magic[:]) {
		return nil, fmt.Errorf("classifier: not a model artifact")
	}
	if data[4] != formatVersion {
		return nil, fmt.Errorf("classifier: unsupported artifact format version %d", data[4])
	}
	tag := CompressionTag(data[5])
	size := int(binary.BigEndian.Uint32(data[6:10]))
	var want [32]byte
	copy(want[:], data[10:headerSize])

	payload, err := decompress(data[headerSize:], tag, size)
	if err != nil {
		return nil, err
	}
	if blake3.Sum256(payload) != want {
		return nil, fmt.Errorf("classifier: artifact checksum mismatch")
	}

	var a Artifact
	if err := decMode.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("classifier: decode artifact: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// WriteFile encodes an artifact to path.
func WriteFile(path string, a *Artifact, tag CompressionTag) error {
	data, err := Encode(a, tag)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("classifier: write artifact: %w", err)
	}
	return nil
}

// ReadFile reads and decodes the artifact at path.
func ReadFile(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("classifier: read artifact: %w", err)
	}
	return Decode(data)
}

// Header describes an artifact container without decoding the payload.
type Header struct {
	FormatVersion    int
	Compression      CompressionTag
	UncompressedSize int
	CompressedSize   int
	Checksum         [32]byte
}

// ReadHeader parses the container header.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < headerSize || !bytes.Equal(data[:4], magic[:]) {
		return Header{}, fmt.Errorf("classifier: not a model artifact")
	}
	h := Header{
		FormatVersion:    int(data[4]),
		Compression:      CompressionTag(data[5]),
		UncompressedSize: int(binary.BigEndian.Uint32(data[6:10])),
		CompressedSize:   len(data) - headerSize,
	}
	copy(h.Checksum[:], data[10:headerSize])
	return h, nil
}

func compress(payload []byte, tag CompressionTag) ([]byte, CompressionTag, error) {
	switch tag {
	case CompressionNone:
		return payload, CompressionNone, nil
	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(payload)))
		n, err := lz4.CompressBlock(payload, dst, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("classifier: lz4 compress: %w", err)
		}
		if n == 0 || n >= len(payload) {
			return payload, CompressionNone, nil
		}
		return dst[:n], CompressionLZ4, nil
	case CompressionZstd:
		out := zstdEncoder.EncodeAll(payload, nil)
		if len(out) >= len(payload) {
			return payload, CompressionNone, nil
		}
		return out, CompressionZstd, nil
	default:
		return nil, 0, fmt.Errorf("classifier: unsupported compression tag: %d", tag)
	}
}

func decompress(body []byte, tag CompressionTag, size int) ([]byte, error) {
	if size > maxPayloadSize {
		return nil, fmt.Errorf("classifier: header declares %d byte payload, limit is %d", size, maxPayloadSize)
	}
	if tag != CompressionNone && size > len(body)*maxCompressionRatio {
		return nil, fmt.Errorf("classifier: header declares %d byte payload for a %d byte body", size, len(body))
	}

	switch tag {
	case CompressionNone:
		if len(body) != size {
			return nil, fmt.Errorf("classifier: payload is %d bytes, header says %d", len(body), size)
		}
		return body, nil
	case CompressionLZ4:
		dst := make([]byte, size)
		n, err := lz4.UncompressBlock(body, dst)
		if err != nil {
			return nil, fmt.Errorf("classifier: lz4 decompress: %w", err)
		}
		if n != size {
			return nil, fmt.Errorf("classifier: lz4 decompress: got %d bytes, expected %d", n, size)
		}
		return dst, nil
	case CompressionZstd:
		out, err := zstdDecoder.DecodeAll(body, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("classifier: zstd decompress: %w", err)
		}
		if len(out) != size {
			return nil, fmt.Errorf("classifier: zstd decompress: got %d bytes, expected %d", len(out), size)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("classifier: unsupported compression tag: %d", tag)
	}
}
