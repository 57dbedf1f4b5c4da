package impulse

import "fmt"

// BlockType identifies the kind of postprocessing or learning block.
type BlockType int

// Block types matching the SDK's classifier modes.
const (
	BlockClassification BlockType = iota
	BlockObjectDetection
	BlockVisualAnomaly
	BlockObjectTracking
	BlockAnomalyGMM
)

var blockTypeNames = map[BlockType]string{
	BlockClassification:  "classification",
	BlockObjectDetection: "object-detection",
	BlockVisualAnomaly:   "visual-anomaly",
	BlockObjectTracking:  "object-tracking",
	BlockAnomalyGMM:      "anomaly-gmm",
}

// String returns the block type name.
func (t BlockType) String() string {
	if name, ok := blockTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown block type (%d)", int(t))
}

// BlockConfig is the configuration attached to a postprocessing block.
// The SDK stores this as an untagged pointer reinterpreted per block type;
// here each kind gets its own concrete type so threshold operations can
// check the discriminant instead of blind-casting.
type BlockConfig interface {
	// Type returns the block kind this configuration belongs to.
	Type() BlockType

	// clone returns a copy so snapshots never alias live configs.
	clone() BlockConfig
}

// ObjectDetectionConfig holds thresholds for an object detection block.
type ObjectDetectionConfig struct {
	MinScore float32
}

// Type implements BlockConfig.
func (c *ObjectDetectionConfig) Type() BlockType { return BlockObjectDetection }

func (c *ObjectDetectionConfig) clone() BlockConfig {
	cp := *c
	return &cp
}

// VisualAnomalyConfig holds the threshold for a visual anomaly block.
type VisualAnomalyConfig struct {
	Threshold float32
}

// Type implements BlockConfig.
func (c *VisualAnomalyConfig) Type() BlockType { return BlockVisualAnomaly }

func (c *VisualAnomalyConfig) clone() BlockConfig {
	cp := *c
	return &cp
}

// ObjectTrackingConfig holds the parameters of an object tracking block.
type ObjectTrackingConfig struct {
	Threshold       float32
	KeepGrace       uint32
	MaxObservations uint16
}

// Type implements BlockConfig.
func (c *ObjectTrackingConfig) Type() BlockType { return BlockObjectTracking }

func (c *ObjectTrackingConfig) clone() BlockConfig {
	cp := *c
	return &cp
}

// AnomalyGMMConfig holds the threshold for a GMM anomaly block.
type AnomalyGMMConfig struct {
	MinAnomalyScore float32
}

// Type implements BlockConfig.
func (c *AnomalyGMMConfig) Type() BlockType { return BlockAnomalyGMM }

func (c *AnomalyGMMConfig) clone() BlockConfig {
	cp := *c
	return &cp
}

// Block describes one postprocessing or learning block of a loaded impulse.
// Block ids are unique within one impulse; the array is fixed after load.
type Block struct {
	ID     uint32
	Type   BlockType
	Config BlockConfig
}

// snapshot returns a deep copy of a block slice. Used to guarantee that a
// failed threshold operation leaves the table untouched.
func snapshot(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = b
		if b.Config != nil {
			out[i].Config = b.Config.clone()
		}
	}
	return out
}
