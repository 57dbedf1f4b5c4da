//go:build ei_model

package ffi

/*
#cgo CFLAGS: -Wall -g -DTF_LITE_DISABLE_X86_NEON=1 -Wno-strict-aliasing
#cgo CFLAGS: -DEIDSP_SIGNAL_C_FN_POINTER=1 -DEI_C_LINKAGE=1
#cgo CFLAGS: -I${SRCDIR}/../../model
#cgo CFLAGS: -I${SRCDIR}/../../model/model-parameters
#cgo CFLAGS: -I${SRCDIR}/../../model/edge-impulse-sdk
#cgo CFLAGS: -Os -DNDEBUG -fPIC
#cgo LDFLAGS: -L${SRCDIR}/../../model/build -ledge-impulse-sdk
#cgo LDFLAGS: -lm -lstdc++ -ldl -lpthread

#include <stdint.h>
#include <stddef.h>
#include <stdbool.h>
#include <stdlib.h>

#include "model_metadata.h"

#ifndef EI_CLASSIFIER_LABEL_COUNT
#define EI_CLASSIFIER_LABEL_COUNT 1
#endif
#ifndef EI_CLASSIFIER_OBJECT_DETECTION
#define EI_CLASSIFIER_OBJECT_DETECTION 0
#endif
#ifndef EI_CLASSIFIER_OBJECT_DETECTION_THRESHOLD
#define EI_CLASSIFIER_OBJECT_DETECTION_THRESHOLD 0.5f
#endif
#ifndef EI_CLASSIFIER_HAS_ANOMALY
#define EI_CLASSIFIER_HAS_ANOMALY 0
#endif
#ifndef EI_CLASSIFIER_OBJECT_TRACKING_ENABLED
#define EI_CLASSIFIER_OBJECT_TRACKING_ENABLED 0
#endif

// The library is always compiled with the visual anomaly result fields
// present (the wrapper header forces the macro to 1).
#undef EI_CLASSIFIER_HAS_VISUAL_ANOMALY
#define EI_CLASSIFIER_HAS_VISUAL_ANOMALY 1

typedef int32_t EI_IMPULSE_ERROR;

// C mirrors of the SDK result types. With EI_C_LINKAGE and
// EIDSP_SIGNAL_C_FN_POINTER defined, the layouts below must match
// dsp/numpy_types.h and classifier/ei_classifier_types.h exactly.
typedef struct {
	int (*get_data)(size_t, size_t, float *);
	size_t total_length;
} ei_ffi_signal_t;

typedef struct {
	const char *label;
	float value;
} ei_ffi_classification_t;

typedef struct {
	const char *label;
	uint32_t x;
	uint32_t y;
	uint32_t width;
	uint32_t height;
	float value;
} ei_ffi_bounding_box_t;

typedef struct {
	int sampling;
	int dsp;
	int classification;
	int anomaly;
	int64_t dsp_us;
	int64_t classification_us;
	int64_t anomaly_us;
} ei_ffi_timing_t;

typedef struct {
	float mean_value;
	float max_value;
} ei_ffi_visual_ad_result_t;

typedef struct {
	ei_ffi_bounding_box_t *bounding_boxes;
	uint32_t bounding_boxes_count;
	ei_ffi_classification_t classification[EI_CLASSIFIER_LABEL_COUNT];
	float anomaly;
	ei_ffi_timing_t timing;
	bool copy_output;
	ei_ffi_bounding_box_t *visual_ad_grid_cells;
	uint32_t visual_ad_count;
	ei_ffi_visual_ad_result_t visual_ad_result;
} ei_ffi_result_t;

typedef struct {
	uint32_t rows;
	uint32_t cols;
	float *buffer;
	bool buffer_managed_by_me;
} ei_ffi_matrix_t;

typedef struct {
	ei_ffi_matrix_t *matrix;
	uint32_t blockId;
} ei_ffi_feature_t;

extern void ei_ffi_run_classifier_init(void);
extern void ei_ffi_run_classifier_deinit(void);
extern EI_IMPULSE_ERROR ei_ffi_init_impulse(void *handle);
extern EI_IMPULSE_ERROR ei_ffi_run_classifier(ei_ffi_signal_t *signal, ei_ffi_result_t *result, int debug);
extern EI_IMPULSE_ERROR ei_ffi_run_classifier_continuous(ei_ffi_signal_t *signal, ei_ffi_result_t *result, int debug, int enable_maf_unused);
extern EI_IMPULSE_ERROR ei_ffi_run_inference(void *handle, ei_ffi_feature_t *fmatrix, ei_ffi_result_t *result, int debug);
extern EI_IMPULSE_ERROR ei_ffi_signal_from_buffer(const float *data, size_t data_size, ei_ffi_signal_t *signal);
extern EI_IMPULSE_ERROR ei_ffi_set_object_detection_threshold(uint32_t block_id, float min_score);
extern EI_IMPULSE_ERROR ei_ffi_set_anomaly_threshold(uint32_t block_id, float min_anomaly_score);
extern EI_IMPULSE_ERROR ei_ffi_set_object_tracking_threshold(uint32_t block_id, float threshold, uint32_t keep_grace, uint16_t max_observations);
*/
import "C"

import (
	"unsafe"

	"github.com/emergingrobotics/go-edgeimpulse/pkg/impulse"
)

// Engine drives the compiled-in model through the frozen C ABI.
type Engine struct{}

// NewEngine returns the native inference engine.
func NewEngine() (impulse.Engine, error) {
	return &Engine{}, nil
}

// Init performs the process-wide classifier initialization.
func (e *Engine) Init() error {
	C.ei_ffi_run_classifier_init()
	if status := impulse.Status(C.ei_ffi_init_impulse(nil)); status != impulse.StatusOK {
		return impulse.NewError(status, "init impulse")
	}
	return nil
}

// Deinit tears the classifier down.
func (e *Engine) Deinit() error {
	C.ei_ffi_run_classifier_deinit()
	return nil
}

// Blocks derives the postprocessing block table from the compiled-in
// model metadata. Generated models number their postprocessing blocks
// sequentially from 1 in declaration order.
func (e *Engine) Blocks() ([]impulse.Block, error) {
	var blocks []impulse.Block
	id := uint32(1)

	if C.EI_CLASSIFIER_OBJECT_DETECTION != 0 {
		blocks = append(blocks, impulse.Block{
			ID:   id,
			Type: impulse.BlockObjectDetection,
			Config: &impulse.ObjectDetectionConfig{
				MinScore: float32(C.EI_CLASSIFIER_OBJECT_DETECTION_THRESHOLD),
			},
		})
		id++
	}
	if C.EI_CLASSIFIER_HAS_VISUAL_ANOMALY != 0 {
		blocks = append(blocks, impulse.Block{
			ID:     id,
			Type:   impulse.BlockVisualAnomaly,
			Config: &impulse.VisualAnomalyConfig{Threshold: 0.5},
		})
		id++
	} else if C.EI_CLASSIFIER_HAS_ANOMALY != 0 {
		blocks = append(blocks, impulse.Block{
			ID:     id,
			Type:   impulse.BlockAnomalyGMM,
			Config: &impulse.AnomalyGMMConfig{MinAnomalyScore: 0.5},
		})
		id++
	}
	if C.EI_CLASSIFIER_OBJECT_TRACKING_ENABLED != 0 {
		blocks = append(blocks, impulse.Block{
			ID:   id,
			Type: impulse.BlockObjectTracking,
			Config: &impulse.ObjectTrackingConfig{
				Threshold:       0.5,
				KeepGrace:       5,
				MaxObservations: 10,
			},
		})
	}
	return blocks, nil
}

// RunClassifier runs one full inference over the signal.
func (e *Engine) RunClassifier(sig *impulse.Signal, res *impulse.Result, debug bool) impulse.Status {
	return e.run(sig, res, debug, false)
}

// RunClassifierContinuous runs one slice of continuous inference.
func (e *Engine) RunClassifierContinuous(sig *impulse.Signal, res *impulse.Result, debug bool) impulse.Status {
	return e.run(sig, res, debug, true)
}

func (e *Engine) run(sig *impulse.Signal, res *impulse.Result, debug, continuous bool) impulse.Status {
	if sig == nil || sig.Len() == 0 {
		return impulse.StatusInvalidSize
	}

	// The signal keeps a pointer to the buffer across the native call, so
	// the data lives in C memory for the duration.
	data := sig.Data()
	buf := (*C.float)(C.malloc(C.size_t(len(data)) * C.sizeof_float))
	if buf == nil {
		return impulse.StatusAllocFailed
	}
	defer C.free(unsafe.Pointer(buf))
	cdata := unsafe.Slice(buf, len(data))
	for i, v := range data {
		cdata[i] = C.float(v)
	}

	var csig C.ei_ffi_signal_t
	if status := impulse.Status(C.ei_ffi_signal_from_buffer(buf, C.size_t(len(data)), &csig)); status != impulse.StatusOK {
		return status
	}

	var cres C.ei_ffi_result_t
	dbg := C.int(0)
	if debug {
		dbg = 1
	}
	var status impulse.Status
	if continuous {
		status = impulse.Status(C.ei_ffi_run_classifier_continuous(&csig, &cres, dbg, 0))
	} else {
		status = impulse.Status(C.ei_ffi_run_classifier(&csig, &cres, dbg))
	}
	if status != impulse.StatusOK {
		return status
	}

	convertResult(&cres, res)
	return impulse.StatusOK
}

// RunInference runs inference on pre-processed feature matrices, one row
// per learning block.
func (e *Engine) RunInference(features [][]float32, res *impulse.Result, debug bool) impulse.Status {
	if len(features) == 0 {
		return impulse.StatusInvalidSize
	}

	count := len(features)
	fmatrix := (*C.ei_ffi_feature_t)(C.calloc(C.size_t(count), C.sizeof_ei_ffi_feature_t))
	if fmatrix == nil {
		return impulse.StatusAllocFailed
	}
	defer C.free(unsafe.Pointer(fmatrix))

	matrices := (*C.ei_ffi_matrix_t)(C.calloc(C.size_t(count), C.sizeof_ei_ffi_matrix_t))
	if matrices == nil {
		return impulse.StatusAllocFailed
	}
	defer C.free(unsafe.Pointer(matrices))

	feats := unsafe.Slice(fmatrix, count)
	mats := unsafe.Slice(matrices, count)
	for i, row := range features {
		if len(row) == 0 {
			return impulse.StatusInvalidSize
		}
		buf := (*C.float)(C.malloc(C.size_t(len(row)) * C.sizeof_float))
		if buf == nil {
			return impulse.StatusAllocFailed
		}
		defer C.free(unsafe.Pointer(buf))
		cdata := unsafe.Slice(buf, len(row))
		for j, v := range row {
			cdata[j] = C.float(v)
		}
		mats[i] = C.ei_ffi_matrix_t{
			rows:   1,
			cols:   C.uint32_t(len(row)),
			buffer: buf,
		}
		feats[i] = C.ei_ffi_feature_t{
			matrix:  &mats[i],
			blockId: C.uint32_t(i + 1),
		}
	}

	var cres C.ei_ffi_result_t
	dbg := C.int(0)
	if debug {
		dbg = 1
	}
	status := impulse.Status(C.ei_ffi_run_inference(nil, fmatrix, &cres, dbg))
	if status != impulse.StatusOK {
		return status
	}
	convertResult(&cres, res)
	return impulse.StatusOK
}

// ApplyThreshold forwards a verified threshold update to the native
// setter for the configuration kind.
func (e *Engine) ApplyThreshold(blockID uint32, cfg impulse.BlockConfig) impulse.Status {
	switch c := cfg.(type) {
	case *impulse.ObjectDetectionConfig:
		return impulse.Status(C.ei_ffi_set_object_detection_threshold(
			C.uint32_t(blockID), C.float(c.MinScore)))
	case *impulse.VisualAnomalyConfig:
		return impulse.Status(C.ei_ffi_set_anomaly_threshold(
			C.uint32_t(blockID), C.float(c.Threshold)))
	case *impulse.AnomalyGMMConfig:
		return impulse.Status(C.ei_ffi_set_anomaly_threshold(
			C.uint32_t(blockID), C.float(c.MinAnomalyScore)))
	case *impulse.ObjectTrackingConfig:
		return impulse.Status(C.ei_ffi_set_object_tracking_threshold(
			C.uint32_t(blockID), C.float(c.Threshold),
			C.uint32_t(c.KeepGrace), C.uint16_t(c.MaxObservations)))
	default:
		return impulse.StatusInferenceError
	}
}

func convertResult(cres *C.ei_ffi_result_t, res *impulse.Result) {
	res.Reset()

	for i := 0; i < int(C.EI_CLASSIFIER_LABEL_COUNT); i++ {
		c := cres.classification[i]
		label := ""
		if c.label != nil {
			label = C.GoString(c.label)
		}
		res.Classifications = append(res.Classifications, impulse.Classification{
			Label: label,
			Value: float32(c.value),
		})
	}

	if cres.bounding_boxes != nil && cres.bounding_boxes_count > 0 {
		boxes := unsafe.Slice(cres.bounding_boxes, int(cres.bounding_boxes_count))
		for _, b := range boxes {
			// Zero-valued slots are padding in the fixed-size native array.
			if b.value == 0 {
				continue
			}
			res.BoundingBoxes = append(res.BoundingBoxes, convertBox(&b))
		}
	}

	if cres.visual_ad_grid_cells != nil && cres.visual_ad_count > 0 {
		grid := unsafe.Slice(cres.visual_ad_grid_cells, int(cres.visual_ad_count))
		va := &impulse.VisualAnomaly{
			Max:     float32(cres.visual_ad_result.max_value),
			Mean:    float32(cres.visual_ad_result.mean_value),
			Overall: float32(cres.anomaly),
		}
		for _, b := range grid {
			if b.value == 0 {
				continue
			}
			va.Grid = append(va.Grid, convertBox(&b))
		}
		res.VisualAnomaly = va
	}

	res.AnomalyScore = float32(cres.anomaly)
	res.Timing = impulse.Timing{
		DSP:                  int(cres.timing.dsp),
		Classification:       int(cres.timing.classification),
		Anomaly:              int(cres.timing.anomaly),
		DSPMicros:            int64(cres.timing.dsp_us),
		ClassificationMicros: int64(cres.timing.classification_us),
		AnomalyMicros:        int64(cres.timing.anomaly_us),
	}
}

func convertBox(b *C.ei_ffi_bounding_box_t) impulse.BoundingBox {
	label := ""
	if b.label != nil {
		label = C.GoString(b.label)
	}
	return impulse.BoundingBox{
		Label:  label,
		Value:  float32(b.value),
		X:      uint32(b.x),
		Y:      uint32(b.y),
		Width:  uint32(b.width),
		Height: uint32(b.height),
	}
}

var _ impulse.Engine = (*Engine)(nil)
