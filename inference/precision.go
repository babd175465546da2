package inference

// Precision is the element type a model expects on its image input.
type Precision string

const (
	// PrecisionUINT8 is a quantized model fed 8-bit pixels.
	PrecisionUINT8 Precision = "UINT8"
	// PrecisionFP32 is a float model fed unnormalized [0, 255] pixels.
	PrecisionFP32 Precision = "FP32"
)

// PrecisionReporter is implemented by sessions that know their input precision.
type PrecisionReporter interface {
	InputPrecision() Precision
}

func sessionPrecision(s Session) Precision {
	if r, ok := s.(PrecisionReporter); ok {
		return r.InputPrecision()
	}
	return PrecisionFP32
}
