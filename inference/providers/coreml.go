package providers

const (
	// CoreMLProviderBackend uses Apple CoreML for macOS/iOS acceleration.
	CoreMLProviderBackend ProviderBackend = "coreml"
)

// CoreML provider flags, as defined by onnxruntime's coreml_provider_factory.h.
const (
	coreMLFlagUseCPUOnly              uint32 = 0x001
	coreMLFlagEnableOnSubgraph        uint32 = 0x002
	coreMLFlagOnlyEnableDeviceWithANE uint32 = 0x004
	coreMLFlagOnlyStaticInputShapes   uint32 = 0x008
	coreMLFlagCreateMLProgram         uint32 = 0x010
)

// CoreMLOptions contains arguments for the CoreML provider.
// See: https://onnxruntime.ai/docs/execution-providers/CoreML-ExecutionProvider.html
type CoreMLOptions struct {
	// Limit CoreML to running on CPU only.
	CPUOnly bool `json:"cpu_only"                   yaml:"cpu_only"`
	// Only enable the provider on devices with an Apple Neural Engine.
	RequireNeuralEngine bool `json:"require_neural_engine"      yaml:"require_neural_engine"`
	// Only take nodes whose inputs have static shapes.
	RequireStaticInputShapes bool `json:"require_static_input_shapes" yaml:"require_static_input_shapes"`
	// Run on subgraphs in the body of control flow operators.
	EnableOnSubgraphs bool `json:"enable_on_subgraphs"        yaml:"enable_on_subgraphs"`
	// Create an MLProgram format model (Core ML 5+) instead of a NeuralNetwork.
	MLProgram bool `json:"ml_program"                 yaml:"ml_program"`
}

// Flags packs the options into the provider's flag word.
func (o CoreMLOptions) Flags() uint32 {
	var flags uint32
	if o.CPUOnly {
		flags |= coreMLFlagUseCPUOnly
	}
	if o.EnableOnSubgraphs {
		flags |= coreMLFlagEnableOnSubgraph
	}
	if o.RequireNeuralEngine {
		flags |= coreMLFlagOnlyEnableDeviceWithANE
	}
	if o.RequireStaticInputShapes {
		flags |= coreMLFlagOnlyStaticInputShapes
	}
	if o.MLProgram {
		flags |= coreMLFlagCreateMLProgram
	}
	return flags
}
