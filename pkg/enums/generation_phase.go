package enums

// GenerationPhase names a step of the document pipeline. It is reported on
// failures so callers know where a batch stopped.
type GenerationPhase string

const (
	GenerationPhaseValidating  GenerationPhase = "validating"
	GenerationPhaseLocking     GenerationPhase = "locking"
	GenerationPhaseEngineReady GenerationPhase = "engine_ready"
	GenerationPhaseRendering   GenerationPhase = "rendering"
	GenerationPhaseEncoding    GenerationPhase = "encoding"
	GenerationPhasePersisting  GenerationPhase = "persisting"
	GenerationPhasePersisted   GenerationPhase = "persisted"
	GenerationPhaseFailed      GenerationPhase = "failed"
)

func (p GenerationPhase) String() string {
	return string(p)
}
