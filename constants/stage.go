package constants

// Stage is the canonical pipeline stage for a run.
type Stage string

// Stable values (these exact strings appear in logs and run reports).
const (
	StageIdle        Stage = "IDLE"
	StageRasterizing Stage = "RASTERIZING"
	StageDetecting   Stage = "DETECTING"
	StageExtracting  Stage = "EXTRACTING"
	StageNormalizing Stage = "NORMALIZING"
	StagePersisting  Stage = "PERSISTING"
	StageDone        Stage = "DONE"
	StageFailed      Stage = "FAILED"
)
