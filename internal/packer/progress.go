package packer

// Stage names a step of pack or unpack.
type Stage string

const (
	StageValidate Stage = "validate"
	StageCollect  Stage = "collect"
	StageChecksum Stage = "checksum"
	StageArchive  Stage = "archive"
	StageWrite    Stage = "write"
	StageExtract  Stage = "extract"
)

// kind classifies an abort at this stage: stages that only read the source
// abort with KindReadError, stages that produce output with KindWriteError.
func (s Stage) kind() Kind {
	switch s {
	case StageValidate, StageCollect, StageChecksum:
		return KindReadError
	default:
		return KindWriteError
	}
}

// Progress is passed to the progress callback.
type Progress struct {
	Stage   Stage
	Current int
	Total   int
	Path    string
}

// ProgressFunc is called synchronously between steps. A returned error
// aborts the operation; it stays reachable through errors.Is and errors.As.
type ProgressFunc func(Progress) error

func (p *Packer) report(pr Progress) error {
	if p.progress == nil {
		return nil
	}
	if err := p.progress(pr); err != nil {
		return newError(pr.Stage.kind(), string(pr.Stage), pr.Path, "aborted by progress callback", err)
	}
	return nil
}
