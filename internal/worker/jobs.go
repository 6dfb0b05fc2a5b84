package worker

import "context"

// StateWriter performs one remote write of a serialized game state.
// The persistence gateway implements it; this keeps worker free of its imports.
type StateWriter interface {
	WriteState(ctx context.Context, seq uint64, data []byte) error
}

// SaveStateJob is a debounced remote write. Seq orders writes so an older
// snapshot never replaces a newer one.
type SaveStateJob struct {
	Writer StateWriter
	Seq    uint64
	Data   []byte
}

func (j *SaveStateJob) Name() string { return "save_game_state" }

func (j *SaveStateJob) Run(ctx context.Context) error {
	return j.Writer.WriteState(ctx, j.Seq, j.Data)
}
