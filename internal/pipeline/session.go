package pipeline

import "avroflow/internal/stream"

// recordSession collects the tuples emitted while decoding one record, in
// emission order, and stamps them with the record's checkpoint.
type recordSession struct {
	checkpoint stream.Checkpoint
	tuples     []stream.Tuple
}

func newRecordSession(cp stream.Checkpoint) *recordSession {
	return &recordSession{checkpoint: cp}
}

func (s *recordSession) Give(t stream.Tuple) {
	t.Checkpoint = s.checkpoint
	s.tuples = append(s.tuples, t)
}
