package kafka

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"avroflow/internal/telemetry"
)

// fakeProducer stubs only the parts of the async producer the error drain
// touches.
type fakeProducer struct {
	sarama.AsyncProducer
	errs chan *sarama.ProducerError
}

func (f *fakeProducer) Errors() <-chan *sarama.ProducerError { return f.errs }

func TestDriver_CountsDeliveryFailures(t *testing.T) {
	base := testutil.ToFloat64(telemetry.SinkErrors("kafka"))

	fp := &fakeProducer{errs: make(chan *sarama.ProducerError, 2)}
	d := &driver{p: fp, drained: make(chan struct{})}
	go d.drainErrors()

	for i := 0; i < 2; i++ {
		fp.errs <- &sarama.ProducerError{
			Msg: &sarama.ProducerMessage{Topic: "out"},
			Err: sarama.ErrOutOfBrokers,
		}
	}
	close(fp.errs)
	<-d.drained

	if got := testutil.ToFloat64(telemetry.SinkErrors("kafka")) - base; got != 2 {
		t.Fatalf("want 2 delivery failures counted, got %v", got)
	}
}
