// Package kafka re-publishes decoded tuples to a Kafka topic as JSON.
package kafka

import (
	"fmt"

	"github.com/IBM/sarama"

	"avroflow/internal/logging"
	"avroflow/internal/stream"
	"avroflow/internal/telemetry"
	"avroflow/sink"
)

type Config struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Acks    int16    `yaml:"required_acks"` // 0,1,-1
}

type driver struct {
	cfg     Config
	p       sarama.AsyncProducer
	drained chan struct{}
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-sink: expected Config, got %T", c)
	}
	d.cfg = cfg

	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Acks)
	sc.Producer.Return.Errors = true
	var err error
	d.p, err = sarama.NewAsyncProducer(cfg.Brokers, sc)
	if err != nil {
		return err
	}

	d.drained = make(chan struct{})
	go d.drainErrors()
	return nil
}

// drainErrors keeps the producer's error channel empty so Input never
// wedges when the broker is down. Failures are counted and logged, not
// retried.
func (d *driver) drainErrors() {
	defer close(d.drained)
	for perr := range d.p.Errors() {
		telemetry.SinkErrors("kafka").Inc()
		logging.L().Error("kafka-sink: delivery failed",
			"topic", perr.Msg.Topic, "err", perr.Err)
	}
}

func (d *driver) Push(t *stream.Tuple) error {
	value, err := sink.EncodeTuple(t)
	if err != nil {
		return err
	}
	key, err := sink.EncodeKey(t)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: d.cfg.Topic,
		Value: sarama.ByteEncoder(value),
	}
	if key != nil {
		msg.Key = sarama.ByteEncoder(key)
	}
	d.p.Input() <- msg
	return nil
}

func (d *driver) Close() error {
	err := d.p.Close()
	if d.drained != nil {
		<-d.drained
	}
	return err
}

func init() { sink.Register("kafka", func() sink.Adapter { return &driver{} }) }
