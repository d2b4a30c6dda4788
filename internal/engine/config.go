package engine

type Config struct {
	MetricsPort int
	PipelineYml string
}
