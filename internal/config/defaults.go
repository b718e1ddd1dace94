package config

import "time"

// Built-in defaults.  ApplyDefaults writes these into any field the
// caller left unset.
const (
	DefaultServerPort     = 8080
	DefaultServerMode     = "debug"
	DefaultRateLimitRPS   = 50
	DefaultRateLimitBurst = 100

	DefaultTableArtifact   = "orthogroups.tsv"
	DefaultSpeciesArtifact = "species.tsv"
	DefaultTreeArtifact    = "tree.nwk"
	DefaultDelimiter       = "\t"

	DefaultDataSourceKind = "fs"
	DefaultDataSourceRoot = "./data"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "orthoatlas"
	DefaultKafkaBroker   = "localhost:9092"
	DefaultKafkaClientID = "orthoatlas"

	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "orthoatlas"
)

// fill writes def into *dst only when *dst still holds the zero value,
// so explicit configuration always wins.
func fill[T comparable](dst *T, def T) {
	var zero T
	if *dst == zero {
		*dst = def
	}
}

func fillList(dst *[]string, def ...string) {
	if len(*dst) == 0 {
		*dst = def
	}
}

// ApplyDefaults fills every unset field in cfg with the engine default.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	fill(&cfg.Server.Port, DefaultServerPort)
	fill(&cfg.Server.Mode, DefaultServerMode)
	fill(&cfg.Server.ReadTimeout, 15*time.Second)
	fill(&cfg.Server.WriteTimeout, 15*time.Second)
	fill(&cfg.Server.MaxBodySize, 4<<20)
	fill(&cfg.Server.ShutdownTimeout, 10*time.Second)

	fill(&cfg.Dataset.TableArtifact, DefaultTableArtifact)
	fill(&cfg.Dataset.SpeciesArtifact, DefaultSpeciesArtifact)
	fill(&cfg.Dataset.TreeArtifact, DefaultTreeArtifact)
	fill(&cfg.Dataset.Delimiter, DefaultDelimiter)
	fill(&cfg.Dataset.LoadTimeout, 60*time.Second)

	fill(&cfg.DataSource.Kind, DefaultDataSourceKind)
	if cfg.DataSource.Kind == "fs" {
		fill(&cfg.DataSource.Root, DefaultDataSourceRoot)
	}

	fill(&cfg.MinIO.Endpoint, DefaultMinIOEndpoint)
	fill(&cfg.MinIO.Bucket, DefaultMinIOBucket)

	fillList(&cfg.Kafka.Brokers, DefaultKafkaBroker)
	fill(&cfg.Kafka.ClientID, DefaultKafkaClientID)
	fill(&cfg.Kafka.WriteTimeout, 5*time.Second)

	fill(&cfg.Log.Level, DefaultLogLevel)
	fill(&cfg.Log.Format, DefaultLogFormat)
	fillList(&cfg.Log.OutputPaths, "stdout")
	fillList(&cfg.Log.ErrorOutputPaths, "stderr")

	fill(&cfg.Metrics.Path, DefaultMetricsPath)
	fill(&cfg.Metrics.Namespace, DefaultMetricsNamespace)

	fill(&cfg.RateLimit.RPS, DefaultRateLimitRPS)
	fill(&cfg.RateLimit.Burst, DefaultRateLimitBurst)
}
