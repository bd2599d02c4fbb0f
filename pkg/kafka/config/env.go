package kafka_config

const (
	EnvKafkaBrokers  = "KAFKA_BROKERS"
	EnvKafkaClientID = "KAFKA_CLIENT_ID"

	EnvKafkaProducerMaxAttempts   = "KAFKA_PRODUCER_MAX_ATTEMPTS"
	EnvKafkaProducerBatchTimeout  = "KAFKA_PRODUCER_BATCH_TIMEOUT"
	EnvKafkaProducerWriteTimeout  = "KAFKA_PRODUCER_WRITE_TIMEOUT"
	EnvKafkaProducerRequireAcks   = "KAFKA_PRODUCER_REQUIRE_ACKS"
	EnvKafkaProducerCompression   = "KAFKA_PRODUCER_COMPRESSION"
	EnvKafkaProducerDLQTopic      = "KAFKA_PRODUCER_DLQ_TOPIC"
	EnvKafkaProducerSchemaVersion = "KAFKA_PRODUCER_SCHEMA_VERSION"

	EnvKafkaEnableMiddleware = "KAFKA_ENABLE_MIDDLEWARE"
)
