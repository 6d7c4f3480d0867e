package main

import (
	"context"
	"fmt"
	"time"

	"workflow-intake/internal/common/audit"
	"workflow-intake/internal/common/aws"
	"workflow-intake/internal/common/config"
	"workflow-intake/internal/common/database"
	"workflow-intake/internal/common/logger"
	httptransport "workflow-intake/internal/transport/http"

	"go.uber.org/zap"
)

// auditSinks is the configured audit fan-out plus the readiness checks and
// closers of the clients behind it.
type auditSinks struct {
	Sink    *audit.MultiSink
	Checks  []httptransport.Check
	closers []func()
}

func (s *auditSinks) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func buildAuditSinks(ctx context.Context, cfg *config.Config, pg *database.PostgresClient, log logger.Logger, zapLog *zap.Logger) (*auditSinks, error) {
	out := &auditSinks{}
	var named []audit.NamedSink

	for _, name := range cfg.Audit.Sinks {
		switch name {
		case config.SinkLog:
			named = append(named, audit.NamedSink{Name: name, Sink: audit.NewLogSink(log)})

		case config.SinkPostgres:
			named = append(named, audit.NamedSink{Name: name, Sink: audit.NewPostgresSink(pg.DB)})

		case config.SinkElasticsearch:
			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return nil, err
			}
			err = retryWithBackoff(func() error { return es.Ping(ctx) }, 15, 2*time.Second, zapLog, "Elasticsearch connection")
			if err != nil {
				return nil, err
			}
			named = append(named, audit.NamedSink{Name: name, Sink: audit.NewElasticsearchSink(es, cfg.Audit.ElasticsearchIndex)})
			out.Checks = append(out.Checks, httptransport.Check{Name: name, Fn: es.Ping})

		case config.SinkRedis:
			redis := database.NewRedis(cfg.Database.Redis)
			err := retryWithBackoff(func() error { return redis.Ping(ctx) }, 10, 2*time.Second, zapLog, "Redis connection")
			if err != nil {
				redis.Close()
				return nil, err
			}
			named = append(named, audit.NamedSink{Name: name, Sink: audit.NewRedisStreamSink(redis, cfg.Audit.RedisStream)})
			out.Checks = append(out.Checks, httptransport.Check{Name: name, Fn: redis.Ping})
			out.closers = append(out.closers, func() { _ = redis.Close() })

		case config.SinkKafka:
			client, err := audit.NewKafkaClient(cfg.Audit.Kafka.Brokers, cfg.Audit.Kafka.Topic)
			if err != nil {
				return nil, err
			}
			named = append(named, audit.NamedSink{Name: name, Sink: audit.NewKafkaSink(client, cfg.Audit.Kafka.Topic)})
			out.Checks = append(out.Checks, httptransport.Check{Name: name, Fn: client.Ping})
			out.closers = append(out.closers, client.Close)

		case config.SinkSNS:
			publisher, err := aws.NewSNSClient(ctx, cfg.Audit.SNS.Region, cfg.Audit.SNS.TopicARN)
			if err != nil {
				return nil, err
			}
			named = append(named, audit.NamedSink{Name: name, Sink: audit.NewSNSSink(publisher)})

		default:
			return nil, fmt.Errorf("unknown audit sink %q", name)
		}
		zapLog.Info("Audit sink enabled", zap.String("sink", name))
	}

	out.Sink = audit.NewMultiSink(named...)
	return out, nil
}
