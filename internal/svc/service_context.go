package svc

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"nf-tickets-sol/internal/cache"
	"nf-tickets-sol/internal/config"
	"nf-tickets-sol/internal/ledger"
	"nf-tickets-sol/internal/logic/instruction"
	"nf-tickets-sol/internal/logic/pda"
	"nf-tickets-sol/internal/logic/pending"
	"nf-tickets-sol/internal/logic/reconcile"
	"nf-tickets-sol/internal/logic/recorder"
	"nf-tickets-sol/internal/logic/submitter"
	"nf-tickets-sol/internal/logic/ticketing"
	"nf-tickets-sol/internal/pkg/logger"
	"nf-tickets-sol/internal/pkg/metrics"
	"nf-tickets-sol/internal/pkg/mq"
	"nf-tickets-sol/internal/service"
	"nf-tickets-sol/internal/storage/postgres"
	"nf-tickets-sol/internal/types"
)

// ServiceContext 持有进程内共享的全部资源
type ServiceContext struct {
	Config    *config.Config
	Ledger    *ledger.RPCLedger
	Pool      *pgxpool.Pool
	Store     *postgres.Store
	Redis     redis.UniversalClient
	Producer  *kafka.Producer
	Journal   pending.Journal
	Queue     reconcile.Queue
	Metrics   *metrics.Metrics
	Ticketing *ticketing.Service
}

// NewServiceContext 按配置初始化依赖：
// Redis 未配置时提交记录与对账队列使用进程内实现；Kafka 未配置时不投递 Kafka。
func NewServiceContext(ctx context.Context, c *config.Config) (*ServiceContext, error) {
	programID, err := types.TryPubkeyFromBase58(c.SolanaConf.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("invalid solana.program_id: %w", err)
	}

	sc := &ServiceContext{
		Config:  c,
		Ledger:  ledger.NewRPCLedger(c.SolanaConf.RpcEndpoint),
		Metrics: metrics.New(),
	}

	// 1. PostgreSQL（含迁移）
	sc.Pool, err = postgres.NewPool(ctx, c.PostgresDSN)
	if err != nil {
		return nil, err
	}
	sc.Store = postgres.NewStore(sc.Pool)

	// 2. Redis：提交记录 + 对账队列
	if c.RedisAddr != "" {
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{c.RedisAddr}})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			sc.Close()
			_ = rdb.Close()
			return nil, fmt.Errorf("connect redis %s: %w", c.RedisAddr, err)
		}
		sc.Redis = rdb
		sc.Journal = pending.NewRedisJournal(rdb, time.Duration(c.ReconcileConf.PendingTTLHours)*time.Hour)
		sc.Queue = reconcile.NewRedisQueue(rdb)
	} else {
		logger.Warnf("[ServiceContext] 未配置 redis_addr, 提交记录与对账队列仅保存在进程内, 对账信号需要 Kafka 才算持久送达")
		sc.Journal = pending.NewMemoryJournal()
		sc.Queue = reconcile.NewMemoryQueue()
	}

	// 3. 对账信号出口
	sinks := []reconcile.Sink{reconcile.LogSink{}, sc.Queue}
	if c.KafkaProducerConf.Enabled() {
		producer, err := mq.NewKafkaProducer(c.KafkaProducerConf.ToKafkaOption())
		if err != nil {
			logger.Errorf("[ServiceContext] Kafka producer 初始化失败: %v", err)
			sc.Close()
			return nil, err
		}
		sc.Producer = producer
		sinks = append(sinks, reconcile.NewKafkaSink(producer,
			c.KafkaProducerConf.Topics.Reconcile,
			c.KafkaProducerConf.Partitions.Reconcile,
			time.Duration(c.KafkaProducerConf.SendTimeoutMs)*time.Millisecond))
	}

	// 4. 业务流程
	composer := instruction.NewComposer(sc.Ledger, pda.NewDeriver(programID), cache.NewManagerCache(c.SolanaConf.ManagerCacheSize))
	sub := submitter.New(sc.Ledger, submitter.Option{
		ConfirmTimeout: c.SolanaConf.ConfirmTimeout(),
		PollInterval:   c.SolanaConf.PollInterval(),
	}, sc.Metrics)
	rec := recorder.New(sc.Store, reconcile.NewFanout(sinks...), sc.Metrics)
	sc.Ticketing = ticketing.NewService(sc.Ledger, composer, sub, rec, sc.Journal)

	logger.Infof("[ServiceContext] 初始化完成, program=%s, rpc=%s, redis=%v, kafka=%v",
		programID, c.SolanaConf.RpcEndpoint, sc.Redis != nil, sc.Producer != nil)
	return sc, nil
}

// NewReconcileService 基于当前上下文构造后台对账任务
func (sc *ServiceContext) NewReconcileService() (*service.ReconcileService, error) {
	rc := sc.Config.ReconcileConf
	return service.NewReconcileService(sc.Ledger, sc.Queue, sc.Store, sc.Metrics, service.ReconcileOption{
		Interval:      time.Duration(rc.IntervalSec) * time.Second,
		BatchSize:     rc.BatchSize,
		WriteRetries:  rc.WriteRetries,
		AlertAttempts: int64(rc.AlertAttempts),
	})
}

// Close 关闭服务上下文中的资源
func (sc *ServiceContext) Close() {
	if sc.Producer != nil {
		sc.Producer.Flush(5_000)
		sc.Producer.Close()
	}
	if sc.Redis != nil {
		_ = sc.Redis.Close()
	}
	if sc.Pool != nil {
		sc.Pool.Close()
	}
}
