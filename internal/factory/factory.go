package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"

	"fraudengine/internal/analytics"
	"fraudengine/internal/bucketing"
	"fraudengine/internal/checks"
	"fraudengine/internal/cidrtool"
	"fraudengine/internal/client"
	"fraudengine/internal/config"
	"fraudengine/internal/dnsresolve"
	"fraudengine/internal/encryption"
	"fraudengine/internal/evaluator"
	"fraudengine/internal/hashing"
	"fraudengine/internal/refresh"
	"fraudengine/internal/repository/postgres"
	"fraudengine/internal/repository/redis"
	"fraudengine/internal/tls"
	"fraudengine/internal/util"
)

// Factory manages the lifecycle of all application dependencies.
type Factory struct {
	config     *config.Config
	tlsManager *tls.TLSManager

	redisClient      *client.RedisClient
	postgresClient   *client.PostgresClient
	kafkaProducer    *client.KafkaProducer
	esClient         *client.ESClient
	clickhouseClient *client.ClickHouseClient

	hasher            *hashing.Hasher
	encryptionManager *encryption.EncryptionManager
	bucketingManager  *bucketing.Manager
	asnRanger         *cidrtool.ASNRanger
	dnsResolver       *dnsresolve.Resolver

	referenceRepo *postgres.ReferenceRepository
	auditRepo     *postgres.AuditRepository

	referenceCache *redis.ReferenceCache
	velocityCache  *redis.VelocityCache
	refreshLock    *redis.RefreshLock

	analyticsSink *analytics.Sink
	registry      *checks.Registry
	evaluator     *evaluator.Evaluator
	pipeline      *refresh.Pipeline

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory creates and initializes every application dependency.
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	factory := &Factory{
		config: cfg,
		closed: make(chan struct{}),
	}

	if cfg.Server.EnableTLS {
		tlsConfig := &tls.TLSConfig{
			EnableTLS:   cfg.Server.EnableTLS,
			AutoCert:    cfg.Server.AutoCert,
			Domain:      cfg.Server.Domain,
			CertFile:    cfg.Server.CertFile,
			KeyFile:     cfg.Server.KeyFile,
			AutoCertDir: cfg.Server.AutoCertDir,
			Email:       cfg.Server.Email,
			Environment: cfg.Environment,
		}
		factory.tlsManager = tls.NewTLSManager(tlsConfig)
	}

	if err := factory.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	if err := factory.initializeManagers(); err != nil {
		return nil, fmt.Errorf("failed to initialize managers: %w", err)
	}

	factory.initializeRepositories()
	factory.initializeEvaluator()
	factory.initializePipeline()

	if err := factory.loadASNRanges(); err != nil {
		util.Warn("factory: failed to preload asn ranges", util.ErrorField(err))
	}

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("kms_enabled", cfg.KMS.Enabled),
	)

	return factory, nil
}

func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var initErrors []error

	if c, err := client.NewRedisClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
	} else {
		f.redisClient = c
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis health check: %w", err))
		} else {
			util.Info("Redis client initialized and healthy")
		}
	}

	if c, err := client.NewPostgresClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("postgres: %w", err))
	} else {
		f.postgresClient = c
		if err := f.postgresClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("postgres health check: %w", err))
		} else {
			util.Info("Postgres client initialized and healthy")
		}
	}

	if producer, err := client.NewKafkaProducer(f.config, util.Get()); err != nil {
		util.Warn("Kafka producer initialization failed - proceeding without Kafka", util.ErrorField(err))
	} else {
		f.kafkaProducer = producer
		util.Info("Kafka producer initialized")
	}

	if c, err := client.NewElasticsearchClient(f.config, util.Get()); err != nil {
		util.Warn("Elasticsearch client initialization failed - proceeding without analytics search", util.ErrorField(err))
	} else {
		f.esClient = c
		if err := f.esClient.HealthCheck(); err != nil {
			util.Warn("Elasticsearch health check failed", util.ErrorField(err))
		} else {
			util.Info("Elasticsearch client initialized and healthy")
		}
	}

	if c, err := client.NewClickHouseClient(f.config, util.Get()); err != nil {
		util.Warn("ClickHouse client initialization failed - proceeding without analytics warehouse", util.ErrorField(err))
	} else {
		f.clickhouseClient = c
		if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			util.Warn("ClickHouse health check failed", util.ErrorField(err))
		} else {
			util.Info("ClickHouse client initialized and healthy")
		}
	}

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %v", initErrors)
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}

	return nil
}

// initializeManagers wires C1 (Hasher), C2 (ASN ranger, DNS resolver),
// and the envelope-encryption manager, pulling a real AWS KMS client
// when KMS.Enabled rather than the teacher's always-nil placeholder.
func (f *Factory) initializeManagers() error {
	f.hasher = hashing.NewHasher(f.config)
	f.bucketingManager = bucketing.NewManager(f.config)
	f.asnRanger = cidrtool.NewASNRanger()
	f.dnsResolver = dnsresolve.NewResolver("1.1.1.1:53", 3*time.Second)

	var kmsClient *kms.Client
	if f.config.KMS.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(f.config.KMS.Region))
		if err != nil {
			return fmt.Errorf("load aws config for kms: %w", err)
		}
		kmsClient = kms.NewFromConfig(awsCfg, func(o *kms.Options) {
			if f.config.KMS.Region != "" {
				o.Region = f.config.KMS.Region
			}
		})
	}
	f.encryptionManager = encryption.NewEncryptionManager(f.config, kmsClient)

	util.Info("Managers initialized successfully",
		util.Bool("hashing_initialized", f.hasher != nil),
		util.Bool("encryption_initialized", f.encryptionManager != nil),
		util.Bool("bucketing_initialized", f.bucketingManager != nil),
	)
	return nil
}

func (f *Factory) initializeRepositories() {
	f.referenceRepo = postgres.NewReferenceRepository(f.postgresClient)
	f.auditRepo = postgres.NewAuditRepository(f.postgresClient)

	f.referenceCache = redis.NewReferenceCache(f.redisClient)
	f.velocityCache = redis.NewVelocityCache(f.redisClient, f.bucketingManager)
	f.refreshLock = redis.NewRefreshLock(f.redisClient)
}

// initializeEvaluator wires C5's six checks into the Registry (C8's
// fan-out source list) and assembles the Evaluator on top of it.
func (f *Factory) initializeEvaluator() {
	fraudCfg := f.config.Fraud
	ttl := fraudCfg.CacheTTL

	geo := checks.NewASNGeoLookup(f.asnRanger, f.referenceRepo)
	ageLookup := checks.NewRDAPAgeLookup()

	var enabledChecks []checks.Check
	if fraudCfg.ChecksEnabled.Email {
		enabledChecks = append(enabledChecks, checks.NewEmailCheck(f.hasher, f.referenceCache, f.referenceRepo, f.auditRepo, f.dnsResolver, ttl.DisposableDomain))
	}
	if fraudCfg.ChecksEnabled.Domain {
		enabledChecks = append(enabledChecks, checks.NewDomainCheck(f.hasher, f.referenceCache, f.referenceRepo, f.auditRepo, f.dnsResolver, f.dnsResolver, ageLookup, ttl.DisposableDomain))
	}
	if fraudCfg.ChecksEnabled.IP {
		enabledChecks = append(enabledChecks, checks.NewIPCheck(f.hasher, f.referenceCache, f.referenceRepo, f.asnRanger, f.velocityCache, geo, ttl.ASNInfo))
	}
	if fraudCfg.ChecksEnabled.CreditCard {
		enabledChecks = append(enabledChecks, checks.NewCreditCardCheck(f.hasher, f.referenceCache, f.referenceRepo, f.velocityCache, ttl.Blacklist))
	}
	if fraudCfg.ChecksEnabled.Phone {
		enabledChecks = append(enabledChecks, checks.NewPhoneCheck(f.hasher, f.referenceCache, f.referenceRepo, f.velocityCache, fraudCfg.DisposablePhonePrefixes, ttl.Blacklist))
	}
	if fraudCfg.ChecksEnabled.UserAgent {
		enabledChecks = append(enabledChecks, checks.NewUserAgentCheck(f.referenceCache, f.referenceRepo, f.velocityCache, ttl.Blacklist))
	}

	f.registry = checks.NewRegistry(enabledChecks...)
	f.analyticsSink = analytics.NewSink(f.esClient, f.config.Elasticsearch.Index, f.clickhouseClient, "fraud_events")

	f.evaluator = evaluator.NewEvaluator(
		f.registry,
		f.hasher,
		f.encryptionManager,
		f.postgresClient,
		f.auditRepo,
		f.kafkaProducer,
		f.config.Kafka.HighRiskTopic,
		f.analyticsSink,
		&fraudCfg,
	)
}

func (f *Factory) initializePipeline() {
	f.pipeline = refresh.NewPipeline(f.refreshLock, f.referenceRepo, f.config.Fraud.RefreshSchedule, f.config.Fraud.RefreshSources)
}

// loadASNRanges primes the in-process ASN ranger from whatever the
// reference tables already hold, so IP lookups work immediately after
// startup rather than waiting for the next refresh run.
func (f *Factory) loadASNRanges() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	asns, err := f.referenceRepo.ListActiveASNs(ctx)
	if err != nil {
		return fmt.Errorf("list active asns: %w", err)
	}
	ranges := make(map[int64][]string, len(asns))
	for _, a := range asns {
		if len(a.IPRanges) > 0 {
			ranges[a.ASNumber] = a.IPRanges
		}
	}
	return f.asnRanger.Load(ranges)
}

// ==============================
// Health Checks
// ==============================

func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	healthErrors := make(map[string]error)

	if f.redisClient != nil {
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			healthErrors["redis"] = err
		}
	} else {
		healthErrors["redis"] = fmt.Errorf("redis client not initialized")
	}

	if f.postgresClient != nil {
		if err := f.postgresClient.HealthCheck(ctx); err != nil {
			healthErrors["postgres"] = err
		}
	} else {
		healthErrors["postgres"] = fmt.Errorf("postgres client not initialized")
	}

	if f.esClient != nil {
		if err := f.esClient.HealthCheck(); err != nil {
			healthErrors["elasticsearch"] = err
		}
	}

	if f.clickhouseClient != nil {
		if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			healthErrors["clickhouse"] = err
		}
	}

	if f.kafkaProducer != nil {
		if err := f.kafkaProducer.HealthCheck(ctx); err != nil {
			healthErrors["kafka"] = err
		}
	}

	if f.hasher == nil {
		healthErrors["hasher"] = fmt.Errorf("hasher not initialized")
	}
	if f.encryptionManager == nil {
		healthErrors["encryption"] = fmt.Errorf("encryption manager not initialized")
	}
	if f.bucketingManager == nil {
		healthErrors["bucketing"] = fmt.Errorf("bucketing manager not initialized")
	}

	return healthErrors
}

func (f *Factory) IsHealthy(ctx context.Context) bool {
	healthErrors := f.HealthCheck(ctx)
	delete(healthErrors, "kafka")
	delete(healthErrors, "elasticsearch")
	delete(healthErrors, "clickhouse")
	return len(healthErrors) == 0
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory...")

		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse client", util.ErrorField(err))
			} else {
				util.Info("ClickHouse client closed")
			}
		}

		if f.esClient != nil {
			f.esClient.Close()
			util.Info("Elasticsearch client closed")
		}

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			} else {
				util.Info("Kafka producer closed")
			}
		}

		if f.postgresClient != nil {
			if err := f.postgresClient.Close(); err != nil {
				util.Error("Failed to close Postgres client", util.ErrorField(err))
			} else {
				util.Info("Postgres client closed")
			}
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			} else {
				util.Info("Redis client closed")
			}
		}

		if f.encryptionManager != nil {
			f.encryptionManager.ClearCache()
			util.Info("Encryption manager cache cleared")
		}

		util.Sync()
		util.Info("Factory shutdown completed")
	})

	return nil
}

func (f *Factory) WaitForClose() {
	<-f.closed
}

// ==============================
// Getters
// ==============================

func (f *Factory) Config() *config.Config                         { return f.config }
func (f *Factory) TLSManager() *tls.TLSManager                    { return f.tlsManager }
func (f *Factory) Hasher() *hashing.Hasher                        { return f.hasher }
func (f *Factory) EncryptionManager() *encryption.EncryptionManager { return f.encryptionManager }
func (f *Factory) BucketingManager() *bucketing.Manager            { return f.bucketingManager }
func (f *Factory) PostgresClient() *client.PostgresClient          { return f.postgresClient }
func (f *Factory) RedisClient() *client.RedisClient                { return f.redisClient }
func (f *Factory) ReferenceRepository() *postgres.ReferenceRepository { return f.referenceRepo }
func (f *Factory) AuditRepository() *postgres.AuditRepository      { return f.auditRepo }
func (f *Factory) Evaluator() *evaluator.Evaluator                 { return f.evaluator }
func (f *Factory) RefreshPipeline() *refresh.Pipeline               { return f.pipeline }
