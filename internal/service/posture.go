package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"wisefido-posture/internal/classifier"
	"wisefido-posture/internal/config"
	"wisefido-posture/internal/consumer"
	"wisefido-posture/internal/gate"
	"wisefido-posture/internal/models"
	"wisefido-posture/internal/publisher"
	"wisefido-posture/internal/repository"
	"wisefido-posture/internal/session"
	"wisefido-posture/internal/telemetry"
	"wisefido-posture/internal/tracker"
	"wisefido-posture/internal/warning"

	"wisefido-posture/internal/common/database"
	mqttcommon "wisefido-posture/internal/common/mqtt"
	rediscommon "wisefido-posture/internal/common/redis"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PostureService 姿态监测服务（整合各层）
//
// 管线所有者：显式构造并持有每个组件，数据单向流动
// 采集 → 帧门限 → 分类器 → 状态跟踪器 → {警告调度器, 会话聚合}。
// 资源遥测监控器独立运行，向帧门限提供帧率信号。
type PostureService struct {
	config      *config.Config
	logger      *zap.Logger
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqttcommon.Client

	// 跨会话组件
	monitor           *telemetry.Monitor
	frameGate         *gate.FrameGate
	statePublisher    *publisher.StatePublisher
	sessionRepo       *repository.SessionRepository
	captureConsumer   *consumer.CaptureConsumer
	telemetryConsumer *consumer.TelemetryConsumer

	// 会话状态（单写者：跟踪器/调度器的变更串行化在此锁后）
	mu             sync.Mutex
	activeSession  *models.WorkSession
	postureTracker *tracker.PostureTracker
	warningSched   *warning.Scheduler

	lastAccepted uint64
	cancelLoop   context.CancelFunc
	wg           sync.WaitGroup
}

// NewPostureService 创建姿态监测服务
func NewPostureService(cfg *config.Config, logger *zap.Logger) (*PostureService, error) {
	// 1. 连接数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 2. 连接 Redis
	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(context.Background(), redisClient); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// 3. 连接 MQTT
	mqttClient, err := mqttcommon.NewClient(&cfg.MQTT, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect MQTT broker: %w", err)
	}

	s := &PostureService{
		config:      cfg,
		logger:      logger,
		db:          db,
		redisClient: redisClient,
		mqttClient:  mqttClient,
	}

	// 4. 创建跨会话组件
	reduceWindow := time.Duration(cfg.Posture.ReduceQualityWindowSeconds) * time.Second
	s.monitor = telemetry.NewMonitor(reduceWindow, logger)

	recoveryDelay := time.Duration(cfg.Posture.RecoveryDelaySeconds) * time.Second
	s.frameGate = gate.NewFrameGate(s.monitor, recoveryDelay, logger)

	s.statePublisher = publisher.NewStatePublisher(cfg, redisClient, logger)
	s.sessionRepo = repository.NewSessionRepository(db, logger)

	// 5. 创建消费者
	s.captureConsumer = consumer.NewCaptureConsumer(cfg, mqttClient, s, logger)
	s.telemetryConsumer = consumer.NewTelemetryConsumer(cfg, mqttClient, s.monitor, logger)

	return s, nil
}

// Start 启动服务
func (s *PostureService) Start(ctx context.Context) error {
	s.logger.Info("Starting posture service")

	if err := s.captureConsumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start capture consumer: %w", err)
	}
	if err := s.telemetryConsumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start telemetry consumer: %w", err)
	}

	// 遥测快照发布循环（固定周期，与帧到达无关）
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancelLoop = cancel
	s.wg.Add(1)
	go s.telemetryLoop(loopCtx)

	return nil
}

// Stop 停止服务
func (s *PostureService) Stop() error {
	s.logger.Info("Stopping posture service")

	if s.cancelLoop != nil {
		s.cancelLoop()
	}
	s.wg.Wait()

	// 进行中的会话按正常停止流程定稿
	s.mu.Lock()
	active := s.activeSession
	s.mu.Unlock()
	if active != nil {
		if err := s.StopSession(active.DeviceID, time.Now()); err != nil {
			s.logger.Error("Failed to stop active session", zap.Error(err))
		}
	}

	if err := s.captureConsumer.Stop(); err != nil {
		s.logger.Error("Failed to stop capture consumer", zap.Error(err))
	}
	if err := s.telemetryConsumer.Stop(); err != nil {
		s.logger.Error("Failed to stop telemetry consumer", zap.Error(err))
	}

	s.mqttClient.Disconnect()

	if err := s.redisClient.Close(); err != nil {
		s.logger.Error("Failed to close redis", zap.Error(err))
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database", zap.Error(err))
	}

	return nil
}

// StartSession 开始一次工作会话
// 每个会话使用新的跟踪器和警告调度器（历史随会话生命周期）
func (s *PostureService) StartSession(deviceID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeSession != nil {
		return fmt.Errorf("session already active for device: %s", s.activeSession.DeviceID)
	}

	workSession := &models.WorkSession{
		SessionID: uuid.New().String(),
		DeviceID:  deviceID,
		StartTime: at,
	}
	s.activeSession = workSession

	threshold := time.Duration(s.config.Posture.WarningThresholdSeconds) * time.Second
	s.warningSched = warning.NewScheduler(threshold, s.makeWarningHandler(workSession), s.logger)

	minSignificant := time.Duration(s.config.Posture.MinIntervalSeconds * float64(time.Second))
	s.postureTracker = tracker.NewPostureTracker(minSignificant, s.makeTransitionHandler(workSession), s.logger)

	s.frameGate.Start()

	s.logger.Info("Work session started",
		zap.String("session_id", workSession.SessionID),
		zap.String("device_id", deviceID),
	)

	return nil
}

// StopSession 结束当前工作会话
//
// 有序关闭：帧门限停止接受帧 → 跟踪器定稿进行中的区间 →
// 警告调度器取消待定定时器；然后聚合统计、持久化、发布。
func (s *PostureService) StopSession(deviceID string, at time.Time) error {
	s.mu.Lock()

	if s.activeSession == nil {
		s.mu.Unlock()
		return fmt.Errorf("no active session")
	}
	if s.activeSession.DeviceID != deviceID {
		s.mu.Unlock()
		return fmt.Errorf("session belongs to another device: %s", s.activeSession.DeviceID)
	}

	workSession := s.activeSession
	postureTracker := s.postureTracker
	warningSched := s.warningSched
	s.activeSession = nil
	s.postureTracker = nil
	s.warningSched = nil
	s.mu.Unlock()

	s.frameGate.Stop()
	postureTracker.Stop(at)
	warningSched.Stop()

	workSession.Duration = at.Sub(workSession.StartTime)
	workSession.PostureIntervals = postureTracker.History()

	stats := session.Aggregate(workSession.PostureIntervals, workSession.Duration)

	ctx := context.Background()
	if err := s.sessionRepo.CreateWorkSession(ctx, workSession, &stats); err != nil {
		// 持久化失败不阻止会话结束，统计仍然发布
		s.logger.Error("Failed to persist work session",
			zap.String("session_id", workSession.SessionID),
			zap.Error(err),
		)
	}

	completed := &models.SessionCompletedEvent{
		Session:     *workSession,
		Statistics:  stats,
		CompletedAt: at.UnixMilli(),
	}
	if err := s.statePublisher.PublishSessionCompleted(ctx, completed); err != nil {
		s.logger.Error("Failed to publish session completed event",
			zap.String("session_id", workSession.SessionID),
			zap.Error(err),
		)
	}

	s.logger.Info("Work session stopped",
		zap.String("session_id", workSession.SessionID),
		zap.Duration("duration", workSession.Duration),
		zap.Float64("health_score", stats.HealthScore),
		zap.Int("interval_count", len(workSession.PostureIntervals)),
	)

	return nil
}

// HandleFrame 处理一帧采集观测（热路径）
// 帧门限是唯一仲裁者：通过门限的帧才进入分类
func (s *PostureService) HandleFrame(deviceID string, at time.Time, geometry *models.FaceGeometry, providerError string) {
	s.mu.Lock()
	workSession := s.activeSession
	postureTracker := s.postureTracker
	s.mu.Unlock()

	if workSession == nil || workSession.DeviceID != deviceID {
		return
	}

	if providerError != "" {
		// 几何检测器失败：跳过该帧，门限单方面退避
		s.logger.Warn("Geometry provider error, skipping frame",
			zap.String("device_id", deviceID),
			zap.String("error", providerError),
		)
		s.frameGate.OnClassifierError()
		return
	}

	if !s.frameGate.ShouldProcess(at) {
		return
	}

	category := classifier.Classify(geometry, s.frameGate.Detail())
	postureTracker.OnClassification(category, at)
}

// makeTransitionHandler 构建分类切换回调
// 切换时通知警告调度器并刷新实时姿态键
func (s *PostureService) makeTransitionHandler(workSession *models.WorkSession) tracker.TransitionFunc {
	return func(from, to models.PostureCategory, at time.Time) {
		s.mu.Lock()
		warningSched := s.warningSched
		postureTracker := s.postureTracker
		s.mu.Unlock()

		if warningSched != nil {
			warningSched.OnPostureChanged(to, at)
		}

		event := &models.PostureStateEvent{
			DeviceID:  workSession.DeviceID,
			SessionID: workSession.SessionID,
			Category:  to,
			Since:     at.UnixMilli(),
			UpdatedAt: at.UnixMilli(),
		}
		if postureTracker != nil {
			if badStart := postureTracker.BadPostureStart(); badStart != nil {
				badSince := badStart.UnixMilli()
				event.BadPostureSince = &badSince
			}
		}

		if err := s.statePublisher.PublishPostureState(context.Background(), event); err != nil {
			s.logger.Error("Failed to publish posture state",
				zap.String("device_id", workSession.DeviceID),
				zap.Error(err),
			)
		}
	}
}

// makeWarningHandler 构建警告回调
func (s *PostureService) makeWarningHandler(workSession *models.WorkSession) warning.WarningFunc {
	return func(category models.PostureCategory, unhealthyFor time.Duration) {
		event := &models.WarningEvent{
			EventID:            uuid.New().String(),
			DeviceID:           workSession.DeviceID,
			SessionID:          workSession.SessionID,
			Category:           category,
			BadPostureDuration: unhealthyFor.Seconds(),
			FiredAt:            time.Now().UnixMilli(),
		}
		if err := s.statePublisher.PublishWarning(context.Background(), event); err != nil {
			s.logger.Error("Failed to publish warning event",
				zap.String("device_id", workSession.DeviceID),
				zap.Error(err),
			)
		}
	}
}

// telemetryLoop 周期发布遥测快照并回报实际处理帧率
func (s *PostureService) telemetryLoop(ctx context.Context) {
	defer s.wg.Done()

	interval := time.Duration(s.config.Posture.TelemetryPublishSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			accepted, _ := s.frameGate.Stats()
			var delta uint64
			if accepted >= s.lastAccepted {
				delta = accepted - s.lastAccepted
			}
			s.lastAccepted = accepted
			s.monitor.SetCurrentFrameRate(float64(delta) / interval.Seconds())

			s.mu.Lock()
			workSession := s.activeSession
			s.mu.Unlock()
			if workSession == nil {
				continue
			}

			snapshot := s.monitor.Snapshot()
			if err := s.statePublisher.PublishTelemetry(ctx, workSession.DeviceID, snapshot); err != nil {
				s.logger.Error("Failed to publish telemetry snapshot",
					zap.String("device_id", workSession.DeviceID),
					zap.Error(err),
				)
			}
		}
	}
}
