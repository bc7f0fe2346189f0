// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"helpdesk-go/internal/config"
	"helpdesk-go/internal/handler"
	"helpdesk-go/internal/middleware"
	"helpdesk-go/internal/pipeline"
	"helpdesk-go/internal/repository"
	"helpdesk-go/internal/service"
	"helpdesk-go/pkg/database"
	"helpdesk-go/pkg/es"
	"helpdesk-go/pkg/kafka"
	"helpdesk-go/pkg/llm"
	"helpdesk-go/pkg/log"
	"helpdesk-go/pkg/notify"
	"helpdesk-go/pkg/storage"
	"helpdesk-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 1. 初始化配置
	config.Init(*configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis 与可选的外部组件
	database.InitDB(cfg.Database)
	var blacklist repository.TokenBlacklist
	if cfg.Database.Redis.Addr != "" {
		database.InitRedis(cfg.Database.Redis)
		blacklist = repository.NewTokenBlacklist(database.RDB)
	} else {
		log.Warnf("未配置 Redis，登出后的 token 在过期前仍然有效")
	}

	var objects storage.ObjectStore
	if cfg.MinIO.Endpoint != "" {
		store, err := storage.NewMinIO(cfg.MinIO)
		if err != nil {
			log.Fatal("MinIO 初始化失败", err)
		}
		objects = store
	}

	var ticketIndex es.TicketIndex
	if cfg.Elasticsearch.Addresses != "" {
		idx, err := es.NewTicketIndex(cfg.Elasticsearch)
		if err != nil {
			// 检索是可选功能，失败时只禁用检索
			log.Errorf("Elasticsearch 初始化失败，工单检索已禁用: %v", err)
		} else {
			ticketIndex = idx
		}
	}

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	ticketRepo := repository.NewTicketRepository(database.DB)
	recordRepo := repository.NewRecordRepository(database.DB)

	source, err := repository.NewRecordSource(cfg.Recommend.Corpus, recordRepo)
	if err != nil {
		log.Fatal("语料来源配置错误", err)
	}
	snapshots, err := repository.NewSnapshotStore(cfg.Recommend.Snapshot, objects)
	if err != nil {
		log.Fatal("快照存储配置错误", err)
	}

	// 5. 初始化 Service (依赖注入)
	var synth llm.Synthesizer
	if s, err := llm.NewSynthesizer(cfg.LLM); err == nil {
		synth = s
	} else if errors.Is(err, llm.ErrNotConfigured) {
		log.Warnf("未配置文本生成服务，增强推荐将返回原始结果")
	} else {
		log.Fatal("文本生成服务配置错误", err)
	}

	recommendService, err := service.NewRecommendationService(context.Background(), service.RecommendationConfig{
		Source:       source,
		Snapshots:    snapshots,
		Synthesizer:  synth,
		Options:      cfg.Recommend.EngineOptions(),
		SystemPrompt: cfg.LLM.Prompt.System,
	})
	if err != nil {
		log.Fatal("推荐引擎初始化失败", err)
	}

	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	userService := service.NewUserService(userRepo, blacklist, jwtManager)
	if err := userService.EnsureAdmin(cfg.Admin); err != nil {
		log.Fatal("创建管理员账号失败", err)
	}

	// 6. 语料重建：配置 Kafka 时经由消息队列，否则在进程内执行
	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()

	processor := pipeline.NewProcessor(recommendService)
	var dispatcher service.RebuildDispatcher
	var producer *kafka.Producer
	var local *pipeline.LocalDispatcher
	if cfg.Kafka.Enabled() {
		if database.RDB == nil {
			log.Fatalf("启用 Kafka 时必须配置 Redis 以记录重试次数")
		}
		producer = kafka.NewProducer(cfg.Kafka)
		dispatcher = producer
		go kafka.StartConsumer(bgCtx, cfg.Kafka, processor, kafka.NewRedisAttemptTracker(database.RDB))
	} else {
		local = pipeline.NewLocalDispatcher(processor)
		local.Start(bgCtx)
		dispatcher = local
	}

	scheduler, err := pipeline.NewScheduler(cfg.Recommend.RebuildSchedule, dispatcher)
	if err != nil {
		log.Fatal("定时重建配置错误", err)
	}
	if scheduler != nil {
		scheduler.Start()
	}

	notifier := notify.NewNotifier(cfg.Slack)
	ticketService := service.NewTicketService(ticketRepo, recommendService, notifier, dispatcher, ticketIndex)
	adminService := service.NewAdminService(userRepo, ticketRepo, recordRepo, ticketService, recommendService, dispatcher, ticketIndex)

	// 7. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	handler.RegisterRoutes(r, handler.Services{
		User:           userService,
		Ticket:         ticketService,
		Admin:          adminService,
		Recommendation: recommendService,
		JWT:            jwtManager,
	})

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}

	if scheduler != nil {
		scheduler.Stop()
	}
	cancelBg()
	if local != nil {
		// 等待进行中的重建退出，避免快照写到一半进程就结束
		local.Wait()
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Errorf("关闭 Kafka 生产者失败: %v", err)
		}
	}
	log.Info("服务已优雅关闭")
}
