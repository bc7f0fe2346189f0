package pipeline

import (
	"context"
	"fmt"
	"strings"

	"helpdesk-go/internal/service"
	"helpdesk-go/pkg/log"
	"helpdesk-go/pkg/tasks"

	"github.com/robfig/cron/v3"
)

// Scheduler 按 cron 表达式定期投递重建任务。
type Scheduler struct {
	cron       *cron.Cron
	dispatcher service.RebuildDispatcher
}

// NewScheduler 校验五段式 cron 表达式并创建调度器。schedule 为空时返回 nil。
func NewScheduler(schedule string, dispatcher service.RebuildDispatcher) (*Scheduler, error) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		return nil, nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("无效的重建计划 %q: %w", schedule, err)
	}
	s := &Scheduler{cron: cron.New(), dispatcher: dispatcher}
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, err
	}
	log.Infof("[Scheduler] 已启用定时语料重建: %s", schedule)
	return s, nil
}

func (s *Scheduler) tick() {
	task := service.NewRebuildTask(tasks.ReasonScheduled, 0)
	if err := s.dispatcher.Dispatch(context.Background(), task); err != nil {
		log.Errorf("[Scheduler] 投递定时重建任务失败: %v", err)
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度并等待正在运行的任务返回。
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
