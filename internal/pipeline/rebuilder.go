package pipeline

import (
	"context"
	"sync"

	"helpdesk-go/internal/service"
	"helpdesk-go/pkg/log"
	"helpdesk-go/pkg/tasks"
)

// CorpusRebuilder 是能够重建语料的服务。
type CorpusRebuilder interface {
	Rebuild(ctx context.Context) (service.CorpusStats, error)
}

// Processor 处理语料重建任务，供 Kafka 消费者与进程内执行器共用。
type Processor struct {
	rebuilder CorpusRebuilder
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(rebuilder CorpusRebuilder) *Processor {
	return &Processor{rebuilder: rebuilder}
}

// Process 执行一次重建。失败时返回错误，由调用方决定是否重试。
func (p *Processor) Process(ctx context.Context, task tasks.CorpusRebuildTask) error {
	log.Infof("[Processor] 开始重建语料, taskID: %s, reason: %s, ticketID: %d", task.TaskID, task.Reason, task.TicketID)
	stats, err := p.rebuilder.Rebuild(ctx)
	if err != nil {
		return err
	}
	log.Infof("[Processor] 语料重建完成, taskID: %s, records: %d, vocabulary: %d", task.TaskID, stats.Records, stats.VocabularySize)
	return nil
}

// LocalDispatcher 在未配置 Kafka 时于进程内执行重建。
// 同一时刻最多保留一个待执行任务，执行期间到达的任务会合并。
type LocalDispatcher struct {
	processor *Processor
	pending   chan tasks.CorpusRebuildTask
	wg        sync.WaitGroup
}

func NewLocalDispatcher(processor *Processor) *LocalDispatcher {
	return &LocalDispatcher{
		processor: processor,
		pending:   make(chan tasks.CorpusRebuildTask, 1),
	}
}

// Start 启动后台执行循环，直到 ctx 结束。
func (d *LocalDispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case task := <-d.pending:
				if err := d.processor.Process(ctx, task); err != nil {
					log.Errorf("[LocalDispatcher] 语料重建失败, taskID: %s, error: %v", task.TaskID, err)
				}
			}
		}
	}()
}

// Dispatch 投递任务，已有待执行任务时直接合并。
func (d *LocalDispatcher) Dispatch(ctx context.Context, task tasks.CorpusRebuildTask) error {
	select {
	case d.pending <- task:
	default:
		log.Infof("[LocalDispatcher] 已有待执行的重建任务，合并 taskID: %s", task.TaskID)
	}
	return nil
}

// Wait 等待执行循环退出。
func (d *LocalDispatcher) Wait() {
	d.wg.Wait()
}
