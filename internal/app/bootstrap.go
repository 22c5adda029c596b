package app

import (
	"errors"

	"github.com/tapbio-next/internal/config"
	"github.com/tapbio-next/internal/logger"
	"github.com/tapbio-next/internal/provider"
	"github.com/tapbio-next/internal/router"
	"github.com/tapbio-next/internal/worker"
)

// BuildRunner 构建服务运行器
// all 模式下队列未启用时只启动 HTTP，流水改为同步落库
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	container, err := provider.NewContainer(cfg)
	if err != nil {
		return nil, err
	}

	var services []Service
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(cfg.Server.Addr(), engine))
	}

	if mode == ModeAll || mode == ModeWorker {
		workerService, err := worker.NewService(&cfg.Queue, worker.NewConsumer(container))
		switch {
		case err == nil:
			services = append(services, workerService)
		case errors.Is(err, worker.ErrQueueDisabled) && mode == ModeAll:
			logger.Infow("app_worker_skipped_queue_disabled")
		default:
			return nil, err
		}
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}
	return NewRunner(services...), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	opts.Logger.Infow("app_start", "addr", opts.Config.Server.Addr(), "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
