package sink

import (
	"context"

	"bqrelay/relay/config"
	"bqrelay/tools/ioc"
)

// AppName sink 在控制器容器中的注册名
const AppName = "sink"

// Provider 进程级 sink，启动时创建一次，所有请求共用
type Provider struct {
	Sink
}

func init() {
	ioc.ConController.RegisterContainer(AppName, &Provider{})
}

func (p *Provider) Init() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	s, err := New(context.Background(), cfg.Sink, cfg.NewLogger())
	if err != nil {
		return err
	}
	p.Sink = s
	return nil
}

func (p *Provider) Close() error {
	if p.Sink == nil {
		return nil
	}
	return p.Sink.Close()
}
