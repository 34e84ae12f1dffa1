package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"bqrelay/relay/config"
	"bqrelay/tools/logger"
)

// 启动失败后的最小重试间隔
const minStartRetry = time.Second

// CommandFunc 为编号为 id 的 worker 构造子进程命令
type CommandFunc func(id int) (*exec.Cmd, error)

// Supervisor 启动 N 个 worker 进程，worker 退出后补一个新的。
// 自身不监听端口，也不加载 sink。
type Supervisor struct {
	Workers      int
	RestartDelay time.Duration
	// StopTimeout 发出停止信号后等待 worker 退出的时间，超时后强制 kill
	StopTimeout time.Duration
	StopSignal  os.Signal
	// 运行不足 MinUptime 就退出的 worker 视为启动失败，至少等待 CrashBackoff 再拉起
	MinUptime    time.Duration
	CrashBackoff time.Duration
	NewCommand  CommandFunc
	Logger      *logger.Logger
	// OnStart 每启动一个 worker 调用一次，可以为空
	OnStart func(id, pid int)
}

type exitEvent struct {
	id      int
	cmd     *exec.Cmd
	started time.Time
	err     error
}

// New 以当前可执行文件作为 worker
func New(workers int, restartDelay time.Duration, log *logger.Logger) *Supervisor {
	return &Supervisor{
		Workers:      workers,
		RestartDelay: restartDelay,
		StopTimeout:  10 * time.Second,
		StopSignal:   syscall.SIGTERM,
		MinUptime:    5 * time.Second,
		CrashBackoff: time.Second,
		NewCommand:   SelfCommand,
		Logger:       log,
	}
}

// SelfCommand 重新执行当前进程，通过环境变量告诉子进程自己的 worker 编号
func SelfCommand(id int) (*exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), config.WorkerIDEnv+"="+strconv.Itoa(id))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd, nil
}

// Run 启动所有 worker 并保持数量，ctx 结束后向 worker 转发停止信号并等待退出
func (s *Supervisor) Run(ctx context.Context) error {
	if s.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", s.Workers)
	}
	if s.StopTimeout <= 0 {
		s.StopTimeout = 10 * time.Second
	}
	if s.StopSignal == nil {
		s.StopSignal = syscall.SIGTERM
	}

	exits := make(chan exitEvent, s.Workers)
	restarts := make(chan int, s.Workers)
	running := make(map[int]*exec.Cmd, s.Workers)

	for id := 1; id <= s.Workers; id++ {
		cmd, err := s.start(id, exits)
		if err != nil {
			s.stop(running, exits)
			return err
		}
		running[id] = cmd
	}
	s.Logger.Info("Supervisor started %d workers", s.Workers)

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("Supervisor stopping %d workers...", len(running))
			s.stop(running, exits)
			return nil

		case e := <-exits:
			if running[e.id] != e.cmd {
				continue
			}
			delete(running, e.id)
			if ctx.Err() != nil {
				continue
			}
			delay := s.restartDelay(time.Since(e.started))
			s.Logger.Warn("Worker %d exited: %s, starting a replacement in %s", e.id, exitReason(e.err), delay)
			s.scheduleRestart(ctx, e.id, delay, restarts)

		case id := <-restarts:
			if ctx.Err() != nil {
				continue
			}
			cmd, err := s.start(id, exits)
			if err != nil {
				s.Logger.Error("Failed to restart worker %d: %v", id, err)
				s.scheduleRestart(ctx, id, max(s.RestartDelay, minStartRetry), restarts)
				continue
			}
			running[id] = cmd
		}
	}
}

func (s *Supervisor) start(id int, exits chan<- exitEvent) (*exec.Cmd, error) {
	cmd, err := s.NewCommand(id)
	if err != nil {
		return nil, fmt.Errorf("build worker %d: %w", id, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker %d: %w", id, err)
	}

	s.Logger.Debug("Worker %d started with pid %d", id, cmd.Process.Pid)
	if s.OnStart != nil {
		s.OnStart(id, cmd.Process.Pid)
	}

	started := time.Now()
	go func() {
		exits <- exitEvent{id: id, cmd: cmd, started: started, err: cmd.Wait()}
	}()
	return cmd, nil
}

// restartDelay 启动后很快退出的 worker 不立即重启，避免配置错误时反复 fork
func (s *Supervisor) restartDelay(uptime time.Duration) time.Duration {
	if uptime < s.MinUptime {
		return max(s.RestartDelay, s.CrashBackoff)
	}
	return s.RestartDelay
}

func (s *Supervisor) scheduleRestart(ctx context.Context, id int, delay time.Duration, restarts chan<- int) {
	if delay <= 0 {
		restarts <- id
		return
	}
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			restarts <- id
		case <-ctx.Done():
		}
	}()
}

// stop 向仍在运行的 worker 发送停止信号，超时后 kill
func (s *Supervisor) stop(running map[int]*exec.Cmd, exits <-chan exitEvent) {
	for id, cmd := range running {
		if err := cmd.Process.Signal(s.StopSignal); err != nil {
			s.Logger.Warn("Failed to signal worker %d: %v", id, err)
		}
	}

	timeout := time.NewTimer(s.StopTimeout)
	defer timeout.Stop()

	for len(running) > 0 {
		select {
		case e := <-exits:
			if running[e.id] == e.cmd {
				delete(running, e.id)
				s.Logger.Debug("Worker %d stopped: %s", e.id, exitReason(e.err))
			}
		case <-timeout.C:
			for id, cmd := range running {
				s.Logger.Warn("Worker %d did not stop in %s, killing", id, s.StopTimeout)
				_ = cmd.Process.Kill()
			}
			// kill 之后 Wait 一定会返回，继续收集退出事件
			timeout.Reset(time.Hour)
		}
	}
}

func exitReason(err error) string {
	if err == nil {
		return "exit status 0"
	}
	return err.Error()
}
