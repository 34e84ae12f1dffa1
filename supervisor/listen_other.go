//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package supervisor

import (
	"context"
	"net"
)

// Listen 当前平台不支持 SO_REUSEPORT，多 worker 时只有第一个能绑定端口
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(ctx, "tcp", addr)
}
