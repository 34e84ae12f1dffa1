//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package supervisor

import (
	"context"
	"net"
	"testing"
)

func TestListenSharesPort(t *testing.T) {
	ctx := context.Background()

	first, err := Listen(ctx, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("first listen: %v", err)
	}
	defer first.Close()

	addr := first.Addr().(*net.TCPAddr)
	second, err := Listen(ctx, addr.String())
	if err != nil {
		t.Fatalf("second listener on %s should share the port: %v", addr, err)
	}
	defer second.Close()
}
