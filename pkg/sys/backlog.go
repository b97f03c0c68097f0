//go:build linux

package sys

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/brickingsoft/ringd/pkg/kernel"
	"golang.org/x/sys/unix"
)

var (
	somaxconn   = unix.SOMAXCONN
	backlogOnce = sync.Once{}
)

// MaxListenerBacklog
// 读取 /proc/sys/net/core/somaxconn，失败时使用 SOMAXCONN。
func MaxListenerBacklog() int {
	backlogOnce.Do(func() {
		f, err := os.Open("/proc/sys/net/core/somaxconn")
		if err != nil {
			return
		}
		defer func() {
			_ = f.Close()
		}()
		l, readLineErr := bufio.NewReader(f).ReadString('\n')
		if readLineErr != nil && l == "" {
			return
		}
		n, parseErr := strconv.Atoi(strings.TrimSpace(l))
		if parseErr != nil || n <= 0 {
			return
		}
		somaxconn = maxAckBacklog(n)
	})
	return somaxconn
}

// listen(2) truncates the backlog to 16 bits before 4.1 and to 32 bits after.
func maxAckBacklog(n int) int {
	size := 16
	if v, err := kernel.Get(); err == nil && v.GTE(4, 1, 0) {
		size = 32
	}
	var maxAck uint = 1<<size - 1
	if uint(n) > maxAck {
		n = int(maxAck)
	}
	return n
}
