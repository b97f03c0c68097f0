//go:build linux

package liburing

import (
	"strings"
)

const (
	// IORING_SETUP_IOPOLL
	// 忙等 I/O 完成，而不是通过中断获取通知。仅适用于 O_DIRECT 打开的文件，网络场景不要使用。
	IORING_SETUP_IOPOLL uint32 = 1 << iota
	// IORING_SETUP_SQPOLL
	// 创建一个内核线程轮询提交队列，提交时无需进入内核。
	// 内核线程空闲超过 sq_thread_idle 毫秒后会设置 IORING_SQ_NEED_WAKEUP，此时需要以 IORING_ENTER_SQ_WAKEUP 唤醒。
	// 它会占用一个 CPU。5.13 之后不再需要特殊权限。
	IORING_SETUP_SQPOLL
	// IORING_SETUP_SQ_AFF
	// 将轮询线程绑定到 sq_thread_cpu 指定的 CPU，仅在 IORING_SETUP_SQPOLL 时有意义。
	IORING_SETUP_SQ_AFF
	// IORING_SETUP_CQSIZE
	// 使用 cq_entries 指定完成队列大小。
	IORING_SETUP_CQSIZE
	// IORING_SETUP_CLAMP
	// 条目数超过上限时箝位到上限，而不是返回 EINVAL。
	IORING_SETUP_CLAMP
	// IORING_SETUP_ATTACH_WQ
	// 共享 wq_fd 指定的 ring 的异步工作线程。
	IORING_SETUP_ATTACH_WQ
	// IORING_SETUP_R_DISABLED
	// 以禁用状态创建 ring。自 5.10 起可用。
	IORING_SETUP_R_DISABLED
	// IORING_SETUP_SUBMIT_ALL
	// 某个请求提交出错时继续提交剩余请求。自 5.18 起可用。
	IORING_SETUP_SUBMIT_ALL
	// IORING_SETUP_COOP_TASKRUN
	// 有完成事件时不强制中断用户态任务，事件在下一次内核/用户态切换时处理。
	// 单线程提交且单线程收割的场景下可以提升性能。自 5.19 起可用。
	IORING_SETUP_COOP_TASKRUN
	// IORING_SETUP_TASKRUN_FLAG
	// 与 IORING_SETUP_COOP_TASKRUN 配合，有待处理的完成时在 SQ 标志中设置 IORING_SQ_TASKRUN。
	IORING_SETUP_TASKRUN_FLAG
	// IORING_SETUP_SQE128
	// 使用 128 字节的 SQE。
	IORING_SETUP_SQE128
	// IORING_SETUP_CQE32
	// 使用 32 字节的 CQE。
	IORING_SETUP_CQE32
	// IORING_SETUP_SINGLE_ISSUER
	// 只有一个任务（创建 ring 的线程）会提交请求。自 6.0 起可用。
	IORING_SETUP_SINGLE_ISSUER
	// IORING_SETUP_DEFER_TASKRUN
	// 延迟执行完成任务，直到以 IORING_ENTER_GETEVENTS 进入内核。需要 IORING_SETUP_SINGLE_ISSUER，自 6.1 起可用。
	IORING_SETUP_DEFER_TASKRUN
)

const (
	IORING_FEAT_SINGLE_MMAP uint32 = 1 << iota
	IORING_FEAT_NODROP
	IORING_FEAT_SUBMIT_STABLE
	IORING_FEAT_RW_CUR_POS
	IORING_FEAT_CUR_PERSONALITY
	IORING_FEAT_FAST_POLL
	IORING_FEAT_POLL_32BITS
	IORING_FEAT_SQPOLL_NONFIXED
	IORING_FEAT_EXT_ARG
	IORING_FEAT_NATIVE_WORKERS
	IORING_FEAT_RSRC_TAGS
	IORING_FEAT_CQE_SKIP
	IORING_FEAT_LINKED_FILE
	IORING_FEAT_REG_REG_RING
)

var setupFlagNames = []string{
	"IOPOLL",
	"SQPOLL",
	"SQ_AFF",
	"CQSIZE",
	"CLAMP",
	"ATTACH_WQ",
	"R_DISABLED",
	"SUBMIT_ALL",
	"COOP_TASKRUN",
	"TASKRUN_FLAG",
	"SQE128",
	"CQE32",
	"SINGLE_ISSUER",
	"DEFER_TASKRUN",
}

// SetupFlagsString
// 以 `SQPOLL|CLAMP` 形式输出 setup 标志。
func SetupFlagsString(flags uint32) string {
	if flags == 0 {
		return "NONE"
	}
	names := make([]string, 0, 4)
	for i, name := range setupFlagNames {
		if flags&(1<<uint(i)) != 0 {
			names = append(names, name)
		}
	}
	return strings.Join(names, "|")
}
