package ring

import "strconv"

// Kind
// 操作类型，与 fd 一起编码进 user_data。
type Kind uint8

const (
	Accept Kind = iota + 1
	Receive
	Send
	Close
	Wakeup
)

func (k Kind) String() string {
	switch k {
	case Accept:
		return "accept"
	case Receive:
		return "receive"
	case Send:
		return "send"
	case Close:
		return "close"
	case Wakeup:
		return "wakeup"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Operation
// 一个已提交操作的标识。Accept 的 Fd 为 -1，新连接的 fd 在完成时才知道。
type Operation struct {
	Kind Kind
	Fd   int32
}

func Accepting() Operation {
	return Operation{Kind: Accept, Fd: -1}
}

func Receiving(fd int) Operation {
	return Operation{Kind: Receive, Fd: int32(fd)}
}

func Sending(fd int) Operation {
	return Operation{Kind: Send, Fd: int32(fd)}
}

func Closing(fd int) Operation {
	return Operation{Kind: Close, Fd: int32(fd)}
}

func Waking(fd int) Operation {
	return Operation{Kind: Wakeup, Fd: int32(fd)}
}

// Encode
// 高 32 位为 Kind，低 32 位为 fd。
func (op Operation) Encode() uint64 {
	return uint64(op.Kind)<<32 | uint64(uint32(op.Fd))
}

func Decode(tag uint64) Operation {
	return Operation{
		Kind: Kind(tag >> 32),
		Fd:   int32(uint32(tag)),
	}
}

func (op Operation) String() string {
	return op.Kind.String() + "(" + strconv.Itoa(int(op.Fd)) + ")"
}
