package ring

const (
	BackendLiburing = "liburing"
	BackendGiouring = "giouring"
)

// ValidBackend
// 空字符串表示默认的 liburing。
func ValidBackend(backend string) bool {
	switch backend {
	case "", BackendLiburing, BackendGiouring:
		return true
	default:
		return false
	}
}
