package kernel

import "fmt"

type Version struct {
	Kernel int
	Major  int
	Minor  int
	Flavor string
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d%s", v.Kernel, v.Major, v.Minor, v.Flavor)
}

// GTE
// 当前版本是否不低于给定版本。
func (v Version) GTE(k, major, minor int) bool {
	return Compare(v, Version{Kernel: k, Major: major, Minor: minor}) >= 0
}

func Compare(a, b Version) int {
	if a.Kernel > b.Kernel {
		return 1
	} else if a.Kernel < b.Kernel {
		return -1
	}

	if a.Major > b.Major {
		return 1
	} else if a.Major < b.Major {
		return -1
	}

	if a.Minor > b.Minor {
		return 1
	} else if a.Minor < b.Minor {
		return -1
	}

	return 0
}

func Check(k, major, minor int) (bool, error) {
	v, err := Get()
	if err != nil {
		return false, err
	}
	return v.GTE(k, major, minor), nil
}

const (
	firstNumberOfParts  = 2
	secondNumberOfParts = 1
)

// Parse
// 解析 uname release，例如 `6.8.0-45-generic`。
func Parse(release string) (v Version, err error) {
	var (
		parsed  int
		partial string
	)

	parsed, _ = fmt.Sscanf(release, "%d.%d%s", &v.Kernel, &v.Major, &partial)
	if parsed < firstNumberOfParts {
		err = fmt.Errorf("cannot parse kernel version: %s", release)
		return
	}

	parsed, _ = fmt.Sscanf(partial, ".%d%s", &v.Minor, &v.Flavor)
	if parsed < secondNumberOfParts {
		v.Flavor = partial
	}
	return
}
