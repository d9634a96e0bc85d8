package utils

import (
	"strconv"
	"strings"

	"github.com/vuuvv/errors"
	"golang.org/x/exp/constraints"
)

// InRange 判断 v 是否在闭区间 [lo, hi] 内
func InRange[T constraints.Integer | constraints.Float](v, lo, hi T) bool {
	return v >= lo && v <= hi
}

// ParseNumber 解析数字字面量, 0x/0X 开头按十六进制, 否则按十进制
func ParseNumber(s string) (int64, error) {
	if len(s) >= 2 && strings.EqualFold(s[:2], "0x") {
		digits := s[2:]
		if digits == "" {
			return 0, errors.Errorf("invalid hex number '%s'", s)
		}
		u, err := strconv.ParseUint(digits, 16, 63)
		if err != nil {
			return 0, errors.Errorf("invalid hex number '%s': %v", s, err)
		}
		return int64(u), nil
	}
	if s == "" {
		return 0, errors.New("empty number")
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid decimal number '%s': %v", s, err)
	}
	return i, nil
}
