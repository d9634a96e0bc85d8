package core

import (
	"fmt"

	"github.com/vuuvv/errors"
	"github.com/vuuvv/rplcui/utils"
)

const (
	CommandIDMin = 0
	CommandIDMax = 65535
)

func ParseNumber(s string) (int64, error) {
	return utils.ParseNumber(s)
}

// ParseCommandID 解析 command_id, 取值范围 [0, 65535]
func ParseCommandID(s string) (uint16, error) {
	n, err := utils.ParseNumber(s)
	if err != nil {
		return 0, err
	}
	if !utils.InRange[int64](n, CommandIDMin, CommandIDMax) {
		return 0, errors.Errorf("command id %d out of range [%d, %d]", n, CommandIDMin, CommandIDMax)
	}
	return uint16(n), nil
}

func FormatCommandID(id uint16) string {
	return fmt.Sprintf("0x%04X", id)
}
