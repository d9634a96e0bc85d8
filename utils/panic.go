package utils

import (
	"fmt"

	"github.com/vuuvv/rplcui/log"
)

func Panicf(format string, a ...any) {
	panic(fmt.Sprintf(format, a...))
}

func NormalRecover() {
	if r := recover(); r != nil {
		log.Error(r)
	}
}

func Catch(handler func(reason any)) {
	if r := recover(); r != nil {
		log.Error(r)
		handler(r)
	}
}

// CallWithRecover 执行 fn, fn 中的 panic 会被转换为返回的 error
func CallWithRecover(fn func() error) (err error) {
	defer Catch(func(reason any) {
		_, err = log.CastToError(reason)
	})
	return fn()
}
